package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-tunemate-be/pkg/llm"
)

// DashScopeProvider targets Alibaba's native text-generation API (Qwen models).
// The compatible-mode endpoint is covered by the openai provider instead.
type DashScopeProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &DashScopeProvider{}

// --- Request/Response structs (Internal to this package) ---

type dashscopeRequest struct {
	Model      string              `json:"model"`
	Input      dashscopeInput      `json:"input"`
	Parameters dashscopeParameters `json:"parameters"`
}

type dashscopeInput struct {
	Messages []dashscopeMessage `json:"messages"`
}

type dashscopeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type dashscopeParameters struct {
	ResultFormat string  `json:"result_format"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

type dashscopeResponse struct {
	Output struct {
		Choices []struct {
			Message dashscopeMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewDashScopeProvider(apiKey, baseURL, model string) *DashScopeProvider {
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com"
	}
	return &DashScopeProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *DashScopeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := &llm.Options{
		Model:       p.model,
		Temperature: 0.7,
	}
	for _, o := range options {
		o(opts)
	}

	messages := make([]dashscopeMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages[i] = dashscopeMessage{Role: role, Content: msg.Content}
	}

	reqPayload := dashscopeRequest{
		Model: opts.Model,
		Input: dashscopeInput{Messages: messages},
		Parameters: dashscopeParameters{
			ResultFormat: "message",
			Temperature:  opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		reqPayload.Parameters.MaxTokens = opts.MaxTokens
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := p.baseURL + "/api/v1/services/aigc/text-generation/generation"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dashscope request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dashscope error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var dsResp dashscopeResponse
	if err := json.Unmarshal(bodyBytes, &dsResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if dsResp.Code != "" {
		return "", fmt.Errorf("dashscope api returned error %s: %s", dsResp.Code, dsResp.Message)
	}

	if len(dsResp.Output.Choices) == 0 {
		return "", fmt.Errorf("empty choices from dashscope api")
	}

	return dsResp.Output.Choices[0].Message.Content, nil
}

func (p *DashScopeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
