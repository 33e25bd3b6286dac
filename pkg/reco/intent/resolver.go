package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-tunemate-be/pkg/llm"
)

// Intent is the structured reading of one user utterance. All slots are
// nullable; a null slot means the user did not constrain it.
type Intent struct {
	Intent string  `json:"intent"`
	Mood   *string `json:"mood"`
	Genre  *string `json:"genre"`
	Artist *string `json:"artist"`
	Song   *string `json:"song"`
}

// Intent category constants
const (
	IntentFindMusic = "find_music"
	IntentChat      = "chat"
	IntentOther     = "other"
)

// Resolver performs the first pipeline pass: free text in, Intent out.
// It never fails; any model or parse trouble degrades to the default intent.
type Resolver struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewResolver(llmProvider llm.LLMProvider, logger *log.Logger) *Resolver {
	return &Resolver{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Resolve extracts the intent from the utterance plus recent dialogue.
func (r *Resolver) Resolve(ctx context.Context, utterance string, history []llm.Message) *Intent {
	prompt := r.buildPrompt(utterance, history)

	response, err := r.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(500),
	)
	if err != nil {
		r.logger.Printf("[ERROR] Intent extraction failed: %v", err)
		return defaultIntent()
	}

	intent, err := parseIntent(response)
	if err != nil {
		r.logger.Printf("[WARN] Intent parsing failed, using default: %v", err)
		return defaultIntent()
	}

	r.logger.Printf("[INTENT] Resolved: %s (mood=%s genre=%s artist=%s song=%s)",
		intent.Intent, slot(intent.Mood), slot(intent.Genre), slot(intent.Artist), slot(intent.Song))

	return intent
}

func (r *Resolver) buildPrompt(utterance string, history []llm.Message) string {
	var prompt strings.Builder

	prompt.WriteString("You analyze music requests. Your ONLY job is to classify what the user wants.\n")
	prompt.WriteString("You do NOT recommend songs here. You only extract structured intent.\n\n")

	if len(history) > 0 {
		prompt.WriteString("Recent conversation:\n")
		for _, msg := range history {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("User request:\n")
	prompt.WriteString(utterance)
	prompt.WriteString("\n\n")

	prompt.WriteString("Respond with ONLY valid JSON holding exactly these five fields:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent\": \"find_music|chat|other\",\n")
	prompt.WriteString("  \"mood\": \"the mood the user wants, or null\",\n")
	prompt.WriteString("  \"genre\": \"the genre the user wants, or null\",\n")
	prompt.WriteString("  \"artist\": \"a specific artist mentioned, or null\",\n")
	prompt.WriteString("  \"song\": \"a specific song mentioned, or null\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("Use null for anything the user did not say. No prose, no markdown fences.")

	return prompt.String()
}

func parseIntent(response string) (*Intent, error) {
	jsonContent := extractJSON(stripCodeFence(response))
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var intent Intent
	if err := json.Unmarshal([]byte(jsonContent), &intent); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	intent.Intent = strings.ToLower(strings.TrimSpace(intent.Intent))
	if intent.Intent == "" {
		intent.Intent = IntentFindMusic
	}
	return &intent, nil
}

func defaultIntent() *Intent {
	return &Intent{Intent: IntentFindMusic}
}

// stripCodeFence removes an optional ```json ... ``` wrapper.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the fence line with its optional language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}

func slot(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
