package factory

import (
	"fmt"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/llm/dashscope"
	"ai-tunemate-be/pkg/llm/ollama"
	"ai-tunemate-be/pkg/llm/openai"
	"ai-tunemate-be/pkg/llm/zhipu"
)

// NewLLMProvider builds the configured chat backend. Remote providers require
// an API key; ollama only needs a reachable daemon.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai", "moonshot":
		if apiKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", providerType)
		}
		return openai.NewOpenAIProvider(apiKey, baseURL, modelName), nil
	case "dashscope", "qwen":
		if apiKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", providerType)
		}
		return dashscope.NewDashScopeProvider(apiKey, baseURL, modelName), nil
	case "zhipu":
		if apiKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", providerType)
		}
		return zhipu.NewZhipuProvider(apiKey, baseURL, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
