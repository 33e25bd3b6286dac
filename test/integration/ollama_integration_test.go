// Exercises the Ollama provider against a locally running daemon. Skipped
// unless an Ollama server is reachable, so CI without one stays green.

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/llm/ollama"
)

const (
	ollamaBaseURL = "http://localhost:11434"
	ollamaModel   = "gemma:2b"
)

func requireOllama(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ollamaBaseURL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Skipf("Skipping: Ollama not running at %s: %v", ollamaBaseURL, err)
	}
	res.Body.Close()
}

func TestOllamaGenerate(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaModel)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	response, err := provider.Generate(ctx, "Say 'Ollama works!' in one sentence.")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	t.Logf("Response: %s", response)

	if response == "" {
		t.Error("Response should not be empty")
	}
}

func TestOllamaChatMultiTurn(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL, ollamaModel)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	messages := []llm.Message{
		{Role: "user", Content: "My favorite artist is Adele"},
		{Role: "assistant", Content: "Noted, Adele is a great choice!"},
		{Role: "user", Content: "Who is my favorite artist?"},
	}

	response, err := provider.Chat(ctx, messages, llm.WithTemperature(0.1))
	if err != nil {
		t.Fatalf("Multi-turn chat failed: %v", err)
	}
	t.Logf("Response: %s", response)

	if !strings.Contains(response, "Adele") {
		t.Logf("Response may not retain conversation context: %s", response)
	}
}
