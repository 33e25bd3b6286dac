package narrate

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"os"
	"strings"
	"testing"

	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco/intent"
)

type scriptedProvider struct {
	response     string
	err          error
	lastOpts     llm.Options
	lastMessages []llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Options{}
	for _, o := range options {
		o(&opts)
	}
	p.lastOpts = opts
	p.lastMessages = history
	return p.response, p.err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

var matched = []knowledge.Item{
	{Title: "Blue Rain", Artist: "Nora Lane", Genre: "Indie", Mood: "sad"},
	{Title: "Night Ferry", Artist: "The Atlas Line", Genre: "Rock", Mood: "sad"},
}

func TestNarrateReturnsModelReply(t *testing.T) {
	provider := &scriptedProvider{response: "  Two gems for a rainy day.  "}
	n := NewNarrator(provider, testLogger(), WithRand(rand.New(rand.NewSource(1))))

	got := n.Narrate(context.Background(), "something melancholy", matched, &intent.Intent{Intent: "find_music"}, nil)
	if got != "Two gems for a rainy day." {
		t.Fatalf("reply = %q", got)
	}
	if provider.lastOpts.Temperature < 0.8 || provider.lastOpts.Temperature > 1.0 {
		t.Errorf("temperature = %v, want within [0.8, 1.0]", provider.lastOpts.Temperature)
	}
	if provider.lastOpts.MaxTokens != 500 {
		t.Errorf("max tokens = %d, want 500", provider.lastOpts.MaxTokens)
	}

	user := provider.lastMessages[len(provider.lastMessages)-1].Content
	if !strings.Contains(user, "Blue Rain") || !strings.Contains(user, "Night Ferry") {
		t.Errorf("prompt missing matched songs: %q", user)
	}
}

func TestNarrateCapsSongsAtFive(t *testing.T) {
	many := make([]knowledge.Item, 8)
	for i := range many {
		many[i] = knowledge.Item{Title: "Song " + string(rune('A'+i)), Artist: "Various"}
	}

	provider := &scriptedProvider{response: "ok"}
	n := NewNarrator(provider, testLogger())

	n.Narrate(context.Background(), "anything", many, &intent.Intent{}, nil)

	user := provider.lastMessages[len(provider.lastMessages)-1].Content
	if strings.Contains(user, "Song F") {
		t.Errorf("prompt should stop at five songs: %q", user)
	}
	if !strings.Contains(user, "Song E") {
		t.Errorf("prompt missing fifth song: %q", user)
	}
}

func TestNarrateDegradesToPlainListing(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("gateway down")}
	n := NewNarrator(provider, testLogger())

	got := n.Narrate(context.Background(), "sad songs", matched, &intent.Intent{}, nil)
	if !strings.Contains(got, "1. Blue Rain - Nora Lane") {
		t.Fatalf("fallback listing = %q", got)
	}
	if !strings.Contains(got, "2. Night Ferry - The Atlas Line") {
		t.Fatalf("fallback listing = %q", got)
	}
}

func TestNarrateIncludesRecentHistory(t *testing.T) {
	provider := &scriptedProvider{response: "ok"}
	n := NewNarrator(provider, testLogger())

	history := []llm.Message{
		{Role: "user", Content: "play me something sad"},
		{Role: "assistant", Content: "Try Blue Rain"},
	}
	n.Narrate(context.Background(), "more like that", matched, &intent.Intent{}, history)

	user := provider.lastMessages[len(provider.lastMessages)-1].Content
	if !strings.Contains(user, "Try Blue Rain") {
		t.Errorf("prompt missing history: %q", user)
	}
}
