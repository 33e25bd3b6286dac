package verify

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco"
)

type scriptedProvider struct {
	response string
	err      error
	lastOpts llm.Options
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Options{}
	for _, o := range options {
		o(&opts)
	}
	p.lastOpts = opts
	return p.response, p.err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

var candidates = []reco.Song{
	{Title: "Blue Rain", Artist: "Nora Lane", Genre: "Indie", Mood: "sad", Language: "English"},
	{Title: "Night Ferry", Artist: "The Atlas Line", Genre: "Rock", Mood: "sad", Language: "English"},
}

func TestVerifyKeepsConfirmedSubset(t *testing.T) {
	provider := &scriptedProvider{
		response: `[{"title": "Blue Rain", "artist": "Nora Lane", "genre": "Indie", "mood": "sad", "language": "English"}]`,
	}
	v := NewVerifier(provider, testLogger())

	got := v.Verify(context.Background(), candidates)
	if len(got) != 1 || got[0].Title != "Blue Rain" {
		t.Fatalf("verified = %+v, want only Blue Rain", got)
	}
	if provider.lastOpts.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", provider.lastOpts.Temperature)
	}
}

func TestVerifyOutputIsSubsetOfInput(t *testing.T) {
	// The model tries to sneak in a song that was never a candidate.
	provider := &scriptedProvider{
		response: `[
			{"title": "Blue Rain", "artist": "Nora Lane"},
			{"title": "Imagine", "artist": "John Lennon"}
		]`,
	}
	v := NewVerifier(provider, testLogger())

	got := v.Verify(context.Background(), candidates)
	if len(got) != 1 || got[0].Key() != candidates[0].Key() {
		t.Fatalf("verifier output is not a subset of its input: %+v", got)
	}
}

func TestVerifyAcceptsWrappedList(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"verified_songs": [{"title": "Night Ferry", "artist": "The Atlas Line"}]}`,
	}
	v := NewVerifier(provider, testLogger())

	got := v.Verify(context.Background(), candidates)
	if len(got) != 1 || got[0].Title != "Night Ferry" {
		t.Fatalf("verified = %+v, want Night Ferry", got)
	}
}

func TestVerifyStripsCodeFence(t *testing.T) {
	provider := &scriptedProvider{
		response: "```json\n[{\"title\": \"Blue Rain\", \"artist\": \"Nora Lane\"}]\n```",
	}
	v := NewVerifier(provider, testLogger())

	if got := v.Verify(context.Background(), candidates); len(got) != 1 {
		t.Fatalf("verified = %+v, want one song", got)
	}
}

func TestVerifyFailsClosedOnGarbage(t *testing.T) {
	provider := &scriptedProvider{response: "I am fairly sure both songs are real!"}
	v := NewVerifier(provider, testLogger())

	if got := v.Verify(context.Background(), candidates); len(got) != 0 {
		t.Fatalf("verified = %+v, want empty on unparseable answer", got)
	}
}

func TestVerifyFailsClosedOnModelError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("gateway down")}
	v := NewVerifier(provider, testLogger())

	if got := v.Verify(context.Background(), candidates); len(got) != 0 {
		t.Fatalf("verified = %+v, want empty on transport failure", got)
	}
}

func TestVerifyDropsEntriesMissingIdentity(t *testing.T) {
	provider := &scriptedProvider{
		response: `[
			{"title": "Blue Rain", "artist": "Nora Lane"},
			{"title": "", "artist": "Nora Lane"},
			"just a string",
			{"title": "Night Ferry", "artist": "   "}
		]`,
	}
	v := NewVerifier(provider, testLogger())

	got := v.Verify(context.Background(), candidates)
	if len(got) != 1 || got[0].Title != "Blue Rain" {
		t.Fatalf("verified = %+v, want only the complete entry", got)
	}
}

func TestVerifyEmptyBatchSkipsModel(t *testing.T) {
	provider := &scriptedProvider{response: `[]`}
	v := NewVerifier(provider, testLogger())

	if got := v.Verify(context.Background(), nil); len(got) != 0 {
		t.Fatalf("verified = %+v, want empty", got)
	}
}
