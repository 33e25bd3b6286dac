package queryfilter

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco/intent"
)

type scriptedProvider struct {
	response string
	err      error
	calls    int
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.calls++
	return p.response, p.err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.calls++
	return p.response, p.err
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func str(s string) *string { return &s }

func TestSynthesizeParsesFilterObject(t *testing.T) {
	provider := &scriptedProvider{response: `{"genre": "rock", "mood": "sad"}`}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{Intent: "find_music", Mood: str("melancholic")}
	f := s.Synthesize(context.Background(), in, []string{"genre", "mood", "artist", "title"})

	if f.Genre != "rock" {
		t.Errorf("genre = %q, want rock", f.Genre)
	}
	if f.Mood != "sad" {
		t.Errorf("mood = %q, want sad (model value wins over intent)", f.Mood)
	}
}

func TestSynthesizeSkipsModelWhenNoFieldsAvailable(t *testing.T) {
	provider := &scriptedProvider{response: `{"genre": "rock"}`}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{
		Intent: "find_music",
		Mood:   str("sad"),
		Artist: str("Nora Lane"),
		Song:   str("Blue Rain"),
	}
	f := s.Synthesize(context.Background(), in, nil)

	if provider.calls != 0 {
		t.Fatalf("model was called %d times, want 0", provider.calls)
	}
	if f.Mood != "sad" || f.Artist != "Nora Lane" || f.Title != "Blue Rain" {
		t.Errorf("intent-derived filter = %+v", f)
	}
}

func TestSynthesizeToleratesSurroundingProse(t *testing.T) {
	provider := &scriptedProvider{
		response: "Sure, here is the query:\n```json\n{\"genre\": \"jazz\", \"mood\": null}\n```\nHope this helps!",
	}
	s := NewSynthesizer(provider, testLogger())

	f := s.Synthesize(context.Background(), &intent.Intent{Intent: "find_music"}, []string{"genre", "mood"})
	if f.Genre != "jazz" {
		t.Errorf("genre = %q, want jazz", f.Genre)
	}
}

func TestSynthesizeDropsDisallowedFields(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"genre": "pop", "year": "1999", "limit": "all", "SQL": "drop table"}`,
	}
	s := NewSynthesizer(provider, testLogger())

	f := s.Synthesize(context.Background(), &intent.Intent{Intent: "find_music"}, []string{"genre"})
	if f.Genre != "pop" {
		t.Errorf("genre = %q, want pop", f.Genre)
	}
	if f.Mood != "" || f.Artist != "" || f.Title != "" {
		t.Errorf("disallowed fields leaked into filter: %+v", f)
	}
}

func TestSynthesizeBackfillsMissingFieldsFromIntent(t *testing.T) {
	provider := &scriptedProvider{response: `{"genre": "rock"}`}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{Intent: "find_music", Artist: str("The Atlas Line")}
	f := s.Synthesize(context.Background(), in, []string{"genre", "artist"})

	if f.Genre != "rock" {
		t.Errorf("genre = %q, want rock", f.Genre)
	}
	if f.Artist != "The Atlas Line" {
		t.Errorf("artist = %q, want back-filled intent value", f.Artist)
	}
}

func TestSynthesizeExplicitNullIsNotBackfilled(t *testing.T) {
	provider := &scriptedProvider{response: `{"genre": "rock", "artist": null}`}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{Intent: "find_music", Artist: str("The Atlas Line")}
	f := s.Synthesize(context.Background(), in, []string{"genre", "artist"})

	if f.Artist != "" {
		t.Errorf("artist = %q, want no constraint for an explicit null", f.Artist)
	}
}

func TestSynthesizeDegradesToIntentOnModelError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("boom")}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{Intent: "find_music", Mood: str("calm")}
	f := s.Synthesize(context.Background(), in, []string{"mood"})
	if f.Mood != "calm" {
		t.Errorf("mood = %q, want intent fallback", f.Mood)
	}
}

func TestSynthesizeDegradesToIntentOnGarbage(t *testing.T) {
	provider := &scriptedProvider{response: "I cannot produce JSON today."}
	s := NewSynthesizer(provider, testLogger())

	in := &intent.Intent{Intent: "find_music", Genre: str("folk")}
	f := s.Synthesize(context.Background(), in, []string{"genre"})
	if f.Genre != "folk" {
		t.Errorf("genre = %q, want intent fallback", f.Genre)
	}
}
