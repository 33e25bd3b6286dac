package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-tunemate-be/internal/dto"
	sessionmem "ai-tunemate-be/internal/repository/memory"
	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/memory"
)

// queuedProvider answers Chat and Generate calls from one shared FIFO of
// canned responses, in pipeline order.
type queuedProvider struct {
	responses []string
	calls     int
}

func (p *queuedProvider) next() string {
	if p.calls >= len(p.responses) {
		return ""
	}
	r := p.responses[p.calls]
	p.calls++
	return r
}

func (p *queuedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.next(), nil
}

func (p *queuedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.next(), nil
}

func newTestStore(t *testing.T, items []knowledge.Item) *knowledge.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.json")
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := knowledge.NewStore(path, knowledge.WithShuffle(func(n int, swap func(i, j int)) {}))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func newTestService(provider llm.LLMProvider, store *knowledge.Store) (IRecommendationService, *memory.Manager) {
	mem := memory.NewManager(sessionmem.NewSessionRepository(), 600*time.Second)
	svc := NewRecommendationService(provider, store, mem, nil, 10, "refresh data")
	return svc, mem
}

var sadCatalog = []knowledge.Item{
	{ID: 1, Title: "Someone Like You", Artist: "Adele", Genre: "Pop", Mood: "sad", Language: "English"},
	{ID: 2, Title: "Happy", Artist: "Pharrell Williams", Genre: "Pop", Mood: "happy", Language: "English"},
}

func TestRecommendKnowledgeBaseHit(t *testing.T) {
	provider := &queuedProvider{responses: []string{
		`{"intent": "find_music", "mood": "sad", "genre": null, "artist": null, "song": null}`,
		`{"mood": "sad"}`,
		`Here is a heartbreaker for you.`,
	}}
	svc, _ := newTestService(provider, newTestStore(t, sadCatalog))

	resp, err := svc.Recommend(context.Background(), "I feel like crying", "session-1")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if resp.Source != dto.SourceKnowledgeBase {
		t.Fatalf("source = %q, want %q", resp.Source, dto.SourceKnowledgeBase)
	}
	if len(resp.MatchedSongs) != 1 || resp.MatchedSongs[0].Title != "Someone Like You" {
		t.Fatalf("matched songs = %+v", resp.MatchedSongs)
	}
	if resp.Recommendation != "Here is a heartbreaker for you." {
		t.Fatalf("recommendation = %q", resp.Recommendation)
	}
	if resp.Intent == nil || resp.Intent.Intent != "find_music" {
		t.Fatalf("intent = %+v", resp.Intent)
	}
	if resp.SessionID != "session-1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}
}

func TestRecommendRepeatFallsBackToModel(t *testing.T) {
	store := newTestStore(t, sadCatalog)
	provider := &queuedProvider{responses: []string{
		// Turn 1: catalog hit.
		`{"intent": "find_music", "mood": "sad", "genre": null, "artist": null, "song": null}`,
		`{"mood": "sad"}`,
		`Try this one.`,
		// Turn 2: exclusion empties the catalog, fallback + verify run.
		`{"intent": "find_music", "mood": "sad", "genre": null, "artist": null, "song": null}`,
		`{"mood": "sad"}`,
		`{"recommendation": "A deeper cut for you.", "recommended_songs": [{"title": "Liability", "artist": "Lorde", "genre": "Pop", "mood": "sad", "language": "English"}]}`,
		`[{"title": "Liability", "artist": "Lorde", "genre": "Pop", "mood": "sad", "language": "English"}]`,
	}}
	svc, _ := newTestService(provider, store)

	if _, err := svc.Recommend(context.Background(), "sad songs please", "session-1"); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	resp, err := svc.Recommend(context.Background(), "sad songs please", "session-1")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if resp.Source != dto.SourceLLMRecommendation {
		t.Fatalf("source = %q, want %q", resp.Source, dto.SourceLLMRecommendation)
	}
	if len(resp.MatchedSongs) != 1 || resp.MatchedSongs[0].Title != "Liability" {
		t.Fatalf("matched songs = %+v", resp.MatchedSongs)
	}
	if !strings.Contains(resp.Recommendation, "A deeper cut for you.") {
		t.Fatalf("recommendation = %q", resp.Recommendation)
	}
	if !strings.Contains(resp.Recommendation, "1. Liability - Lorde") {
		t.Fatalf("recommendation missing song list: %q", resp.Recommendation)
	}

	// Verified songs are persisted off the reply path.
	deadline := time.Now().Add(2 * time.Second)
	for store.Count() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Count() != 3 {
		t.Fatalf("catalog size = %d, want 3 after self-learning", store.Count())
	}
}

func TestRecommendUnverifiedShownNotPersisted(t *testing.T) {
	store := newTestStore(t, nil)
	// An empty catalog offers no searchable fields, so the filter synthesis
	// pass never calls the model.
	provider := &queuedProvider{responses: []string{
		`{"intent": "find_music", "mood": null, "genre": null, "artist": null, "song": null}`,
		`{"recommendation": "You might enjoy this.", "recommended_songs": [{"title": "Imaginary Song", "artist": "Nobody"}]}`,
		`[]`, // verifier rejects everything
	}}
	svc, _ := newTestService(provider, store)

	resp, err := svc.Recommend(context.Background(), "anything new", "session-1")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if resp.Source != dto.SourceLLMRecommendation {
		t.Fatalf("source = %q", resp.Source)
	}
	// Unverified candidates still shape the visible answer.
	if len(resp.MatchedSongs) != 1 || resp.MatchedSongs[0].Title != "Imaginary Song" {
		t.Fatalf("matched songs = %+v", resp.MatchedSongs)
	}

	time.Sleep(100 * time.Millisecond)
	if store.Count() != 0 {
		t.Fatalf("unverified songs must never be persisted, catalog size = %d", store.Count())
	}
}

func TestRecommendResetCommand(t *testing.T) {
	provider := &queuedProvider{responses: []string{
		`{"intent": "find_music", "mood": "sad", "genre": null, "artist": null, "song": null}`,
		`{"mood": "sad"}`,
		`Enjoy.`,
	}}
	svc, mem := newTestService(provider, newTestStore(t, sadCatalog))

	if _, err := svc.Recommend(context.Background(), "something sad", "session-1"); err != nil {
		t.Fatalf("seed turn: %v", err)
	}
	callsBefore := provider.calls

	resp, err := svc.Recommend(context.Background(), "  refresh data  ", "session-1")
	if err != nil {
		t.Fatalf("reset turn: %v", err)
	}
	if resp.Source != dto.SourceSystemCommand {
		t.Fatalf("source = %q, want %q", resp.Source, dto.SourceSystemCommand)
	}
	if resp.Intent == nil || resp.Intent.Intent != "reset_memory" {
		t.Fatalf("intent = %+v", resp.Intent)
	}
	if len(resp.MatchedSongs) != 0 {
		t.Fatalf("matched songs should be empty, got %+v", resp.MatchedSongs)
	}
	if provider.calls != callsBefore {
		t.Fatal("reset command must not call the model")
	}
	if got := len(mem.Recent(0)); got != 0 {
		t.Fatalf("dialogue window should be cleared, has %d messages", got)
	}
}

func TestRecommendMalformedIntentStillSucceeds(t *testing.T) {
	provider := &queuedProvider{responses: []string{
		`the model rambles instead of emitting JSON`,
		`{}`,
		`Here you go.`,
	}}
	svc, _ := newTestService(provider, newTestStore(t, sadCatalog))

	resp, err := svc.Recommend(context.Background(), "play me something", "session-1")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !resp.Success {
		t.Fatal("response should report success")
	}
	if resp.Intent == nil || resp.Intent.Intent != "find_music" {
		t.Fatalf("intent should degrade to the default, got %+v", resp.Intent)
	}
}

func TestRecommendNotInitialized(t *testing.T) {
	svc := NewRecommendationService(nil, nil, nil, nil, 10, "refresh data")

	_, err := svc.Recommend(context.Background(), "hello", "session-1")
	if err != ErrNotInitialized {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}
