package memory

import (
	"fmt"
	"testing"
	"time"
)

// mapStore is a minimal in-test SessionStore.
type mapStore struct {
	sessions map[string]*SessionState
}

func newMapStore() *mapStore {
	return &mapStore{sessions: map[string]*SessionState{}}
}

func (s *mapStore) Save(state *SessionState)          { s.sessions[state.ID] = state }
func (s *mapStore) Get(id string) (*SessionState, bool) { st, ok := s.sessions[id]; return st, ok }
func (s *mapStore) Delete(id string)                  { delete(s.sessions, id) }
func (s *mapStore) Reset()                            { s.sessions = map[string]*SessionState{} }
func (s *mapStore) Count() int                        { return len(s.sessions) }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time        { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(idle time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(newMapStore(), idle, WithClock(clock.now))
	return m, clock
}

func TestDedupSetGrowsAcrossTurns(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	m.Touch("s1")
	m.RecordTurn("s1", "sad songs", "here you go", []string{"blue rain||nora lane"}, []string{"Blue Rain"})
	m.RecordTurn("s1", "more", "sure", []string{"rainfall||the atlas line"}, []string{"Rainfall"})

	got := m.Touch("s1")
	if len(got) != 2 {
		t.Fatalf("recommended set = %v, want 2 keys", got)
	}
	if _, ok := got["blue rain||nora lane"]; !ok {
		t.Errorf("first-turn key missing from set")
	}
}

func TestTouchReturnsACopy(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)
	m.RecordTurn("s1", "q", "a", []string{"k1"}, nil)

	got := m.Touch("s1")
	got["injected"] = struct{}{}

	if again := m.Touch("s1"); len(again) != 1 {
		t.Fatalf("mutating the returned set leaked into the session: %v", again)
	}
}

func TestIdleTimeoutClearsOnlyDedupSet(t *testing.T) {
	m, clock := newTestManager(600 * time.Second)

	m.Touch("s1")
	m.RecordTurn("s1", "sad songs", "reply", []string{"k1"}, []string{"Blue Rain"})

	// Just under the timeout: the set survives.
	clock.advance(599 * time.Second)
	if got := m.Touch("s1"); len(got) != 1 {
		t.Fatalf("set cleared before timeout: %v", got)
	}

	// Past the timeout since the touch above: cleared.
	clock.advance(601 * time.Second)
	got := m.Touch("s1")
	if len(got) != 0 {
		t.Fatalf("set not cleared after idle timeout: %v", got)
	}

	// The shared window and history are untouched by the idle rule.
	if len(m.Recent(0)) != 2 {
		t.Errorf("dialogue window was cleared by idle timeout")
	}
	if len(m.ExclusionTitles()) != 1 {
		t.Errorf("history was cleared by idle timeout")
	}
}

func TestDialogueWindowBound(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	for i := 0; i < 11; i++ {
		m.RecordTurn("s1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), nil, nil)
	}

	window := m.Recent(0)
	if len(window) != 20 {
		t.Fatalf("window holds %d messages, want 20", len(window))
	}
	// Oldest turn (index 0) evicted, window starts at turn 1.
	if window[0].Content != "question 1" || window[0].Role != "user" {
		t.Errorf("unexpected oldest message: %+v", window[0])
	}
	if last := window[len(window)-1]; last.Content != "answer 10" || last.Role != "assistant" {
		t.Errorf("unexpected newest message: %+v", last)
	}
}

func TestRecentLimitsAndCopies(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)
	m.RecordTurn("s1", "q1", "a1", nil, nil)
	m.RecordTurn("s1", "q2", "a2", nil, nil)

	recent := m.Recent(2)
	if len(recent) != 2 || recent[0].Content != "q2" {
		t.Fatalf("Recent(2) = %+v", recent)
	}

	recent[0].Content = "mutated"
	if m.Recent(2)[0].Content != "q2" {
		t.Errorf("Recent returned a live reference into the window")
	}
}

func TestExclusionTitlesUsesRecentTurnsOnly(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	m.RecordTurn("s1", "q", "a", nil, []string{"Ancient Song"})
	for i := 0; i < 10; i++ {
		m.RecordTurn("s1", "q", "a", nil, []string{fmt.Sprintf("Song %d", i), "Shared Hit"})
	}

	titles := m.ExclusionTitles()
	for _, title := range titles {
		if title == "Ancient Song" {
			t.Errorf("title older than the exclusion horizon leaked: %v", titles)
		}
	}

	// "Shared Hit" appears in every turn but must be listed once.
	hits := 0
	for _, title := range titles {
		if title == "Shared Hit" {
			hits++
		}
	}
	if hits != 1 {
		t.Errorf("duplicate title not collapsed, got %d copies", hits)
	}
	if len(titles) != 11 {
		t.Errorf("exclusion list = %v, want 10 distinct songs + shared hit", titles)
	}
}

func TestHistoryBound(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	for i := 0; i < 105; i++ {
		m.RecordTurn("s1", "q", "a", nil, []string{fmt.Sprintf("t%d", i)})
	}

	m.mu.Lock()
	n := len(m.history)
	m.mu.Unlock()
	if n != maxHistoryTurns {
		t.Fatalf("history holds %d turns, want %d", n, maxHistoryTurns)
	}
}

func TestResetSessionClearsSetAndWindowButNotHistory(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	m.RecordTurn("s1", "q", "a", []string{"k1"}, []string{"Blue Rain"})
	m.ResetSession("s1")

	if got := m.Touch("s1"); len(got) != 0 {
		t.Errorf("dedup set survived reset: %v", got)
	}
	if len(m.Recent(0)) != 0 {
		t.Errorf("dialogue window survived reset")
	}
	if len(m.ExclusionTitles()) != 1 {
		t.Errorf("global history should survive a session reset")
	}
}

func TestResetAll(t *testing.T) {
	m, _ := newTestManager(10 * time.Minute)

	m.RecordTurn("s1", "q", "a", []string{"k1"}, []string{"Blue Rain"})
	m.RecordTurn("s2", "q", "a", []string{"k2"}, []string{"Rainfall"})
	m.ResetAll()

	if m.SessionCount() != 0 {
		t.Errorf("sessions survived ResetAll")
	}
	if len(m.Recent(0)) != 0 || len(m.ExclusionTitles()) != 0 {
		t.Errorf("shared memory survived ResetAll")
	}
}
