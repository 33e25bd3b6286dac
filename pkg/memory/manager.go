package memory

import (
	"strings"
	"sync"
	"time"

	"ai-tunemate-be/pkg/llm"
)

const (
	// Dialogue window keeps the last 10 user/assistant exchanges.
	maxWindowMessages = 20
	// Global per-turn recommendation history.
	maxHistoryTurns = 100
	// How many recent turns feed the cross-session exclusion list.
	exclusionTurns = 10
)

// SessionState tracks what one conversation has already been served.
// The Recommended set only grows until an explicit reset or the idle timeout
// clears it.
type SessionState struct {
	ID          string
	Recommended map[string]struct{}
	LastActive  time.Time
}

// SessionStore persists session state. Implemented by the go-cache backed
// repository; tests use a plain map.
type SessionStore interface {
	Save(state *SessionState)
	Get(id string) (*SessionState, bool)
	Delete(id string)
	Reset()
	Count() int
}

// Manager owns all conversational memory: per-session dedup sets, the shared
// dialogue window, and the shared recommendation history. Every mutation goes
// through one mutex; callers never touch the underlying structures directly.
type Manager struct {
	mu          sync.Mutex
	sessions    SessionStore
	window      []llm.Message
	history     [][]string
	idleTimeout time.Duration
	now         func() time.Time
}

type Option func(*Manager)

// WithClock injects the time source. Tests use it to drive the idle timeout.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(sessions SessionStore, idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		sessions:    sessions,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Touch fetches or creates the session, applies the idle rule, and marks it
// active. A session idle past the timeout gets its dedup set cleared; the
// dialogue window and global history are deliberately left alone so only the
// per-session repetition guard resets after a long pause.
// The returned set is a copy.
func (m *Manager) Touch(sessionID string) map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, ok := m.sessions.Get(sessionID)
	if !ok {
		state = &SessionState{
			ID:          sessionID,
			Recommended: make(map[string]struct{}),
		}
	} else if m.idleTimeout > 0 && now.Sub(state.LastActive) > m.idleTimeout {
		state.Recommended = make(map[string]struct{})
	}
	state.LastActive = now
	m.sessions.Save(state)

	recommended := make(map[string]struct{}, len(state.Recommended))
	for k := range state.Recommended {
		recommended[k] = struct{}{}
	}
	return recommended
}

// RecordTurn commits one finished exchange: the served identity keys join the
// session's dedup set, the titles become one history entry, and both dialogue
// messages enter the window.
func (m *Manager) RecordTurn(sessionID, userText, assistantText string, keys, titles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions.Get(sessionID)
	if !ok {
		state = &SessionState{
			ID:          sessionID,
			Recommended: make(map[string]struct{}),
		}
	}
	for _, k := range keys {
		state.Recommended[k] = struct{}{}
	}
	state.LastActive = m.now()
	m.sessions.Save(state)

	m.history = append(m.history, titles)
	if len(m.history) > maxHistoryTurns {
		m.history = m.history[len(m.history)-maxHistoryTurns:]
	}

	m.window = append(m.window,
		llm.Message{Role: "user", Content: userText},
		llm.Message{Role: "assistant", Content: assistantText},
	)
	if len(m.window) > maxWindowMessages {
		m.window = m.window[len(m.window)-maxWindowMessages:]
	}
}

// Recent returns a copy of the last n dialogue messages, oldest first.
// n <= 0 means the whole window.
func (m *Manager) Recent(n int) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.window) {
		n = len(m.window)
	}
	out := make([]llm.Message, n)
	copy(out, m.window[len(m.window)-n:])
	return out
}

// ExclusionTitles flattens the most recent history turns into a deduplicated
// title list. Distinct sessions asking similar questions get steered away
// from the same small answer set.
func (m *Manager) ExclusionTitles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := len(m.history) - exclusionTurns
	if start < 0 {
		start = 0
	}

	seen := map[string]struct{}{}
	titles := make([]string, 0)
	for _, turn := range m.history[start:] {
		for _, title := range turn {
			key := normalize(title)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			titles = append(titles, title)
		}
	}
	return titles
}

// ResetSession clears one session's dedup set and the dialogue window. The
// global recommendation history stays, it steers cross-session diversity.
func (m *Manager) ResetSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.sessions.Get(sessionID); ok {
		state.Recommended = make(map[string]struct{})
		state.LastActive = m.now()
		m.sessions.Save(state)
	}
	m.window = nil
}

// ResetAll wipes every piece of in-memory conversational state.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions.Reset()
	m.window = nil
	m.history = nil
}

// SessionCount reports how many sessions are currently tracked.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Count()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
