package memory

import (
	"time"

	convmem "ai-tunemate-be/pkg/memory"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps per-session recommendation state in a TTL'd
// in-process cache. The cache expiry is a garbage-collection backstop; the
// business idle timeout (which clears only the dedup set) lives in the
// memory manager.
type SessionRepository struct {
	cache *cache.Cache
}

var _ convmem.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	// Sessions silent for a day are dropped entirely; expired items are
	// purged every 10 minutes.
	c := cache.New(24*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(state *convmem.SessionState) {
	r.cache.Set(state.ID, state, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*convmem.SessionState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*convmem.SessionState), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Reset() {
	r.cache.Flush()
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
