package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session binds a store to its owner for the registry.
type Session struct {
	ID       string
	UserID   string
	Store    *Store
	lastSeen time.Time
}

// Registry tracks live dashboard sessions. Stores are created on view
// activation and closed either explicitly or by the idle reaper.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(userID string, store *Store) *Session {
	sess := &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		Store:    store,
		lastSeen: time.Now(),
	}
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

// Get returns the session and refreshes its idle clock.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if ok {
		sess.lastSeen = time.Now()
	}
	return sess, ok
}

// Remove closes the session's store and forgets it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		sess.Store.Close()
	}
	return ok
}

// CloseIdle tears down sessions not touched within ttl and reports how
// many were closed.
func (r *Registry) CloseIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var expired []*Session
	for id, sess := range r.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.Store.Close()
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
