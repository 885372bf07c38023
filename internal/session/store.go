package session

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrNotFound is returned when a session id is unknown or has expired.
var ErrNotFound = errors.New("session not found")

// Store is the process-wide registry of live sessions. Entries expire after
// the configured idle TTL (go-cache's janitor reclaims them), so the
// registry never grows unbounded. Every access slides the expiry.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewStore builds a store whose sessions expire ttl after their last use.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

// Create registers a fresh session and returns it.
func (st *Store) Create() *Session {
	s := newSession()
	st.cache.Set(s.ID, s, st.ttl)
	return s
}

// Get returns the live session for id.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	st.cache.Set(id, v, st.ttl) // touch
	return v.(*Session), nil
}

// Mutate runs fn with the session's lock held. Mutation of a single session
// serializes here; unrelated sessions are untouched.
func (st *Store) Mutate(id string, fn func(*Session) error) error {
	s, err := st.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// Remove drops the session immediately.
func (st *Store) Remove(id string) {
	st.cache.Delete(id)
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	return st.cache.ItemCount()
}
