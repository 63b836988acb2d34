// ABOUTME: In-memory session store with exclusive per-key access.
// ABOUTME: Update runs a mutation under the key's lock; different keys never contend.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Store errors
var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// entry holds one session and its lock. The lock is a one-slot channel so
// waiters can give up when their context ends.
type entry struct {
	lock         chan struct{}
	sess         Session
	removed      bool
	lastActivity atomic.Int64
}

func newEntry(s Session) *entry {
	e := &entry{lock: make(chan struct{}, 1), sess: s}
	e.lastActivity.Store(s.LastActivity.UnixNano())
	return e
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) release() {
	<-e.lock
}

// Store keeps live sessions keyed by thread. The map mutex only guards
// lookups and inserts; it is never held while a mutation runs.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Create inserts a new session. It fails with ErrAlreadyExists if the
// thread already owns a live session.
func (s *Store) Create(sess Session) error {
	if sess.Stage.Terminal() {
		return fmt.Errorf("creating session in terminal stage %s", sess.Stage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[sess.Key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sess.Key)
	}
	s.entries[sess.Key] = newEntry(sess)
	return nil
}

func (s *Store) lookup(key Key) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Update runs fn with exclusive access to the session for key and stores
// the session fn returns. If fn returns an error the stored session is left
// unchanged. A returned session in a terminal stage is removed from the store.
func (s *Store) Update(ctx context.Context, key Key, fn func(Session) (Session, error)) (Session, error) {
	e, ok := s.lookup(key)
	if !ok {
		return Session{}, ErrNotFound
	}

	if err := e.acquire(ctx); err != nil {
		return Session{}, fmt.Errorf("waiting for session %s: %w", key, err)
	}
	defer e.release()

	// Deleted while we waited.
	if e.removed {
		return Session{}, ErrNotFound
	}

	next, err := fn(e.sess)
	if err != nil {
		return e.sess, err
	}

	e.sess = next
	e.lastActivity.Store(next.LastActivity.UnixNano())

	if next.Stage.Terminal() {
		s.removeLocked(key, e)
	}
	return next, nil
}

// removeLocked drops e from the map; the caller holds e's lock.
func (s *Store) removeLocked(key Key, e *entry) {
	e.removed = true
	s.mu.Lock()
	if s.entries[key] == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

// Delete removes the session for key, waiting for any running Update.
func (s *Store) Delete(ctx context.Context, key Key) error {
	e, ok := s.lookup(key)
	if !ok {
		return ErrNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return fmt.Errorf("waiting for session %s: %w", key, err)
	}
	defer e.release()

	if e.removed {
		return ErrNotFound
	}
	s.removeLocked(key, e)
	return nil
}

// Exists reports whether a live session exists for key. It does not wait
// for a running Update.
func (s *Store) Exists(key Key) bool {
	_, ok := s.lookup(key)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IdleSince returns the keys of sessions whose last activity is before
// cutoff. It reads activity timestamps without taking session locks, so a
// session busy in a remote call is still listed; callers re-check under
// Update.
func (s *Store) IdleSince(cutoff time.Time) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := cutoff.UnixNano()
	var keys []Key
	for k, e := range s.entries {
		if e.lastActivity.Load() < limit {
			keys = append(keys, k)
		}
	}
	return keys
}
