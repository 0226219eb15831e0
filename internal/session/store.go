package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = fmt.Errorf("session %w", utils.ErrNotFound)

// Store keeps sessions in memory. Sessions idle longer than the TTL are
// evicted when touched or swept. Callers always receive copies.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore constructs a Store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]Session), ttl: ttl, now: time.Now}
}

// Create starts a new session on the landing page.
func (s *Store) Create(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	sess := New(s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session with id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return sess.clone(), nil
}

// Navigate moves session id to view and returns the updated copy.
func (s *Store) Navigate(ctx context.Context, id string, view View) (Session, error) {
	return s.update(ctx, id, func(sess Session, now time.Time) Session {
		return sess.Navigate(view, now)
	})
}

// Select records the filter selection last applied by session id.
func (s *Store) Select(ctx context.Context, id string, sel filter.Selection) (Session, error) {
	return s.update(ctx, id, func(sess Session, now time.Time) Session {
		return sess.WithSelection(sel, now)
	})
}

// Sweep evicts every expired session and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) update(ctx context.Context, id string, fn func(Session, time.Time) Session) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	sess = fn(sess, s.now())
	s.sessions[id] = sess
	return sess.clone(), nil
}

// lookup must be called with mu held.
func (s *Store) lookup(id string) (Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) expired(sess Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}
