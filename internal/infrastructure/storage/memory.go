package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/session"
)

type entry struct {
	mu   sync.Mutex
	sess *session.Session
	gone bool
}

// MemorySessionStore keeps sessions in process memory. Each session has
// its own lock, held by Update for the whole interaction; different
// sessions never wait on each other.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore returns a store. Sessions idle for longer than ttl
// are removed by Sweep; a zero ttl keeps them until deleted.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Create(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = &entry{sess: s.Clone()}
	return nil
}

func (m *MemorySessionStore) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", application.ErrSessionNotFound, id)
	}
	return e, nil
}

// Get returns a copy of the session. It waits for any interaction in
// progress on the same session.
func (m *MemorySessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return nil, fmt.Errorf("%w: %s", application.ErrSessionNotFound, id)
	}
	return e.sess.Clone(), nil
}

// Update runs fn on a working copy under the session lock and keeps the
// copy only if fn succeeds.
func (m *MemorySessionStore) Update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return nil, fmt.Errorf("%w: %s", application.ErrSessionNotFound, id)
	}

	work := e.sess.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.sess = work
	return work.Clone(), nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", application.ErrSessionNotFound, id)
	}
	e.mu.Lock()
	e.gone = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the store's ttl and returns
// how many were removed. Sessions busy in Update are skipped.
func (m *MemorySessionStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.UpdatedAt.Before(cutoff) {
			e.gone = true
			delete(m.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemorySessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
