package cart

import (
	"context"
	"sync"
)

// Manager opens carts for sessions and serialises work on the same session,
// so two requests never mutate one cart concurrently.
type Manager struct {
	storage Storage
	opts    []Option

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(storage Storage, opts ...Option) *Manager {
	return &Manager{
		storage: storage,
		opts:    opts,
		locks:   make(map[string]*sessionLock),
	}
}

// With opens the session's cart and runs fn while holding the session lock.
func (m *Manager) With(ctx context.Context, sessionID string, fn func(*Cart) error) error {
	l := m.acquire(sessionID)
	defer m.release(sessionID, l)

	c, err := Open(ctx, sessionID, m.storage, m.opts...)
	if err != nil {
		return err
	}
	return fn(c)
}

func (m *Manager) acquire(sessionID string) *sessionLock {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) release(sessionID string, l *sessionLock) {
	l.mu.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, sessionID)
	}
	m.mu.Unlock()
}
