// Package session keeps one dashboard shell per viewer in memory.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	mu    sync.Mutex
	shell *dashboard.Shell
}

// Factory builds the shell for a new session.
type Factory func() (*dashboard.Shell, error)

// Store bounds the number of live sessions and expires idle ones. Each
// session's shell is only touched under its own lock.
type Store struct {
	lru     *expirable.LRU[string, *entry]
	factory Factory
}

func NewStore(size int, ttl time.Duration, factory Factory) *Store {
	if size <= 0 {
		size = 1024
	}
	s := &Store{factory: factory}
	// the eviction callback runs under the LRU's lock, so the gauge is
	// resynced from another goroutine
	s.lru = expirable.NewLRU[string, *entry](size, func(string, *entry) {
		go s.syncGauge()
	}, ttl)
	return s
}

// syncGauge publishes the live session count as the LRU reports it.
func (s *Store) syncGauge() {
	observability.SetActiveSessions(s.lru.Len())
}

func (s *Store) Len() int {
	if s.lru == nil {
		return 0
	}
	return s.lru.Len()
}

// Create starts a fresh session and returns its id.
func (s *Store) Create() (string, error) {
	sh, err := s.factory()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.lru.Add(id, &entry{shell: sh})
	s.syncGauge()
	return id, nil
}

// Ensure returns id when it names a live session, otherwise a new one.
func (s *Store) Ensure(id string) (string, bool, error) {
	if id != "" {
		if _, ok := s.lru.Get(id); ok {
			return id, false, nil
		}
	}
	nid, err := s.Create()
	return nid, true, err
}

// With runs fn against the session's shell while holding its lock. The
// session's idle timer restarts on every call.
func (s *Store) With(id string, fn func(*dashboard.Shell) error) error {
	e, ok := s.lru.Get(id)
	if !ok {
		return ErrNotFound
	}
	// Add restarts the entry's expiry; it may re-insert an entry the sweeper
	// dropped after Get, which keeps the session alive
	s.lru.Add(id, e)
	s.syncGauge()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.shell)
}
