package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"warden/cmd/internal/fingerprint"
)

// ErrNotFound is returned when no row exists for an identity.
var ErrNotFound = errors.New("device identity not found")

// InMemoryStore is the default store when no database is configured.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[fingerprint.Identity]Row
}

// NewInMemoryStore constructs an in-memory device store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[fingerprint.Identity]Row)}
}

// Touch upserts the identity row and reports first sight.
func (s *InMemoryStore) Touch(ctx context.Context, id fingerprint.Identity, addr string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		s.rows[id] = Row{Identity: id, FirstSeenAt: now, LastSeenAt: now, LastAddr: addr}
		return true, nil
	}

	row.LastSeenAt = now
	row.LastAddr = addr
	s.rows[id] = row
	return false, nil
}

// Get loads an identity row.
func (s *InMemoryStore) Get(ctx context.Context, id fingerprint.Identity) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()

	if !ok {
		return Row{}, ErrNotFound
	}
	return row, nil
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }
