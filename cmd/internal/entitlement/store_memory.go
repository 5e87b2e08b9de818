package entitlement

import (
	"context"
	"sync"
)

// InMemoryStore is the default store when no external backend is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore constructs an in-memory entitlement store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func pairKey(subjectID, evidenceKey string) string {
	return subjectID + "\x00" + evidenceKey
}

// Get returns the record for the pair or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, subjectID, evidenceKey string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	rec, ok := s.records[pairKey(subjectID, evidenceKey)]
	s.mu.RUnlock()

	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Upsert overwrites the record for its pair (last writer wins).
func (s *InMemoryStore) Upsert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[pairKey(rec.SubjectID, rec.EvidenceKey)] = rec
	s.mu.Unlock()
	return nil
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }
