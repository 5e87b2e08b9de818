package entitlement

import (
	"context"
	"time"
)

// Record is the cached outcome of one oracle call for a (subject, evidence
// key) pair. At most one record exists per pair; every oracle call overwrites
// it (last writer wins — the oracle is the source of truth).
type Record struct {
	SubjectID   string    `json:"subject_id"`
	EvidenceKey string    `json:"evidence_key"`
	Holds       bool      `json:"holds"`
	Quantity    int64     `json:"quantity"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Fresh reports whether a positive record is still inside the freshness
// window. Negative records are never fresh for gating purposes.
func (r Record) Fresh(now time.Time, window time.Duration) bool {
	return r.Holds && now.Sub(r.CheckedAt) < window
}

// Store persists entitlement records keyed by (subject, evidence key).
//
// Upsert must be atomic per key. Get returns ErrNotFound when no record
// exists for the pair.
type Store interface {
	Get(ctx context.Context, subjectID, evidenceKey string) (Record, error)
	Upsert(ctx context.Context, rec Record) error
	Close() error
}
