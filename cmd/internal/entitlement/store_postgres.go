package entitlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (warden.entitlements).
//
// The (subject_id, evidence_key) primary key enforces the at-most-one-row-
// per-pair invariant; ON CONFLICT makes the upsert atomic per key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed entitlement store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("entitlement: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Get returns the record for the pair or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, subjectID, evidenceKey string) (Record, error) {
	var rec Record

	err := s.pool.QueryRow(ctx, `
		SELECT subject_id, evidence_key, holds, quantity, checked_at
		FROM warden.entitlements
		WHERE subject_id = $1 AND evidence_key = $2
	`, subjectID, evidenceKey).Scan(
		&rec.SubjectID,
		&rec.EvidenceKey,
		&rec.Holds,
		&rec.Quantity,
		&rec.CheckedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// Upsert overwrites the record for its pair.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO warden.entitlements (subject_id, evidence_key, holds, quantity, checked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, evidence_key) DO UPDATE SET
			holds = EXCLUDED.holds,
			quantity = EXCLUDED.quantity,
			checked_at = EXCLUDED.checked_at
	`, rec.SubjectID, rec.EvidenceKey, rec.Holds, rec.Quantity, rec.CheckedAt)
	return err
}

// Close closes the store. The pool is owned by the app, so this is a no-op.
func (s *PostgresStore) Close() error { return nil }
