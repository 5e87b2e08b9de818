package device

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"warden/cmd/internal/fingerprint"
)

// PostgresStore implements Store using PostgreSQL (warden.devices).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed device store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("device: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Touch upserts the identity row atomically and reports first sight via the
// inserted-vs-updated distinction.
func (s *PostgresStore) Touch(ctx context.Context, id fingerprint.Identity, addr string, now time.Time) (bool, error) {
	var isNew bool

	err := s.pool.QueryRow(ctx, `
		INSERT INTO warden.devices (identity, first_seen_at, last_seen_at, last_addr)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (identity) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			last_addr = EXCLUDED.last_addr
		RETURNING (xmax = 0)
	`, id.String(), now, addr).Scan(&isNew)
	if err != nil {
		return false, err
	}

	return isNew, nil
}

// Get loads an identity row.
func (s *PostgresStore) Get(ctx context.Context, id fingerprint.Identity) (Row, error) {
	var (
		row      Row
		identity string
	)

	err := s.pool.QueryRow(ctx, `
		SELECT identity, first_seen_at, last_seen_at, last_addr
		FROM warden.devices
		WHERE identity = $1
	`, id.String()).Scan(&identity, &row.FirstSeenAt, &row.LastSeenAt, &row.LastAddr)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, err
	}

	row.Identity = fingerprint.Identity(identity)
	return row, nil
}

// Close closes the store. The pool is owned by the app, so this is a no-op.
func (s *PostgresStore) Close() error { return nil }
