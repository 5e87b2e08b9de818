package device

import (
	"context"
	"time"

	"warden/cmd/internal/fingerprint"
)

// Row mirrors the warden.devices row.
type Row struct {
	Identity    fingerprint.Identity
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	LastAddr    string
}

// Store is the device identity persistence boundary.
type Store interface {
	// Touch upserts the identity row, updating last_seen_at and last_addr,
	// and reports whether the identity is new.
	Touch(ctx context.Context, id fingerprint.Identity, addr string, now time.Time) (isNew bool, err error)

	// Get loads an identity row.
	Get(ctx context.Context, id fingerprint.Identity) (Row, error)

	Close() error
}
