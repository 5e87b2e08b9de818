package entitlement

import (
	"context"
	"fmt"
)

// OracleResult is the raw answer from the external ownership source of truth.
type OracleResult struct {
	Holds       bool
	Quantity    int64
	EvidenceKey string
}

// Oracle answers whether a subject address holds the gating asset. It is
// assumed slow, rate-limited and networked; the Cache is solely responsible
// for shielding callers from its latency and limits.
type Oracle func(ctx context.Context, subjectAddr string) (OracleResult, error)

func oracleErr(err error) error {
	return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
}
