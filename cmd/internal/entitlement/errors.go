package entitlement

import "errors"

var (
	// ErrOracleUnavailable wraps oracle call failures. It is never cached as
	// a negative result and is the one rejection eligible for caller-side
	// retry/backoff.
	ErrOracleUnavailable = errors.New("entitlement oracle unavailable")

	// ErrNotFound is returned by stores when no record exists for a pair.
	ErrNotFound = errors.New("entitlement record not found")

	// ErrConfig is returned for invalid entitlement configuration.
	ErrConfig = errors.New("entitlement: invalid config")
)
