package credential

import "errors"

var (
	// ErrMalformedCredential is returned when a token cannot be split or
	// decoded into its payload and MAC halves.
	ErrMalformedCredential = errors.New("malformed session credential")

	// ErrSignatureInvalid is returned when the recomputed MAC does not match
	// the token's MAC. Any bit flip in an issued token produces this.
	ErrSignatureInvalid = errors.New("credential signature invalid")

	// ErrExpired is returned when the credential is older than the session TTL.
	ErrExpired = errors.New("credential expired")

	// ErrConfig is returned for invalid credential configuration.
	ErrConfig = errors.New("credential: invalid config")
)
