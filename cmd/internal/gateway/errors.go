package gateway

import "errors"

var (
	// ErrIdentityMismatch is returned when a credential's embedded identity
	// does not equal the identity supplied alongside it.
	ErrIdentityMismatch = errors.New("credential identity mismatch")

	// ErrAdminAccessDenied is returned when a caller outside the allow-list
	// touches the restricted path prefix.
	ErrAdminAccessDenied = errors.New("admin access denied")

	// ErrConfig is returned for invalid gateway configuration.
	ErrConfig = errors.New("gateway: invalid config")
)

// Rejection kinds reported to callers. Each maps 1:1 onto a failure mode;
// none is ever downgraded to a generic error.
const (
	KindMalformedIdentity          = "malformed_identity"
	KindMalformedCredential        = "malformed_credential"
	KindCredentialExpired          = "credential_expired"
	KindCredentialSignatureInvalid = "credential_signature_invalid"
	KindIdentityMismatch           = "identity_mismatch"
	KindAdminAccessDenied          = "admin_access_denied"
)
