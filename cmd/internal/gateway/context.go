package gateway

import (
	"context"
	"net/http"

	"warden/cmd/internal/credential"
	"warden/cmd/internal/fingerprint"
)

type ctxKey int

const (
	ctxKeyIdentity ctxKey = iota
	ctxKeyClaims
)

// WithIdentity returns a context carrying a validated device identity.
func WithIdentity(ctx context.Context, id fingerprint.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// WithClaims returns a context carrying verified credential claims.
func WithClaims(ctx context.Context, claims credential.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// IdentityFromContext returns the validated device identity, if present.
func IdentityFromContext(ctx context.Context) (fingerprint.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(fingerprint.Identity)
	return id, ok
}

// ClaimsFromContext returns the verified credential claims, if present.
func ClaimsFromContext(ctx context.Context) (credential.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(credential.Claims)
	return claims, ok
}

// IdentityFromRequest is a convenience for handlers behind the gateway.
func IdentityFromRequest(r *http.Request) (fingerprint.Identity, bool) {
	return IdentityFromContext(r.Context())
}
