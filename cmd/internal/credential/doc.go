// Package credential implements Warden's stateless session credentials.
//
// A credential is a self-contained bearer token binding a device identity,
// its issuance time, and a random nonce of issuance. It is authenticated with
// HMAC-SHA256 under a server secret and carries no server-side state: expiry
// is the only end-of-life mechanism at the token layer. Revocation semantics
// live in the liveness monitor, not here.
package credential
