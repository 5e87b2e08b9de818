// Package api exposes Warden's HTTP surface: device authentication,
// heartbeat submission, the entitlement-gated script catalog, and the
// address-restricted admin endpoints.
//
// The handler assumes it runs behind the gateway: session-tier endpoints read
// the validated identity from the request context rather than re-verifying
// headers.
package api
