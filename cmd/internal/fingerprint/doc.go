// Package fingerprint derives stable device identities from hardware and
// browser-engine characteristics.
//
// The derivation is a three-stage hash chain: two independently peppered
// digests over disjoint characteristic groups, combined with the client
// network address in a final peppered digest. Raw characteristics never leave
// this package; only the final digest is ever persisted or transmitted.
//
// Derivation never fails: missing characteristic fields degrade to the
// literal token "unknown". A low-entropy identity is an accepted risk,
// not an error.
package fingerprint
