package fingerprint

import "errors"

// ErrMalformedIdentity is returned when a supplied identity value is not a
// structurally valid digest.
var ErrMalformedIdentity = errors.New("malformed device identity")

// IdentityHexLen is the length of a device identity in hex characters
// (BLAKE2b-256 digest).
const IdentityHexLen = 64

// Identity is the opaque hex digest that identifies a device. It is derived
// by the hash chain and is not reversible to raw characteristics.
type Identity string

// Validate checks the identity structurally: fixed length, lowercase hex.
func (id Identity) Validate() error {
	if len(id) != IdentityHexLen {
		return ErrMalformedIdentity
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrMalformedIdentity
		}
	}
	return nil
}

func (id Identity) String() string { return string(id) }
