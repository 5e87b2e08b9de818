package fingerprint

import (
	"errors"
	"os"
	"strings"
)

// Config holds the two secret peppers used by the derivation stages.
type Config struct {
	// PepperA salts the primary characteristic group and the final combine.
	PepperA string
	// PepperB salts the secondary characteristic group.
	PepperB string
}

// ErrConfig is returned for invalid fingerprint configuration.
var ErrConfig = errors.New("fingerprint: invalid config")

const pepperMinBytes = 16

// LoadConfigFromEnv loads the stage peppers from environment variables.
//
// Required:
//   - WARDEN_FINGERPRINT_PEPPER_A (>= 16 bytes)
//   - WARDEN_FINGERPRINT_PEPPER_B (>= 16 bytes)
//
// Failing fast here is intentional: deriving identities with empty peppers
// would silently produce guessable digests.
func LoadConfigFromEnv() (Config, error) {
	a := strings.TrimSpace(os.Getenv("WARDEN_FINGERPRINT_PEPPER_A"))
	b := strings.TrimSpace(os.Getenv("WARDEN_FINGERPRINT_PEPPER_B"))

	if len(a) < pepperMinBytes || len(b) < pepperMinBytes {
		return Config{}, ErrConfig
	}

	return Config{PepperA: a, PepperB: b}, nil
}
