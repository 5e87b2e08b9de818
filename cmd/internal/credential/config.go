package credential

import (
	"os"
	"strings"
	"time"
)

const (
	// DefaultSessionTTL hard-caps credential lifetime. A leaked bearer token
	// is only valid until expiry, which bounds the blast radius without a
	// revocation store.
	DefaultSessionTTL = 24 * time.Hour

	secretMinBytes = 32

	minSessionTTL = 1 * time.Minute
	maxSessionTTL = 7 * 24 * time.Hour
)

// Config controls credential issuance and verification.
type Config struct {
	// Secret keys the HMAC over serialized payloads. Raw bytes, min 32.
	Secret []byte

	// SessionTTL is the fixed credential lifetime, independent of use.
	SessionTTL time.Duration
}

// DefaultConfig returns defaults without a secret; the secret must always be
// supplied explicitly or via environment.
func DefaultConfig() Config {
	return Config{SessionTTL: DefaultSessionTTL}
}

// LoadConfigFromEnv loads credential configuration.
//
// Required:
//   - WARDEN_CREDENTIAL_SECRET (>= 32 bytes)
//
// Optional:
//   - WARDEN_SESSION_TTL (Go duration, clamped to [1m, 168h])
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	secret := strings.TrimSpace(os.Getenv("WARDEN_CREDENTIAL_SECRET"))
	if len(secret) < secretMinBytes {
		return Config{}, ErrConfig
	}
	cfg.Secret = []byte(secret)

	if v := os.Getenv("WARDEN_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < minSessionTTL || d > maxSessionTTL {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	return cfg, nil
}
