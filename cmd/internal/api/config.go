package api

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrConfig is returned for invalid API configuration.
var ErrConfig = errors.New("api: invalid config")

const (
	// DefaultMaxBodyBytes bounds request bodies; characteristics payloads are
	// small and anything larger is abuse.
	DefaultMaxBodyBytes int64 = 64 << 10

	minMaxBodyBytes int64 = 1 << 10
	maxMaxBodyBytes int64 = 1 << 20

	// DefaultScriptEvidenceKey identifies the holding the script catalog is
	// gated behind.
	DefaultScriptEvidenceKey = "warden-pass"
)

// Config controls the HTTP handler.
type Config struct {
	MaxBodyBytes int64

	// ScriptEvidenceKey is the entitlement evidence key guarding the script
	// catalog.
	ScriptEvidenceKey string

	// TrustProxy controls whether X-Forwarded-For is honored when deriving
	// the client address fed into identity derivation.
	TrustProxy bool

	// HeartbeatInterval and HeartbeatTimeout are advertised to clients in the
	// authentication response so the client paces itself correctly.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      DefaultMaxBodyBytes,
		ScriptEvidenceKey: DefaultScriptEvidenceKey,
	}
}

// LoadConfigFromEnv loads API configuration.
//
// Optional:
//   - WARDEN_API_MAX_BODY_BYTES (clamped to [1KiB, 1MiB])
//   - WARDEN_SCRIPT_EVIDENCE_KEY
//   - WARDEN_TRUST_PROXY (true/false)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("WARDEN_API_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < minMaxBodyBytes || n > maxMaxBodyBytes {
			return Config{}, ErrConfig
		}
		cfg.MaxBodyBytes = n
	}

	if v := os.Getenv("WARDEN_SCRIPT_EVIDENCE_KEY"); v != "" {
		cfg.ScriptEvidenceKey = v
	}

	if v := os.Getenv("WARDEN_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.TrustProxy = b
	}

	return cfg, nil
}
