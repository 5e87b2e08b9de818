package liveness

import (
	"os"
	"time"
)

const (
	// DefaultHeartbeatTimeout is how long a session may go without an
	// accepted heartbeat before termination.
	DefaultHeartbeatTimeout = 40 * time.Second

	// DefaultHeartbeatInterval is the server-driven trigger cadence pushed
	// to clients. It must leave headroom below the timeout.
	DefaultHeartbeatInterval = 15 * time.Second

	minTimeout  = 5 * time.Second
	maxTimeout  = 10 * time.Minute
	minInterval = 1 * time.Second
)

// Config controls the liveness monitor and the server-driven cadence.
type Config struct {
	HeartbeatTimeout  time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the default liveness configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

// LoadConfigFromEnv loads liveness configuration.
//
// Optional:
//   - WARDEN_HEARTBEAT_TIMEOUT  (clamped to [5s, 10m])
//   - WARDEN_HEARTBEAT_INTERVAL (must be positive and below the timeout)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("WARDEN_HEARTBEAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < minTimeout || d > maxTimeout {
			return Config{}, ErrConfig
		}
		cfg.HeartbeatTimeout = d
	}

	if v := os.Getenv("WARDEN_HEARTBEAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < minInterval {
			return Config{}, ErrConfig
		}
		cfg.HeartbeatInterval = d
	}

	if cfg.HeartbeatInterval >= cfg.HeartbeatTimeout {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
