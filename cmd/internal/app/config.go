package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
//
// Secrets (peppers, the credential key) are deliberately not here: the
// packages that consume them load and validate them directly so a missing
// secret fails construction of the component that needs it.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// RedisURL switches the entitlement store to Redis when set.
	RedisURL string

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// OracleURL points at the external ownership endpoint. When empty the
	// server runs with a permissive development oracle and says so at startup.
	OracleURL     string
	OracleTimeout time.Duration

	// Admin surface restriction.
	AdminPrefix       string
	AdminAllowedAddrs []string

	// TrustProxy controls whether X-Forwarded-For is honored for caller
	// addresses (identity derivation and the admin allow-list).
	TrustProxy bool

	// ScriptsDir, when set, is scanned at startup to build the gated script
	// catalog.
	ScriptsDir string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("WARDEN_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("WARDEN_LOG_LEVEL", "info"),
		LogFormat: EnvString("WARDEN_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("WARDEN_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("WARDEN_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("WARDEN_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("WARDEN_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("WARDEN_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("WARDEN_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("WARDEN_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("WARDEN_DB_MIN_CONNS", 0),

		RedisURL: EnvString("WARDEN_REDIS_URL", ""),

		ReadinessRequireDB: EnvBool("WARDEN_READINESS_REQUIRE_DB", false),

		OracleURL:     EnvString("WARDEN_ORACLE_URL", ""),
		OracleTimeout: EnvDuration("WARDEN_ORACLE_TIMEOUT", 10*time.Second),

		AdminPrefix:       EnvString("WARDEN_ADMIN_PREFIX", "/admin"),
		AdminAllowedAddrs: EnvStringSlice("WARDEN_ADMIN_ALLOW", []string{"127.0.0.1", "::1"}),

		TrustProxy: EnvBool("WARDEN_TRUST_PROXY", false),

		ScriptsDir: EnvString("WARDEN_SCRIPTS_DIR", ""),
	}
}
