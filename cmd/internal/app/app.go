// Package app wires the Warden server runtime: config, logging, stores, the
// access gateway, and the HTTP/WebSocket surfaces.
//
// Everything is dependency-injected from New; no package-level singletons.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"warden/cmd/internal/api"
	"warden/cmd/internal/credential"
	"warden/cmd/internal/device"
	"warden/cmd/internal/entitlement"
	"warden/cmd/internal/fingerprint"
	"warden/cmd/internal/gateway"
	"warden/cmd/internal/liveness"
	"warden/cmd/internal/metrics"
)

// App is the Warden server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	devices      device.Store
	entitlements entitlement.Store

	registry *liveness.Registry
	channel  *liveness.Channel
	gateway  *gateway.Gateway
	handler  *api.Handler
	metrics  *metrics.Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	fpCfg, err := fingerprint.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	credCfg, err := credential.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	liveCfg, err := liveness.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	entCfg, err := entitlement.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	apiCfg, err := api.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	apiCfg.TrustProxy = cfg.TrustProxy
	apiCfg.HeartbeatInterval = liveCfg.HeartbeatInterval
	apiCfg.HeartbeatTimeout = liveCfg.HeartbeatTimeout

	m := metrics.New()

	creds, err := credential.NewManager(credCfg)
	if err != nil {
		return nil, err
	}
	deriver := fingerprint.NewDeriver(fpCfg)

	devices, entStore, pool, dbEnabled, err := newStores(context.Background(), cfg, entCfg, log)
	if err != nil {
		return nil, err
	}

	oracle, err := newOracle(cfg, m, log)
	if err != nil {
		closeStores(devices, entStore, pool)
		return nil, err
	}

	cache := entitlement.NewCache(log, entCfg, entStore, oracle)
	cache.OnCacheHit(m.EntitlementCacheHits.Inc)

	registry := liveness.NewRegistry(log, liveCfg, func(_ fingerprint.Identity, reason liveness.TerminationReason) {
		m.LivenessTerminations.WithLabelValues(string(reason)).Inc()
	})

	catalog, err := loadCatalog(cfg.ScriptsDir, log)
	if err != nil {
		closeStores(devices, entStore, pool)
		return nil, err
	}

	handler, err := api.NewHandler(log, apiCfg, deriver, devices, creds, registry, cache, catalog, m)
	if err != nil {
		closeStores(devices, entStore, pool)
		return nil, err
	}

	gw, err := gateway.New(log, gateway.Config{
		Rules: []gateway.Rule{
			{Prefix: "/healthz", Tier: gateway.TierOpen},
			{Prefix: "/readyz", Tier: gateway.TierOpen},
			{Prefix: "/metrics", Tier: gateway.TierOpen},
			{Prefix: "/auth/device", Tier: gateway.TierOpen},
			{Prefix: "/auth/heartbeat", Tier: gateway.TierSession},
			{Prefix: "/ws/liveness", Tier: gateway.TierSession},
			{Prefix: "/scripts", Tier: gateway.TierSession},
			{Prefix: cfg.AdminPrefix, Tier: gateway.TierSession},
		},
		DefaultTier:       gateway.TierSession,
		AdminPrefix:       cfg.AdminPrefix,
		AdminAllowedAddrs: cfg.AdminAllowedAddrs,
		TrustProxy:        cfg.TrustProxy,
	}, creds, gatewayMetrics{m})
	if err != nil {
		closeStores(devices, entStore, pool)
		return nil, err
	}

	channel := liveness.NewChannel(log, liveCfg, registry, func(r *http.Request) (fingerprint.Identity, bool) {
		return gateway.IdentityFromRequest(r)
	})

	return &App{
		cfg:          cfg,
		log:          log,
		dbPool:       pool,
		dbEnabled:    dbEnabled,
		devices:      devices,
		entitlements: entStore,
		registry:     registry,
		channel:      channel,
		gateway:      gw,
		handler:      handler,
		metrics:      m,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.handler, a.channel, a.metrics)

	var root http.Handler = a.gateway.Wrap(mux)
	root = WithSecurityHeaders(root)
	root = WithRequestLogging(root, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	// Live sessions are fail-closed on process stop: terminate, then release
	// storage.
	a.registry.Shutdown()
	closeStores(a.devices, a.entitlements, a.dbPool)

	a.log.Info("server.stopped")
	return nil
}

// gatewayMetrics adapts the metrics value to the gateway observer interface.
type gatewayMetrics struct {
	m *metrics.Metrics
}

func (g gatewayMetrics) Rejection(kind string) {
	g.m.GatewayRejections.WithLabelValues(kind).Inc()
}

// newStores picks the persistence backends.
//
// Devices: Postgres when a database URL is configured, otherwise in-memory.
// Entitlements: Redis when configured, then Postgres, then in-memory.
func newStores(ctx context.Context, cfg Config, entCfg entitlement.Config, log Logger) (device.Store, entitlement.Store, *pgxpool.Pool, bool, error) {
	var (
		pool      *pgxpool.Pool
		dbEnabled bool
	)

	if cfg.DatabaseURL != "" {
		p, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, nil, false, err
		}
		pool = p
		dbEnabled = true
		log.Info("db.enabled.postgres")
	} else {
		log.Info("db.disabled.inmemory_store")
	}

	var devices device.Store
	if dbEnabled {
		ds, err := device.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, false, err
		}
		devices = ds
	} else {
		devices = device.NewInMemoryStore()
	}

	var entStore entitlement.Store
	switch {
	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeStores(devices, nil, pool)
			return nil, nil, nil, false, err
		}
		rs, err := entitlement.NewRedisStore(redis.NewClient(opts), entCfg.FreshnessWindow)
		if err != nil {
			closeStores(devices, nil, pool)
			return nil, nil, nil, false, err
		}
		entStore = rs
		log.Info("entitlement.store.redis")
	case dbEnabled:
		es, err := entitlement.NewPostgresStore(pool)
		if err != nil {
			closeStores(devices, nil, pool)
			return nil, nil, nil, false, err
		}
		entStore = es
		log.Info("entitlement.store.postgres")
	default:
		entStore = entitlement.NewInMemoryStore()
		log.Info("entitlement.store.memory")
	}

	return devices, entStore, pool, dbEnabled, nil
}

// newOracle builds the ownership oracle, instrumented with call-outcome
// counters. Without a configured endpoint the server runs permissive, which
// is only acceptable in development and is logged as such.
func newOracle(cfg Config, m *metrics.Metrics, log Logger) (entitlement.Oracle, error) {
	var oracle entitlement.Oracle

	if cfg.OracleURL != "" {
		o, err := entitlement.NewHTTPOracle(nil, cfg.OracleURL, cfg.OracleTimeout)
		if err != nil {
			return nil, err
		}
		oracle = o
	} else {
		log.Warn("oracle.disabled.permissive", "hint", "set WARDEN_ORACLE_URL in production")
		oracle = func(_ context.Context, _ string) (entitlement.OracleResult, error) {
			return entitlement.OracleResult{Holds: true, Quantity: 1}, nil
		}
	}

	return func(ctx context.Context, subjectAddr string) (entitlement.OracleResult, error) {
		res, err := oracle(ctx, subjectAddr)
		if err != nil {
			m.OracleCalls.WithLabelValues("error").Inc()
			return res, err
		}
		if res.Holds {
			m.OracleCalls.WithLabelValues("holds").Inc()
		} else {
			m.OracleCalls.WithLabelValues("empty").Inc()
		}
		return res, nil
	}, nil
}

func closeStores(devices device.Store, entStore entitlement.Store, pool *pgxpool.Pool) {
	if devices != nil {
		_ = devices.Close()
	}
	if entStore != nil {
		_ = entStore.Close()
	}
	if pool != nil {
		pool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
