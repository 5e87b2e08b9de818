package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFreshnessWindow is how long a positive result is trusted
	// without re-querying the oracle.
	DefaultFreshnessWindow = 24 * time.Hour

	minFreshnessWindow = time.Minute
	maxFreshnessWindow = 7 * 24 * time.Hour
)

// Config controls cache freshness policy.
type Config struct {
	FreshnessWindow time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{FreshnessWindow: DefaultFreshnessWindow}
}

// LoadConfigFromEnv loads cache configuration.
//
// Optional:
//   - WARDEN_ENTITLEMENT_FRESHNESS (clamped to [1m, 168h])
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("WARDEN_ENTITLEMENT_FRESHNESS"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < minFreshnessWindow || d > maxFreshnessWindow {
			return Config{}, ErrConfig
		}
		cfg.FreshnessWindow = d
	}

	return cfg, nil
}

// Cache is the staleness-aware front for the entitlement oracle.
type Cache struct {
	log    *slog.Logger
	store  Store
	oracle Oracle
	window time.Duration

	flight singleflight.Group

	// onHit, when set, observes fresh-positive short-circuits (metrics).
	onHit func()

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// OnCacheHit registers a callback invoked whenever a fresh positive record
// short-circuits the oracle. Must be set before the cache is shared.
func (c *Cache) OnCacheHit(fn func()) { c.onHit = fn }

// NewCache constructs a Cache over the given store and oracle.
func NewCache(log *slog.Logger, cfg Config, store Store, oracle Oracle) *Cache {
	if log == nil {
		log = slog.Default()
	}
	window := cfg.FreshnessWindow
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Cache{
		log:    log,
		store:  store,
		oracle: oracle,
		window: window,
		now:    time.Now,
	}
}

// Check returns the entitlement record for (subjectID, evidenceKey).
//
// Only a fresh positive record short-circuits the oracle. A miss, a stale
// positive, any negative, or forceRefresh all consult the oracle; concurrent
// callers for the same pair share one in-flight oracle call. Oracle failures
// are returned wrapped in ErrOracleUnavailable and never written to the store.
func (c *Cache) Check(ctx context.Context, subjectID, evidenceKey string, forceRefresh bool) (Record, error) {
	now := c.now().UTC()

	if !forceRefresh {
		cached, err := c.store.Get(ctx, subjectID, evidenceKey)
		switch {
		case err == nil:
			if cached.Fresh(now, c.window) {
				if c.onHit != nil {
					c.onHit()
				}
				return cached, nil
			}
			// Stale positive or any negative: fall through to the oracle.
		case errors.Is(err, ErrNotFound):
			// Miss: fall through to the oracle.
		default:
			return Record{}, err
		}
	}

	return c.refresh(ctx, subjectID, evidenceKey)
}

// refresh performs the oracle call under single-flight per pair.
func (c *Cache) refresh(ctx context.Context, subjectID, evidenceKey string) (Record, error) {
	key := subjectID + "\x00" + evidenceKey

	v, err, shared := c.flight.Do(key, func() (any, error) {
		res, err := c.oracle(ctx, subjectID)
		if err != nil {
			return Record{}, oracleErr(err)
		}

		// The cache pair key wins over the oracle's reported evidence key so
		// later lookups for the same pair hit the row they wrote.
		evidence := evidenceKey
		if evidence == "" {
			evidence = res.EvidenceKey
		}

		rec := Record{
			SubjectID:   subjectID,
			EvidenceKey: evidence,
			Holds:       res.Holds,
			Quantity:    res.Quantity,
			CheckedAt:   c.now().UTC(),
		}

		if err := c.store.Upsert(ctx, rec); err != nil {
			// The verdict is still authoritative; a failed upsert only costs
			// an extra oracle call later.
			c.log.Error("entitlement.upsert.fail", "subject", subjectID, "err", err)
		}

		return rec, nil
	})
	if err != nil {
		return Record{}, err
	}

	rec := v.(Record)
	if shared {
		c.log.Debug("entitlement.check.coalesced", "subject", subjectID, "evidence", rec.EvidenceKey)
	}
	return rec, nil
}
