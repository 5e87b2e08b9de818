package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"warden/cmd/internal/credential"
	"warden/cmd/internal/fingerprint"
)

// Request headers carrying the two independently validated values.
const (
	HeaderDeviceIdentity    = "X-Device-Identity"
	HeaderSessionCredential = "X-Session-Credential"
)

// Tier is the trust level required for a path.
type Tier string

const (
	// TierOpen requires no checks (fingerprint submission, health checks).
	TierOpen Tier = "open"
	// TierIdentity requires a structurally valid device identity but no
	// credential (narrow pre-session handshake steps).
	TierIdentity Tier = "identity"
	// TierSession requires identity + verifying credential, cross-checked.
	TierSession Tier = "session"
)

// Rule maps a path prefix to a tier. Longest prefix wins.
type Rule struct {
	Prefix string
	Tier   Tier
}

// Config controls gateway classification and the admin allow-list.
type Config struct {
	Rules []Rule

	// DefaultTier applies to paths no rule matches. Session-required by
	// default: an unrouted path failing closed is a config mistake surfaced
	// loudly, not an accidental hole.
	DefaultTier Tier

	// AdminPrefix restricts a path subtree to AdminAllowedAddrs, evaluated
	// before tier classification. Empty disables the dimension.
	AdminPrefix       string
	AdminAllowedAddrs []string

	// TrustProxy controls whether X-Forwarded-For is honored for the caller
	// address.
	TrustProxy bool
}

// Verifier verifies session credentials. *credential.Manager satisfies it.
type Verifier interface {
	Verify(token string, now time.Time) (credential.Claims, error)
}

// Observer receives gateway rejection events (metrics). May be nil.
type Observer interface {
	Rejection(kind string)
}

// Gateway enforces trust tiers on inbound requests.
type Gateway struct {
	log      *slog.Logger
	cfg      Config
	verifier Verifier
	observer Observer

	rules []Rule // sorted by descending prefix length
	admin allowList
}

// New constructs a Gateway. Rules are matched longest-prefix-first.
func New(log *slog.Logger, cfg Config, verifier Verifier, observer Observer) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	if verifier == nil {
		return nil, ErrConfig
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = TierSession
	}

	admin, err := parseAllowList(cfg.AdminAllowedAddrs)
	if err != nil {
		return nil, err
	}
	if cfg.AdminPrefix != "" && len(admin.prefixes) == 0 {
		// A restricted prefix with an empty allow-list would brick the admin
		// surface silently.
		return nil, ErrConfig
	}

	rules := make([]Rule, len(cfg.Rules))
	copy(rules, cfg.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Prefix) > len(rules[j].Prefix)
	})

	return &Gateway{
		log:      log,
		cfg:      cfg,
		verifier: verifier,
		observer: observer,
		rules:    rules,
		admin:    admin,
	}, nil
}

// Classify returns the tier for a path.
func (g *Gateway) Classify(path string) Tier {
	for _, rule := range g.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Tier
		}
	}
	return g.cfg.DefaultTier
}

// Wrap intercepts requests, enforces the tier requirement, and forwards
// validated values downstream via the request context.
func (g *Gateway) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := callerAddr(r, g.cfg.TrustProxy)

		// Admin allow-list first, before any tier processing.
		if g.cfg.AdminPrefix != "" && strings.HasPrefix(r.URL.Path, g.cfg.AdminPrefix) {
			if !g.admin.contains(addr) {
				g.reject(w, r, http.StatusForbidden, KindAdminAccessDenied, "caller address not allowed")
				return
			}
		}

		switch g.Classify(r.URL.Path) {
		case TierOpen:
			next.ServeHTTP(w, r)

		case TierIdentity:
			id, ok := g.requireIdentity(w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))

		case TierSession:
			id, ok := g.requireIdentity(w, r)
			if !ok {
				return
			}
			claims, ok := g.requireSession(w, r, id)
			if !ok {
				return
			}
			ctx := WithClaims(WithIdentity(r.Context(), id), claims)
			next.ServeHTTP(w, r.WithContext(ctx))

		default:
			g.reject(w, r, http.StatusForbidden, KindAdminAccessDenied, "unroutable tier")
		}
	})
}

func (g *Gateway) requireIdentity(w http.ResponseWriter, r *http.Request) (fingerprint.Identity, bool) {
	id := fingerprint.Identity(strings.TrimSpace(r.Header.Get(HeaderDeviceIdentity)))
	if err := id.Validate(); err != nil {
		g.reject(w, r, http.StatusUnauthorized, KindMalformedIdentity, "missing or malformed device identity")
		return "", false
	}
	return id, true
}

func (g *Gateway) requireSession(w http.ResponseWriter, r *http.Request, id fingerprint.Identity) (credential.Claims, bool) {
	token := strings.TrimSpace(r.Header.Get(HeaderSessionCredential))

	claims, err := g.verifier.Verify(token, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrExpired):
			g.reject(w, r, http.StatusUnauthorized, KindCredentialExpired, "session credential expired")
		case errors.Is(err, credential.ErrSignatureInvalid):
			g.reject(w, r, http.StatusUnauthorized, KindCredentialSignatureInvalid, "session credential signature invalid")
		default:
			g.reject(w, r, http.StatusUnauthorized, KindMalformedCredential, "missing or malformed session credential")
		}
		return credential.Claims{}, false
	}

	// Both values are independently validated, then cross-checked.
	if claims.DeviceID != id {
		g.reject(w, r, http.StatusUnauthorized, KindIdentityMismatch, "credential is bound to a different device identity")
		return credential.Claims{}, false
	}

	return claims, true
}

func (g *Gateway) reject(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	if g.observer != nil {
		g.observer.Rejection(kind)
	}
	g.log.Info("gateway.reject",
		"kind", kind,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": kind, "message": msg},
	})
}

// callerAddr returns the caller's network address. With TrustProxy, the first
// X-Forwarded-For hop wins; otherwise the transport peer address is used.
func callerAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
