package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warden/cmd/internal/credential"
	"warden/cmd/internal/fingerprint"
)

const testIdentity = fingerprint.Identity("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func testManager(t *testing.T, ttl time.Duration) *credential.Manager {
	t.Helper()
	m, err := credential.NewManager(credential.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		SessionTTL: ttl,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func testGateway(t *testing.T, cfg Config, verifier Verifier) *Gateway {
	t.Helper()
	if verifier == nil {
		verifier = testManager(t, time.Hour)
	}
	g, err := New(nil, cfg, verifier, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// echoHandler reports what the gateway forwarded into the context.
func echoHandler(t *testing.T, wantIdentity fingerprint.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantIdentity != "" {
			id, ok := IdentityFromRequest(r)
			if !ok {
				t.Error("identity missing from context")
			} else if id != wantIdentity {
				t.Errorf("context identity = %s, want %s", id, wantIdentity)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func rejectionCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode rejection body: %v", err)
	}
	return body.Error.Code
}

func TestGatewayOpenTier(t *testing.T) {
	g := testGateway(t, Config{
		Rules: []Rule{{Prefix: "/auth/device", Tier: TierOpen}},
	}, nil)

	h := g.Wrap(echoHandler(t, ""))

	// No identity, no credential: open paths pass untouched.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/device", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("open path status = %d, want 200", rec.Code)
	}
}

func TestGatewayDefaultTierFailsClosed(t *testing.T) {
	g := testGateway(t, Config{
		Rules: []Rule{{Prefix: "/auth/device", Tier: TierOpen}},
	}, nil)

	h := g.Wrap(echoHandler(t, ""))

	// An unrouted path gets the session requirement, not a free pass.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unlisted", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unrouted path status = %d, want 401", rec.Code)
	}
	if code := rejectionCode(t, rec); code != KindMalformedIdentity {
		t.Fatalf("rejection code = %q, want %q", code, KindMalformedIdentity)
	}
}

func TestGatewayLongestPrefixWins(t *testing.T) {
	g := testGateway(t, Config{
		Rules: []Rule{
			{Prefix: "/api", Tier: TierSession},
			{Prefix: "/api/health", Tier: TierOpen},
		},
	}, nil)

	if tier := g.Classify("/api/health"); tier != TierOpen {
		t.Fatalf("Classify(/api/health) = %s, want open", tier)
	}
	if tier := g.Classify("/api/scripts"); tier != TierSession {
		t.Fatalf("Classify(/api/scripts) = %s, want session", tier)
	}
}

func TestGatewayIdentityTier(t *testing.T) {
	g := testGateway(t, Config{
		Rules: []Rule{{Prefix: "/handshake", Tier: TierIdentity}},
	}, nil)

	h := g.Wrap(echoHandler(t, testIdentity))

	tests := []struct {
		name     string
		identity string
		status   int
		code     string
	}{
		{"valid", testIdentity.String(), http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, KindMalformedIdentity},
		{"short", "abc123", http.StatusUnauthorized, KindMalformedIdentity},
		{"uppercase", strings.ToUpper(testIdentity.String()), http.StatusUnauthorized, KindMalformedIdentity},
		{"nonhex", strings.Repeat("z", 64), http.StatusUnauthorized, KindMalformedIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/handshake", nil)
			if tt.identity != "" {
				req.Header.Set(HeaderDeviceIdentity, tt.identity)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.code != "" {
				if code := rejectionCode(t, rec); code != tt.code {
					t.Fatalf("rejection code = %q, want %q", code, tt.code)
				}
			}
		})
	}
}

func TestGatewaySessionTier(t *testing.T) {
	mgr := testManager(t, time.Hour)
	g := testGateway(t, Config{
		Rules: []Rule{{Prefix: "/api", Tier: TierSession}},
	}, mgr)

	now := time.Now().UTC()
	token, _, err := mgr.Issue(testIdentity, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h := g.Wrap(echoHandler(t, testIdentity))

	t.Run("valid credential passes and forwards identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
		req.Header.Set(HeaderDeviceIdentity, testIdentity.String())
		req.Header.Set(HeaderSessionCredential, token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
		req.Header.Set(HeaderDeviceIdentity, testIdentity.String())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if code := rejectionCode(t, rec); code != KindMalformedCredential {
			t.Fatalf("rejection code = %q, want %q", code, KindMalformedCredential)
		}
	})

	t.Run("tampered credential", func(t *testing.T) {
		tampered := token[:len(token)-1]
		if strings.HasSuffix(token, "a") {
			tampered += "b"
		} else {
			tampered += "a"
		}

		req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
		req.Header.Set(HeaderDeviceIdentity, testIdentity.String())
		req.Header.Set(HeaderSessionCredential, tampered)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if code := rejectionCode(t, rec); code != KindCredentialSignatureInvalid {
			t.Fatalf("rejection code = %q, want %q", code, KindCredentialSignatureInvalid)
		}
	})

	t.Run("identity mismatch", func(t *testing.T) {
		other := fingerprint.Identity(strings.Repeat("b", 64))
		req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
		req.Header.Set(HeaderDeviceIdentity, other.String())
		req.Header.Set(HeaderSessionCredential, token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if code := rejectionCode(t, rec); code != KindIdentityMismatch {
			t.Fatalf("rejection code = %q, want %q", code, KindIdentityMismatch)
		}
	})
}

func TestGatewayExpiredCredential(t *testing.T) {
	mgr := testManager(t, time.Minute)
	g := testGateway(t, Config{
		Rules: []Rule{{Prefix: "/api", Tier: TierSession}},
	}, mgr)

	// Issued far enough in the past to be beyond the TTL at verification time.
	token, _, err := mgr.Issue(testIdentity, time.Now().UTC().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
	req.Header.Set(HeaderDeviceIdentity, testIdentity.String())
	req.Header.Set(HeaderSessionCredential, token)
	rec := httptest.NewRecorder()
	g.Wrap(echoHandler(t, "")).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := rejectionCode(t, rec); code != KindCredentialExpired {
		t.Fatalf("rejection code = %q, want %q", code, KindCredentialExpired)
	}
}

func TestGatewayAdminAllowList(t *testing.T) {
	g := testGateway(t, Config{
		Rules:             []Rule{{Prefix: "/admin", Tier: TierOpen}},
		AdminPrefix:       "/admin",
		AdminAllowedAddrs: []string{"10.1.0.0/16", "192.0.2.7"},
	}, nil)

	h := g.Wrap(echoHandler(t, ""))

	tests := []struct {
		name   string
		remote string
		status int
	}{
		{"inside cidr", "10.1.44.2:9000", http.StatusOK},
		{"exact addr", "192.0.2.7:1234", http.StatusOK},
		{"outside", "203.0.113.5:443", http.StatusForbidden},
		{"adjacent cidr", "10.2.0.1:80", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusForbidden {
				if code := rejectionCode(t, rec); code != KindAdminAccessDenied {
					t.Fatalf("rejection code = %q, want %q", code, KindAdminAccessDenied)
				}
			}
		})
	}
}

func TestGatewayAdminCheckedBeforeTier(t *testing.T) {
	mgr := testManager(t, time.Hour)
	g := testGateway(t, Config{
		Rules:             []Rule{{Prefix: "/admin", Tier: TierSession}},
		AdminPrefix:       "/admin",
		AdminAllowedAddrs: []string{"10.0.0.1"},
	}, mgr)

	// A fully valid session from a disallowed address must still be denied
	// on the admin dimension, not rejected for its credentials.
	token, _, err := mgr.Issue(testIdentity, time.Now().UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	req.RemoteAddr = "203.0.113.5:443"
	req.Header.Set(HeaderDeviceIdentity, testIdentity.String())
	req.Header.Set(HeaderSessionCredential, token)
	rec := httptest.NewRecorder()
	g.Wrap(echoHandler(t, "")).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if code := rejectionCode(t, rec); code != KindAdminAccessDenied {
		t.Fatalf("rejection code = %q, want %q", code, KindAdminAccessDenied)
	}
}

func TestGatewayTrustProxy(t *testing.T) {
	cfg := Config{
		Rules:             []Rule{{Prefix: "/admin", Tier: TierOpen}},
		AdminPrefix:       "/admin",
		AdminAllowedAddrs: []string{"10.0.0.1"},
	}

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
		r.RemoteAddr = "172.16.0.9:8080"
		r.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.9")
		return r
	}

	t.Run("forwarded header ignored by default", func(t *testing.T) {
		g := testGateway(t, cfg, nil)
		rec := httptest.NewRecorder()
		g.Wrap(echoHandler(t, "")).ServeHTTP(rec, req())
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("forwarded header honored when trusted", func(t *testing.T) {
		trusted := cfg
		trusted.TrustProxy = true
		g := testGateway(t, trusted, nil)
		rec := httptest.NewRecorder()
		g.Wrap(echoHandler(t, "")).ServeHTTP(rec, req())
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestNewRejectsAdminPrefixWithoutAllowList(t *testing.T) {
	_, err := New(nil, Config{AdminPrefix: "/admin"}, testManager(t, time.Hour), nil)
	if err == nil {
		t.Fatal("expected config error for admin prefix with empty allow-list")
	}
}

type countingObserver struct{ kinds []string }

func (o *countingObserver) Rejection(kind string) { o.kinds = append(o.kinds, kind) }

func TestGatewayObserverSeesRejections(t *testing.T) {
	obs := &countingObserver{}
	g, err := New(nil, Config{
		Rules: []Rule{{Prefix: "/api", Tier: TierSession}},
	}, testManager(t, time.Hour), obs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := httptest.NewRecorder()
	g.Wrap(echoHandler(t, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))

	if len(obs.kinds) != 1 || obs.kinds[0] != KindMalformedIdentity {
		t.Fatalf("observer kinds = %v, want [%s]", obs.kinds, KindMalformedIdentity)
	}
}
