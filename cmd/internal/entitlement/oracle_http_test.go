package entitlement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("subject") {
		case "0xholder":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"holds":true,"quantity":3,"evidence_key":"pass"}`))
		case "0xbroken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"holds":false,"quantity":0,"evidence_key":"pass"}`))
		}
	}))
	defer srv.Close()

	oracle, err := NewHTTPOracle(srv.Client(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPOracle: %v", err)
	}

	t.Run("holder", func(t *testing.T) {
		res, err := oracle(context.Background(), "0xholder")
		if err != nil {
			t.Fatalf("oracle: %v", err)
		}
		if !res.Holds || res.Quantity != 3 || res.EvidenceKey != "pass" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("non-holder", func(t *testing.T) {
		res, err := oracle(context.Background(), "0xother")
		if err != nil {
			t.Fatalf("oracle: %v", err)
		}
		if res.Holds {
			t.Fatal("non-holder reported as holding")
		}
	})

	t.Run("server error is a failure, not a verdict", func(t *testing.T) {
		if _, err := oracle(context.Background(), "0xbroken"); err == nil {
			t.Fatal("expected error for 500 response")
		}
	})
}

func TestNewHTTPOracleRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "not-a-url", "://nope"} {
		if _, err := NewHTTPOracle(nil, u, time.Second); err == nil {
			t.Errorf("NewHTTPOracle(%q): expected error", u)
		}
	}
}
