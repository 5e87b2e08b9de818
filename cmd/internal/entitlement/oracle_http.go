package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	oracleMaxResponseBytes = 64 << 10

	// DefaultOracleTimeout bounds one ownership lookup end to end.
	DefaultOracleTimeout = 10 * time.Second
)

// oracleResponse is the ownership endpoint's wire format.
type oracleResponse struct {
	Holds       bool   `json:"holds"`
	Quantity    int64  `json:"quantity"`
	EvidenceKey string `json:"evidence_key"`
}

// NewHTTPOracle returns an Oracle backed by an HTTP ownership endpoint.
//
// The endpoint is queried as GET {baseURL}?subject={addr} and must answer
// 200 with {holds, quantity, evidence_key}. Anything else is a transport
// failure; the cache layer wraps it as unavailable and never stores it.
func NewHTTPOracle(client *http.Client, baseURL string, timeout time.Duration) (Oracle, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, ErrConfig
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}

	return func(ctx context.Context, subjectAddr string) (OracleResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		u := *base
		q := u.Query()
		q.Set("subject", subjectAddr)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return OracleResult{}, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return OracleResult{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, oracleMaxResponseBytes))
			return OracleResult{}, fmt.Errorf("oracle status %d", resp.StatusCode)
		}

		var body oracleResponse
		dec := json.NewDecoder(io.LimitReader(resp.Body, oracleMaxResponseBytes))
		if err := dec.Decode(&body); err != nil {
			return OracleResult{}, errors.New("oracle response malformed")
		}

		return OracleResult{
			Holds:       body.Holds,
			Quantity:    body.Quantity,
			EvidenceKey: body.EvidenceKey,
		}, nil
	}, nil
}
