package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"warden/cmd/internal/fingerprint"
)

// tokenSeparator splits the serialized payload from its MAC. The payload is
// base64url and the MAC is hex, so neither half can contain it.
const tokenSeparator = "."

// Claims is the verified content of a session credential.
type Claims struct {
	DeviceID fingerprint.Identity
	IssuedAt time.Time
	Nonce    string
}

type payload struct {
	DeviceID string `json:"device_id"`
	IssuedAt int64  `json:"issued_at"`
	Nonce    string `json:"nonce"`
}

// Manager issues and verifies session credentials. It holds no per-session
// state and is safe for concurrent use.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager. The secret must be at least 32 bytes.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < secretMinBytes {
		return nil, ErrConfig
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{secret: cfg.Secret, ttl: ttl}, nil
}

// TTL returns the fixed credential lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue builds a signed credential for the given device identity.
//
// The nonce of issuance makes every credential unique even for the same
// device and instant; it is carried verbatim and plays no verification role
// beyond tamper coverage.
func (m *Manager) Issue(deviceID fingerprint.Identity, now time.Time) (token string, expiresAt time.Time, err error) {
	if err := deviceID.Validate(); err != nil {
		return "", time.Time{}, err
	}

	raw, err := json.Marshal(payload{
		DeviceID: deviceID.String(),
		IssuedAt: now.UTC().Unix(),
		Nonce:    uuid.NewString(),
	})
	if err != nil {
		return "", time.Time{}, err
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	mac := m.mac(encoded)

	return encoded + tokenSeparator + mac, now.UTC().Add(m.ttl), nil
}

// Verify checks a credential and returns its claims.
//
// Verification is binary: malformed halves, a MAC mismatch (compared in
// constant time), or age beyond the session TTL all reject the token with a
// specific sentinel error and no partial result.
func (m *Manager) Verify(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return Claims{}, ErrMalformedCredential
	}

	encoded, mac, ok := strings.Cut(token, tokenSeparator)
	if !ok || encoded == "" || mac == "" {
		return Claims{}, ErrMalformedCredential
	}

	if !hmac.Equal([]byte(m.mac(encoded)), []byte(mac)) {
		return Claims{}, ErrSignatureInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Claims{}, ErrMalformedCredential
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, ErrMalformedCredential
	}

	deviceID := fingerprint.Identity(p.DeviceID)
	if err := deviceID.Validate(); err != nil {
		return Claims{}, ErrMalformedCredential
	}
	if p.Nonce == "" {
		return Claims{}, ErrMalformedCredential
	}

	issuedAt := time.Unix(p.IssuedAt, 0).UTC()
	if now.UTC().Sub(issuedAt) > m.ttl {
		return Claims{}, ErrExpired
	}

	return Claims{DeviceID: deviceID, IssuedAt: issuedAt, Nonce: p.Nonce}, nil
}

func (m *Manager) mac(encodedPayload string) string {
	h := hmac.New(sha256.New, m.secret)
	_, _ = h.Write([]byte(encodedPayload))
	return hex.EncodeToString(h.Sum(nil))
}
