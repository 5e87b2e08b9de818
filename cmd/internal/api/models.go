package api

import (
	"time"

	"warden/cmd/internal/fingerprint"
	"warden/cmd/internal/liveness"
)

type deviceAuthRequest struct {
	Characteristics fingerprint.Characteristics `json:"characteristics"`

	// PriorIdentity lets a returning client report the identity it last held
	// so rotation (network move, hardware change) can be observed server-side.
	PriorIdentity string `json:"prior_identity,omitempty"`
}

type deviceAuthResponse struct {
	DeviceIdentity    string    `json:"device_identity"`
	SessionCredential string    `json:"session_credential"`
	ExpiresAt         time.Time `json:"expires_at"`
	IsNewIdentity     bool      `json:"is_new_identity"`
	IdentityRotated   bool      `json:"identity_rotated"`

	HeartbeatIntervalSeconds int `json:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds  int `json:"heartbeat_timeout_seconds"`
}

type heartbeatRequest struct {
	SubjectID string `json:"subject_id"`
	Sequence  uint64 `json:"sequence"`
}

type heartbeatResponse struct {
	Status       string `json:"status"`
	NextSequence uint64 `json:"next_sequence"`
}

type scriptListResponse struct {
	Scripts []scriptSummary `json:"scripts"`
}

type scriptSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type adminSessionsResponse struct {
	Sessions []adminSession `json:"sessions"`
}

type adminSession struct {
	Subject          string         `json:"subject"`
	State            liveness.State `json:"state"`
	ExpectedSequence uint64         `json:"expected_sequence"`
	StartedAt        time.Time      `json:"started_at"`
	LastBeatAt       *time.Time     `json:"last_beat_at,omitempty"`
	Reason           string         `json:"reason,omitempty"`
}

type entitlementRefreshRequest struct {
	SubjectID   string `json:"subject_id"`
	EvidenceKey string `json:"evidence_key,omitempty"`
}

type entitlementRefreshResponse struct {
	SubjectID   string    `json:"subject_id"`
	EvidenceKey string    `json:"evidence_key"`
	Holds       bool      `json:"holds"`
	Quantity    int64     `json:"quantity"`
	CheckedAt   time.Time `json:"checked_at"`
}
