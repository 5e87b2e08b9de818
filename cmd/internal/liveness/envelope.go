package liveness

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Envelope is the wire frame on the liveness websocket channel.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope types. The server pushes requests on its own cadence; the client
// answers with heartbeats.
const (
	TypeHeartbeatRequest = "heartbeat.request"
	TypeHeartbeat        = "heartbeat"
	TypeHeartbeatAck     = "heartbeat.ack"
	TypeTerminated       = "session.terminated"
)

// HeartbeatRequestPayload tells the client which sequence to send next.
type HeartbeatRequestPayload struct {
	Sequence uint64 `json:"sequence"`
}

// HeartbeatPayload is the client's answer.
type HeartbeatPayload struct {
	Sequence  uint64 `json:"sequence"`
	SubjectID string `json:"subject_id"`
}

// HeartbeatAckPayload acknowledges an accepted heartbeat.
type HeartbeatAckPayload struct {
	NextSequence uint64 `json:"next_sequence"`
}

// TerminatedPayload carries the termination reason to the client.
type TerminatedPayload struct {
	Reason string `json:"reason"`
}

func newEnvelope(typ string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:      ulid.Make().String(),
		Type:    typ,
		TS:      now,
		Payload: raw,
	}, nil
}
