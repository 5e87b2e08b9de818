package liveness

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"warden/cmd/internal/fingerprint"
)

const (
	channelSubprotocol = "warden.liveness.v1"

	channelMaxFrameBytes = 8 << 10 // 8 KiB; heartbeat frames are tiny
	channelWriteTimeout  = 5 * time.Second
)

// SubjectResolver extracts the authenticated subject for a channel request.
// The access gateway populates it; the channel never re-validates credentials.
type SubjectResolver func(r *http.Request) (fingerprint.Identity, bool)

// Channel is the websocket transport for server-driven heartbeats.
//
// The server owns the cadence: it pushes heartbeat.request envelopes carrying
// the next expected sequence, and the client answers with heartbeat
// envelopes. A sequence violation or countdown elapse terminates the session;
// the channel then pushes session.terminated and closes.
type Channel struct {
	log      *slog.Logger
	cfg      Config
	registry *Registry
	subject  SubjectResolver
}

// NewChannel constructs a Channel over the given registry.
func NewChannel(log *slog.Logger, cfg Config, registry *Registry, subject SubjectResolver) *Channel {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HeartbeatInterval <= 0 || cfg.HeartbeatTimeout <= 0 {
		cfg = DefaultConfig()
	}
	return &Channel{log: log, cfg: cfg, registry: registry, subject: subject}
}

// ServeHTTP upgrades the request and runs the heartbeat loop for the
// authenticated subject.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	monitor, ok := c.registry.Get(subject)
	if !ok {
		http.Error(w, "session terminated", http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{channelSubprotocol},
	})
	if err != nil {
		c.log.Error("liveness.ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != channelSubprotocol {
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(channelMaxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Cadence pusher: the server, not the client, decides when the next
	// heartbeat is due.
	go func() {
		t := time.NewTicker(c.cfg.HeartbeatInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-monitor.Done():
				c.pushTerminated(conn, monitor.Snapshot().Reason)
				_ = conn.Close(websocket.StatusPolicyViolation, "session terminated")
				cancel()
				return
			case <-t.C:
				snap := monitor.Snapshot()
				if snap.State == StateTerminated {
					continue
				}
				req, err := newEnvelope(TypeHeartbeatRequest, HeartbeatRequestPayload{Sequence: snap.ExpectedSequence}, time.Now().UTC())
				if err != nil {
					continue
				}
				if err := c.write(ctx, conn, req); err != nil {
					c.log.Info("liveness.ws.push.fail", "subject", subject.String(), "err", err)
					cancel()
					return
				}
			}
		}
	}()

	for {
		env, err := c.read(ctx, conn)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				c.log.Info("liveness.ws.read.fail", "subject", subject.String(), "err", err)
			}
			return
		}

		if env.Type != TypeHeartbeat {
			continue
		}

		var beat HeartbeatPayload
		if err := json.Unmarshal(env.Payload, &beat); err != nil {
			continue
		}
		if fingerprint.Identity(beat.SubjectID) != subject {
			// A beat for a different subject over this channel is treated
			// like any other protocol violation.
			monitor.Terminate(ReasonSequenceViolation)
			c.pushTerminated(conn, ReasonSequenceViolation)
			_ = conn.Close(websocket.StatusPolicyViolation, "subject mismatch")
			return
		}

		now := time.Now().UTC()
		if err := c.registry.Beat(subject, beat.Sequence, now); err != nil {
			c.pushTerminated(conn, monitor.Snapshot().Reason)
			_ = conn.Close(websocket.StatusPolicyViolation, "session terminated")
			return
		}

		ack, err := newEnvelope(TypeHeartbeatAck, HeartbeatAckPayload{NextSequence: monitor.Snapshot().ExpectedSequence}, now)
		if err != nil {
			continue
		}
		if err := c.write(ctx, conn, ack); err != nil {
			return
		}
	}
}

func (c *Channel) pushTerminated(conn *websocket.Conn, reason TerminationReason) {
	env, err := newEnvelope(TypeTerminated, TerminatedPayload{Reason: string(reason)}, time.Now().UTC())
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), channelWriteTimeout)
	defer cancel()
	_ = c.write(ctx, conn, env)
}

func (c *Channel) write(ctx context.Context, conn *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, channelWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

func (c *Channel) read(ctx context.Context, conn *websocket.Conn) (Envelope, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Malformed frames are dropped, not fatal: the monitor countdown is
		// the enforcement mechanism, not JSON strictness.
		return Envelope{Type: ""}, nil
	}
	return env, nil
}
