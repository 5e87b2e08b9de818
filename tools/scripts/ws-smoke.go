// Package main provides a CI-friendly smoke test for the Warden liveness
// channel.
//
// It validates:
//   - device authentication (identity + credential issuance)
//   - websocket handshake + subprotocol selection behind the gateway
//   - server-driven heartbeat triggers
//   - heartbeat -> ack sequencing
//   - termination push on a deliberate sequence violation (with -violate)
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const subprotocol = "warden.liveness.v1"

type authResponse struct {
	DeviceIdentity    string `json:"device_identity"`
	SessionCredential string `json:"session_credential"`
}

type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	baseURL := flag.String("base", "http://127.0.0.1:8080", "server base URL")
	beats := flag.Int("beats", 3, "heartbeats to exchange before exiting")
	violate := flag.Bool("violate", false, "finish by sending a wrong sequence and expect termination")
	timeout := flag.Duration("timeout", 90*time.Second, "overall deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *baseURL, *beats, *violate); err != nil {
		fmt.Fprintln(os.Stderr, "ws-smoke: FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("ws-smoke: OK")
}

func run(ctx context.Context, baseURL string, beats int, violate bool) error {
	auth, err := authenticate(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	fmt.Println("authenticated:", auth.DeviceIdentity[:12])

	header := http.Header{}
	header.Set("X-Device-Identity", auth.DeviceIdentity)
	header.Set("X-Session-Credential", auth.SessionCredential)

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws/liveness"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	if sp := conn.Subprotocol(); sp != subprotocol {
		return fmt.Errorf("subprotocol = %q, want %q", sp, subprotocol)
	}

	acked := 0
	for acked < beats {
		env, err := readEnvelope(ctx, conn)
		if err != nil {
			return err
		}

		switch env.Type {
		case "heartbeat.request":
			var trigger struct {
				Sequence uint64 `json:"sequence"`
			}
			if err := json.Unmarshal(env.Payload, &trigger); err != nil {
				return fmt.Errorf("trigger payload: %w", err)
			}
			if err := writeBeat(ctx, conn, auth.DeviceIdentity, trigger.Sequence); err != nil {
				return err
			}
		case "heartbeat.ack":
			acked++
			fmt.Printf("ack %d/%d\n", acked, beats)
		case "session.terminated":
			return fmt.Errorf("unexpected termination: %s", env.Payload)
		}
	}

	if !violate {
		return nil
	}

	// A wildly wrong sequence must terminate the session immediately.
	if err := writeBeat(ctx, conn, auth.DeviceIdentity, 99999); err != nil {
		return err
	}
	for {
		env, err := readEnvelope(ctx, conn)
		if err != nil {
			// A close before the final frame also proves termination.
			if websocket.CloseStatus(err) != -1 {
				fmt.Println("terminated with close status", websocket.CloseStatus(err))
				return nil
			}
			return err
		}
		if env.Type == "session.terminated" {
			fmt.Println("terminated:", string(env.Payload))
			return nil
		}
	}
}

func authenticate(ctx context.Context, baseURL string) (authResponse, error) {
	body := []byte(`{"characteristics":{"processor_model":"smoke-cpu","graphics_renderer":"smoke-gpu","os_platform":"smoke-os"}}`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/device", bytes.NewReader(body))
	if err != nil {
		return authResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return authResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return authResponse{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return authResponse{}, err
	}
	return out, nil
}

func readEnvelope(ctx context.Context, conn *websocket.Conn) (envelope, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("bad frame: %w", err)
	}
	return env, nil
}

func writeBeat(ctx context.Context, conn *websocket.Conn, subject string, sequence uint64) error {
	frame, err := json.Marshal(map[string]any{
		"id":   fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
		"type": "heartbeat",
		"ts":   time.Now().UTC(),
		"payload": map[string]any{
			"sequence":   sequence,
			"subject_id": subject,
		},
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, frame)
}
