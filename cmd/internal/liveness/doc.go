// Package liveness enforces continuous proof-of-channel for authenticated
// sessions.
//
// Each session owns a Monitor: a state machine that must observe a strictly
// increasing heartbeat sequence on a bounded interval. A missed countdown or
// any sequence mismatch terminates the session irreversibly — ambiguity is
// indistinguishable from an active replay/tamper attempt and always resolves
// to termination, never to "assume still alive".
//
// The server drives heartbeat cadence. The websocket Channel pushes the next
// expected trigger to the client on its own schedule; an HTTP heartbeat
// endpoint is an equivalent transport, since the sequence contract — not the
// transport — is what the monitor depends on.
package liveness
