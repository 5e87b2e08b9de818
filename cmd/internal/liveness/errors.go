package liveness

import "errors"

var (
	// ErrSequenceViolation is returned when a heartbeat carries anything but
	// the exact expected sequence number. The session is terminated before
	// this is returned.
	ErrSequenceViolation = errors.New("heartbeat sequence violation")

	// ErrSessionTerminated is returned for any heartbeat against a session
	// that has already been terminated (or was never started).
	ErrSessionTerminated = errors.New("session terminated")

	// ErrConfig is returned for invalid liveness configuration.
	ErrConfig = errors.New("liveness: invalid config")
)
