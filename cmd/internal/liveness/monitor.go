package liveness

import (
	"sync"
	"time"
)

// State is the monitor lifecycle state.
type State string

const (
	// StateUnarmed means no heartbeat has been accepted since session start.
	StateUnarmed State = "unarmed"
	// StateArmed means the sequence chain is live and the countdown is running.
	StateArmed State = "armed"
	// StateTerminated is terminal for the session instance.
	StateTerminated State = "terminated"
)

// TerminationReason records why a monitor terminated.
type TerminationReason string

const (
	// ReasonTimeout: the countdown elapsed without an accepted heartbeat.
	ReasonTimeout TerminationReason = "timeout"
	// ReasonSequenceViolation: a heartbeat arrived with a mismatched sequence.
	ReasonSequenceViolation TerminationReason = "sequence_violation"
	// ReasonSuperseded: the subject re-authenticated and a new session
	// instance replaced this one.
	ReasonSuperseded TerminationReason = "superseded"
	// ReasonShutdown: the process is stopping.
	ReasonShutdown TerminationReason = "shutdown"
)

// TerminateFunc is invoked exactly once when a monitor terminates. It must
// not block; it runs outside the monitor lock.
type TerminateFunc func(reason TerminationReason)

// Monitor is the per-session liveness state machine.
//
// All mutation happens under a single mutex, so concurrent heartbeats for the
// same session are evaluated against one authoritative expectedSequence,
// never a stale snapshot. The countdown uses runtime timers, which are
// monotonic and immune to wall-clock adjustment.
type Monitor struct {
	mu sync.Mutex

	timeout     time.Duration
	state       State
	expected    uint64
	startedAt   time.Time
	lastBeatAt  time.Time
	reason      TerminationReason
	timer       *time.Timer
	onTerminate TerminateFunc

	done chan struct{}
}

// NewMonitor starts a monitor in the Unarmed state with its countdown already
// running: a session that never sends its first heartbeat within one full
// timeout is terminated.
func NewMonitor(timeout time.Duration, onTerminate TerminateFunc) *Monitor {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}

	m := &Monitor{
		timeout:     timeout,
		state:       StateUnarmed,
		expected:    1,
		startedAt:   time.Now(),
		onTerminate: onTerminate,
		done:        make(chan struct{}),
	}
	m.timer = time.AfterFunc(timeout, m.expire)
	return m
}

// Beat processes one heartbeat.
//
// The first accepted heartbeat must carry sequence 1 and arms the monitor.
// While armed, only the exact expected sequence is accepted; acceptance
// increments the expectation and fully resets the countdown. Any mismatch —
// duplicate, gap, or reorder — terminates the session immediately.
func (m *Monitor) Beat(sequence uint64, now time.Time) error {
	m.mu.Lock()

	if m.state == StateTerminated {
		m.mu.Unlock()
		return ErrSessionTerminated
	}

	if sequence != m.expected {
		fire := m.terminateLocked(ReasonSequenceViolation)
		m.mu.Unlock()
		fire()
		return ErrSequenceViolation
	}

	m.state = StateArmed
	m.expected++
	m.lastBeatAt = now
	// Full countdown reset, not a sliding window.
	m.timer.Reset(m.timeout)

	m.mu.Unlock()
	return nil
}

// Terminate forces termination with the given reason (idempotent).
func (m *Monitor) Terminate(reason TerminationReason) {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return
	}
	fire := m.terminateLocked(reason)
	m.mu.Unlock()
	fire()
}

// expire runs on the countdown timer goroutine.
func (m *Monitor) expire() {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return
	}
	fire := m.terminateLocked(ReasonTimeout)
	m.mu.Unlock()
	fire()
}

// terminateLocked flips the machine into its terminal state and returns the
// hook to run after the lock is released. Termination is irreversible: the
// timer is stopped, done is closed, and every later Beat fails.
func (m *Monitor) terminateLocked(reason TerminationReason) func() {
	m.state = StateTerminated
	m.reason = reason
	m.timer.Stop()
	close(m.done)

	hook := m.onTerminate
	m.onTerminate = nil

	return func() {
		if hook != nil {
			hook(reason)
		}
	}
}

// Done returns a channel closed on termination. It doubles as the
// cancellation signal for in-flight work tied to this session.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Snapshot is a point-in-time view of a monitor.
type Snapshot struct {
	State            State
	ExpectedSequence uint64
	StartedAt        time.Time
	LastBeatAt       time.Time
	Reason           TerminationReason
}

// Snapshot returns the current monitor state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:            m.state,
		ExpectedSequence: m.expected,
		StartedAt:        m.startedAt,
		LastBeatAt:       m.lastBeatAt,
		Reason:           m.reason,
	}
}
