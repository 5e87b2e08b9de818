package liveness

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"warden/cmd/internal/fingerprint"
)

// TerminationHook observes session terminations registry-wide. The
// controlling process uses it to discard session-scoped state (cached
// entitlement decisions, buffered work) when a session dies.
type TerminationHook func(subject fingerprint.Identity, reason TerminationReason)

// Registry owns one monitor per subject (device identity).
//
// Terminated monitors stay registered until the subject re-authenticates, so
// late heartbeats resolve to ErrSessionTerminated instead of looking like an
// unknown session.
type Registry struct {
	log  *slog.Logger
	cfg  Config
	hook TerminationHook

	mu       sync.Mutex
	monitors map[fingerprint.Identity]*Monitor
}

// NewRegistry constructs a Registry. The hook may be nil.
func NewRegistry(log *slog.Logger, cfg Config, hook TerminationHook) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg = DefaultConfig()
	}
	return &Registry{
		log:      log,
		cfg:      cfg,
		hook:     hook,
		monitors: make(map[fingerprint.Identity]*Monitor),
	}
}

// Start begins a fresh session instance for the subject. Any prior monitor is
// superseded: terminated (if still live) and replaced — termination of the
// old instance does not poison the new one.
func (r *Registry) Start(subject fingerprint.Identity) *Monitor {
	m := NewMonitor(r.cfg.HeartbeatTimeout, func(reason TerminationReason) {
		r.log.Info("liveness.terminated", "subject", subject.String(), "reason", string(reason))
		if r.hook != nil {
			r.hook(subject, reason)
		}
	})

	r.mu.Lock()
	prior := r.monitors[subject]
	r.monitors[subject] = m
	r.mu.Unlock()

	if prior != nil {
		prior.Terminate(ReasonSuperseded)
	}

	return m
}

// Beat routes a heartbeat to the subject's monitor.
func (r *Registry) Beat(subject fingerprint.Identity, sequence uint64, now time.Time) error {
	r.mu.Lock()
	m := r.monitors[subject]
	r.mu.Unlock()

	if m == nil {
		return ErrSessionTerminated
	}
	return m.Beat(sequence, now)
}

// Get returns the subject's monitor, if any.
func (r *Registry) Get(subject fingerprint.Identity) (*Monitor, bool) {
	r.mu.Lock()
	m := r.monitors[subject]
	r.mu.Unlock()
	return m, m != nil
}

// SubjectSnapshot pairs a subject with its monitor snapshot (admin surface).
type SubjectSnapshot struct {
	Subject fingerprint.Identity
	Snapshot
}

// List returns snapshots for all registered subjects, ordered by subject.
func (r *Registry) List() []SubjectSnapshot {
	r.mu.Lock()
	out := make([]SubjectSnapshot, 0, len(r.monitors))
	for subject, m := range r.monitors {
		out = append(out, SubjectSnapshot{Subject: subject, Snapshot: m.Snapshot()})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// Shutdown terminates every live monitor (process stop).
func (r *Registry) Shutdown() {
	r.mu.Lock()
	monitors := make([]*Monitor, 0, len(r.monitors))
	for _, m := range r.monitors {
		monitors = append(monitors, m)
	}
	r.mu.Unlock()

	for _, m := range monitors {
		m.Terminate(ReasonShutdown)
	}
}
