package filelock

import (
	"time"

	"github.com/weftlabs/weft/internal/logging"
)

// DefaultStaleTimeout is how old a lock may grow before any owner may
// reclaim it.
const DefaultStaleTimeout = 30 * time.Second

// defaultRetryInterval paces AcquireWait retries when no filesystem event
// arrives.
const defaultRetryInterval = 250 * time.Millisecond

// Lock represents an exclusive claim on a target path.
type Lock struct {
	Path       string    `json:"path" yaml:"path"`
	Owner      string    `json:"owner" yaml:"owner"`
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`
	PID        int       `json:"pid" yaml:"pid"`

	// Reclaimed is set on the lock returned by Acquire when a stale lock by
	// another owner was displaced to grant this one. Not persisted.
	Reclaimed bool `json:"-" yaml:"-"`
}

// Age returns how long the lock has been held.
func (l Lock) Age() time.Duration {
	return time.Since(l.AcquiredAt)
}

// staleAfter reports whether the lock has outlived the given timeout.
// A non-positive timeout means locks never go stale.
func (l Lock) staleAfter(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return l.Age() >= timeout
}

// lockState is the serialized form of the aggregate state file.
type lockState struct {
	Locks map[string]Lock `json:"locks"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithStaleTimeout overrides the stale-reclaim timeout. A non-positive
// value disables stale reclamation entirely.
func WithStaleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.stale = d
	}
}

// WithRetryInterval overrides the AcquireWait retry pacing.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.retry = d
	}
}

// WithLogger sets the logger used for reclamation warnings and release
// diagnostics.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) {
		m.log = log.WithComponent("filelock")
	}
}
