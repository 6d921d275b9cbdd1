package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/weftlabs/weft/internal/errors"
	"github.com/weftlabs/weft/internal/fsutil"
	"github.com/weftlabs/weft/internal/logging"
)

const stateFileName = "locks.json"

// Manager coordinates exclusive path locks through a single lock directory.
// All methods are safe for concurrent use from multiple goroutines and, via
// the filesystem protocol described in the package documentation, from
// multiple processes.
type Manager struct {
	dir   string
	stale time.Duration
	retry time.Duration
	log   *logging.Logger
	mu    sync.Mutex
}

// New creates a Manager rooted at the given lock directory, creating the
// directory if needed.
func New(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("filelock: lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	m := &Manager{
		dir:   dir,
		stale: DefaultStaleTimeout,
		retry: defaultRetryInterval,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Dir returns the lock directory this Manager coordinates through.
func (m *Manager) Dir() string {
	return m.dir
}

// StaleTimeout returns the configured stale-reclaim timeout.
func (m *Manager) StaleTimeout() time.Duration {
	return m.stale
}

// Acquire attempts to take the lock on path for owner without waiting.
//
// If another owner holds a lock younger than the stale timeout, Acquire
// fails with a *errors.LockError wrapping errors.ErrLockConflict. A lock
// older than the stale timeout is reclaimed: the old claim is discarded with
// a WARN log and the new lock's Reclaimed flag is set. Re-acquiring a lock
// already held by the same owner succeeds idempotently.
func (m *Manager) Acquire(path, owner string) (*Lock, error) {
	if path == "" || owner == "" {
		return nil, errors.New("filelock: path and owner are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	guard := newStateGuard(m.dir)
	if err := guard.Lock(); err != nil {
		return nil, err
	}
	defer func() { _ = guard.Unlock() }()

	state, err := m.loadState()
	if err != nil {
		return nil, err
	}

	reclaimed := false
	if existing, ok := state.Locks[path]; ok {
		if existing.Owner == owner {
			// Re-entrant for the same owner. Refresh the timestamp so a lock
			// re-acquired mid-work does not age into the stale window while
			// its owner is still live.
			existing.AcquiredAt = time.Now()
			existing.PID = os.Getpid()
			state.Locks[path] = existing
			if err := m.saveState(state); err != nil {
				return nil, err
			}
			if data, merr := json.MarshalIndent(existing, "", "  "); merr == nil {
				if werr := os.WriteFile(m.markerPath(path), data, 0o644); werr != nil {
					m.log.Warn("marker refresh failed", "path", path, "error", werr.Error())
				}
			}
			return &existing, nil
		}
		if !existing.staleAfter(m.stale) {
			return nil, errors.NewLockError("could not acquire", path, errors.ErrLockConflict).
				WithOwner(existing.Owner)
		}

		m.log.Warn("reclaiming stale lock",
			"path", path,
			"old_owner", existing.Owner,
			"age", existing.Age().String(),
			"new_owner", owner)
		if err := os.Remove(m.markerPath(path)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
		delete(state.Locks, path)
		reclaimed = true
	}

	lock := Lock{
		Path:       path,
		Owner:      owner,
		AcquiredAt: time.Now(),
		PID:        os.Getpid(),
	}

	if err := m.createMarker(lock); err != nil {
		return nil, err
	}

	state.Locks[path] = lock
	if err := m.saveState(state); err != nil {
		_ = os.Remove(m.markerPath(path))
		return nil, err
	}

	lock.Reclaimed = reclaimed
	m.log.Debug("lock acquired", "path", path, "owner", owner, "reclaimed", reclaimed)
	return &lock, nil
}

// markerPath returns the per-path marker file location. Markers are named by
// a stable hash so arbitrary relative paths map to flat file names.
func (m *Manager) markerPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(m.dir, hex.EncodeToString(sum[:8])+".lock")
}

// createMarker creates the per-path marker file with O_EXCL so that two
// processes racing for a free path cannot both win. An existing marker with
// no live aggregate entry is an orphan from a crashed holder and is swept.
func (m *Manager) createMarker(lock Lock) error {
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal marker: %w", err)
	}

	markerPath := m.markerPath(lock.Path)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(markerPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, werr := f.Write(data); werr != nil {
				_ = f.Close()
				_ = os.Remove(markerPath)
				return fmt.Errorf("write marker: %w", werr)
			}
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("create marker: %w", err)
		}

		// Marker exists without an aggregate entry: a crashed holder left it
		// behind. Sweep it and retry once; if it reappears, someone live is
		// racing us outside the state guard and we yield.
		if attempt == 0 {
			m.log.Warn("sweeping orphaned lock marker", "path", lock.Path, "marker", markerPath)
			if rerr := os.Remove(markerPath); rerr != nil && !os.IsNotExist(rerr) {
				return fmt.Errorf("sweep orphaned marker: %w", rerr)
			}
			continue
		}
		return errors.NewLockError("marker held", lock.Path, errors.ErrLockConflict)
	}
	return nil
}

// Release removes the lock on path if currently held by owner.
//
// It returns false, without error, when the lock is absent or held by a
// different owner: the caller's lock may have been reclaimed while it was
// working, and that is not an error the caller can act on. Internal failures
// are logged, never raised, so callers always make forward progress.
func (m *Manager) Release(path, owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	guard := newStateGuard(m.dir)
	if err := guard.Lock(); err != nil {
		m.log.Error("release: guard lock failed", "path", path, "error", err.Error())
		return false
	}
	defer func() { _ = guard.Unlock() }()

	state, err := m.loadState()
	if err != nil {
		m.log.Error("release: load state failed", "path", path, "error", err.Error())
		return false
	}

	existing, ok := state.Locks[path]
	if !ok {
		m.log.Debug("release: lock not held", "path", path, "owner", owner)
		return false
	}
	if existing.Owner != owner {
		m.log.Debug("release: lock held by different owner",
			"path", path, "owner", owner, "holder", existing.Owner)
		return false
	}

	delete(state.Locks, path)
	if err := m.saveState(state); err != nil {
		m.log.Error("release: save state failed", "path", path, "error", err.Error())
		return false
	}

	if err := os.Remove(m.markerPath(path)); err != nil && !os.IsNotExist(err) {
		// The aggregate file is authoritative; a leftover marker is swept by
		// the next acquirer.
		m.log.Warn("release: marker removal failed", "path", path, "error", err.Error())
	}

	m.log.Debug("lock released", "path", path, "owner", owner)
	return true
}

// Status returns a snapshot of all currently held, non-expired locks,
// sorted by path.
func (m *Manager) Status() ([]Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadState()
	if err != nil {
		return nil, err
	}

	locks := make([]Lock, 0, len(state.Locks))
	for _, lock := range state.Locks {
		if lock.staleAfter(m.stale) {
			continue
		}
		locks = append(locks, lock)
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].Path < locks[j].Path })
	return locks, nil
}

// IsLocked reports whether path currently has a live lock, and by whom.
// The marker file is checked first as a cheap negative: no marker means no
// lock without reading the aggregate state.
func (m *Manager) IsLocked(path string) (*Lock, bool) {
	if _, err := os.Stat(m.markerPath(path)); os.IsNotExist(err) {
		return nil, false
	}

	locks, err := m.Status()
	if err != nil {
		return nil, false
	}
	for _, lock := range locks {
		if lock.Path == path {
			return &lock, true
		}
	}
	return nil, false
}

// Cleanup releases every lock currently held by owner, returning how many
// were released. It is called when a story run completes or aborts so an
// unhandled failure cannot leak locks beyond the stale-reclaim window.
func (m *Manager) Cleanup(owner string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	guard := newStateGuard(m.dir)
	if err := guard.Lock(); err != nil {
		return 0, err
	}
	defer func() { _ = guard.Unlock() }()

	state, err := m.loadState()
	if err != nil {
		return 0, err
	}

	var paths []string
	for path, lock := range state.Locks {
		if lock.Owner == owner {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		delete(state.Locks, path)
	}
	if len(paths) > 0 {
		if err := m.saveState(state); err != nil {
			return 0, err
		}
		for _, path := range paths {
			if err := os.Remove(m.markerPath(path)); err != nil && !os.IsNotExist(err) {
				m.log.Warn("cleanup: marker removal failed", "path", path, "error", err.Error())
			}
		}
	}

	m.log.Info("cleanup released locks", "owner", owner, "count", len(paths))
	return len(paths), nil
}

// statePath returns the aggregate state file location.
func (m *Manager) statePath() string {
	return filepath.Join(m.dir, stateFileName)
}

// loadState reads the aggregate state file. A missing file is an empty state.
func (m *Manager) loadState() (*lockState, error) {
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &lockState{Locks: make(map[string]Lock)}, nil
		}
		return nil, fmt.Errorf("read lock state: %w", err)
	}

	var state lockState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal lock state: %w", err)
	}
	if state.Locks == nil {
		state.Locks = make(map[string]Lock)
	}
	return &state, nil
}

// saveState writes the aggregate state file via temp-file-and-rename so
// readers never observe a partially-written state.
func (m *Manager) saveState(state *lockState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock state: %w", err)
	}
	if err := fsutil.AtomicWriteFile(m.statePath(), data, 0o644); err != nil {
		return fmt.Errorf("write lock state: %w", err)
	}
	return nil
}
