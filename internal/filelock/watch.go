package filelock

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/weftlabs/weft/internal/errors"
)

// AcquireWait attempts to take the lock on path for owner, retrying on
// conflict until the wait bound elapses or ctx is canceled.
//
// Retries are driven by filesystem events on the lock directory: a holder
// releasing removes its marker file, which wakes waiters immediately. A
// ticker paced at the retry interval covers missed events and stale-timeout
// expiry, which produces no filesystem activity of its own. A zero or
// negative wait degenerates to a single fail-fast Acquire.
func (m *Manager) AcquireWait(ctx context.Context, path, owner string, wait time.Duration) (*Lock, error) {
	lock, err := m.Acquire(path, owner)
	if err == nil || wait <= 0 || !errors.Is(err, errors.ErrLockConflict) {
		return lock, err
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	ticker := time.NewTicker(m.retry)
	defer ticker.Stop()

	// Event-driven wakeup is best effort: if the watcher cannot be created,
	// the nil channel below blocks forever and the ticker carries the load.
	var events <-chan fsnotify.Event
	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		if aerr := watcher.Add(m.dir); aerr == nil {
			events = watcher.Events
		}
		defer func() { _ = watcher.Close() }()
	} else {
		m.log.Debug("acquire wait: watcher unavailable, polling only", "error", werr.Error())
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			return nil, err

		case ev := <-events:
			if ev.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}

		case <-ticker.C:
		}

		lock, err = m.Acquire(path, owner)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, errors.ErrLockConflict) {
			return nil, err
		}
	}
}
