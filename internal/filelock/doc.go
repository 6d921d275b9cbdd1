// Package filelock provides cross-process, file-level exclusive locks for
// concurrent story runs.
//
// When multiple story runs execute in parallel, they may attempt to patch the
// same file simultaneously. The filelock package prevents this with named,
// ownable locks keyed by target path, coordinated purely through the
// filesystem so that independent processes need no shared memory or broker.
//
// # Storage Layout
//
// A [Manager] owns one lock directory containing:
//   - locks.json: the aggregate state file, the source of truth for
//     ownership and timestamps. All mutations go through read-modify-write
//     with a temp-file-and-rename commit, serialized across processes by an
//     flock(2) guard file.
//   - one marker file per locked path, named by a stable hash of the path.
//     Marker existence is a fast-path "possibly locked" check and an O_EXCL
//     creation race guard; the aggregate file stays authoritative.
//
// # Staleness
//
// A lock older than the stale timeout (default 30s) is considered abandoned.
// A subsequent Acquire by any owner reclaims it; reclamation is logged at
// WARN and flagged on the returned lock, never silent. The stale timeout is
// the system's substitute for cancellation: a crashed holder can block other
// stories for at most that long.
//
// # Basic Usage
//
//	mgr, err := filelock.New(lockDir, filelock.WithStaleTimeout(30*time.Second))
//
//	// Acquire before editing (fail-fast)
//	lock, err := mgr.Acquire("pkg/foo.go", "story-1")
//
//	// Or wait up to a bound for the holder to finish
//	lock, err := mgr.AcquireWait(ctx, "pkg/foo.go", "story-1", 5*time.Second)
//
//	// Release when done
//	released := mgr.Release("pkg/foo.go", "story-1")
//
//	// Release everything on run completion or abort
//	n, err := mgr.Cleanup("story-1")
//
// Acquire is idempotent for the owner already holding the lock. Release of a
// lock held by someone else, or of no lock at all, returns false rather than
// an error, since the lock may have been legitimately reclaimed.
package filelock
