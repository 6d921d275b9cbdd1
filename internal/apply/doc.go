// Package apply executes parsed change sets against a base directory.
//
// The [Applier] validates and applies each file operation independently:
// one file's failure never rolls back another file's already-committed
// write. Multi-file atomicity is deliberately out of scope; callers that
// need all-or-nothing behavior dry-run first and only commit if the
// dry-run succeeded.
//
// # Modes
//
// Dry-run performs every validation a commit would (existence checks, hunk
// context matching against current disk state) but writes nothing and takes
// no locks, so it is safe to call concurrently and repeatedly.
//
// Commit acquires a lock per target path before touching it, re-validates
// against current disk state, writes through a temp-file-and-rename so a
// crash never leaves a half-written target, and releases the lock on every
// exit path.
package apply
