package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const guardFileName = "state.guard"

// stateGuard provides cross-process mutual exclusion over the aggregate
// state file using flock(2). Every read-modify-write of locks.json happens
// under this guard so that acquires from independent processes cannot
// interleave into a lost update.
type stateGuard struct {
	path string
	file *os.File
}

// newStateGuard creates a guard for the given lock directory. The guard
// file is created inside dir on first Lock.
func newStateGuard(dir string) *stateGuard {
	return &stateGuard{
		path: filepath.Join(dir, guardFileName),
	}
}

// Lock acquires the exclusive guard, blocking until available.
func (g *stateGuard) Lock() error {
	f, err := os.OpenFile(g.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open guard file: %w", err)
	}
	g.file = f

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		g.file = nil
		return fmt.Errorf("flock: %w", err)
	}
	return nil
}

// Unlock releases the guard and closes the guard file.
func (g *stateGuard) Unlock() error {
	if g.file == nil {
		return nil
	}

	if err := syscall.Flock(int(g.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = g.file.Close()
		g.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := g.file.Close()
	g.file = nil
	return err
}
