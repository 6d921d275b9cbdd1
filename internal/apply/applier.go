package apply

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/errors"
	"github.com/weftlabs/weft/internal/filelock"
	"github.com/weftlabs/weft/internal/fsutil"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/patch"
)

// Applier applies change sets to a base directory, guarding every commit
// write with a path lock.
type Applier struct {
	locks *filelock.Manager
	log   *logging.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the logger for apply diagnostics.
func WithLogger(log *logging.Logger) Option {
	return func(a *Applier) {
		a.log = log.WithComponent("applier")
	}
}

// New creates an Applier that coordinates commit writes through the given
// lock manager.
func New(locks *filelock.Manager, opts ...Option) *Applier {
	a := &Applier{
		locks: locks,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Options controls one Apply invocation.
type Options struct {
	// BaseDir is the directory all patch paths are relative to.
	BaseDir string

	// Owner is the story/run identifier on whose behalf locks are taken.
	// Required for commit, unused for dry-run.
	Owner string

	// DryRun validates without writing or locking.
	DryRun bool

	// LockWait bounds how long a commit waits for a conflicting lock before
	// giving up with a conflict error. Zero means fail fast.
	LockWait time.Duration
}

// Apply executes every operation of the change set in document order.
// Operations are independent per file: a failure is recorded in the result
// and execution continues with the next operation. The returned result's
// Success flag is true only if every operation succeeded.
func (a *Applier) Apply(ctx context.Context, cs *patch.ChangeSet, opts Options) *Result {
	result := newResult(opts.DryRun)

	if cs == nil || len(cs.Ops) == 0 {
		result.Success = false
		result.Errors = append(result.Errors, "empty change set")
		return result
	}
	if !opts.DryRun && opts.Owner == "" {
		result.Success = false
		result.Errors = append(result.Errors, "commit requires an owner identifier")
		return result
	}

	log := a.log.WithStory(opts.Owner)
	for _, op := range cs.Ops {
		if err := ctx.Err(); err != nil {
			result.record(op.Path, errors.Wrapf(err, "%s %s skipped", op.Kind, op.Path))
			continue
		}

		err := a.applyOp(ctx, op, opts)
		if err != nil {
			log.Warn("operation failed", "op", string(op.Kind), "path", op.Path, "error", err.Error())
		} else {
			log.Debug("operation ok", "op", string(op.Kind), "path", op.Path, "dry_run", opts.DryRun)
		}
		result.record(op.Path, err)
	}

	return result
}

// applyOp validates and, unless dry-running, commits a single operation.
// For commit, the path lock is held for the duration and released on every
// exit path.
func (a *Applier) applyOp(ctx context.Context, op patch.FileOp, opts Options) error {
	target, err := fsutil.SafeJoin(opts.BaseDir, op.Path)
	if err != nil {
		return errors.NewApplyError(string(op.Kind), op.Path, errors.ErrInvalidPath).
			WithMessage(err.Error())
	}

	if !opts.DryRun {
		if _, err := a.locks.AcquireWait(ctx, op.Path, opts.Owner, opts.LockWait); err != nil {
			return err
		}
		defer a.locks.Release(op.Path, opts.Owner)
	}

	switch op.Kind {
	case patch.OpAdd:
		return a.applyAdd(target, op, opts.DryRun)
	case patch.OpUpdate:
		return a.applyUpdate(target, op, opts.DryRun)
	case patch.OpDelete:
		return a.applyDelete(target, op, opts.DryRun)
	default:
		return errors.NewApplyError(string(op.Kind), op.Path, nil).
			WithMessage("unknown operation kind")
	}
}

// applyAdd creates a new file. Existing targets are never overwritten.
func (a *Applier) applyAdd(target string, op patch.FileOp, dryRun bool) error {
	if _, err := os.Stat(target); err == nil {
		return errors.NewApplyError("add", op.Path, errors.ErrTargetExists)
	} else if !os.IsNotExist(err) {
		return errors.NewApplyError("add", op.Path, err).WithMessage("stat target")
	}

	if dryRun {
		return nil
	}

	content := joinLines(op.Content, len(op.Content) > 0)
	if err := fsutil.AtomicWriteFile(target, []byte(content), 0o644); err != nil {
		return errors.NewApplyError("add", op.Path, err).WithMessage("write target")
	}
	return nil
}

// applyDelete removes an existing file. A target that vanishes between
// validation and commit is reported, not silently ignored.
func (a *Applier) applyDelete(target string, op patch.FileOp, dryRun bool) error {
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return errors.NewApplyError("delete", op.Path, errors.ErrTargetNotFound)
		}
		return errors.NewApplyError("delete", op.Path, err).WithMessage("stat target")
	}

	if dryRun {
		return nil
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return errors.NewApplyError("delete", op.Path, errors.ErrTargetNotFound).
				WithMessage("target removed concurrently")
		}
		return errors.NewApplyError("delete", op.Path, err).WithMessage("remove target")
	}
	return nil
}

// applyUpdate applies the operation's hunks in order against a single
// in-memory snapshot of the file. Each hunk's context search starts after
// the previous hunk's replacement; matching is exact, case-sensitive, and
// whitespace-significant.
func (a *Applier) applyUpdate(target string, op patch.FileOp, dryRun bool) error {
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewApplyError("update", op.Path, errors.ErrTargetNotFound)
		}
		return errors.NewApplyError("update", op.Path, err).WithMessage("read target")
	}

	lines, trailingNewline := splitLines(string(data))

	searchFrom := 0
	for idx, hunk := range op.Hunks {
		match := hunk.MatchLines()
		pos := findSequence(lines, match, searchFrom)
		if pos < 0 {
			return errors.NewApplyError("update", op.Path, errors.ErrContextMismatch).WithHunk(idx)
		}

		replacement := hunk.ReplaceLines()
		lines = splice(lines, pos, len(match), replacement)
		searchFrom = pos + len(replacement)
	}

	if dryRun {
		return nil
	}

	content := joinLines(lines, trailingNewline)
	if err := fsutil.AtomicWriteFile(target, []byte(content), 0o644); err != nil {
		return errors.NewApplyError("update", op.Path, err).WithMessage("write target")
	}
	return nil
}

// splitLines splits file content into lines, remembering whether the file
// ended with a newline so serialization can preserve it.
func splitLines(content string) (lines []string, trailingNewline bool) {
	if content == "" {
		return nil, false
	}
	trailingNewline = strings.HasSuffix(content, "\n")
	if trailingNewline {
		content = content[:len(content)-1]
	}
	return strings.Split(content, "\n"), trailingNewline
}

// joinLines is the inverse of splitLines.
func joinLines(lines []string, trailingNewline bool) string {
	if len(lines) == 0 {
		return ""
	}
	s := strings.Join(lines, "\n")
	if trailingNewline {
		s += "\n"
	}
	return s
}

// findSequence returns the first index at or after from where needle occurs
// contiguously in haystack, or -1. An empty needle matches at from.
func findSequence(haystack, needle []string, from int) int {
	if from > len(haystack) {
		return -1
	}
	if len(needle) == 0 {
		return from
	}

	for i := from; i+len(needle) <= len(haystack); i++ {
		matched := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}

// splice replaces count elements of s starting at pos with repl.
func splice(s []string, pos, count int, repl []string) []string {
	out := make([]string, 0, len(s)-count+len(repl))
	out = append(out, s[:pos]...)
	out = append(out, repl...)
	out = append(out, s[pos+count:]...)
	return out
}
