package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/errors"
	"github.com/weftlabs/weft/internal/filelock"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/util"
	"gopkg.in/yaml.v3"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage file locks directly",
	Long: `Lock exposes the cross-process lock manager for manual use and
scripting: acquire or release a lock on a path, inspect held locks, or
release everything a story holds.`,
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <path>",
	Short: "Acquire the lock on a path for a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockAcquire,
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release <path>",
	Short: "Release the lock on a path held by a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockRelease,
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List currently held locks",
	Args:  cobra.NoArgs,
	RunE:  runLockStatus,
}

var lockCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Release every lock held by a story",
	Args:  cobra.NoArgs,
	RunE:  runLockCleanup,
}

var (
	lockBase   string
	lockStory  string
	lockWait   time.Duration
	lockOutput string
)

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.AddCommand(lockAcquireCmd, lockReleaseCmd, lockStatusCmd, lockCleanupCmd)

	lockCmd.PersistentFlags().StringVar(&lockBase, "base", "", "Base directory the lock store resolves against (default: apply.base_dir or cwd)")
	lockCmd.PersistentFlags().StringVar(&lockStory, "story", "", "Story ID owning the lock")

	lockAcquireCmd.Flags().DurationVar(&lockWait, "wait", -1, "How long to wait for a contended lock (default: lock.acquire_wait)")
	lockStatusCmd.Flags().StringVarP(&lockOutput, "output", "o", "text", "Report format: text or yaml")
}

// lockManagerFromConfig builds a manager rooted per the --base flag and
// config. The caller closes the returned logger.
func lockManagerFromConfig(cfg *config.Config) (*filelock.Manager, *logging.Logger, error) {
	baseDir, err := resolveBaseDir(lockBase, cfg)
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cfg)
	locks, err := newLockManager(cfg, baseDir, log)
	if err != nil {
		log.Close()
		return nil, nil, fmt.Errorf("failed to initialize lock manager: %w", err)
	}
	return locks, log, nil
}

func runLockAcquire(cmd *cobra.Command, args []string) error {
	if lockStory == "" {
		return fmt.Errorf("--story is required")
	}

	cfg := config.Get()
	locks, log, err := lockManagerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	wait := lockWait
	if wait < 0 {
		wait = cfg.Lock.AcquireWait
	}

	lock, err := locks.AcquireWait(cmd.Context(), args[0], lockStory, wait)
	if err != nil {
		var lockErr *errors.LockError
		if errors.As(err, &lockErr) && lockErr.Owner != "" {
			return fmt.Errorf("%s is locked by %s", args[0], lockErr.Owner)
		}
		return err
	}

	if lock.Reclaimed {
		fmt.Fprintf(cmd.OutOrStdout(), "acquired %s for %s (reclaimed stale lock)\n", lock.Path, lock.Owner)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "acquired %s for %s\n", lock.Path, lock.Owner)
	}
	return nil
}

func runLockRelease(cmd *cobra.Command, args []string) error {
	if lockStory == "" {
		return fmt.Errorf("--story is required")
	}

	cfg := config.Get()
	locks, log, err := lockManagerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	if locks.Release(args[0], lockStory) {
		fmt.Fprintf(cmd.OutOrStdout(), "released %s\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "no lock on %s held by %s\n", args[0], lockStory)
	}
	return nil
}

func runLockStatus(cmd *cobra.Command, args []string) error {
	if lockOutput != "text" && lockOutput != "yaml" {
		return fmt.Errorf("invalid output format %q (must be text or yaml)", lockOutput)
	}

	cfg := config.Get()
	locks, log, err := lockManagerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	held, err := locks.Status()
	if err != nil {
		return fmt.Errorf("failed to read lock state: %w", err)
	}

	return renderLocks(cmd.OutOrStdout(), held, lockOutput)
}

// renderLocks writes a held-locks report in the requested format.
func renderLocks(w io.Writer, held []filelock.Lock, format string) error {
	if format == "yaml" {
		return yaml.NewEncoder(w).Encode(held)
	}

	if len(held) == 0 {
		fmt.Fprintln(w, "No locks held")
		return nil
	}

	for _, lock := range held {
		fmt.Fprintf(w, "%s\t%s\t%s\tpid %d\n",
			util.TruncateString(lock.Path, 60), lock.Owner, lock.Age().Round(time.Second), lock.PID)
	}
	return nil
}

func runLockCleanup(cmd *cobra.Command, args []string) error {
	if lockStory == "" {
		return fmt.Errorf("--story is required")
	}

	cfg := config.Get()
	locks, log, err := lockManagerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	released, err := locks.Cleanup(lockStory)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "released %d lock(s) held by %s\n", released, lockStory)
	return nil
}
