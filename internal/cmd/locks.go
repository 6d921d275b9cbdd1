package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/tui"
	"github.com/weftlabs/weft/internal/util"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Show held locks, optionally as a live monitor",
	Long: `Locks lists every lock currently held in the lock directory. With
--watch it opens an interactive monitor that refreshes as locks are
acquired and released.`,
	Args: cobra.NoArgs,
	RunE: runLocks,
}

var locksWatch bool

func init() {
	rootCmd.AddCommand(locksCmd)
	locksCmd.Flags().StringVar(&lockBase, "base", "", "Base directory the lock store resolves against (default: apply.base_dir or cwd)")
	locksCmd.Flags().BoolVarP(&locksWatch, "watch", "w", false, "Open an interactive live monitor")
}

func runLocks(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	locks, log, err := lockManagerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	if locksWatch {
		return tui.Run(locks)
	}

	held, err := locks.Status()
	if err != nil {
		return fmt.Errorf("failed to read lock state: %w", err)
	}

	if len(held) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No locks held")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-20s %-10s %s\n", "PATH", "OWNER", "AGE", "PID")
	for _, lock := range held {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-20s %-10s %d\n",
			util.TruncateString(lock.Path, 40), util.TruncateString(lock.Owner, 20),
			lock.Age().Round(time.Second), lock.PID)
	}
	return nil
}
