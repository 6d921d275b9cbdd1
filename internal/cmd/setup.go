package cmd

import (
	"fmt"
	"os"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/filelock"
	"github.com/weftlabs/weft/internal/logging"
)

// resolveBaseDir picks the directory patch paths resolve against: the --base
// flag when given, then apply.base_dir from config, then the working
// directory.
func resolveBaseDir(flagBase string, cfg *config.Config) (string, error) {
	if flagBase != "" {
		return flagBase, nil
	}
	if cfg.Apply.BaseDir != "" {
		return cfg.Apply.BaseDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// newLogger builds the configured logger, falling back to a no-op logger
// when the log file cannot be opened. Logging must never block a command.
func newLogger(cfg *config.Config) *logging.Logger {
	log, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		return logging.Nop()
	}
	return log
}

// newLockManager builds the lock manager rooted at the configured lock
// directory.
func newLockManager(cfg *config.Config, baseDir string, log *logging.Logger) (*filelock.Manager, error) {
	return filelock.New(cfg.Lock.ResolveLockDir(baseDir),
		filelock.WithStaleTimeout(cfg.Lock.StaleTimeout),
		filelock.WithRetryInterval(cfg.Lock.RetryInterval),
		filelock.WithLogger(log),
	)
}
