package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete weft configuration
type Config struct {
	Lock    LockConfig    `mapstructure:"lock"`
	Apply   ApplyConfig   `mapstructure:"apply"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LockConfig controls the cross-process lock manager
type LockConfig struct {
	// Dir is the directory where lock markers and the aggregate state file
	// live. If empty, defaults to ".weft/locks" relative to the base directory.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
	// StaleTimeout is how long a lock may go unrefreshed before any caller
	// may reclaim it (default: 30s, 0 disables reclamation)
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
	// AcquireWait is the default time to wait for a contended lock before
	// giving up (default: 0, fail immediately)
	AcquireWait time.Duration `mapstructure:"acquire_wait"`
	// RetryInterval is how often to re-attempt a contended acquisition while
	// waiting (default: 250ms)
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// ApplyConfig controls patch application
type ApplyConfig struct {
	// BaseDir is the directory patch paths are resolved against.
	// If empty, defaults to the current working directory.
	BaseDir string `mapstructure:"base_dir"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the log file. If empty, logs go to stderr.
	Dir string `mapstructure:"dir"`
}

// ResolveLockDir returns the resolved lock directory path.
// If Dir is empty, it returns the default path relative to baseDir.
// If Dir starts with ~, it expands to the user's home directory.
// If Dir is a relative path, it's resolved relative to baseDir.
func (l *LockConfig) ResolveLockDir(baseDir string) string {
	if l.Dir == "" {
		return filepath.Join(baseDir, ".weft", "locks")
	}

	path := l.Dir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			Dir:           "", // Empty means use default: .weft/locks
			StaleTimeout:  30 * time.Second,
			AcquireWait:   0, // Fail immediately on contention by default
			RetryInterval: 250 * time.Millisecond,
		},
		Apply: ApplyConfig{
			BaseDir: "", // Empty means current working directory
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "", // Empty means stderr
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Lock defaults
	viper.SetDefault("lock.dir", defaults.Lock.Dir)
	viper.SetDefault("lock.stale_timeout", defaults.Lock.StaleTimeout)
	viper.SetDefault("lock.acquire_wait", defaults.Lock.AcquireWait)
	viper.SetDefault("lock.retry_interval", defaults.Lock.RetryInterval)

	// Apply defaults
	viper.SetDefault("apply.base_dir", defaults.Apply.BaseDir)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "weft")
	}
	// Fall back to ~/.config/weft
	home, err := os.UserHomeDir()
	if err != nil {
		return ".weft"
	}
	return filepath.Join(home, ".config", "weft")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
