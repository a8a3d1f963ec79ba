package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MatchConfig describes which devices to manage and which processes trigger
// inhibition.
type MatchConfig struct {
	// Processes are the comm names that trigger inhibition when they hold a
	// hidraw node open.
	Processes []string `yaml:"processes,omitempty"`
	// Drivers are the HID driver names of eligible controllers.
	Drivers []string `yaml:"drivers,omitempty"`
}

// PathsConfig holds the filesystem roots the daemon operates on. They exist
// so diagnostics and tests can run against fake trees.
type PathsConfig struct {
	// Dev is the device node directory.
	Dev string `yaml:"dev,omitempty"`
	// Sysfs is the sysfs mount point.
	Sysfs string `yaml:"sysfs,omitempty"`
	// Proc is the procfs mount point.
	Proc string `yaml:"proc,omitempty"`
}

// NotificationConfig holds settings for desktop notifications.
type NotificationConfig struct {
	// Enabled enables desktop notifications.
	Enabled bool `yaml:"enabled,omitempty"`
	// OnFailure sends a notification when inhibition fails repeatedly.
	OnFailure bool `yaml:"on_failure,omitempty"`
}

// DaemonConfig holds settings for the background inhibition daemon.
type DaemonConfig struct {
	// CheckInterval is how often to reconcile device state with /proc.
	CheckInterval time.Duration `yaml:"check_interval,omitempty"`
	// SettleDelay is how long to wait after a device node appears before
	// probing it, giving the input subnodes time to enumerate.
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`
	// InitialRetryBackoff is the initial backoff duration after a failed
	// sysfs write.
	InitialRetryBackoff time.Duration `yaml:"initial_retry_backoff,omitempty"`
	// MaxRetryBackoff is the maximum backoff duration.
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff,omitempty"`
	// LogFile is the path to the daemon log file.
	LogFile string `yaml:"log_file,omitempty"`
	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// LogJSON enables JSON-formatted logging.
	LogJSON bool `yaml:"log_json,omitempty"`
	// LogMaxSize is the maximum log file size in MB before rotation.
	LogMaxSize int `yaml:"log_max_size,omitempty"`
	// PIDFile is the path to the daemon PID file.
	PIDFile string `yaml:"pid_file,omitempty"`
	// HealthEndpoint is the address for the health HTTP endpoint (e.g., localhost:9190).
	HealthEndpoint string `yaml:"health_endpoint,omitempty"`
	// Notifications holds notification settings.
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
}

// Config represents the ds-inhibit configuration.
type Config struct {
	// Match selects devices and triggering processes.
	Match MatchConfig `yaml:"match,omitempty"`
	// Paths holds the filesystem roots.
	Paths PathsConfig `yaml:"paths,omitempty"`
	// Daemon holds daemon-specific configuration.
	Daemon DaemonConfig `yaml:"daemon,omitempty"`

	// filePath is the path where this config was loaded from.
	filePath string `yaml:"-"`
}

// Default returns a new Config with default values.
func Default() *Config {
	paths := GetPaths()
	return &Config{
		Match: MatchConfig{
			Processes: []string{"steam"},
			Drivers:   []string{"sony", "playstation"},
		},
		Paths: PathsConfig{
			Dev:   "/dev",
			Sysfs: "/sys",
			Proc:  "/proc",
		},
		Daemon: DaemonConfig{
			CheckInterval:       30 * time.Second,
			SettleDelay:         250 * time.Millisecond,
			InitialRetryBackoff: 30 * time.Second,
			MaxRetryBackoff:     15 * time.Minute,
			LogFile:             "",
			LogLevel:            "info",
			LogMaxSize:          10,
			PIDFile:             "",
			Notifications: NotificationConfig{
				Enabled:   false,
				OnFailure: true,
			},
		},
		filePath: paths.ConfigFile,
	}
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	paths := GetPaths()
	return LoadFrom(paths.ConfigFile)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.filePath = path

	// #nosec G304 - path is the config file path (controlled, from the config directory)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if len(c.Match.Processes) == 0 {
		c.Match.Processes = []string{"steam"}
	}
	if len(c.Match.Drivers) == 0 {
		c.Match.Drivers = []string{"sony", "playstation"}
	}
	if c.Paths.Dev == "" {
		c.Paths.Dev = "/dev"
	}
	if c.Paths.Sysfs == "" {
		c.Paths.Sysfs = "/sys"
	}
	if c.Paths.Proc == "" {
		c.Paths.Proc = "/proc"
	}
	if c.Daemon.CheckInterval == 0 {
		c.Daemon.CheckInterval = 30 * time.Second
	}
	if c.Daemon.SettleDelay == 0 {
		c.Daemon.SettleDelay = 250 * time.Millisecond
	}
	if c.Daemon.InitialRetryBackoff == 0 {
		c.Daemon.InitialRetryBackoff = 30 * time.Second
	}
	if c.Daemon.MaxRetryBackoff == 0 {
		c.Daemon.MaxRetryBackoff = 15 * time.Minute
	}
	if c.Daemon.LogLevel == "" {
		c.Daemon.LogLevel = "info"
	}
	if c.Daemon.LogMaxSize == 0 {
		c.Daemon.LogMaxSize = 10
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Daemon.CheckInterval < time.Second {
		return fmt.Errorf("daemon.check_interval %s is below the 1s minimum", c.Daemon.CheckInterval)
	}
	if c.Daemon.SettleDelay < 0 {
		return errors.New("daemon.settle_delay must not be negative")
	}
	if c.Daemon.MaxRetryBackoff < c.Daemon.InitialRetryBackoff {
		return errors.New("daemon.max_retry_backoff must not be below daemon.initial_retry_backoff")
	}
	for _, p := range []struct{ name, value string }{
		{"paths.dev", c.Paths.Dev},
		{"paths.sysfs", c.Paths.Sysfs},
		{"paths.proc", c.Paths.Proc},
	} {
		if !filepath.IsAbs(p.value) {
			return fmt.Errorf("%s must be an absolute path, got %q", p.name, p.value)
		}
	}
	return nil
}

// Save writes the configuration to its file path.
func (c *Config) Save() error {
	if c.filePath == "" {
		return errors.New("config file path not set")
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FilePath returns the path this config was loaded from.
func (c *Config) FilePath() string {
	return c.filePath
}

// PIDFilePath returns the effective PID file path.
func (c *Config) PIDFilePath() string {
	if c.Daemon.PIDFile != "" {
		return c.Daemon.PIDFile
	}
	return filepath.Join(GetPaths().StateDir, AppName+".pid")
}
