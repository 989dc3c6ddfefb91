package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lakshaymaurya-felt/macmole/internal/fsutil"
)

// Default values applied by ApplyDefaults.
const (
	DefaultLogLevel        = "info"
	DefaultConcurrency     = 8
	DefaultMinAgeDays      = 0
	DefaultBackupRoot      = "/tmp"
	DefaultExitNodePort    = 22
	DefaultExitNodeUser    = "root"
	DefaultLANInterface    = "br-lan"
	DefaultSpotlightVolume = "/"
)

// DefaultNetworkProfile is the sysctl profile applied by `tune network`.
func DefaultNetworkProfile() map[string]string {
	return map[string]string{
		"kern.ipc.maxsockbuf":           "8388608",
		"net.inet.tcp.sendspace":        "1048576",
		"net.inet.tcp.recvspace":        "1048576",
		"net.inet.tcp.delayed_ack":      "0",
		"net.inet.tcp.mssdflt":          "1440",
		"net.inet.tcp.win_scale_factor": "8",
		"net.inet.tcp.autorcvbufmax":    "33554432",
		"net.inet.tcp.autosndbufmax":    "33554432",
	}
}

// DefaultPowerProfile is the pmset profile applied by `tune power`.
func DefaultPowerProfile() map[string]string {
	return map[string]string{
		"hibernatemode": "3",
		"standby":       "1",
		"powernap":      "0",
		"tcpkeepalive":  "1",
		"displaysleep":  "10",
		"sleep":         "30",
	}
}

// Config is the MacMole configuration file.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Clean     CleanConfig     `yaml:"clean"`
	Spotlight SpotlightConfig `yaml:"spotlight"`
	Tune      TuneConfig      `yaml:"tune"`
	MDM       MDMConfig       `yaml:"mdm"`
	ExitNode  ExitNodeConfig  `yaml:"exitnode"`
}

// CleanConfig tunes the clean command.
type CleanConfig struct {
	// ExtraPaths are additional user-chosen paths to clean, grouped under
	// the "user" category.
	ExtraPaths []string `yaml:"extra_paths"`

	// SkipTargets names clean targets that are never run.
	SkipTargets []string `yaml:"skip_targets"`

	// MinAgeDays, when positive, only removes log files older than this.
	MinAgeDays int `yaml:"min_age_days"`

	// Concurrency bounds the sizing worker pool.
	Concurrency int `yaml:"concurrency"`
}

// SpotlightConfig holds Spotlight defaults.
type SpotlightConfig struct {
	Volume string `yaml:"volume"`
}

// TuneConfig overrides the built-in tuning profiles. Keys present here
// replace or extend the defaults.
type TuneConfig struct {
	Network map[string]string `yaml:"network"`
	Power   map[string]string `yaml:"power"`
}

// MDMConfig holds MDM helper settings.
type MDMConfig struct {
	// BackupRoot is the directory under which backups are created.
	BackupRoot string `yaml:"backup_root"`
}

// ExitNodeConfig holds the default OpenWrt target for the exitnode command.
type ExitNodeConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	User            string   `yaml:"user"`
	KeyFile         string   `yaml:"key_file"`
	KnownHosts      string   `yaml:"known_hosts"`
	LANInterface    string   `yaml:"lan_interface"`
	AdvertiseRoutes []string `yaml:"advertise_routes"`
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Clean.Concurrency == 0 {
		c.Clean.Concurrency = DefaultConcurrency
	}
	if c.Spotlight.Volume == "" {
		c.Spotlight.Volume = DefaultSpotlightVolume
	}

	network := DefaultNetworkProfile()
	for k, v := range c.Tune.Network {
		network[k] = v
	}
	c.Tune.Network = network

	power := DefaultPowerProfile()
	for k, v := range c.Tune.Power {
		power[k] = v
	}
	c.Tune.Power = power

	if c.MDM.BackupRoot == "" {
		c.MDM.BackupRoot = DefaultBackupRoot
	}
	if c.ExitNode.Port == 0 {
		c.ExitNode.Port = DefaultExitNodePort
	}
	if c.ExitNode.User == "" {
		c.ExitNode.User = DefaultExitNodeUser
	}
	if c.ExitNode.LANInterface == "" {
		c.ExitNode.LANInterface = DefaultLANInterface
	}
	if c.ExitNode.KnownHosts == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.ExitNode.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
		}
	}
}

// Validate checks the configuration for semantic errors.
// Call ApplyDefaults before Validate.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	if c.Clean.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("config: clean.concurrency must be positive, got %d", c.Clean.Concurrency))
	}
	if c.Clean.MinAgeDays < 0 {
		errs = append(errs, fmt.Errorf("config: clean.min_age_days must not be negative"))
	}
	for _, p := range c.Clean.ExtraPaths {
		if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~/") {
			errs = append(errs, fmt.Errorf("config: clean.extra_paths entry %q must be absolute or start with ~/", p))
		}
	}
	if !filepath.IsAbs(c.MDM.BackupRoot) {
		errs = append(errs, fmt.Errorf("config: mdm.backup_root %q must be absolute", c.MDM.BackupRoot))
	}
	if c.ExitNode.Port < 1 || c.ExitNode.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: exitnode.port %d out of range", c.ExitNode.Port))
	}
	for _, r := range c.ExitNode.AdvertiseRoutes {
		if _, err := netip.ParsePrefix(r); err != nil {
			errs = append(errs, fmt.Errorf("config: exitnode.advertise_routes entry %q is not a CIDR", r))
		}
	}

	return errors.Join(errs...)
}

// ParseConfig parses YAML, applies defaults and validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration at path. A missing file yields defaults.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)
		return ParseConfig(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Dir returns the MacMole configuration directory (~/.config/macmole).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "macmole")
	}
	return filepath.Join(home, ".config", "macmole")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}
