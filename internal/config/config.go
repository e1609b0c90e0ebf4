// Package config loads tracker settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/infra"
	"github.com/ddobrev25/coding-time-tracker/internal/logging"
	"github.com/ddobrev25/coding-time-tracker/internal/target"
	"github.com/ddobrev25/coding-time-tracker/internal/usecase"
)

// EnvPrefix prefixes environment overrides, e.g. CTTRACK_CHECK_INTERVAL=45m.
const EnvPrefix = "CTTRACK"

// Ledger backends.
const (
	BackendFile      = "file"
	BackendSQLCipher = "sqlcipher"
)

// Prompt modes.
const (
	PromptTerminal = "terminal"
	PromptAutoYes  = "auto-yes"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete tracker configuration.
type Config struct {
	SampleInterval     time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`
	FlushThreshold     time.Duration `mapstructure:"flush_threshold" yaml:"flush_threshold"`
	CheckInterval      time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	TriggerGranularity time.Duration `mapstructure:"trigger_granularity" yaml:"trigger_granularity"`
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	FlushOnShutdown    bool          `mapstructure:"flush_on_shutdown" yaml:"flush_on_shutdown"`

	Ledger  LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	Prompt  PromptConfig   `mapstructure:"prompt" yaml:"prompt"`
	Targets []TargetConfig `mapstructure:"targets" yaml:"targets"`
	Log     logging.Config `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`

	// Source is the file the configuration was read from, if any.
	Source string `mapstructure:"-" yaml:"-"`
}

// LedgerConfig selects where accumulated time is stored.
type LedgerConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Backend string `mapstructure:"backend" yaml:"backend"`
	KeyDir  string `mapstructure:"key_dir" yaml:"key_dir"` // sqlcipher only; defaults to the ledger directory
}

// PromptConfig controls how activity checks are answered.
type PromptConfig struct {
	Mode    string        `mapstructure:"mode" yaml:"mode"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"` // 0 waits forever
}

// TargetConfig is one watched application.
type TargetConfig struct {
	ID      string `mapstructure:"id" yaml:"id"`
	Name    string `mapstructure:"name" yaml:"name,omitempty"`
	Process string `mapstructure:"process" yaml:"process"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	acc := usecase.DefaultAccumulatorConfig()
	guard := usecase.DefaultGuardConfig()

	cfg := &Config{
		SampleInterval:     acc.SampleInterval,
		FlushThreshold:     acc.FlushThreshold,
		CheckInterval:      guard.CheckInterval,
		TriggerGranularity: guard.Granularity,
		HeartbeatInterval:  30 * time.Second,
		FlushOnShutdown:    acc.FlushOnShutdown,
		Ledger: LedgerConfig{
			Path:    infra.DefaultLedgerFile,
			Backend: BackendFile,
		},
		Prompt: PromptConfig{Mode: PromptTerminal},
		Log:    logging.Config{Level: "info"},
	}
	for _, t := range target.Defaults() {
		cfg.Targets = append(cfg.Targets, TargetConfig{ID: t.ID, Name: t.Name, Process: t.ProcessName})
	}
	return cfg
}

// Load reads path, or searches ./cttrack.yaml and $XDG_CONFIG_HOME/cttrack/cttrack.yaml
// when path is empty. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cttrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "cttrack"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths() {
	c.Ledger.Path = infra.ExpandHome(c.Ledger.Path)
	c.Ledger.KeyDir = infra.ExpandHome(c.Ledger.KeyDir)
	c.Log.File = infra.ExpandHome(c.Log.File)
	c.Metrics.Textfile = infra.ExpandHome(c.Metrics.Textfile)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("sample_interval", d.SampleInterval)
	v.SetDefault("flush_threshold", d.FlushThreshold)
	v.SetDefault("check_interval", d.CheckInterval)
	v.SetDefault("trigger_granularity", d.TriggerGranularity)
	v.SetDefault("heartbeat_interval", d.HeartbeatInterval)
	v.SetDefault("flush_on_shutdown", d.FlushOnShutdown)

	v.SetDefault("ledger.path", d.Ledger.Path)
	v.SetDefault("ledger.backend", d.Ledger.Backend)
	v.SetDefault("ledger.key_dir", d.Ledger.KeyDir)

	v.SetDefault("prompt.mode", d.Prompt.Mode)
	v.SetDefault("prompt.timeout", d.Prompt.Timeout)

	targets := make([]map[string]any, 0, len(d.Targets))
	for _, t := range d.Targets {
		targets = append(targets, map[string]any{"id": t.ID, "name": t.Name, "process": t.Process})
	}
	v.SetDefault("targets", targets)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Validate rejects settings the tracker cannot run with.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"sample_interval", c.SampleInterval},
		{"flush_threshold", c.FlushThreshold},
		{"check_interval", c.CheckInterval},
		{"trigger_granularity", c.TriggerGranularity},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.name, d.d)
		}
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: heartbeat_interval must not be negative", ErrInvalidConfig)
	}
	if c.Prompt.Timeout < 0 {
		return fmt.Errorf("%w: prompt.timeout must not be negative", ErrInvalidConfig)
	}

	if c.Ledger.Path == "" {
		return fmt.Errorf("%w: ledger.path is required", ErrInvalidConfig)
	}
	switch c.Ledger.Backend {
	case BackendFile, BackendSQLCipher:
	default:
		return fmt.Errorf("%w: unknown ledger.backend %q", ErrInvalidConfig, c.Ledger.Backend)
	}

	switch c.Prompt.Mode {
	case PromptTerminal, PromptAutoYes:
	default:
		return fmt.Errorf("%w: unknown prompt.mode %q", ErrInvalidConfig, c.Prompt.Mode)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: at least one target is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.ID == "" || t.Process == "" {
			return fmt.Errorf("%w: targets[%d] needs id and process", ErrInvalidConfig, i)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate target id %q", ErrInvalidConfig, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// AccumulatorConfig returns the sampling settings.
func (c *Config) AccumulatorConfig() usecase.AccumulatorConfig {
	return usecase.AccumulatorConfig{
		SampleInterval:  c.SampleInterval,
		FlushThreshold:  c.FlushThreshold,
		FlushOnShutdown: c.FlushOnShutdown,
	}
}

// GuardConfig returns the activity check settings.
func (c *Config) GuardConfig() usecase.GuardConfig {
	return usecase.GuardConfig{
		CheckInterval: c.CheckInterval,
		Granularity:   c.TriggerGranularity,
	}
}

// DomainTargets converts the configured targets.
func (c *Config) DomainTargets() []domain.Target {
	targets := make([]domain.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		targets = append(targets, domain.Target{ID: t.ID, Name: t.Name, ProcessName: t.Process})
	}
	return targets
}

// LedgerPath returns the ledger location for the configured backend.
// For sqlcipher a path naming the text ledger is swapped for the database file.
func (c *Config) LedgerPath() string {
	if c.Ledger.Backend == BackendSQLCipher && filepath.Base(c.Ledger.Path) == infra.DefaultLedgerFile {
		return filepath.Join(filepath.Dir(c.Ledger.Path), infra.DefaultLedgerDB)
	}
	return c.Ledger.Path
}

// KeyDir returns the directory holding the sqlcipher key.
func (c *Config) KeyDir() string {
	if c.Ledger.KeyDir != "" {
		return c.Ledger.KeyDir
	}
	return filepath.Dir(c.LedgerPath())
}

// Dump writes the configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
