// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration for the guardian
// pipeline. It is unmarshaled from viper (config file, environment, flags)
// by the root command and passed explicitly to every service constructor.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Target     TargetConfig     `mapstructure:"target" yaml:"target"`
	Guardian   GuardianConfig   `mapstructure:"guardian" yaml:"guardian"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	Repair     RepairConfig     `mapstructure:"repair" yaml:"repair"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the database connection details. An empty URL selects
// the append-only file store fallback.
type DatabaseConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// TargetConfig describes the storefront surface the pipeline probes. The
// pipeline only ever consumes it as a black box over HTTP.
type TargetConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	AdminUser   string        `mapstructure:"admin_user" yaml:"admin_user"`
	AdminSecret string        `mapstructure:"admin_secret" yaml:"-"`
}

// GuardianConfig tunes the alert store.
type GuardianConfig struct {
	// EscalationThreshold is the occurrence count at which a non-critical
	// alert escalates.
	EscalationThreshold int `mapstructure:"escalation_threshold" yaml:"escalation_threshold"`
	// HistoryCap bounds the alert history ring buffer.
	HistoryCap int `mapstructure:"history_cap" yaml:"history_cap"`
}

// SimulationConfig tunes the virtual user batches.
type SimulationConfig struct {
	Users int `mapstructure:"users" yaml:"users"`
}

// SchedulerConfig tunes the daily report scheduler.
type SchedulerConfig struct {
	// Hour is the local wall-clock hour at which the daily run fires.
	Hour int `mapstructure:"hour" yaml:"hour"`
	// StateFile persists the next-run-at timestamp so a process restart
	// neither skips nor double-runs the daily report.
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
}

// RepairConfig tunes the self-repair scanner.
type RepairConfig struct {
	BackupDir string `mapstructure:"backup_dir" yaml:"backup_dir"`
	// SourceRoot is the project tree the import scanner walks.
	SourceRoot string `mapstructure:"source_root" yaml:"source_root"`
}

// ServerConfig configures the operator triage API.
type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// SetDefaults initializes default values for every configuration section.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "guardian")
	v.SetDefault("logger.log_file", "guardian.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.url", "")
	v.SetDefault("database.data_dir", "")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3000")
	v.SetDefault("target.timeout", "15s")
	v.SetDefault("target.rate_limit", 10.0)
	v.SetDefault("target.admin_user", "admin@catalogo.local")

	// -- Guardian --
	v.SetDefault("guardian.escalation_threshold", 3)
	v.SetDefault("guardian.history_cap", 1000)

	// -- Simulation --
	v.SetDefault("simulation.users", 10)

	// -- Scheduler --
	v.SetDefault("scheduler.hour", 5)
	v.SetDefault("scheduler.state_file", "guardian-schedule.json")

	// -- Repair --
	v.SetDefault("repair.backup_dir", "")
	v.SetDefault("repair.source_root", ".")

	// -- Server --
	v.SetDefault("server.address", ":8090")
}

// NewFromViper unmarshals and validates a Config from a viper instance.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefault creates a configuration populated with defaults only. Used by
// tests and as the fallback when no config file exists.
func NewDefault() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewFromViper(v)
	if err != nil {
		// Defaults must always validate.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints the type system cannot express.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Target.BaseURL); err != nil {
		return fmt.Errorf("target.base_url is not a valid URL: %w", err)
	}
	if c.Target.Timeout <= 0 {
		return fmt.Errorf("target.timeout must be positive, got %s", c.Target.Timeout)
	}
	if c.Guardian.EscalationThreshold < 1 {
		return fmt.Errorf("guardian.escalation_threshold must be at least 1, got %d", c.Guardian.EscalationThreshold)
	}
	if c.Guardian.HistoryCap < 1 {
		return fmt.Errorf("guardian.history_cap must be at least 1, got %d", c.Guardian.HistoryCap)
	}
	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be within 0-23, got %d", c.Scheduler.Hour)
	}
	if c.Simulation.Users < 1 {
		return fmt.Errorf("simulation.users must be at least 1, got %d", c.Simulation.Users)
	}
	return nil
}
