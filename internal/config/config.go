package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Probe     ProbeConfig     `yaml:"probe"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SMS       SMSConfig       `yaml:"sms"`
	Plans     PlansConfig     `yaml:"plans"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	MaxReadConns  int    `yaml:"max_read_conns"`
	RetentionDays int    `yaml:"retention_days"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	ProbePacing  time.Duration `yaml:"probe_pacing"`
	BatchSize    int           `yaml:"batch_size"`
}

type ProbeConfig struct {
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	TCPTimeout          time.Duration `yaml:"tcp_timeout"`
	ReachTimeout        time.Duration `yaml:"reach_timeout"`
	AllowPrivateTargets bool          `yaml:"allow_private_targets"`
}

// SMTPConfig configures the outbound mail transport. An empty host means
// mail delivery is not configured, which is a legitimate no-op state.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMSConfig configures the SMS provider API. TestMode short-circuits
// delivery and returns stub receipts without reaching the provider.
type SMSConfig struct {
	APIURL   string `yaml:"api_url"`
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	TestMode bool   `yaml:"test_mode"`
}

// PlansConfig maps a tenant's plan tier to the check interval stamped on
// devices at creation time.
type PlansConfig struct {
	Intervals map[string]int `yaml:"intervals"` // tier -> seconds
	Default   int            `yaml:"default"`   // seconds
}

// IntervalFor returns the check interval for a plan tier.
func (p PlansConfig) IntervalFor(tier string) int {
	if secs, ok := p.Intervals[tier]; ok && secs > 0 {
		return secs
	}
	return p.Default
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "dashmon.db"
	}
	if c.Database.RetentionDays <= 0 {
		c.Database.RetentionDays = 90
	}
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = 15 * time.Second
	}
	if c.Scheduler.ProbePacing <= 0 {
		c.Scheduler.ProbePacing = 500 * time.Millisecond
	}
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 100
	}
	if c.Probe.HTTPTimeout <= 0 {
		c.Probe.HTTPTimeout = 15 * time.Second
	}
	if c.Probe.TCPTimeout <= 0 {
		c.Probe.TCPTimeout = 8 * time.Second
	}
	if c.Probe.ReachTimeout <= 0 {
		c.Probe.ReachTimeout = 2 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Plans.Default <= 0 {
		c.Plans.Default = 300
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) Validate() error {
	if c.Scheduler.TickInterval < time.Second {
		return fmt.Errorf("scheduler.tick_interval must be at least 1s, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.BatchSize > 1000 {
		return fmt.Errorf("scheduler.batch_size must not exceed 1000, got %d", c.Scheduler.BatchSize)
	}
	if c.SMS.APIURL == "" && c.SMS.APIKey != "" {
		return fmt.Errorf("sms.api_key is set but sms.api_url is empty")
	}
	for tier, secs := range c.Plans.Intervals {
		if secs < 30 {
			return fmt.Errorf("plans.intervals.%s: interval %ds is below the 30s floor", tier, secs)
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
