package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the deliverability core.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SES        SESConfig        `yaml:"ses"`
	Notify     NotifyConfig     `yaml:"notify"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Reputation ReputationConfig `yaml:"reputation"`
	Warmup     WarmupConfig     `yaml:"warmup"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings. Redis is optional; batch
// cancellation and job locks fall back to process-local / PG advisory modes.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials and region.
type SESConfig struct {
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// NotifyConfig holds SMTP settings for operator and owner notifications.
type NotifyConfig struct {
	SMTPHost    string   `yaml:"smtp_host"`
	SMTPPort    int      `yaml:"smtp_port"`
	SMTPUser    string   `yaml:"smtp_user"`
	SMTPPass    string   `yaml:"smtp_pass"`
	From        string   `yaml:"from"`
	AdminEmails []string `yaml:"admin_emails"`
}

// Enabled reports whether SMTP notifications are configured.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != "" && n.From != ""
}

// DispatchConfig controls batch dispatch behavior.
type DispatchConfig struct {
	PageSize         int `yaml:"page_size"`
	MaxWorkers       int `yaml:"max_workers"`
	MaxRetries       int `yaml:"max_retries"`
	RetryIntervalSec int `yaml:"retry_interval_seconds"`
}

// RetryInterval returns the fixed backoff between send attempts.
func (d DispatchConfig) RetryInterval() time.Duration {
	return time.Duration(d.RetryIntervalSec) * time.Second
}

// ReputationConfig holds per-brand reputation thresholds, expressed as
// fractions (0.05 = 5%). Platform-wide thresholds are fixed by provider
// policy and not configurable.
type ReputationConfig struct {
	BrandBounceThreshold    float64 `yaml:"brand_bounce_threshold"`
	BrandComplaintThreshold float64 `yaml:"brand_complaint_threshold"`
	WindowHours             int     `yaml:"window_hours"`
}

// WarmupConfig controls the dedicated IP warmup lifecycle.
type WarmupConfig struct {
	InactivityDays   int `yaml:"inactivity_days"`
	MaxDay           int `yaml:"max_day"`
	MinPoolAvailable int `yaml:"min_pool_available"`
}

// InactivityWindow returns the no-send window after which warmup pauses.
func (w WarmupConfig) InactivityWindow() time.Duration {
	return time.Duration(w.InactivityDays) * 24 * time.Hour
}

// ArchiveConfig holds S3 settings for raw webhook payload archival.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file, applies environment overrides
// for secrets, and fills in defaults. A missing file is not an error when
// every required value is available from the environment.
func Load(path string) (*Config, error) {
	// Best-effort .env loading for local development.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && c.SES.AccessKey == "" {
		c.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && c.SES.SecretKey == "" {
		c.SES.SecretKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notify.SMTPPass = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Notify.AdminEmails = splitList(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.SES.Region == "" {
		c.SES.Region = "us-west-2"
	}
	if c.SES.TimeoutSeconds == 0 {
		c.SES.TimeoutSeconds = 30
	}
	if c.Notify.SMTPPort == 0 {
		c.Notify.SMTPPort = 587
	}
	if c.Dispatch.PageSize == 0 {
		c.Dispatch.PageSize = 100
	}
	if c.Dispatch.MaxWorkers == 0 {
		c.Dispatch.MaxWorkers = 10
	}
	if c.Dispatch.MaxRetries == 0 {
		c.Dispatch.MaxRetries = 3
	}
	if c.Dispatch.RetryIntervalSec == 0 {
		c.Dispatch.RetryIntervalSec = 60
	}
	if c.Reputation.BrandBounceThreshold == 0 {
		c.Reputation.BrandBounceThreshold = 0.05
	}
	if c.Reputation.BrandComplaintThreshold == 0 {
		c.Reputation.BrandComplaintThreshold = 0.001
	}
	if c.Reputation.WindowHours == 0 {
		c.Reputation.WindowHours = 24
	}
	if c.Warmup.InactivityDays == 0 {
		c.Warmup.InactivityDays = 7
	}
	if c.Warmup.MaxDay == 0 {
		c.Warmup.MaxDay = 20
	}
	if c.Warmup.MinPoolAvailable == 0 {
		c.Warmup.MinPoolAvailable = 3
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "webhooks"
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
