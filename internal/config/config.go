// Package config provides YAML-based configuration loading for Shiftyard.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Shiftyard configuration, loaded from shiftyard.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Remote    RemoteConfig    `yaml:"remote"`
	Subtype   SubtypeConfig   `yaml:"subtype"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// DatabaseConfig selects and locates the roster database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`
}

// RemoteConfig locates the auto-scheduling optimizer and the verifier.
type RemoteConfig struct {
	SchedulerURL string        `yaml:"scheduler_url"`
	VerifierURL  string        `yaml:"verifier_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SubtypeConfig tunes subtype assignment. Seed 0 seeds from the clock.
type SubtypeConfig struct {
	Seed uint64 `yaml:"seed"`
}

// DashboardConfig configures the HTTP editing surface.
type DashboardConfig struct {
	Port        int           `yaml:"port"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Sweep       string        `yaml:"sweep"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NotifyConfig holds the publication notice targets. Empty values disable
// the corresponding notifier.
type NotifyConfig struct {
	SlackWebhook        string `yaml:"slack_webhook"`
	DiscordWebhookID    string `yaml:"discord_webhook_id"`
	DiscordWebhookToken string `yaml:"discord_webhook_token"`
}

// Database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "shiftyard"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "shiftyard.db"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 2 * time.Minute
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Dashboard.IdleTimeout == 0 {
		c.Dashboard.IdleTimeout = 30 * time.Minute
	}
	if c.Dashboard.Sweep == "" {
		c.Dashboard.Sweep = "*/5 * * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.Remote.SchedulerURL == "" {
		errs = append(errs, "remote.scheduler_url is required")
	} else if !isHTTPURL(c.Remote.SchedulerURL) {
		errs = append(errs, fmt.Sprintf("remote.scheduler_url %q is not an http(s) URL", c.Remote.SchedulerURL))
	}
	if c.Remote.VerifierURL == "" {
		errs = append(errs, "remote.verifier_url is required")
	} else if !isHTTPURL(c.Remote.VerifierURL) {
		errs = append(errs, fmt.Sprintf("remote.verifier_url %q is not an http(s) URL", c.Remote.VerifierURL))
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, "remote.timeout must be positive")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d out of range", c.Dashboard.Port))
	}
	if c.Dashboard.IdleTimeout < 0 {
		errs = append(errs, "dashboard.idle_timeout must be positive")
	}
	if _, err := cronParser.Parse(c.Dashboard.Sweep); err != nil {
		errs = append(errs, fmt.Sprintf("dashboard.sweep: %v", err))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if (c.Notify.DiscordWebhookID == "") != (c.Notify.DiscordWebhookToken == "") {
		errs = append(errs, "notify.discord_webhook_id and notify.discord_webhook_token must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
