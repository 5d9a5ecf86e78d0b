// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceStore = "store"
	SourceHTTP  = "http"
)

type DatabaseConfig struct {
	Driver    string `yaml:"driver"`
	Filename  string `yaml:"filename"`
	URL       string `yaml:"url,omitempty"`
	AuthToken string `yaml:"-"` // Loaded from environment
}

type StatusConfig struct {
	Timezone  string `yaml:"timezone"`
	OpenHour  int    `yaml:"open_hour"`
	CloseHour int    `yaml:"close_hour"`
	// Go duration strings, e.g. "60s".
	PollInterval string `yaml:"poll_interval"`
	FetchTimeout string `yaml:"fetch_timeout"`
	Source       string `yaml:"source"`
	SourceURL    string `yaml:"source_url,omitempty"`
	SourceToken  string `yaml:"-"` // Loaded from environment
}

type RefreshLimitConfig struct {
	PerMinute  int  `yaml:"per_minute"`
	Burst      int  `yaml:"burst"`
	TrustProxy bool `yaml:"trust_proxy"`
}

type SlackConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ChannelID string `yaml:"channel_id"`
	Token     string `yaml:"-"` // Loaded from environment
}

type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	Topic     string `yaml:"topic"`
}

type Config struct {
	App struct {
		Name            string `yaml:"name"`
		Environment     string `yaml:"environment"`
		Port            int    `yaml:"port"`
		BaseURL         string `yaml:"base_url"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Status StatusConfig `yaml:"status"`

	RefreshLimit RefreshLimitConfig `yaml:"refresh_limit"`

	Notifications struct {
		Slack  SlackConfig  `yaml:"slack"`
		PubSub PubSubConfig `yaml:"pubsub"`
	} `yaml:"notifications"`

	Retention struct {
		Days     int    `yaml:"days"`
		Schedule string `yaml:"schedule"`
	} `yaml:"retention"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Database.AuthToken = os.Getenv("DATABASE_AUTH_TOKEN")
	cfg.Status.SourceToken = os.Getenv("RESERVATIONS_API_TOKEN")
	cfg.Notifications.Slack.Token = os.Getenv("SLACK_BOT_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout == "" {
		c.App.ShutdownTimeout = "30s"
	}
	if c.Status.Timezone == "" {
		c.Status.Timezone = "America/Los_Angeles"
	}
	if c.Status.OpenHour == 0 && c.Status.CloseHour == 0 {
		c.Status.OpenHour = 5
		c.Status.CloseHour = 22
	}
	if c.Status.PollInterval == "" {
		c.Status.PollInterval = "60s"
	}
	if c.Status.FetchTimeout == "" {
		c.Status.FetchTimeout = "10s"
	}
	if c.Status.Source == "" {
		c.Status.Source = SourceStore
	}
	if c.RefreshLimit.PerMinute == 0 {
		c.RefreshLimit.PerMinute = 6
	}
	if c.RefreshLimit.Burst == 0 {
		c.RefreshLimit.Burst = 2
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "15 3 * * *"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if _, err := time.ParseDuration(c.App.ShutdownTimeout); err != nil {
		return fmt.Errorf("app shutdown_timeout must be a duration: %w", err)
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "turso":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for turso")
		}
		if c.Database.AuthToken == "" {
			return fmt.Errorf("database auth token is required for turso")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Status.validate(); err != nil {
		return err
	}

	if c.RefreshLimit.PerMinute < 0 || c.RefreshLimit.Burst < 0 {
		return fmt.Errorf("refresh_limit values must not be negative")
	}

	if c.Notifications.Slack.Enabled {
		if c.Notifications.Slack.ChannelID == "" {
			return fmt.Errorf("slack channel_id is required when slack notifications are enabled")
		}
		if c.Notifications.Slack.Token == "" {
			return fmt.Errorf("SLACK_BOT_TOKEN is required when slack notifications are enabled")
		}
	}
	if c.Notifications.PubSub.Enabled {
		if c.Notifications.PubSub.ProjectID == "" || c.Notifications.PubSub.Topic == "" {
			return fmt.Errorf("pubsub project_id and topic are required when pubsub notifications are enabled")
		}
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention days must not be negative")
	}

	return nil
}

func (s StatusConfig) validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("status timezone %q is invalid: %w", s.Timezone, err)
	}
	if s.OpenHour < 0 || s.OpenHour > 23 || s.CloseHour < 1 || s.CloseHour > 24 || s.OpenHour >= s.CloseHour {
		return fmt.Errorf("status hours must satisfy 0 <= open_hour < close_hour <= 24")
	}
	if d, err := time.ParseDuration(s.PollInterval); err != nil || d <= 0 {
		return fmt.Errorf("status poll_interval must be a positive duration")
	}
	if d, err := time.ParseDuration(s.FetchTimeout); err != nil || d <= 0 {
		return fmt.Errorf("status fetch_timeout must be a positive duration")
	}
	switch strings.ToLower(s.Source) {
	case SourceStore:
	case SourceHTTP:
		if s.SourceURL == "" {
			return fmt.Errorf("status source_url is required for the http source")
		}
	default:
		return fmt.Errorf("unsupported status source: %s", s.Source)
	}
	return nil
}

// Location loads the business timezone. Validate has already checked it.
func (s StatusConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

func (s StatusConfig) PollEvery() time.Duration {
	d, _ := time.ParseDuration(s.PollInterval)
	return d
}

func (s StatusConfig) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.FetchTimeout)
	return d
}

func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.App.ShutdownTimeout)
	return d
}
