// ABOUTME: Configuration loading and parsing for taskbridge
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Comment formats for text appended to task descriptions.
const (
	CommentFormatPlain    = "plain"
	CommentFormatMarkdown = "markdown"
)

// Config represents the complete taskbridge configuration
type Config struct {
	Mattermost MattermostConfig `yaml:"mattermost" toml:"mattermost"`
	YouGile    YouGileConfig    `yaml:"yougile" toml:"yougile"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Session    SessionConfig    `yaml:"session" toml:"session"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// MattermostConfig holds the chat platform connection
type MattermostConfig struct {
	URL         string `yaml:"url" toml:"url"`
	BotToken    string `yaml:"bot_token" toml:"bot_token"`
	BotUsername string `yaml:"bot_username" toml:"bot_username"`
	// PublicURL is where the chat server reaches this bot's callback endpoint
	PublicURL string `yaml:"public_url" toml:"public_url"`
}

// ActionsURL returns the callback URL put on interactive cards.
func (m MattermostConfig) ActionsURL() string {
	return strings.TrimRight(m.PublicURL, "/") + "/mattermost/actions"
}

// YouGileConfig holds the task tracker connection
type YouGileConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
	CompanyID string `yaml:"company_id" toml:"company_id"`
	// TeamID is used in task links; defaults to the last "-" segment of CompanyID
	TeamID string `yaml:"team_id" toml:"team_id"`
	// FilterProjectsByEmail limits the project list to projects the user is a member of
	FilterProjectsByEmail bool `yaml:"filter_projects_by_email" toml:"filter_projects_by_email"`
}

// ServerConfig holds the callback listener address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// SessionConfig holds dialog timing and presentation settings
type SessionConfig struct {
	IdleTimeout     time.Duration  `yaml:"-" toml:"-"`
	SweepInterval   time.Duration  `yaml:"-" toml:"-"`
	RequestTimeout  time.Duration  `yaml:"-" toml:"-"`
	CallbackTimeout time.Duration  `yaml:"-" toml:"-"`
	Location        *time.Location `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	IdleTimeoutRaw     string `yaml:"idle_timeout" toml:"idle_timeout"`
	SweepIntervalRaw   string `yaml:"sweep_interval" toml:"sweep_interval"`
	RequestTimeoutRaw  string `yaml:"request_timeout" toml:"request_timeout"`
	CallbackTimeoutRaw string `yaml:"callback_timeout" toml:"callback_timeout"`

	Timezone      string `yaml:"timezone" toml:"timezone"`
	CommentFormat string `yaml:"comment_format" toml:"comment_format"`
}

// AuthConfig holds the secret used to sign card callbacks
type AuthConfig struct {
	CallbackSecret string        `yaml:"callback_secret" toml:"callback_secret"`
	CardTTL        time.Duration `yaml:"-" toml:"-"`
	CardTTLRaw     string        `yaml:"card_ttl" toml:"card_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Mattermost.BotUsername == "" {
		c.Mattermost.BotUsername = "yougile_bot"
	}
	c.Mattermost.URL = strings.TrimRight(c.Mattermost.URL, "/")

	if c.YouGile.BaseURL == "" {
		c.YouGile.BaseURL = "https://ru.yougile.com/api-v2"
	}
	c.YouGile.BaseURL = strings.TrimRight(c.YouGile.BaseURL, "/")
	if c.YouGile.TeamID == "" && c.YouGile.CompanyID != "" {
		parts := strings.Split(c.YouGile.CompanyID, "-")
		c.YouGile.TeamID = parts[len(parts)-1]
	}

	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "taskbridge.db"
	}

	if c.Session.IdleTimeoutRaw == "" {
		c.Session.IdleTimeoutRaw = "5m"
	}
	if c.Session.SweepIntervalRaw == "" {
		c.Session.SweepIntervalRaw = "1m"
	}
	if c.Session.RequestTimeoutRaw == "" {
		c.Session.RequestTimeoutRaw = "10s"
	}
	if c.Session.CallbackTimeoutRaw == "" {
		c.Session.CallbackTimeoutRaw = "25s"
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "Europe/Moscow"
	}
	if c.Session.CommentFormat == "" {
		c.Session.CommentFormat = CommentFormatPlain
	}

	if c.Auth.CardTTLRaw == "" {
		c.Auth.CardTTLRaw = "24h"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Mattermost.URL == "" {
		return fmt.Errorf("mattermost.url is required")
	}
	if c.Mattermost.BotToken == "" {
		return fmt.Errorf("mattermost.bot_token is required")
	}
	if c.Mattermost.PublicURL == "" {
		return fmt.Errorf("mattermost.public_url is required (interactive cards post back to it)")
	}

	if c.YouGile.APIKey == "" {
		return fmt.Errorf("yougile.api_key is required")
	}
	if c.YouGile.CompanyID == "" {
		return fmt.Errorf("yougile.company_id is required")
	}

	switch c.Session.CommentFormat {
	case CommentFormatPlain, CommentFormatMarkdown:
	default:
		return fmt.Errorf("session.comment_format must be %q or %q, got %q",
			CommentFormatPlain, CommentFormatMarkdown, c.Session.CommentFormat)
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	if c.Session.RequestTimeout <= 0 {
		return fmt.Errorf("session.request_timeout must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
// and resolves the session timezone.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"idle_timeout", cfg.Session.IdleTimeoutRaw, &cfg.Session.IdleTimeout},
		{"sweep_interval", cfg.Session.SweepIntervalRaw, &cfg.Session.SweepInterval},
		{"request_timeout", cfg.Session.RequestTimeoutRaw, &cfg.Session.RequestTimeout},
		{"callback_timeout", cfg.Session.CallbackTimeoutRaw, &cfg.Session.CallbackTimeout},
		{"card_ttl", cfg.Auth.CardTTLRaw, &cfg.Auth.CardTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", cfg.Session.Timezone, err)
	}
	cfg.Session.Location = loc

	return nil
}
