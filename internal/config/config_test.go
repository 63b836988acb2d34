// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validYAML = `
mattermost:
  url: "https://loop.example.com/"
  bot_token: "mm-token"
  public_url: "https://bot.example.com"

yougile:
  api_key: "yg-key"
  company_id: "1a2b-3c4d-team42"

server:
  http_addr: "127.0.0.1:9090"

database:
  path: "/var/lib/taskbridge/bot.db"

session:
  idle_timeout: "10m"
  sweep_interval: "30s"
  request_timeout: "5s"
  timezone: "Europe/Moscow"
  comment_format: "markdown"

auth:
  callback_secret: "s3cret"

logging:
  level: "debug"
  format: "json"
`

func TestLoad_ValidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mattermost.URL != "https://loop.example.com" {
		t.Errorf("Mattermost.URL = %q, want trailing slash trimmed", cfg.Mattermost.URL)
	}
	if got := cfg.Mattermost.ActionsURL(); got != "https://bot.example.com/mattermost/actions" {
		t.Errorf("ActionsURL() = %q", got)
	}
	if cfg.Mattermost.BotUsername != "yougile_bot" {
		t.Errorf("BotUsername = %q, want default yougile_bot", cfg.Mattermost.BotUsername)
	}
	if cfg.YouGile.TeamID != "team42" {
		t.Errorf("TeamID = %q, want team42", cfg.YouGile.TeamID)
	}
	if cfg.YouGile.BaseURL != "https://ru.yougile.com/api-v2" {
		t.Errorf("BaseURL = %q", cfg.YouGile.BaseURL)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Session.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", cfg.Session.IdleTimeout)
	}
	if cfg.Session.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %v, want 30s", cfg.Session.SweepInterval)
	}
	if cfg.Session.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Session.RequestTimeout)
	}
	if cfg.Session.CallbackTimeout != 25*time.Second {
		t.Errorf("CallbackTimeout = %v, want default 25s", cfg.Session.CallbackTimeout)
	}
	if cfg.Session.Location == nil || cfg.Session.Location.String() != "Europe/Moscow" {
		t.Errorf("Location = %v, want Europe/Moscow", cfg.Session.Location)
	}
	if cfg.Session.CommentFormat != CommentFormatMarkdown {
		t.Errorf("CommentFormat = %q", cfg.Session.CommentFormat)
	}
	if cfg.Auth.CardTTL != 24*time.Hour {
		t.Errorf("CardTTL = %v, want 24h", cfg.Auth.CardTTL)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_TOML(t *testing.T) {
	content := `
[mattermost]
url = "https://loop.example.com"
bot_token = "mm-token"
public_url = "https://bot.example.com"

[yougile]
api_key = "yg-key"
company_id = "abc-def"
filter_projects_by_email = true

[session]
idle_timeout = "2m"
`
	cfg, err := Load(writeConfig(t, "config.toml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", cfg.Session.IdleTimeout)
	}
	if !cfg.YouGile.FilterProjectsByEmail {
		t.Error("FilterProjectsByEmail = false, want true")
	}
	if cfg.YouGile.TeamID != "def" {
		t.Errorf("TeamID = %q, want def", cfg.YouGile.TeamID)
	}
	if cfg.Session.CommentFormat != CommentFormatPlain {
		t.Errorf("CommentFormat = %q, want plain default", cfg.Session.CommentFormat)
	}
	if cfg.Database.Path != "taskbridge.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MM_TOKEN", "from-env")
	t.Setenv("TEST_YG_KEY", "yg-from-env")

	content := strings.Replace(validYAML, `"mm-token"`, `"${TEST_MM_TOKEN}"`, 1)
	content = strings.Replace(content, `"yg-key"`, `"${TEST_YG_KEY}"`, 1)

	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mattermost.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want from-env", cfg.Mattermost.BotToken)
	}
	if cfg.YouGile.APIKey != "yg-from-env" {
		t.Errorf("APIKey = %q, want yg-from-env", cfg.YouGile.APIKey)
	}
}

func TestLoad_MissingEnvFailsValidation(t *testing.T) {
	content := strings.Replace(validYAML, `"mm-token"`, `"${TASKBRIDGE_TEST_UNSET_VAR}"`, 1)
	_, err := Load(writeConfig(t, "config.yaml", content))
	if err == nil || !strings.Contains(err.Error(), "mattermost.bot_token") {
		t.Fatalf("Load() error = %v, want bot_token validation error", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"missing url", [2]string{`url: "https://loop.example.com/"`, ``}, "mattermost.url"},
		{"missing public url", [2]string{`public_url: "https://bot.example.com"`, ``}, "mattermost.public_url"},
		{"missing api key", [2]string{`api_key: "yg-key"`, ``}, "yougile.api_key"},
		{"missing company", [2]string{`company_id: "1a2b-3c4d-team42"`, ``}, "yougile.company_id"},
		{"bad comment format", [2]string{`comment_format: "markdown"`, `comment_format: "html"`}, "session.comment_format"},
		{"bad duration", [2]string{`idle_timeout: "10m"`, `idle_timeout: "soon"`}, "idle_timeout"},
		{"negative duration", [2]string{`idle_timeout: "10m"`, `idle_timeout: "-1m"`}, "session.idle_timeout"},
		{"bad timezone", [2]string{`timezone: "Europe/Moscow"`, `timezone: "Mars/Olympus"`}, "timezone"},
		{"bad log level", [2]string{`level: "debug"`, `level: "loud"`}, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validYAML, tt.replace[0], tt.replace[1], 1)
			_, err := Load(writeConfig(t, "config.yaml", content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TB_A", "alpha")
	got := expandEnvVars("x=${TB_A} y=${TB_UNSET_B} z=$TB_A")
	want := "x=alpha y= z=$TB_A"
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}
