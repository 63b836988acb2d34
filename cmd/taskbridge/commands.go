// ABOUTME: The init and health subcommands
// ABOUTME: Interactive config generation and a readiness check against a running bot

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/taskbridge/internal/config"
)

func runInit(in io.Reader, configPath string) error {
	reader := bufio.NewReader(in)

	color.Cyan("taskbridge configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", configPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Chat Server ---")
	mmURL := prompt(reader, "Server URL", "https://loop.example.com")
	botToken := prompt(reader, "Bot access token (or ${ENV_VAR})", "${TASKBRIDGE_BOT_TOKEN}")
	botUsername := prompt(reader, "Bot username", "yougile_bot")
	publicURL := prompt(reader, "Public URL of this bot (for card callbacks)", "http://localhost:8080")

	fmt.Println("\n--- YouGile ---")
	ygURL := prompt(reader, "API base URL", "https://ru.yougile.com/api-v2")
	apiKey := prompt(reader, "API key (or ${ENV_VAR})", "${TASKBRIDGE_YOUGILE_KEY}")
	companyID := prompt(reader, "Company ID", "")
	filterByEmail := yes(prompt(reader, "Show users only the projects they belong to?", "no"))

	fmt.Println("\n--- Server ---")
	httpAddr := prompt(reader, "HTTP address", "0.0.0.0:8080")
	dbPath := prompt(reader, "SQLite database path", "taskbridge.db")

	fmt.Println("\n--- Session ---")
	idleTimeout := prompt(reader, "Idle timeout", "5m")
	timezone := prompt(reader, "Timezone for deadlines", "Europe/Moscow")
	commentFormat := prompt(reader, "Comment format (plain/markdown)", config.CommentFormatPlain)

	fmt.Println("\n--- Logging ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("generating callback secret: %w", err)
	}

	var cfg strings.Builder
	cfg.WriteString("# taskbridge configuration\n")
	cfg.WriteString("# Generated by taskbridge init\n\n")

	cfg.WriteString("mattermost:\n")
	fmt.Fprintf(&cfg, "  url: %q\n", mmURL)
	fmt.Fprintf(&cfg, "  bot_token: %q\n", botToken)
	fmt.Fprintf(&cfg, "  bot_username: %q\n", botUsername)
	fmt.Fprintf(&cfg, "  public_url: %q\n", publicURL)
	cfg.WriteString("\n")

	cfg.WriteString("yougile:\n")
	fmt.Fprintf(&cfg, "  base_url: %q\n", ygURL)
	fmt.Fprintf(&cfg, "  api_key: %q\n", apiKey)
	fmt.Fprintf(&cfg, "  company_id: %q\n", companyID)
	fmt.Fprintf(&cfg, "  filter_projects_by_email: %t\n", filterByEmail)
	cfg.WriteString("\n")

	cfg.WriteString("server:\n")
	fmt.Fprintf(&cfg, "  http_addr: %q\n", httpAddr)
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	fmt.Fprintf(&cfg, "  path: %q\n", dbPath)
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	fmt.Fprintf(&cfg, "  idle_timeout: %q\n", idleTimeout)
	fmt.Fprintf(&cfg, "  timezone: %q\n", timezone)
	fmt.Fprintf(&cfg, "  comment_format: %q\n", commentFormat)
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	fmt.Fprintf(&cfg, "  callback_secret: %q\n", secret)
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	fmt.Fprintf(&cfg, "  level: %q\n", logLevel)
	fmt.Fprintf(&cfg, "  format: %q\n", logFormat)

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	color.Green("Config written to %s", outputFile)
	fmt.Println("Add the bot to a channel, then start it with: taskbridge serve")
	return nil
}

func runHealth(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", dialAddr(cfg.Server.HTTPAddr))
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("not ready: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	color.Green("ready")
	return nil
}

// dialAddr turns a wildcard listen address into one a client can dial.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// EOF keeps the default
		fmt.Println()
		if s := strings.TrimSpace(input); s != "" {
			return s
		}
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
