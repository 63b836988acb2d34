// ABOUTME: Entry point for the taskbridge bot
// ABOUTME: Wires the chat stream, card callbacks and idle sweep into one process

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/taskbridge/internal/auth"
	"github.com/2389/taskbridge/internal/bridge"
	"github.com/2389/taskbridge/internal/config"
	"github.com/2389/taskbridge/internal/dedupe"
	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/server"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
	"github.com/2389/taskbridge/internal/supervisor"
	"github.com/2389/taskbridge/internal/yougile"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _            _    _          _     _
| |_ __ _ ___| | _| |__  _ __(_) __| | __ _  ___
| __/ _' / __| |/ / '_ \| '__| |/ _' |/ _' |/ _ \
| || (_| \__ \   <| |_) | |  | | (_| | (_| |  __/
 \__\__,_|___/_|\_\_.__/|_|  |_|\__,_|\__, |\___|
                                      |___/
`

const (
	dedupeTTL     = 10 * time.Minute
	dedupeMaxSize = 10_000
)

// getConfigPath returns the path to the config file.
// Priority: TASKBRIDGE_CONFIG env var > XDG_CONFIG_HOME/taskbridge/config.yaml > ~/.config/taskbridge/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TASKBRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "taskbridge", "config.yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the chat server and start handling commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	root := &cobra.Command{
		Use:           "taskbridge",
		Short:         "Creates tracker tasks from chat threads",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the config file")

	root.AddCommand(serveCmd)
	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.InOrStdin(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check a running bot's readiness endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), configPath)
		},
	})

	return root
}

func runServe(ctx context.Context, configPath string) error {
	color.Cyan(banner)
	fmt.Println()

	info := color.New(color.FgGreen)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}
	info.Printf("    ▶ Config loaded from %s\n", configPath)

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	info.Printf("    ▶ Database %s\n", cfg.Database.Path)

	chat := mattermost.NewClient(cfg.Mattermost.URL, cfg.Mattermost.BotToken, logger)
	meCtx, cancel := context.WithTimeout(ctx, cfg.Session.RequestTimeout)
	me, err := chat.Me(meCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("resolving bot account: %w", err)
	}
	botUsername := cfg.Mattermost.BotUsername
	if me.Username != "" {
		botUsername = me.Username
	}
	info.Printf("    ▶ Signed in to %s as @%s\n", cfg.Mattermost.URL, botUsername)

	tracker := yougile.NewClient(cfg.YouGile.BaseURL, cfg.YouGile.APIKey, logger)

	var signer *auth.CardSigner
	if cfg.Auth.CallbackSecret != "" {
		signer = auth.NewCardSigner([]byte(cfg.Auth.CallbackSecret), cfg.Auth.CardTTL)
	} else {
		logger.Warn("auth.callback_secret is empty, card callbacks are not authenticated")
	}

	seen := dedupe.New(dedupeTTL, dedupeMaxSize)
	sessions := session.NewStore()

	engine := bridge.New(bridge.Config{
		BotUserID:             me.ID,
		BotUsername:           botUsername,
		ActionsURL:            cfg.Mattermost.ActionsURL(),
		TrackerHost:           yougile.Host(cfg.YouGile.BaseURL),
		TeamID:                cfg.YouGile.TeamID,
		FilterProjectsByEmail: cfg.YouGile.FilterProjectsByEmail,
		Markdown:              cfg.Session.CommentFormat == config.CommentFormatMarkdown,
		RequestTimeout:        cfg.Session.RequestTimeout,
		Location:              cfg.Session.Location,
		TitleTimeout:          cfg.Session.IdleTimeout,
	}, bridge.Deps{
		Sessions: sessions,
		Chat:     chat,
		Tracker:  tracker,
		Defaults: db,
		Signer:   signer,
		Seen:     seen,
	}, logger)

	stream := mattermost.NewStream(chat.WebSocketURL(), chat.Token(), engine.HandleMessage,
		mattermost.DefaultStreamConfig(), logger)

	sweeper := supervisor.New(sessions, engine, supervisor.Config{
		Interval:    cfg.Session.SweepInterval,
		IdleTimeout: cfg.Session.IdleTimeout,
	}, logger)

	srv := server.New(server.Config{
		Addr:            cfg.Server.HTTPAddr,
		CallbackTimeout: cfg.Session.CallbackTimeout,
	}, engine, []server.Check{
		{Name: "database", Fn: db.Ping},
		{Name: "stream", Fn: func(context.Context) error {
			if !stream.Connected() {
				return fmt.Errorf("websocket not connected")
			}
			return nil
		}},
	}, logger)

	info.Printf("    ▶ Callbacks on %s (public %s)\n", cfg.Server.HTTPAddr, cfg.Mattermost.ActionsURL())
	info.Printf("    ▶ Idle timeout %s, timezone %s\n", cfg.Session.IdleTimeout, cfg.Session.Location)
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		seen.Run(gctx, dedupeTTL)
		return nil
	})

	err = g.Wait()
	logger.Info("shutting down", "sessions", sessions.Len())
	return err
}
