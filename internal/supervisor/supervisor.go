// ABOUTME: Periodically finishes task dialogs that have been idle too long.
// ABOUTME: Expiry of each session is isolated so one failure never stops the sweep.

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/taskbridge/internal/session"
)

// Lister lists sessions idle since a cutoff.
type Lister interface {
	IdleSince(cutoff time.Time) []session.Key
}

// Expirer finishes one idle session. It must re-check idleness itself,
// since the session may have moved on after it was listed.
type Expirer interface {
	Expire(ctx context.Context, key session.Key, cutoff time.Time) error
}

// Config controls the sweep.
type Config struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

// Supervisor sweeps idle sessions.
type Supervisor struct {
	sessions Lister
	expirer  Expirer
	cfg      Config
	logger   *slog.Logger
}

// New creates a supervisor.
func New(sessions Lister, expirer Expirer, cfg Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Supervisor{
		sessions: sessions,
		expirer:  expirer,
		cfg:      cfg,
		logger:   logger.With("component", "supervisor"),
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("supervisor started", "interval", s.cfg.Interval, "idle_timeout", s.cfg.IdleTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick expires every session idle since now minus IdleTimeout and returns
// how many were handed to the expirer.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.cfg.IdleTimeout)
	keys := s.sessions.IdleSince(cutoff)
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		if err := s.expire(ctx, key, cutoff); err != nil {
			s.logger.Error("expiring session failed", "channel", key.ChannelID, "root", key.RootID, "error", err)
		}
	}
	return len(keys)
}

func (s *Supervisor) expire(ctx context.Context, key session.Key, cutoff time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.expirer.Expire(ctx, key, cutoff)
}
