// ABOUTME: Websocket event stream from the chat server on the model package's
// ABOUTME: websocket client, with reconnect and exponential backoff.

package mattermost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mattermost/mattermost/server/public/model"
)

// Event names the stream cares about.
const (
	EventHello  = string(model.WebsocketEventHello)
	EventPosted = string(model.WebsocketEventPosted)
)

// statusOK is the status of a successful websocket request.
const statusOK = "OK"

// EventHandler receives every event in arrival order on the stream goroutine.
type EventHandler func(ctx context.Context, raw []byte) error

// StreamConfig tunes the reconnect loop.
type StreamConfig struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultStreamConfig returns the production settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MinBackoff: time.Second,
		MaxBackoff: time.Minute,
	}
}

// Stream maintains one authenticated websocket connection.
type Stream struct {
	url       string
	token     string
	handler   EventHandler
	cfg       StreamConfig
	dialer    *websocket.Dialer
	logger    *slog.Logger
	connected atomic.Bool
}

// NewStream creates a stream for the server whose websocket base URL is url.
func NewStream(url, token string, handler EventHandler, cfg StreamConfig, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	return &Stream{
		url:     url,
		token:   token,
		handler: handler,
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger.With("component", "stream"),
	}
}

// Connected reports whether the stream is currently authenticated.
func (s *Stream) Connected() bool {
	return s.connected.Load()
}

// Run connects and reconnects until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.cfg.MinBackoff
	for {
		start := time.Now()
		err := s.session(ctx)
		s.connected.Store(false)

		if ctx.Err() != nil {
			return nil
		}

		// A connection that stayed up for a while resets the backoff.
		if time.Since(start) > s.cfg.MaxBackoff {
			backoff = s.cfg.MinBackoff
		}
		s.logger.Warn("stream disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.cfg.MaxBackoff)
	}
}

// session runs one connection until it fails or ctx ends.
func (s *Stream) session(ctx context.Context) error {
	ws, err := model.NewWebSocketClient4WithDialer(s.dialer, s.url, s.token)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.url, err)
	}
	defer ws.Close()
	ws.Listen()

	responses := ws.ResponseChannel
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ws.PingTimeoutChannel:
			return errors.New("ping timed out")

		case resp, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			if resp.SeqReply != 1 {
				continue
			}
			if resp.Status != statusOK {
				return errors.New("authentication challenge rejected")
			}
			s.markConnected()

		case ev, ok := <-ws.EventChannel:
			if !ok {
				if ws.ListenError != nil {
					return fmt.Errorf("reading events: %w", ws.ListenError)
				}
				return errors.New("event channel closed")
			}
			if ev.EventType() == model.WebsocketEventHello {
				s.markConnected()
			}
			data, err := ev.ToJSON()
			if err != nil {
				s.logger.Warn("unencodable event", "event", ev.EventType(), "error", err)
				continue
			}
			s.dispatch(ctx, string(ev.EventType()), data)
		}
	}
}

// dispatch hands one event to the handler. A panicking handler is logged and
// the stream carries on with the next event.
func (s *Stream) dispatch(ctx context.Context, event string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling event", "event", event, "panic", r)
		}
	}()
	if err := s.handler(ctx, data); err != nil {
		s.logger.Error("handling event", "event", event, "error", err)
	}
}

func (s *Stream) markConnected() {
	if !s.connected.Swap(true) {
		s.logger.Info("stream connected")
	}
}
