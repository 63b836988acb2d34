// ABOUTME: Engine runs wizard inputs against stored sessions and executes effects.
// ABOUTME: Effect results are fed back as inputs until the session is quiescent.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/2389/taskbridge/internal/auth"
	"github.com/2389/taskbridge/internal/dedupe"
	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
	"github.com/2389/taskbridge/internal/wizard"
	"github.com/2389/taskbridge/internal/yougile"
)

// maxSteps bounds the inputs processed by one Dispatch.
const maxSteps = 64

// errNotIdle aborts an expiry when the session saw activity after the cutoff.
var errNotIdle = errors.New("session not idle")

// Chat is the part of the chat client the engine uses.
type Chat interface {
	GetUser(ctx context.Context, id string) (*mattermost.User, error)
	GetChannel(ctx context.Context, id string) (*mattermost.Channel, error)
	CreatePost(ctx context.Context, p *mattermost.Post) (*mattermost.Post, error)
	PatchPost(ctx context.Context, id string, patch mattermost.PostPatch) (*mattermost.Post, error)
	AddReaction(ctx context.Context, userID, postID, emoji string) error
}

// Tracker is the part of the task tracker client the engine uses.
type Tracker interface {
	ListProjects(ctx context.Context) ([]yougile.Project, error)
	ListBoards(ctx context.Context, projectID string) ([]yougile.Board, error)
	ListColumns(ctx context.Context, boardID string) ([]yougile.Column, error)
	ListUsers(ctx context.Context, projectID string) ([]yougile.User, error)
	CreateTask(ctx context.Context, req yougile.TaskCreate) (string, error)
	GetTask(ctx context.Context, id string) (*yougile.Task, error)
	UpdateTaskDescription(ctx context.Context, id, description string) error
}

// Config holds the engine's settings.
type Config struct {
	BotUserID   string
	BotUsername string
	// ActionsURL is the callback URL put on every card.
	ActionsURL string

	TrackerHost           string
	TeamID                string
	FilterProjectsByEmail bool

	Markdown       bool
	RequestTimeout time.Duration
	Location       *time.Location
	// TitleTimeout is how long the menu waits for a typed task title.
	TitleTimeout time.Duration
}

// Deps are the collaborators of an Engine. Signer may be nil, in which
// case callbacks are not authenticated.
type Deps struct {
	Sessions *session.Store
	Chat     Chat
	Tracker  Tracker
	Defaults store.ChannelDefaults
	Signer   *auth.CardSigner
	Seen     *dedupe.Cache
}

// Engine owns the dialog logic for every thread.
type Engine struct {
	cfg      Config
	sessions *session.Store
	chat     Chat
	tracker  Tracker
	defaults store.ChannelDefaults
	signer   *auth.CardSigner
	seen     *dedupe.Cache
	machine  wizard.Machine
	md       goldmark.Markdown
	mention  *regexp.Regexp
	prompts  *titlePrompts
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an engine.
func New(cfg Config, deps Deps, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.TitleTimeout <= 0 {
		cfg.TitleTimeout = 5 * time.Minute
	}
	seen := deps.Seen
	if seen == nil {
		seen = dedupe.New(10*time.Minute, 10_000)
	}
	return &Engine{
		cfg:      cfg,
		sessions: deps.Sessions,
		chat:     deps.Chat,
		tracker:  deps.Tracker,
		defaults: deps.Defaults,
		signer:   deps.Signer,
		seen:     seen,
		machine:  wizard.Machine{Location: cfg.Location},
		md:       goldmark.New(),
		mention:  mentionPattern(cfg.BotUsername),
		prompts:  newTitlePrompts(cfg.TitleTimeout),
		logger:   logger.With("component", "bridge"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Dispatch applies in to the session at key and runs the resulting effects
// while holding the session's lock. It returns session.ErrNotFound when the
// thread has no live session.
func (e *Engine) Dispatch(ctx context.Context, key session.Key, in wizard.Input) error {
	_, err := e.sessions.Update(ctx, key, func(s session.Session) (session.Session, error) {
		return e.run(ctx, s, in)
	})
	return err
}

// Expire force-finishes the session at key if it has been idle since cutoff.
// A session that was finished, cancelled or touched meanwhile is left alone.
func (e *Engine) Expire(ctx context.Context, key session.Key, cutoff time.Time) error {
	_, err := e.sessions.Update(ctx, key, func(s session.Session) (session.Session, error) {
		if s.LastActivity.After(cutoff) {
			return s, errNotIdle
		}
		e.logger.Info("session timed out", "channel", key.ChannelID, "root", key.RootID, "stage", s.Stage)
		return e.run(ctx, s, wizard.Control{Kind: wizard.ControlFinish, Forced: true, At: e.now()})
	})
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, errNotIdle) {
		return nil
	}
	return err
}

// run drives the machine until no effect produces a further input. A panic
// leaves the stored session unchanged.
func (e *Engine) run(ctx context.Context, s session.Session, first wizard.Input) (out session.Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while handling session",
				"channel", s.Key.ChannelID, "root", s.Key.RootID, "stage", s.Stage, "panic", r)
			out, err = s, fmt.Errorf("session %s: panic: %v", s.Key, r)
		}
	}()

	queue := []wizard.Input{first}
	for steps := 0; len(queue) > 0; steps++ {
		if steps >= maxSteps {
			e.logger.Warn("dispatch step limit reached", "channel", s.Key.ChannelID, "root", s.Key.RootID)
			break
		}
		in := queue[0]
		queue = queue[1:]

		next, effects := e.machine.Apply(s, in)
		if next.Stage != s.Stage {
			e.logger.Debug("stage changed",
				"channel", s.Key.ChannelID, "root", s.Key.RootID, "from", s.Stage, "to", next.Stage)
		}
		s = next
		for _, eff := range effects {
			if res := e.execute(ctx, s, eff); res != nil {
				queue = append(queue, res)
			}
		}
	}
	return s, nil
}

// execute performs one effect and returns the input reporting its outcome,
// or nil when the machine does not need to hear about it.
func (e *Engine) execute(ctx context.Context, s session.Session, eff wizard.Effect) wizard.Input {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	switch eff := eff.(type) {
	case wizard.LoadOptions:
		opts, err := e.loadOptions(ctx, eff)
		if err != nil {
			e.logFailure("loading options", s, err)
			return wizard.LoadFailed{Stage: eff.Stage, Err: err}
		}
		return wizard.OptionsLoaded{Stage: eff.Stage, Options: opts}

	case wizard.RenderCard:
		post, err := e.chat.CreatePost(ctx, e.cardPost(s.Key, eff.Card))
		if err != nil {
			e.logFailure("posting card", s, err)
			return nil
		}
		return wizard.CardPosted{PostID: post.ID}

	case wizard.CloseCard:
		e.closeCard(ctx, eff.PostID, eff.Text)

	case wizard.CreateTask:
		id, url, err := e.createTask(ctx, eff.Task)
		if err != nil {
			e.logFailure("creating task", s, err)
			return wizard.TaskFailed{Err: err}
		}
		e.logger.Info("task created", "channel", s.Key.ChannelID, "root", s.Key.RootID, "task", id)
		return wizard.TaskCreated{ID: id, URL: url}

	case wizard.AppendComment:
		if err := e.appendComment(ctx, eff); err != nil {
			e.logFailure("appending comment", s, err)
			return wizard.CommentFailed{Err: err}
		}
		return wizard.CommentAppended{PostID: eff.PostID}

	case wizard.PostThread:
		e.post(ctx, s.Key.ChannelID, s.Key.RootID, eff.Text)

	case wizard.PostChannel:
		e.post(ctx, s.Key.ChannelID, "", eff.Text)

	case wizard.React:
		if err := e.chat.AddReaction(ctx, e.cfg.BotUserID, eff.PostID, eff.Emoji); err != nil {
			e.logFailure("adding reaction", s, err)
		}

	default:
		e.logger.Warn("unknown effect", "type", fmt.Sprintf("%T", eff))
	}
	return nil
}

func (e *Engine) logFailure(what string, s session.Session, err error) {
	e.logger.Error(what+" failed",
		"channel", s.Key.ChannelID, "root", s.Key.RootID, "stage", s.Stage, "error", err)
}

// post publishes text in a thread, or at the top of the channel when rootID
// is empty. Failures are logged.
func (e *Engine) post(ctx context.Context, channelID, rootID, text string) {
	_, err := e.chat.CreatePost(ctx, &mattermost.Post{ChannelID: channelID, RootID: rootID, Message: text})
	if err != nil {
		e.logger.Error("posting message failed", "channel", channelID, "root", rootID, "error", err)
	}
}

// closeCard replaces a card's text and removes its controls.
func (e *Engine) closeCard(ctx context.Context, postID, text string) {
	e.patchPost(ctx, postID, text, []mattermost.Attachment{})
}

// patchPost replaces a post's text and attachments. Failures are logged.
func (e *Engine) patchPost(ctx context.Context, postID, text string, atts []mattermost.Attachment) {
	patch := mattermost.PostPatch{
		Message: &text,
		Props:   map[string]any{"attachments": atts},
	}
	if _, err := e.chat.PatchPost(ctx, postID, patch); err != nil {
		e.logger.Error("updating post failed", "post", postID, "error", err)
	}
}
