// ABOUTME: Turns websocket "posted" events into commands or wizard text inputs.
// ABOUTME: Handles commands, the main menu, default-project requests and bot membership.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
	"github.com/2389/taskbridge/internal/wizard"
)

var (
	createCommand  = regexp.MustCompile(`(?i)^(?:создай\s+задачу|create\s+task)\s+(.+)$`)
	defaultCommand = regexp.MustCompile(`(?i)^(?:проект\s+по\s+умолчанию|default\s+project)$`)
)

func mentionPattern(username string) *regexp.Regexp {
	if username == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(username) + `\b`)
}

type commandKind int

const (
	commandNone commandKind = iota
	commandCreate
	commandDefaultProject
)

// parseCommand recognizes a bot command in text with the mention removed.
func parseCommand(text string) (commandKind, string) {
	text = strings.TrimSpace(text)
	if m := createCommand.FindStringSubmatch(text); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return commandCreate, title
		}
	}
	if defaultCommand.MatchString(text) {
		return commandDefaultProject, ""
	}
	return commandNone, ""
}

// HandleMessage processes one websocket event. Events other than new posts,
// the bot's own posts and replays are ignored.
func (e *Engine) HandleMessage(ctx context.Context, raw []byte) error {
	var ev mattermost.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}
	if ev.Event != mattermost.EventPosted {
		return nil
	}

	var data mattermost.PostedData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return fmt.Errorf("decoding posted event: %w", err)
	}
	post, err := data.DecodePost()
	if err != nil {
		return fmt.Errorf("decoding post: %w", err)
	}

	if post.UserID == e.cfg.BotUserID {
		return nil
	}
	if post.ID != "" && e.seen.Seen("post:"+post.ID) {
		e.logger.Debug("duplicate post ignored", "post", post.ID)
		return nil
	}

	switch post.Type {
	case "":
	case mattermost.PostTypeAddToChannel:
		return e.botAdded(ctx, post)
	case mattermost.PostTypeRemoveFromChannel:
		return e.botRemoved(ctx, post)
	default:
		return nil
	}

	key := session.Key{ChannelID: post.ChannelID, RootID: post.ThreadID()}
	at := e.now()
	if post.CreateAt > 0 {
		at = time.UnixMilli(post.CreateAt)
	}

	text := post.Message
	addressed := e.addressed(&data, post)
	if addressed {
		text = e.stripMention(post.Message)
		switch kind, title := parseCommand(text); kind {
		case commandCreate:
			e.prompts.remove(key)
			return e.startSession(ctx, key, post.UserID, title, at)
		case commandDefaultProject:
			return e.showDefaultSelect(ctx, key, post.UserID, "")
		}
	}

	if title := strings.TrimSpace(text); title != "" {
		if prompt, ok := e.prompts.take(key, post.UserID, at); ok {
			return e.titleEntered(ctx, key, prompt, title, at)
		}
	}

	if addressed && !e.sessions.Exists(key) {
		return e.showMenu(ctx, key)
	}

	err = e.Dispatch(ctx, key, wizard.Text{Author: post.UserID, PostID: post.ID, Text: text, At: at})
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil && post.ID != "" {
		// Let a redelivered post through.
		e.seen.Forget("post:" + post.ID)
	}
	return err
}

// addressed reports whether the post talks to the bot: a direct message or
// a mention.
func (e *Engine) addressed(data *mattermost.PostedData, post *mattermost.Post) bool {
	if data.ChannelType == mattermost.ChannelTypeDirect {
		return true
	}
	if e.cfg.BotUserID != "" && data.Mentioned(e.cfg.BotUserID) {
		return true
	}
	return e.mention != nil && e.mention.MatchString(post.Message)
}

func (e *Engine) stripMention(text string) string {
	if e.mention != nil {
		text = e.mention.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// startSession creates the thread's session and shows its first card.
func (e *Engine) startSession(ctx context.Context, key session.Key, owner, title string, at time.Time) error {
	if e.sessions.Exists(key) {
		e.post(ctx, key.ChannelID, key.RootID, msgAlreadyRunning)
		return nil
	}

	sess := session.New(e.newID(), key, owner, title, at)
	preset := e.channelDefault(ctx, key.ChannelID, owner)
	if preset != nil {
		sess = sess.WithProject(preset.ProjectID, preset.ProjectTitle)
	}

	if err := e.sessions.Create(sess); err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			e.post(ctx, key.ChannelID, key.RootID, msgAlreadyRunning)
			return nil
		}
		return err
	}
	e.logger.Info("session started",
		"session", sess.ID, "channel", key.ChannelID, "root", key.RootID, "owner", owner, "stage", sess.Stage)

	if preset != nil {
		e.post(ctx, key.ChannelID, key.RootID, defaultProjectUsedText(preset.ProjectTitle))
	}
	return e.Dispatch(ctx, key, wizard.Start{})
}

// channelDefault returns the channel's default project if it is set and the
// user can still file tasks in it.
func (e *Engine) channelDefault(ctx context.Context, channelID, userID string) *store.ChannelDefault {
	if e.defaults == nil {
		return nil
	}
	d, err := e.defaults.GetChannelDefault(ctx, channelID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Error("reading channel default failed", "channel", channelID, "error", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	projects, err := e.projectsFor(ctx, userID)
	if err != nil {
		e.logger.Warn("checking default project failed", "channel", channelID, "error", err)
		return nil
	}
	for _, p := range projects {
		if p.ID == d.ProjectID {
			d.ProjectTitle = p.Title
			return d
		}
	}
	return nil
}
