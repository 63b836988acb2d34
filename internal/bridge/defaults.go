// ABOUTME: Dialog for the channel's default project: offered when the bot joins
// ABOUTME: a channel or on request, persisted in the channel defaults store.

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
)

// botAdded offers to set a default project when the bot joins a channel.
func (e *Engine) botAdded(ctx context.Context, post *mattermost.Post) error {
	if post.StringProp("addedUserId") != e.cfg.BotUserID || e.defaults == nil {
		return nil
	}
	e.logger.Info("bot added to channel", "channel", post.ChannelID)

	key := session.Key{ChannelID: post.ChannelID, RootID: post.ID}
	base := e.cardContext(key, stageDefaultProject)
	card := &mattermost.Post{ChannelID: post.ChannelID, Message: msgDefaultPrompt}
	card.SetAttachments([]mattermost.Attachment{{
		Fallback: msgDefaultPrompt,
		Actions: []mattermost.Action{
			e.button("defaultyes", labelDefaultYes, "primary", withValues(base, ctxAction, actionDefaultYes)),
			e.button("defaultno", labelDefaultNo, "", withValues(base, ctxAction, actionDefaultNo)),
		},
	}})

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	if _, err := e.chat.CreatePost(ctx, card); err != nil {
		return fmt.Errorf("posting default project prompt: %w", err)
	}
	return nil
}

// botRemoved forgets the channel's default project.
func (e *Engine) botRemoved(ctx context.Context, post *mattermost.Post) error {
	if post.StringProp("removedUserId") != e.cfg.BotUserID || e.defaults == nil {
		return nil
	}
	e.logger.Info("bot removed from channel", "channel", post.ChannelID)
	if err := e.defaults.DeleteChannelDefault(ctx, post.ChannelID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting channel default: %w", err)
	}
	return nil
}

// showDefaultSelect shows the project picker for the channel default. With
// patchPostID set, that post is turned into the picker; otherwise a new post
// is made in the thread.
func (e *Engine) showDefaultSelect(ctx context.Context, key session.Key, userID, patchPostID string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	if e.defaults == nil {
		return nil
	}

	projects, err := e.projectsFor(ctx, userID)
	if err != nil {
		e.logger.Error("listing projects failed", "channel", key.ChannelID, "error", err)
		e.post(ctx, key.ChannelID, key.RootID, fmt.Sprintf(msgDefaultLoadErr, err))
		return nil
	}
	if len(projects) == 0 {
		e.post(ctx, key.ChannelID, key.RootID, msgDefaultNoAccess)
		return nil
	}

	channelName := key.ChannelID
	if ch, err := e.chat.GetChannel(ctx, key.ChannelID); err == nil {
		if ch.DisplayName != "" {
			channelName = ch.DisplayName
		} else if ch.Name != "" {
			channelName = ch.Name
		}
	}
	var current string
	if d, err := e.defaults.GetChannelDefault(ctx, key.ChannelID); err == nil {
		current = d.ProjectTitle
	}

	opts := []session.Option{{ID: noneOption, Label: labelDefaultNone}}
	for _, p := range projects {
		opts = append(opts, session.Option{ID: p.ID, Label: p.Title})
	}

	text := defaultSelectText(channelName, current)
	base := e.cardContext(key, stageDefaultProject)
	atts := []mattermost.Attachment{{
		Fallback: text,
		Actions: []mattermost.Action{
			e.selectAction("defaultset", labelSelect, opts, withValues(base, ctxAction, actionDefaultSet)),
			e.button("defaultkeep", labelDefaultKeep, "", withValues(base, ctxAction, actionDefaultKeep)),
		},
	}}

	if patchPostID != "" {
		e.patchPost(ctx, patchPostID, text, atts)
		return nil
	}
	card := &mattermost.Post{ChannelID: key.ChannelID, RootID: key.RootID, Message: text}
	card.SetAttachments(atts)
	if _, err := e.chat.CreatePost(ctx, card); err != nil {
		return fmt.Errorf("posting default project picker: %w", err)
	}
	return nil
}

// handleDefaultAction runs a click on a default-project card.
func (e *Engine) handleDefaultAction(ctx context.Context, req *mattermost.ActionRequest, key session.Key, action string) (CallbackResponse, error) {
	if e.defaults == nil {
		return CallbackResponse{}, nil
	}

	switch action {
	case actionDefaultYes:
		return CallbackResponse{}, e.showDefaultSelect(ctx, key, req.UserID, req.PostID)

	case actionDefaultNo:
		if err := e.defaults.DeleteChannelDefault(ctx, req.ChannelID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return CallbackResponse{}, fmt.Errorf("deleting channel default: %w", err)
		}
		e.closeCard(ctx, req.PostID, msgDefaultDeclined)

	case actionDefaultKeep:
		e.closeCard(ctx, req.PostID, msgDefaultKept)

	case actionDefaultSet:
		return e.setDefault(ctx, req)
	}
	return CallbackResponse{}, nil
}

func (e *Engine) setDefault(ctx context.Context, req *mattermost.ActionRequest) (CallbackResponse, error) {
	projectID := req.ContextString(ctxSelected)
	if projectID == "" {
		return CallbackResponse{}, nil
	}

	if projectID == noneOption {
		if err := e.defaults.DeleteChannelDefault(ctx, req.ChannelID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return CallbackResponse{}, fmt.Errorf("deleting channel default: %w", err)
		}
		e.closeCard(ctx, req.PostID, msgDefaultCleared)
		return CallbackResponse{}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	projects, err := e.projectsFor(rctx, req.UserID)
	if err != nil {
		return CallbackResponse{EphemeralText: fmt.Sprintf(msgDefaultLoadErr, err)}, nil
	}

	for _, p := range projects {
		if p.ID != projectID {
			continue
		}
		d := &store.ChannelDefault{
			ChannelID:    req.ChannelID,
			ProjectID:    p.ID,
			ProjectTitle: p.Title,
			SetBy:        req.UserID,
		}
		if err := e.defaults.SetChannelDefault(ctx, d); err != nil {
			e.logger.Error("saving channel default failed", "channel", req.ChannelID, "error", err)
			return CallbackResponse{EphemeralText: fmt.Sprintf(msgDefaultSaveErr, err)}, nil
		}
		e.logger.Info("channel default set", "channel", req.ChannelID, "project", p.ID, "by", req.UserID)
		e.closeCard(ctx, req.PostID, defaultSetText(p.Title))
		return CallbackResponse{}, nil
	}
	return CallbackResponse{EphemeralText: msgDefaultNoAccess}, nil
}
