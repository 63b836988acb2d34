// ABOUTME: Builds interactive card posts and the context their buttons carry.
// ABOUTME: Every action posts back to the actions URL with a signed token.

package bridge

import (
	"fmt"

	"github.com/2389/taskbridge/internal/auth"
	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/wizard"
)

// Keys of the integration context map.
const (
	ctxAction   = "action"
	ctxRootID   = "root_id"
	ctxStage    = "stage"
	ctxOption   = "option"
	ctxToken    = "token"
	ctxSelected = "selected_option"
)

// Values of ctxAction.
const (
	actionSelect      = "select"
	actionCancel      = "cancel"
	actionFinish      = "finish"
	actionRetry       = "retry"
	actionDefaultYes  = "default_yes"
	actionDefaultNo   = "default_no"
	actionDefaultSet  = "default_set"
	actionDefaultKeep = "default_keep"

	actionMenuCreate    = "menu_create"
	actionMenuShortcuts = "menu_shortcuts"
	actionMenuDefault   = "menu_default"
	actionMenuClose     = "menu_close"
)

// stageDefaultProject marks default-project cards, which belong to no session.
const stageDefaultProject = "default_project"

// noneOption is the select value that clears the channel default.
const noneOption = "__none__"

// cardPost renders a wizard card as a post in the session's thread.
func (e *Engine) cardPost(key session.Key, c wizard.Card) *mattermost.Post {
	base := e.cardContext(key, string(c.Stage))

	var actions []mattermost.Action
	if len(c.Options) > 0 {
		if c.Style == wizard.StyleButtons {
			for i, opt := range c.Options {
				ctx := withValues(base, ctxAction, actionSelect, ctxOption, opt.ID)
				actions = append(actions, e.button(fmt.Sprintf("opt%d", i), opt.Label, "", ctx))
			}
		} else {
			actions = append(actions, e.selectAction("select", labelSelect, c.Options, withValues(base, ctxAction, actionSelect)))
		}
	}
	if c.Finish {
		actions = append(actions, e.button("finish", labelFinish, "primary", withValues(base, ctxAction, actionFinish)))
	}
	if c.Retry {
		actions = append(actions, e.button("retry", labelRetry, "primary", withValues(base, ctxAction, actionRetry)))
	}
	if c.Cancel {
		actions = append(actions, e.button("cancel", labelCancel, "danger", withValues(base, ctxAction, actionCancel)))
	}

	post := &mattermost.Post{ChannelID: key.ChannelID, RootID: key.RootID, Message: c.Text}
	post.SetAttachments([]mattermost.Attachment{{Fallback: c.Text, Actions: actions}})
	return post
}

// cardContext returns the context shared by all actions of one card.
func (e *Engine) cardContext(key session.Key, stage string) map[string]any {
	ctx := map[string]any{
		ctxRootID: key.RootID,
		ctxStage:  stage,
	}
	if e.signer != nil {
		token, err := e.signer.Sign(auth.CardClaims{RootID: key.RootID, ChannelID: key.ChannelID, Stage: stage})
		if err != nil {
			e.logger.Error("signing card failed", "channel", key.ChannelID, "root", key.RootID, "error", err)
		} else {
			ctx[ctxToken] = token
		}
	}
	return ctx
}

// withValues copies base and sets the given key/value pairs.
func withValues(base map[string]any, kv ...string) map[string]any {
	ctx := make(map[string]any, len(base)+len(kv)/2)
	for k, v := range base {
		ctx[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		ctx[kv[i]] = kv[i+1]
	}
	return ctx
}

func (e *Engine) button(id, name, style string, ctx map[string]any) mattermost.Action {
	return mattermost.Action{
		ID:          id,
		Name:        name,
		Type:        "button",
		Style:       style,
		Integration: &mattermost.Integration{URL: e.cfg.ActionsURL, Context: ctx},
	}
}

func (e *Engine) selectAction(id, name string, opts []session.Option, ctx map[string]any) mattermost.Action {
	options := make([]mattermost.Option, 0, len(opts))
	for _, o := range opts {
		options = append(options, mattermost.Option{Text: o.Label, Value: o.ID})
	}
	return mattermost.Action{
		ID:          id,
		Name:        name,
		Type:        "select",
		Options:     options,
		Integration: &mattermost.Integration{URL: e.cfg.ActionsURL, Context: ctx},
	}
}
