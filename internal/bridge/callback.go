// ABOUTME: Turns interactive card callbacks into wizard inputs.
// ABOUTME: Verifies the card token, drops repeated triggers and answers with hints.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/taskbridge/internal/auth"
	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/wizard"
)

// Callback errors
var (
	ErrBadCallback  = errors.New("malformed callback")
	ErrUnauthorized = errors.New("callback not authorized")
)

// CallbackResponse is the reply to an interactive callback. EphemeralText,
// when set, is shown only to the user who clicked.
type CallbackResponse struct {
	EphemeralText string
}

// HandleCallback processes one card click.
func (e *Engine) HandleCallback(ctx context.Context, raw []byte) (CallbackResponse, error) {
	var req mattermost.ActionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return CallbackResponse{}, fmt.Errorf("%w: %v", ErrBadCallback, err)
	}

	action := req.ContextString(ctxAction)
	rootID := req.ContextString(ctxRootID)
	stage := req.ContextString(ctxStage)
	if action == "" || rootID == "" || stage == "" || req.ChannelID == "" {
		return CallbackResponse{}, fmt.Errorf("%w: missing action context", ErrBadCallback)
	}

	if e.signer != nil {
		want := auth.CardClaims{RootID: rootID, ChannelID: req.ChannelID, Stage: stage}
		if err := e.signer.Check(req.ContextString(ctxToken), want); err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return CallbackResponse{EphemeralText: msgStaleButton}, nil
			}
			e.logger.Warn("rejected callback", "channel", req.ChannelID, "user", req.UserID, "error", err)
			return CallbackResponse{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}

	if req.TriggerID != "" && e.seen.Seen("trigger:"+req.TriggerID) {
		e.logger.Debug("duplicate callback ignored", "trigger", req.TriggerID)
		return CallbackResponse{}, nil
	}

	key := session.Key{ChannelID: req.ChannelID, RootID: rootID}
	switch stage {
	case stageDefaultProject:
		return e.handleDefaultAction(ctx, &req, key, action)
	case stageMainMenu:
		return e.handleMenuAction(ctx, &req, key, action)
	}

	var in wizard.Input
	now := e.now()
	switch action {
	case actionSelect:
		option := req.ContextString(ctxOption)
		if option == "" {
			option = req.ContextString(ctxSelected)
		}
		in = wizard.Select{Author: req.UserID, Stage: session.Stage(stage), OptionID: option, At: now}
	case actionCancel:
		in = wizard.Control{Author: req.UserID, Kind: wizard.ControlCancel, At: now}
	case actionFinish:
		in = wizard.Control{Author: req.UserID, Kind: wizard.ControlFinish, At: now}
	case actionRetry:
		in = wizard.Control{Author: req.UserID, Kind: wizard.ControlRetry, At: now}
	default:
		return CallbackResponse{}, fmt.Errorf("%w: unknown action %q", ErrBadCallback, action)
	}

	err := e.Dispatch(ctx, key, in)
	if errors.Is(err, session.ErrNotFound) {
		return CallbackResponse{EphemeralText: msgSessionExpired}, nil
	}
	if err != nil {
		// Let a retried delivery through.
		if req.TriggerID != "" {
			e.seen.Forget("trigger:" + req.TriggerID)
		}
		return CallbackResponse{}, err
	}
	return CallbackResponse{}, nil
}
