// ABOUTME: Main menu shown when the bot is mentioned without a command, and
// ABOUTME: the step that waits for a task title typed into the thread.

package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
)

// stageMainMenu marks main menu cards, which belong to no session.
const stageMainMenu = "main_menu"

// titlePrompt is a thread waiting for its owner to type a task title.
type titlePrompt struct {
	owner  string
	postID string
	at     time.Time
}

// titlePrompts holds pending title requests by thread. Entries older than
// ttl are treated as absent and pruned on insert.
type titlePrompts struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[session.Key]titlePrompt
}

func newTitlePrompts(ttl time.Duration) *titlePrompts {
	return &titlePrompts{ttl: ttl, pending: make(map[session.Key]titlePrompt)}
}

func (p *titlePrompts) put(key session.Key, prompt titlePrompt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.pending {
		if prompt.at.Sub(v.at) > p.ttl {
			delete(p.pending, k)
		}
	}
	p.pending[key] = prompt
}

// take removes and returns the prompt for key if user owns it and it has
// not expired by now.
func (p *titlePrompts) take(key session.Key, user string, now time.Time) (titlePrompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prompt, ok := p.pending[key]
	if !ok {
		return titlePrompt{}, false
	}
	if now.Sub(prompt.at) > p.ttl {
		delete(p.pending, key)
		return titlePrompt{}, false
	}
	if prompt.owner != user {
		return titlePrompt{}, false
	}
	delete(p.pending, key)
	return prompt, true
}

func (p *titlePrompts) remove(key session.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
}

func (p *titlePrompts) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// showMenu posts the main menu in the thread.
func (e *Engine) showMenu(ctx context.Context, key session.Key) error {
	base := e.cardContext(key, stageMainMenu)
	card := &mattermost.Post{ChannelID: key.ChannelID, RootID: key.RootID, Message: msgMenu}
	card.SetAttachments([]mattermost.Attachment{{
		Fallback: msgMenu,
		Actions: []mattermost.Action{
			e.button("menucreate", labelMenuCreate, "primary", withValues(base, ctxAction, actionMenuCreate)),
			e.button("menushortcuts", labelMenuShortcuts, "", withValues(base, ctxAction, actionMenuShortcuts)),
			e.button("menudefault", labelMenuDefault, "", withValues(base, ctxAction, actionMenuDefault)),
			e.button("menuclose", labelMenuClose, "danger", withValues(base, ctxAction, actionMenuClose)),
		},
	}})

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	if _, err := e.chat.CreatePost(ctx, card); err != nil {
		return fmt.Errorf("posting main menu: %w", err)
	}
	return nil
}

// handleMenuAction runs a click on a main menu card.
func (e *Engine) handleMenuAction(ctx context.Context, req *mattermost.ActionRequest, key session.Key, action string) (CallbackResponse, error) {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	switch action {
	case actionMenuCreate:
		if e.sessions.Exists(key) {
			return CallbackResponse{EphemeralText: msgAlreadyRunning}, nil
		}
		e.prompts.put(key, titlePrompt{owner: req.UserID, postID: req.PostID, at: e.now()})
		base := e.cardContext(key, stageMainMenu)
		e.patchPost(rctx, req.PostID, msgAskTitle, []mattermost.Attachment{{
			Fallback: msgAskTitle,
			Text:     msgNameTheTask,
			Actions: []mattermost.Action{
				e.button("menuclose", labelCancel, "danger", withValues(base, ctxAction, actionMenuClose)),
			},
		}})

	case actionMenuShortcuts:
		e.post(rctx, key.ChannelID, key.RootID, shortcutsText(e.cfg.BotUsername))

	case actionMenuDefault:
		return CallbackResponse{}, e.showDefaultSelect(ctx, key, req.UserID, req.PostID)

	case actionMenuClose:
		e.prompts.remove(key)
		e.closeCard(rctx, req.PostID, msgMenuClosed)

	default:
		return CallbackResponse{}, fmt.Errorf("%w: unknown menu action %q", ErrBadCallback, action)
	}
	return CallbackResponse{}, nil
}

// titleEntered starts the wizard with a title typed after "create task" was
// picked from the menu.
func (e *Engine) titleEntered(ctx context.Context, key session.Key, prompt titlePrompt, title string, at time.Time) error {
	if prompt.postID != "" {
		rctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		e.closeCard(rctx, prompt.postID, creatingTaskText(title))
		cancel()
	}
	return e.startSession(ctx, key, prompt.owner, title, at)
}
