// ABOUTME: Inputs accepted by the wizard state machine.
// ABOUTME: User inputs come from chat events; result inputs report executed effects.

package wizard

import (
	"time"

	"github.com/2389/taskbridge/internal/session"
)

// Input is anything that can drive a session forward.
type Input interface {
	isInput()
}

// Start asks the wizard to show the prompt for a freshly created session.
type Start struct{}

// Text is a plain message posted in the session's thread.
type Text struct {
	Author string
	PostID string
	Text   string
	At     time.Time
}

// Select is a click on a card option. Stage is the stage the card was
// rendered for; a mismatch marks the click as stale.
type Select struct {
	Author   string
	Stage    session.Stage
	OptionID string
	At       time.Time
}

// ControlKind distinguishes the card control buttons.
type ControlKind string

// Control buttons.
const (
	ControlFinish ControlKind = "finish"
	ControlCancel ControlKind = "cancel"
	ControlRetry  ControlKind = "retry"
)

// Control is a finish, cancel or retry request. Forced marks a finish
// issued by the idle timeout rather than a user.
type Control struct {
	Author string
	Kind   ControlKind
	Forced bool
	At     time.Time
}

// OptionsLoaded carries the options fetched for Stage.
type OptionsLoaded struct {
	Stage   session.Stage
	Options []session.Option
}

// LoadFailed reports that fetching options for Stage failed.
type LoadFailed struct {
	Stage session.Stage
	Err   error
}

// CardPosted reports the post id of a rendered card.
type CardPosted struct {
	PostID string
}

// TaskCreated reports a successfully created task.
type TaskCreated struct {
	ID  string
	URL string
}

// TaskFailed reports a failed task creation.
type TaskFailed struct {
	Err error
}

// CommentAppended reports that the message PostID was appended to the task.
type CommentAppended struct {
	PostID string
}

// CommentFailed reports a failed description update.
type CommentFailed struct {
	Err error
}

func (Start) isInput()           {}
func (Text) isInput()            {}
func (Select) isInput()          {}
func (Control) isInput()         {}
func (OptionsLoaded) isInput()   {}
func (LoadFailed) isInput()      {}
func (CardPosted) isInput()      {}
func (TaskCreated) isInput()     {}
func (TaskFailed) isInput()      {}
func (CommentAppended) isInput() {}
func (CommentFailed) isInput()   {}
