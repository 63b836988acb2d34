// ABOUTME: Effects produced by the wizard for the caller to execute.
// ABOUTME: Cards, thread/channel posts and remote tracker calls.

package wizard

import (
	"time"

	"github.com/2389/taskbridge/internal/deadline"
	"github.com/2389/taskbridge/internal/session"
)

// Effect is a side effect requested by Apply.
type Effect interface {
	isEffect()
}

// CardStyle selects how options are presented.
type CardStyle int

const (
	// StyleSelect renders options as a dropdown.
	StyleSelect CardStyle = iota
	// StyleButtons renders options as buttons.
	StyleButtons
)

// Card is an interactive message. Callbacks from it carry Stage.
type Card struct {
	Stage   session.Stage
	Text    string
	Style   CardStyle
	Options []session.Option
	Cancel  bool
	Finish  bool
	Retry   bool
}

// TaskDraft holds everything needed to create the remote task.
type TaskDraft struct {
	Title        string
	Owner        string
	ProjectID    string
	ProjectTitle string
	BoardID      string
	ColumnID     string
	AssigneeID   string
	Deadline     deadline.Deadline
}

// LoadOptions fetches the options for Stage. ProjectID or BoardID scope the
// query; Owner is the user the project list is filtered for.
type LoadOptions struct {
	Stage     session.Stage
	ProjectID string
	BoardID   string
	Owner     string
}

// RenderCard posts a card in the thread.
type RenderCard struct {
	Card Card
}

// CloseCard replaces a card with plain text, removing its controls.
type CloseCard struct {
	PostID string
	Text   string
}

// CreateTask creates the remote task.
type CreateTask struct {
	Task TaskDraft
}

// AppendComment appends a message to the task description.
type AppendComment struct {
	TaskID string
	Author string
	PostID string
	Text   string
	At     time.Time
}

// PostThread posts a message in the session's thread.
type PostThread struct {
	Text string
}

// PostChannel posts a message at the top level of the session's channel.
type PostChannel struct {
	Text string
}

// React adds an emoji reaction to a post.
type React struct {
	PostID string
	Emoji  string
}

func (LoadOptions) isEffect()   {}
func (RenderCard) isEffect()    {}
func (CloseCard) isEffect()     {}
func (CreateTask) isEffect()    {}
func (AppendComment) isEffect() {}
func (PostThread) isEffect()    {}
func (PostChannel) isEffect()   {}
func (React) isEffect()         {}
