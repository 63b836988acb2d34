// ABOUTME: Session state for one task-creation dialog in a chat thread.
// ABOUTME: Defines Stage, Key, Option and the Session value mutated by the wizard.

package session

import (
	"time"

	"github.com/2389/taskbridge/internal/deadline"
)

// Stage is a step of the task-creation dialog.
type Stage string

// Dialog stages in forward order. Finished and Cancelled are terminal.
const (
	StageAwaitingProject    Stage = "awaiting_project"
	StageAwaitingBoard      Stage = "awaiting_board"
	StageAwaitingColumn     Stage = "awaiting_column"
	StageAwaitingAssignee   Stage = "awaiting_assignee"
	StageAwaitingDeadline   Stage = "awaiting_deadline"
	StageAwaitingCustomDate Stage = "awaiting_custom_date"
	StageActive             Stage = "active"
	StageFinished           Stage = "finished"
	StageCancelled          Stage = "cancelled"
)

// Terminal reports whether no further input is accepted in this stage.
func (s Stage) Terminal() bool {
	return s == StageFinished || s == StageCancelled
}

// Selecting reports whether the stage waits for a choice from an offered list.
func (s Stage) Selecting() bool {
	switch s {
	case StageAwaitingProject, StageAwaitingBoard, StageAwaitingColumn,
		StageAwaitingAssignee, StageAwaitingDeadline:
		return true
	}
	return false
}

// Next returns the stages reachable in one forward step, excluding the
// terminal stages which every non-terminal stage can reach.
func (s Stage) Next() []Stage {
	switch s {
	case StageAwaitingProject:
		return []Stage{StageAwaitingBoard}
	case StageAwaitingBoard:
		return []Stage{StageAwaitingColumn}
	case StageAwaitingColumn:
		return []Stage{StageAwaitingAssignee}
	case StageAwaitingAssignee:
		return []Stage{StageAwaitingDeadline}
	case StageAwaitingDeadline:
		return []Stage{StageAwaitingCustomDate, StageActive}
	case StageAwaitingCustomDate:
		return []Stage{StageActive}
	}
	return nil
}

// CanMove reports whether a transition from s to to is allowed.
func (s Stage) CanMove(to Stage) bool {
	if s == to {
		return true
	}
	if s.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	for _, n := range s.Next() {
		if n == to {
			return true
		}
	}
	return false
}

// Key identifies a session: one per chat thread.
type Key struct {
	ChannelID string
	RootID    string
}

func (k Key) String() string {
	return k.ChannelID + "/" + k.RootID
}

// Option is one selectable entry on a card.
type Option struct {
	ID    string
	Label string
}

// Session is the state of one dialog. It is a value; the wizard returns a
// modified copy and the store swaps it in under the key's lock.
type Session struct {
	ID    string
	Key   Key
	Stage Stage
	Title string
	Owner string

	ProjectID     string
	ProjectTitle  string
	BoardID       string
	BoardTitle    string
	ColumnID      string
	ColumnTitle   string
	AssigneeID    string
	AssigneeLabel string

	// Deadline is nil until chosen; deadline.None means "no deadline".
	Deadline       *deadline.Deadline
	DeadlineChoice string

	// Offered is the exact option set most recently shown for Stage.
	Offered    []Option
	CardPostID string

	TaskID  string
	TaskURL string

	CreatedAt    time.Time
	LastActivity time.Time
}

// New returns a session awaiting a project for the given thread.
func New(id string, key Key, owner, title string, now time.Time) Session {
	return Session{
		ID:           id,
		Key:          key,
		Stage:        StageAwaitingProject,
		Title:        title,
		Owner:        owner,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// WithProject presets the project, so the dialog starts at board selection.
func (s Session) WithProject(id, title string) Session {
	s.ProjectID = id
	s.ProjectTitle = title
	s.Stage = StageAwaitingBoard
	return s
}

// Offers reports whether optionID is in the currently offered set.
func (s Session) Offers(optionID string) (Option, bool) {
	for _, o := range s.Offered {
		if o.ID == optionID {
			return o, true
		}
	}
	return Option{}, false
}
