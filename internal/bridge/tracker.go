// ABOUTME: Tracker-side effects: option lists for each stage, task creation
// ABOUTME: and appending chat messages to the task description.

package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/wizard"
	"github.com/2389/taskbridge/internal/yougile"
)

// loadOptions fetches the choices offered at eff.Stage.
func (e *Engine) loadOptions(ctx context.Context, eff wizard.LoadOptions) ([]session.Option, error) {
	var opts []session.Option
	switch eff.Stage {
	case session.StageAwaitingProject:
		projects, err := e.projectsFor(ctx, eff.Owner)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			opts = append(opts, session.Option{ID: p.ID, Label: p.Title})
		}

	case session.StageAwaitingBoard:
		boards, err := e.tracker.ListBoards(ctx, eff.ProjectID)
		if err != nil {
			return nil, err
		}
		for _, b := range boards {
			opts = append(opts, session.Option{ID: b.ID, Label: b.Title})
		}

	case session.StageAwaitingColumn:
		columns, err := e.tracker.ListColumns(ctx, eff.BoardID)
		if err != nil {
			return nil, err
		}
		for _, c := range columns {
			opts = append(opts, session.Option{ID: c.ID, Label: c.Title})
		}

	case session.StageAwaitingAssignee:
		users, err := e.tracker.ListUsers(ctx, eff.ProjectID)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			opts = append(opts, session.Option{ID: u.ID, Label: u.DisplayName()})
		}

	default:
		return nil, fmt.Errorf("no options for stage %s", eff.Stage)
	}
	return opts, nil
}

// projectsFor lists the projects a chat user may file tasks in. With e-mail
// filtering on, only projects where a tracker user with the same e-mail is a
// member are returned.
func (e *Engine) projectsFor(ctx context.Context, chatUserID string) ([]yougile.Project, error) {
	projects, err := e.tracker.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if !e.cfg.FilterProjectsByEmail {
		return projects, nil
	}

	user, err := e.chat.GetUser(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return nil, nil
	}

	people, err := e.tracker.ListUsers(ctx, "")
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool)
	for _, p := range people {
		if strings.ToLower(strings.TrimSpace(p.Email)) == email {
			member[p.ID] = true
		}
	}

	var allowed []yougile.Project
	for _, p := range projects {
		for id := range p.Users {
			if member[id] {
				allowed = append(allowed, p)
				break
			}
		}
	}
	return allowed, nil
}

// createTask creates the task and builds its link.
func (e *Engine) createTask(ctx context.Context, t wizard.TaskDraft) (id, url string, err error) {
	req := yougile.TaskCreate{
		Title:       t.Title,
		ColumnID:    t.ColumnID,
		Description: e.creatorNote(ctx, t.Owner),
	}
	if t.AssigneeID != "" {
		req.Assigned = []string{t.AssigneeID}
	}
	if !t.Deadline.IsNone() {
		req.Deadline = &yougile.TaskDeadline{Deadline: t.Deadline.NoonUTC().UnixMilli()}
	}

	id, err = e.tracker.CreateTask(ctx, req)
	if err != nil {
		return "", "", err
	}

	// The link needs the task number, which only the created task carries.
	var number string
	if task, err := e.tracker.GetTask(ctx, id); err != nil {
		e.logger.Warn("fetching created task failed", "task", id, "error", err)
	} else {
		number = task.Number()
	}
	return id, yougile.TaskLink(e.cfg.TrackerHost, e.cfg.TeamID, t.ProjectTitle, number), nil
}

// creatorNote is the initial task description naming the chat user.
func (e *Engine) creatorNote(ctx context.Context, userID string) string {
	user, err := e.chat.GetUser(ctx, userID)
	if err != nil {
		e.logger.Warn("fetching task creator failed", "user", userID, "error", err)
		return msgCreatedFromChat
	}
	return fmt.Sprintf("%s пользователем %s (@%s)", msgCreatedFromChat, user.FullName(), user.Username)
}

// appendComment adds a chat message to the end of the task description.
func (e *Engine) appendComment(ctx context.Context, c wizard.AppendComment) error {
	author := c.Author
	if user, err := e.chat.GetUser(ctx, c.Author); err == nil {
		author = user.FullName()
	}

	block, err := e.formatComment(author, c.At, c.Text)
	if err != nil {
		return err
	}

	task, err := e.tracker.GetTask(ctx, c.TaskID)
	if err != nil {
		return err
	}
	return e.tracker.UpdateTaskDescription(ctx, c.TaskID, task.Description+block)
}
