// ABOUTME: YouGile REST API v2 request and response types.
// ABOUTME: Only the fields the bot reads or writes are declared.

package yougile

// Project is a YouGile project. Users maps user id to role.
type Project struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Deleted bool              `json:"deleted,omitempty"`
	Users   map[string]string `json:"users,omitempty"`
}

// Board is a board inside a project.
type Board struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ProjectID string `json:"projectId"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Column is a column on a board.
type Column struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	BoardID string `json:"boardId"`
	Deleted bool   `json:"deleted,omitempty"`
}

// User is a company employee.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	RealName string `json:"realName"`
}

// DisplayName returns the real name, falling back to the e-mail.
func (u User) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Email
}

// TaskDeadline is the deadline object of a task. Deadline is Unix milliseconds.
type TaskDeadline struct {
	Deadline int64 `json:"deadline"`
	WithTime bool  `json:"withTime"`
}

// TaskCreate is the body of POST /tasks.
type TaskCreate struct {
	Title       string        `json:"title"`
	ColumnID    string        `json:"columnId"`
	Description string        `json:"description,omitempty"`
	Assigned    []string      `json:"assigned,omitempty"`
	Deadline    *TaskDeadline `json:"deadline,omitempty"`
}

// Task is the subset of GET /tasks/{id} the bot uses.
type Task struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ColumnID      string `json:"columnId"`
	Description   string `json:"description"`
	IDTaskCommon  string `json:"idTaskCommon"`
	IDTaskProject string `json:"idTaskProject"`
}

// Number returns the human task number ("DEV-12"), preferring the
// project-scoped one.
func (t Task) Number() string {
	if t.IDTaskProject != "" {
		return t.IDTaskProject
	}
	return t.IDTaskCommon
}

type idResponse struct {
	ID string `json:"id"`
}

type paging struct {
	Count  int  `json:"count"`
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
	Next   bool `json:"next"`
}

type page[T any] struct {
	Paging  paging `json:"paging"`
	Content []T    `json:"content"`
}
