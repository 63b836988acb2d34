// ABOUTME: HTTP client for the YouGile REST API v2.
// ABOUTME: Lists projects/boards/columns/users and creates and updates tasks.

package yougile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const pageLimit = 1000

// APIError is a non-2xx response from YouGile.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yougile returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one YouGile company.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. baseURL is e.g. https://ru.yougile.com/api-v2.
// Per-call deadlines come from the caller's context.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
		logger:  logger.With("component", "yougile"),
	}
}

// ListProjects returns all non-deleted projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	all, err := list[Project](ctx, c, "/projects", nil)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	out := all[:0]
	for _, p := range all {
		if !p.Deleted {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListBoards returns the non-deleted boards of a project.
func (c *Client) ListBoards(ctx context.Context, projectID string) ([]Board, error) {
	all, err := list[Board](ctx, c, "/boards", url.Values{"projectId": {projectID}})
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	out := all[:0]
	for _, b := range all {
		if !b.Deleted {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListColumns returns the non-deleted columns of a board.
func (c *Client) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	all, err := list[Column](ctx, c, "/columns", url.Values{"boardId": {boardID}})
	if err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}
	out := all[:0]
	for _, col := range all {
		if !col.Deleted {
			out = append(out, col)
		}
	}
	return out, nil
}

// ListUsers returns company users, limited to a project's members when
// projectID is set.
func (c *Client) ListUsers(ctx context.Context, projectID string) ([]User, error) {
	var q url.Values
	if projectID != "" {
		q = url.Values{"projectId": {projectID}}
	}
	users, err := list[User](ctx, c, "/users", q)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// CreateTask creates a task and returns its id.
func (c *Client) CreateTask(ctx context.Context, req TaskCreate) (string, error) {
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, req, &resp); err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("creating task: empty id in response")
	}
	c.logger.Info("created task", "task", resp.ID, "column", req.ColumnID)
	return resp.ID, nil
}

// GetTask fetches a task.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// UpdateTaskDescription replaces a task's description.
func (c *Client) UpdateTaskDescription(ctx context.Context, id, description string) error {
	body := map[string]string{"description": description}
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, body, nil); err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return nil
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	var out []T
	offset := 0
	for {
		params := url.Values{}
		for k, v := range q {
			params[k] = v
		}
		params.Set("limit", strconv.Itoa(pageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var p page[T]
		if err := c.do(ctx, http.MethodGet, path, params, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Content...)
		if !p.Paging.Next || len(p.Content) == 0 {
			return out, nil
		}
		offset += len(p.Content)
	}
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// handleErrorResponse extracts the error message from non-2xx responses.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		if errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
