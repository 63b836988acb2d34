// ABOUTME: REST client for the Mattermost API v4 built on the model package's Client4.
// ABOUTME: Posts and patches messages, adds reactions, looks up users and channels.

package mattermost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"
)

// APIError is a non-2xx response from the chat server.
type APIError struct {
	StatusCode int
	ID         string
	Message    string
}

func (e *APIError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("mattermost returned status %d: %s (%s)", e.StatusCode, e.Message, e.ID)
	}
	return fmt.Sprintf("mattermost returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the REST API as the bot user.
type Client struct {
	baseURL string
	token   string
	api     *model.Client4
	logger  *slog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	api := model.NewAPIv4Client(baseURL)
	api.SetToken(token)
	return &Client{
		baseURL: baseURL,
		token:   token,
		api:     api,
		logger:  logger.With("component", "mattermost"),
	}
}

// Me returns the bot's own user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	u, resp, err := c.api.GetMe(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("getting bot user: %w", apiError(resp, err))
	}
	return fromModelUser(u), nil
}

// GetUser returns a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	u, resp, err := c.api.GetUser(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, apiError(resp, err))
	}
	return fromModelUser(u), nil
}

// GetChannel returns a channel by id.
func (c *Client) GetChannel(ctx context.Context, id string) (*Channel, error) {
	ch, resp, err := c.api.GetChannel(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("getting channel %s: %w", id, apiError(resp, err))
	}
	return &Channel{
		ID:          ch.Id,
		TeamID:      ch.TeamId,
		Type:        string(ch.Type),
		Name:        ch.Name,
		DisplayName: ch.DisplayName,
	}, nil
}

// CreatePost publishes a post and returns it with its id.
func (c *Client) CreatePost(ctx context.Context, p *Post) (*Post, error) {
	created, resp, err := c.api.CreatePost(ctx, toModelPost(p))
	if err != nil {
		return nil, fmt.Errorf("creating post in %s: %w", p.ChannelID, apiError(resp, err))
	}
	return fromModelPost(created), nil
}

// PatchPost updates selected fields of a post.
func (c *Client) PatchPost(ctx context.Context, id string, patch PostPatch) (*Post, error) {
	mp := &model.PostPatch{Message: patch.Message}
	if patch.Props != nil {
		props := model.StringInterface(patch.Props)
		mp.Props = &props
	}
	updated, resp, err := c.api.PatchPost(ctx, id, mp)
	if err != nil {
		return nil, fmt.Errorf("patching post %s: %w", id, apiError(resp, err))
	}
	return fromModelPost(updated), nil
}

// AddReaction reacts to a post as userID.
func (c *Client) AddReaction(ctx context.Context, userID, postID, emoji string) error {
	_, resp, err := c.api.SaveReaction(ctx, &model.Reaction{
		UserId:    userID,
		PostId:    postID,
		EmojiName: emoji,
	})
	if err != nil {
		return fmt.Errorf("adding reaction to %s: %w", postID, apiError(resp, err))
	}
	return nil
}

// WebSocketURL returns the ws(s) base URL of the server. The event stream
// appends the API path itself.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Token returns the bot token, used to authenticate the event stream.
func (c *Client) Token() string {
	return c.token
}

// apiError maps a failed Client4 call onto APIError when the server answered.
func apiError(resp *model.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	var appErr *model.AppError
	if errors.As(err, &appErr) {
		if status == 0 {
			status = appErr.StatusCode
		}
		if status != 0 {
			return &APIError{StatusCode: status, ID: appErr.Id, Message: appErr.Message}
		}
	}
	if status != 0 {
		return &APIError{StatusCode: status, Message: err.Error()}
	}
	return err
}

func fromModelUser(u *model.User) *User {
	return &User{
		ID:        u.Id,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Nickname:  u.Nickname,
		Email:     u.Email,
	}
}

func toModelPost(p *Post) *model.Post {
	mp := &model.Post{
		Id:        p.ID,
		ChannelId: p.ChannelID,
		RootId:    p.RootID,
		UserId:    p.UserID,
		Message:   p.Message,
		Type:      p.Type,
		CreateAt:  p.CreateAt,
	}
	if p.Props != nil {
		mp.SetProps(model.StringInterface(p.Props))
	}
	return mp
}

func fromModelPost(mp *model.Post) *Post {
	p := &Post{
		ID:        mp.Id,
		ChannelID: mp.ChannelId,
		RootID:    mp.RootId,
		UserID:    mp.UserId,
		Message:   mp.Message,
		Type:      mp.Type,
		CreateAt:  mp.CreateAt,
	}
	if props := mp.GetProps(); len(props) > 0 {
		p.Props = map[string]any(props)
	}
	return p
}
