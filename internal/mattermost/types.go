// ABOUTME: Mattermost API v4 types used by the bot: posts, users, channels,
// ABOUTME: message attachments with interactive actions, and websocket events.

package mattermost

import (
	"encoding/json"
	"strings"
)

// Post types the bot reacts to besides plain messages.
const (
	PostTypeAddToChannel      = "system_add_to_channel"
	PostTypeRemoveFromChannel = "system_remove_from_channel"
)

// Channel types.
const (
	ChannelTypeDirect = "D"
	ChannelTypeGroup  = "G"
)

// Post is a chat message.
type Post struct {
	ID        string         `json:"id,omitempty"`
	ChannelID string         `json:"channel_id"`
	RootID    string         `json:"root_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Message   string         `json:"message"`
	Type      string         `json:"type,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	CreateAt  int64          `json:"create_at,omitempty"`
}

// ThreadID returns the id of the thread's root post.
func (p *Post) ThreadID() string {
	if p.RootID != "" {
		return p.RootID
	}
	return p.ID
}

// StringProp returns a string-valued prop, or "".
func (p *Post) StringProp(name string) string {
	v, _ := p.Props[name].(string)
	return v
}

// SetAttachments replaces the post's attachments.
func (p *Post) SetAttachments(atts []Attachment) {
	if p.Props == nil {
		p.Props = map[string]any{}
	}
	p.Props["attachments"] = atts
}

// PostPatch is the body of PUT /posts/{id}/patch.
type PostPatch struct {
	Message *string        `json:"message,omitempty"`
	Props   map[string]any `json:"props,omitempty"`
}

// User is a chat user.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
}

// FullName returns "First Last", falling back to the nickname or username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Channel is a chat channel.
type Channel struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Attachment is a message attachment; cards are attachments with actions.
type Attachment struct {
	Fallback string   `json:"fallback,omitempty"`
	Color    string   `json:"color,omitempty"`
	Pretext  string   `json:"pretext,omitempty"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text,omitempty"`
	Actions  []Action `json:"actions,omitempty"`
}

// Action is a button or a select menu on an attachment.
type Action struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        string       `json:"type"` // "button" or "select"
	Style       string       `json:"style,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Integration *Integration `json:"integration,omitempty"`
}

// Option is an entry of a select action.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Integration tells the server where to post the click and what context to send.
type Integration struct {
	URL     string         `json:"url"`
	Context map[string]any `json:"context,omitempty"`
}

// ActionRequest is what the server posts to an integration URL.
type ActionRequest struct {
	UserID     string         `json:"user_id"`
	UserName   string         `json:"user_name"`
	ChannelID  string         `json:"channel_id"`
	TeamID     string         `json:"team_id"`
	PostID     string         `json:"post_id"`
	TriggerID  string         `json:"trigger_id"`
	Type       string         `json:"type"`
	DataSource string         `json:"data_source"`
	Context    map[string]any `json:"context"`
}

// ContextString returns a string value from the request context.
// Select options may arrive as a plain value or as {"value": ...}.
func (r *ActionRequest) ContextString(name string) string {
	switch v := r.Context[name].(type) {
	case string:
		return v
	case map[string]any:
		s, _ := v["value"].(string)
		return s
	}
	return ""
}

// ActionResponse is the reply to an ActionRequest.
type ActionResponse struct {
	Update        *PostPatch `json:"update,omitempty"`
	EphemeralText string     `json:"ephemeral_text,omitempty"`
}

// Event is a websocket event envelope.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Broadcast json.RawMessage `json:"broadcast,omitempty"`
	Seq       int64           `json:"seq"`

	// Replies to client requests carry status instead of event.
	Status   string `json:"status,omitempty"`
	SeqReply int64  `json:"seq_reply,omitempty"`
}

// PostedData is the data of a "posted" event. Post is itself JSON-encoded.
type PostedData struct {
	ChannelType string `json:"channel_type"`
	SenderName  string `json:"sender_name"`
	Post        string `json:"post"`
	Mentions    string `json:"mentions,omitempty"`
}

// DecodePost decodes the embedded post.
func (d *PostedData) DecodePost() (*Post, error) {
	var p Post
	if err := json.Unmarshal([]byte(d.Post), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Mentioned reports whether userID is in the event's mention list.
func (d *PostedData) Mentioned(userID string) bool {
	if d.Mentions == "" {
		return false
	}
	var ids []string
	if err := json.Unmarshal([]byte(d.Mentions), &ids); err != nil {
		return false
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
