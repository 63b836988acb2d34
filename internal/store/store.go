// ABOUTME: Store interface and data types for taskbridge persistence
// ABOUTME: Defines ChannelDefault and the ChannelDefaults interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ChannelDefault is the project new tasks in a channel start from
type ChannelDefault struct {
	ChannelID    string
	ProjectID    string
	ProjectTitle string
	SetBy        string // chat user id of whoever chose the project
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChannelDefaults persists per-channel default projects
type ChannelDefaults interface {
	// GetChannelDefault returns ErrNotFound if the channel has no default.
	GetChannelDefault(ctx context.Context, channelID string) (*ChannelDefault, error)
	// SetChannelDefault creates or replaces the channel's default.
	SetChannelDefault(ctx context.Context, d *ChannelDefault) error
	// DeleteChannelDefault returns ErrNotFound if the channel has no default.
	DeleteChannelDefault(ctx context.Context, channelID string) error
	ListChannelDefaults(ctx context.Context) ([]*ChannelDefault, error)
}
