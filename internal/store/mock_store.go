// ABOUTME: Mock ChannelDefaults implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory ChannelDefaults implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	defaults map[string]*ChannelDefault // keyed by channel ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{defaults: make(map[string]*ChannelDefault)}
}

// GetChannelDefault returns a copy of the channel's default.
func (m *MockStore) GetChannelDefault(ctx context.Context, channelID string) (*ChannelDefault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.defaults[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

// SetChannelDefault stores a copy of d, keeping the original CreatedAt on replace.
func (m *MockStore) SetChannelDefault(ctx context.Context, d *ChannelDefault) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *d
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	if prev, ok := m.defaults[c.ChannelID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	m.defaults[c.ChannelID] = &c
	return nil
}

// DeleteChannelDefault removes the channel's default.
func (m *MockStore) DeleteChannelDefault(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.defaults[channelID]; !ok {
		return ErrNotFound
	}
	delete(m.defaults, channelID)
	return nil
}

// ListChannelDefaults returns all defaults ordered by channel ID.
func (m *MockStore) ListChannelDefaults(ctx context.Context) ([]*ChannelDefault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ChannelDefault, 0, len(m.defaults))
	for _, d := range m.defaults {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

// Ensure MockStore implements ChannelDefaults interface
var _ ChannelDefaults = (*MockStore)(nil)
