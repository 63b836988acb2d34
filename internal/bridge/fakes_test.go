// ABOUTME: In-memory fakes of the chat and tracker clients for bridge tests.
// ABOUTME: Also builds websocket events and card callbacks like the chat server.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/taskbridge/internal/auth"
	"github.com/2389/taskbridge/internal/dedupe"
	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
	"github.com/2389/taskbridge/internal/yougile"
)

const (
	testBotID   = "bot1"
	testOwner   = "u1"
	testChannel = "ch1"
)

var msk = time.FixedZone("MSK", 3*60*60)

type patchCall struct {
	PostID string
	Patch  mattermost.PostPatch
}

type reaction struct {
	UserID, PostID, Emoji string
}

type fakeChat struct {
	mu        sync.Mutex
	nextID    int
	posts     []*mattermost.Post
	patches   []patchCall
	reactions []reaction
	users     map[string]*mattermost.User
	channels  map[string]*mattermost.Channel
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		users: map[string]*mattermost.User{
			testOwner: {ID: testOwner, Username: "ivan", FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com"},
		},
		channels: map[string]*mattermost.Channel{
			testChannel: {ID: testChannel, Name: "dev", DisplayName: "Разработка"},
		},
	}
}

func (f *fakeChat) GetUser(_ context.Context, id string) (*mattermost.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, &mattermost.APIError{StatusCode: 404, Message: "user not found"}
	}
	c := *u
	return &c, nil
}

func (f *fakeChat) GetChannel(_ context.Context, id string) (*mattermost.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, &mattermost.APIError{StatusCode: 404, Message: "channel not found"}
	}
	c := *ch
	return &c, nil
}

func (f *fakeChat) CreatePost(_ context.Context, p *mattermost.Post) (*mattermost.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *p
	c.ID = fmt.Sprintf("bp%d", f.nextID)
	c.UserID = testBotID
	f.posts = append(f.posts, &c)
	return &c, nil
}

func (f *fakeChat) PatchPost(_ context.Context, id string, patch mattermost.PostPatch) (*mattermost.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{PostID: id, Patch: patch})
	return &mattermost.Post{ID: id}, nil
}

func (f *fakeChat) AddReaction(_ context.Context, userID, postID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, reaction{userID, postID, emoji})
	return nil
}

// messages returns the text of every post made so far.
func (f *fakeChat) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.posts {
		out = append(out, p.Message)
	}
	return out
}

// lastCard returns the most recent post carrying actions.
func (f *fakeChat) lastCard(t *testing.T) *mattermost.Post {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.posts) - 1; i >= 0; i-- {
		if len(cardActions(f.posts[i])) > 0 {
			return f.posts[i]
		}
	}
	t.Fatal("no card posted")
	return nil
}

func (f *fakeChat) lastPatch(t *testing.T) patchCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.patches)
	return f.patches[len(f.patches)-1]
}

func cardActions(p *mattermost.Post) []mattermost.Action {
	atts, _ := p.Props["attachments"].([]mattermost.Attachment)
	var actions []mattermost.Action
	for _, a := range atts {
		actions = append(actions, a.Actions...)
	}
	return actions
}

func findAction(t *testing.T, p *mattermost.Post, id string) mattermost.Action {
	t.Helper()
	for _, a := range cardActions(p) {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("card %s has no action %q", p.ID, id)
	return mattermost.Action{}
}

type fakeTracker struct {
	mu        sync.Mutex
	projects  []yougile.Project
	boards    map[string][]yougile.Board
	columns   map[string][]yougile.Column
	users     map[string][]yougile.User
	tasks     map[string]*yougile.Task
	created   []yougile.TaskCreate
	createErr error
	listErr   error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		projects: []yougile.Project{
			{ID: "p1", Title: "Мобильное приложение", Users: map[string]string{"y1": "admin"}},
			{ID: "p2", Title: "Сайт", Users: map[string]string{"y2": "worker"}},
		},
		boards: map[string][]yougile.Board{
			"p1": {{ID: "b1", Title: "Разработка", ProjectID: "p1"}},
			"p2": {{ID: "b2", Title: "Контент"}, {ID: "b3", Title: "Вёрстка"}},
		},
		columns: map[string][]yougile.Column{
			"b1": {{ID: "c1", Title: "Бэклог"}, {ID: "c2", Title: "В работе"}},
		},
		users: map[string][]yougile.User{
			"p1": {{ID: "y1", RealName: "Иван Петров", Email: "ivan@example.com"}, {ID: "y3", Email: "anna@example.com"}},
			"":   {{ID: "y1", Email: "Ivan@Example.com"}, {ID: "y2", Email: "olga@example.com"}},
		},
		tasks: map[string]*yougile.Task{},
	}
}

func (f *fakeTracker) ListProjects(context.Context) ([]yougile.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.projects, nil
}

func (f *fakeTracker) ListBoards(_ context.Context, projectID string) ([]yougile.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boards[projectID], nil
}

func (f *fakeTracker) ListColumns(_ context.Context, boardID string) ([]yougile.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.columns[boardID], nil
}

func (f *fakeTracker) ListUsers(_ context.Context, projectID string) ([]yougile.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[projectID], nil
}

func (f *fakeTracker) CreateTask(_ context.Context, req yougile.TaskCreate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("task-%d", len(f.created))
	f.tasks[id] = &yougile.Task{
		ID:            id,
		Title:         req.Title,
		ColumnID:      req.ColumnID,
		Description:   req.Description,
		IDTaskProject: fmt.Sprintf("MOB-%d", len(f.created)),
	}
	return id, nil
}

func (f *fakeTracker) GetTask(_ context.Context, id string) (*yougile.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, &yougile.APIError{StatusCode: 404, Message: "task not found"}
	}
	c := *t
	return &c, nil
}

func (f *fakeTracker) UpdateTaskDescription(_ context.Context, id, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return errors.New("no such task")
	}
	t.Description = description
	return nil
}

func (f *fakeTracker) description(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].Description
}

type testEnv struct {
	engine   *Engine
	sessions *session.Store
	chat     *fakeChat
	tracker  *fakeTracker
	defaults *store.MockStore
	now      time.Time
	posts    int
	triggers int
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions: session.NewStore(),
		chat:     newFakeChat(),
		tracker:  newFakeTracker(),
		defaults: store.NewMockStore(),
		now:      time.Date(2025, 11, 10, 12, 0, 0, 0, msk),
	}
	cfg := Config{
		BotUserID:      testBotID,
		BotUsername:    "yougile_bot",
		ActionsURL:     "https://bot.example.com/mattermost/actions",
		TrackerHost:    "ru.yougile.com",
		TeamID:         "team42",
		RequestTimeout: time.Second,
		Location:       msk,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	env.engine = New(cfg, Deps{
		Sessions: env.sessions,
		Chat:     env.chat,
		Tracker:  env.tracker,
		Defaults: env.defaults,
		Signer:   auth.NewCardSigner([]byte("test-secret"), time.Hour),
		Seen:     dedupe.New(time.Hour, 1000),
	}, nil)
	env.engine.now = func() time.Time { return env.now }
	env.engine.newID = func() string { return "sess-1" }
	return env
}

// postedEvent builds a websocket "posted" event.
func (env *testEnv) postedEvent(t *testing.T, p mattermost.Post, channelType string, mentions ...string) []byte {
	t.Helper()
	if p.ID == "" {
		env.posts++
		p.ID = fmt.Sprintf("up%d", env.posts)
	}
	if p.ChannelID == "" {
		p.ChannelID = testChannel
	}
	if p.CreateAt == 0 {
		p.CreateAt = env.now.UnixMilli()
	}
	inner, err := json.Marshal(p)
	require.NoError(t, err)

	data := map[string]any{"channel_type": channelType, "post": string(inner)}
	if len(mentions) > 0 {
		m, err := json.Marshal(mentions)
		require.NoError(t, err)
		data["mentions"] = string(m)
	}
	raw, err := json.Marshal(map[string]any{"event": "posted", "data": data, "seq": env.posts})
	require.NoError(t, err)
	return raw
}

// say posts text in the thread rooted at rootID ("" starts a new thread).
func (env *testEnv) say(t *testing.T, user, rootID, text string) string {
	t.Helper()
	env.posts++
	id := fmt.Sprintf("up%d", env.posts)
	raw := env.postedEvent(t, mattermost.Post{ID: id, RootID: rootID, UserID: user, Message: text}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	return id
}

// click sends a callback for action on card as user, with an optional
// selected value for select menus.
func (env *testEnv) click(t *testing.T, card *mattermost.Post, actionID, user, selected string) (CallbackResponse, error) {
	t.Helper()
	return env.engine.HandleCallback(context.Background(), env.clickRequest(t, card, actionID, user, selected))
}

// clickRequest builds the callback body click would send.
func (env *testEnv) clickRequest(t *testing.T, card *mattermost.Post, actionID, user, selected string) []byte {
	t.Helper()
	action := findAction(t, card, actionID)
	ctx := make(map[string]any, len(action.Integration.Context)+1)
	for k, v := range action.Integration.Context {
		ctx[k] = v
	}
	if selected != "" {
		ctx["selected_option"] = selected
	}
	env.triggers++
	req := mattermost.ActionRequest{
		UserID:    user,
		ChannelID: card.ChannelID,
		PostID:    card.ID,
		TriggerID: fmt.Sprintf("trig%d", env.triggers),
		Context:   ctx,
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return raw
}

// patchedCard returns card as it looks after patch.
func patchedCard(card *mattermost.Post, patch patchCall) *mattermost.Post {
	c := *card
	c.Props = patch.Patch.Props
	if patch.Patch.Message != nil {
		c.Message = *patch.Patch.Message
	}
	return &c
}

func (env *testEnv) session(t *testing.T, key session.Key) session.Session {
	t.Helper()
	var got session.Session
	_, err := env.sessions.Update(context.Background(), key, func(s session.Session) (session.Session, error) {
		got = s
		return s, nil
	})
	require.NoError(t, err)
	return got
}
