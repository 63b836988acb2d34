// ABOUTME: Tests for websocket event intake: command parsing, the menu, replays,
// ABOUTME: direct messages and the channel default-project dialog.

package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/taskbridge/internal/mattermost"
	"github.com/2389/taskbridge/internal/session"
	"github.com/2389/taskbridge/internal/store"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text  string
		kind  commandKind
		title string
	}{
		{"создай задачу Починить вход", commandCreate, "Починить вход"},
		{"Создай  Задачу   отчёт за ноябрь ", commandCreate, "отчёт за ноябрь"},
		{"create task Fix login", commandCreate, "Fix login"},
		{"создай задачу", commandNone, ""},
		{"проект по умолчанию", commandDefaultProject, ""},
		{"Проект  по умолчанию", commandDefaultProject, ""},
		{"привет", commandNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			kind, title := parseCommand(tt.text)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.title, title)
		})
	}
}

func TestHandleMessage_MenuWhenMentionedWithoutCommand(t *testing.T) {
	env := newTestEnv(t)
	root := env.say(t, testOwner, "", "@YouGile_Bot привет")

	require.Len(t, env.chat.posts, 1)
	menu := env.chat.posts[0]
	assert.Equal(t, root, menu.RootID)
	assert.Equal(t, msgMenu, menu.Message)

	var ids []string
	for _, a := range cardActions(menu) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"menucreate", "menushortcuts", "menudefault", "menuclose"}, ids)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestHandleMessage_IgnoresUnaddressedChatter(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, testOwner, "", "создай задачу без упоминания")
	assert.Empty(t, env.chat.posts)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestHandleMessage_IgnoresOwnPostsAndReplays(t *testing.T) {
	env := newTestEnv(t)

	own := env.postedEvent(t, mattermost.Post{UserID: testBotID, Message: "@yougile_bot создай задачу X"}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), own))
	assert.Equal(t, 0, env.sessions.Len())

	raw := env.postedEvent(t, mattermost.Post{ID: "dup", UserID: testOwner, Message: "@yougile_bot создай задачу X"}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	n := len(env.chat.posts)
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	assert.Len(t, env.chat.posts, n)
	assert.Equal(t, 1, env.sessions.Len())
}

func TestHandleMessage_IgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.engine.HandleMessage(context.Background(), []byte(`{"event":"typing","data":{}}`)))
	require.NoError(t, env.engine.HandleMessage(context.Background(), []byte(`{"status":"OK","seq_reply":1}`)))
	assert.Error(t, env.engine.HandleMessage(context.Background(), []byte(`not json`)))
}

func TestHandleMessage_MentionListAndDirectMessage(t *testing.T) {
	env := newTestEnv(t)

	// Mentioned through the event's mention list rather than the text.
	raw := env.postedEvent(t, mattermost.Post{ID: "m1", UserID: testOwner, Message: "создай задачу Через список"}, "O", testBotID)
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	assert.True(t, env.sessions.Exists(session.Key{ChannelID: testChannel, RootID: "m1"}))

	raw = env.postedEvent(t, mattermost.Post{ID: "d1", ChannelID: "dm1", UserID: testOwner, Message: "создай задачу В личке"}, mattermost.ChannelTypeDirect)
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	assert.True(t, env.sessions.Exists(session.Key{ChannelID: "dm1", RootID: "d1"}))
}

func TestHandleMessage_SecondCommandInThreadRejected(t *testing.T) {
	env := newTestEnv(t)
	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Первая")
	key := session.Key{ChannelID: testChannel, RootID: root}

	env.say(t, testOwner, root, "@yougile_bot создай задачу Вторая")
	assert.Contains(t, env.chat.messages(), msgAlreadyRunning)
	assert.Equal(t, 1, env.sessions.Len())
	assert.Equal(t, "Первая", env.session(t, key).Title)
}

func TestHandleMessage_StrayTextGetsHint(t *testing.T) {
	env := newTestEnv(t)
	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")
	env.say(t, testOwner, root, "а какой проект выбрать?")
	assert.Contains(t, env.chat.messages(), "Пожалуйста, выберите вариант в карточке выше или нажмите «Отмена».")
}

func TestHandleMessage_FailedPostCanBeRedelivered(t *testing.T) {
	env := newTestEnv(t)
	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")
	key := session.Key{ChannelID: testChannel, RootID: root}
	raw := env.postedEvent(t, mattermost.Post{ID: "late", RootID: root, UserID: testOwner, Message: "а какой проект?"}, "O")

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.sessions.Update(context.Background(), key, func(s session.Session) (session.Session, error) {
			close(held)
			<-release
			return s, nil
		})
	}()
	<-held

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, env.engine.HandleMessage(ctx, raw), context.Canceled)

	close(release)
	<-done

	hint := "Пожалуйста, выберите вариант в карточке выше или нажмите «Отмена»."
	assert.NotContains(t, env.chat.messages(), hint)
	require.NoError(t, env.engine.HandleMessage(context.Background(), raw))
	assert.Contains(t, env.chat.messages(), hint)
}

func TestHandleMessage_ChannelDefaultPresetsProject(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.defaults.SetChannelDefault(context.Background(), &store.ChannelDefault{
		ChannelID:    testChannel,
		ProjectID:    "p2",
		ProjectTitle: "Старое имя",
	}))

	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")
	s := env.session(t, session.Key{ChannelID: testChannel, RootID: root})
	assert.Equal(t, session.StageAwaitingBoard, s.Stage)
	assert.Equal(t, "p2", s.ProjectID)
	assert.Equal(t, "Сайт", s.ProjectTitle)
	assert.Contains(t, env.chat.messages(), "Проект по умолчанию для этого чата: Сайт")
	assert.Len(t, findAction(t, env.chat.lastCard(t), "select").Options, 2)
}

func TestHandleMessage_StaleChannelDefaultIgnored(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.defaults.SetChannelDefault(context.Background(), &store.ChannelDefault{
		ChannelID: testChannel,
		ProjectID: "deleted-project",
	}))

	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")
	assert.Equal(t, session.StageAwaitingProject, env.session(t, session.Key{ChannelID: testChannel, RootID: root}).Stage)
}

func TestHandleMessage_FilterProjectsByEmail(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.FilterProjectsByEmail = true })
	env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")

	// Only p1 has a member with the owner's e-mail, so it is the only option.
	opts := findAction(t, env.chat.lastCard(t), "select").Options
	require.Len(t, opts, 1)
	assert.Equal(t, "p1", opts[0].Value)
}

func TestHandleMessage_FilterProjectsNoEmail(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.FilterProjectsByEmail = true })
	env.chat.users[testOwner].Email = ""
	root := env.say(t, testOwner, "", "@yougile_bot создай задачу Тест")

	assert.Contains(t, env.chat.messages(), "Не найдено ни одного доступного вам проекта. Создание задачи отменено.")
	assert.False(t, env.sessions.Exists(session.Key{ChannelID: testChannel, RootID: root}))
}

func TestDefaultProject_BotAddedFlow(t *testing.T) {
	env := newTestEnv(t)
	added := env.postedEvent(t, mattermost.Post{
		ID:     "sys1",
		UserID: testOwner,
		Type:   mattermost.PostTypeAddToChannel,
		Props:  map[string]any{"addedUserId": testBotID},
	}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), added))

	prompt := env.chat.lastCard(t)
	assert.Empty(t, prompt.RootID)
	assert.Equal(t, msgDefaultPrompt, prompt.Message)

	// "Yes" turns the prompt into the project picker.
	_, err := env.click(t, prompt, "defaultyes", testOwner, "")
	require.NoError(t, err)
	patch := env.chat.lastPatch(t)
	assert.Equal(t, prompt.ID, patch.PostID)
	assert.Contains(t, *patch.Patch.Message, "Сейчас проект по умолчанию для чата \"Разработка\": не установлен")

	atts := patch.Patch.Props["attachments"].([]mattermost.Attachment)
	picker := &mattermost.Post{ID: prompt.ID, ChannelID: testChannel}
	picker.SetAttachments(atts)
	sel := findAction(t, picker, "defaultset")
	require.Len(t, sel.Options, 3)
	assert.Equal(t, noneOption, sel.Options[0].Value)

	_, err = env.click(t, picker, "defaultset", testOwner, "p1")
	require.NoError(t, err)
	d, err := env.defaults.GetChannelDefault(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, "p1", d.ProjectID)
	assert.Equal(t, "Мобильное приложение", d.ProjectTitle)
	assert.Equal(t, testOwner, d.SetBy)
	assert.Equal(t, "Проект по умолчанию для этого чата установлен: Мобильное приложение", *env.chat.lastPatch(t).Patch.Message)

	// Picking "none" clears it again.
	_, err = env.click(t, picker, "defaultset", testOwner, noneOption)
	require.NoError(t, err)
	_, err = env.defaults.GetChannelDefault(context.Background(), testChannel)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDefaultProject_Declined(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.defaults.SetChannelDefault(context.Background(), &store.ChannelDefault{ChannelID: testChannel, ProjectID: "p1"}))
	added := env.postedEvent(t, mattermost.Post{
		UserID: testOwner,
		Type:   mattermost.PostTypeAddToChannel,
		Props:  map[string]any{"addedUserId": testBotID},
	}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), added))

	_, err := env.click(t, env.chat.lastCard(t), "defaultno", testOwner, "")
	require.NoError(t, err)
	assert.Equal(t, msgDefaultDeclined, *env.chat.lastPatch(t).Patch.Message)
	_, err = env.defaults.GetChannelDefault(context.Background(), testChannel)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDefaultProject_OtherUserAddedIgnored(t *testing.T) {
	env := newTestEnv(t)
	added := env.postedEvent(t, mattermost.Post{
		UserID: testOwner,
		Type:   mattermost.PostTypeAddToChannel,
		Props:  map[string]any{"addedUserId": "someone"},
	}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), added))
	assert.Empty(t, env.chat.posts)
}

func TestDefaultProject_BotRemovedForgetsDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.defaults.SetChannelDefault(context.Background(), &store.ChannelDefault{ChannelID: testChannel, ProjectID: "p1"}))

	removed := env.postedEvent(t, mattermost.Post{
		UserID: testOwner,
		Type:   mattermost.PostTypeRemoveFromChannel,
		Props:  map[string]any{"removedUserId": testBotID},
	}, "O")
	require.NoError(t, env.engine.HandleMessage(context.Background(), removed))

	_, err := env.defaults.GetChannelDefault(context.Background(), testChannel)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDefaultProject_CommandAndKeep(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.defaults.SetChannelDefault(context.Background(), &store.ChannelDefault{
		ChannelID: testChannel, ProjectID: "p2", ProjectTitle: "Сайт",
	}))

	root := env.say(t, testOwner, "", "@yougile_bot проект по умолчанию")
	picker := env.chat.lastCard(t)
	assert.Equal(t, root, picker.RootID)
	assert.Contains(t, picker.Message, ": Сайт")

	_, err := env.click(t, picker, "defaultkeep", testOwner, "")
	require.NoError(t, err)
	assert.Equal(t, msgDefaultKept, *env.chat.lastPatch(t).Patch.Message)

	d, err := env.defaults.GetChannelDefault(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, "p2", d.ProjectID)
}

func TestDefaultProject_ProjectOutsideUserAccess(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.FilterProjectsByEmail = true })
	env.say(t, testOwner, "", "@yougile_bot проект по умолчанию")
	picker := env.chat.lastCard(t)

	resp, err := env.click(t, picker, "defaultset", testOwner, "p2")
	require.NoError(t, err)
	assert.Equal(t, msgDefaultNoAccess, resp.EphemeralText)
	_, err = env.defaults.GetChannelDefault(context.Background(), testChannel)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFormatComment(t *testing.T) {
	env := newTestEnv(t)
	at := time.Date(2025, 11, 10, 9, 5, 0, 0, time.UTC)

	plain, err := env.engine.formatComment("Иван <admin>", at, "строка 1\nстрока & 2")
	require.NoError(t, err)
	assert.Equal(t, "<p><b>Комментарий от Иван &lt;admin&gt; (10.11.2025 12:05 MSK):</b></p>"+
		"<p>строка 1<br>строка &amp; 2</p>", plain)

	env.engine.cfg.Markdown = true
	md, err := env.engine.formatComment("Иван", at, "**важно**\n\n<script>x</script>")
	require.NoError(t, err)
	assert.Contains(t, md, "<p><strong>важно</strong></p>")
	assert.NotContains(t, md, "<script>")
}
