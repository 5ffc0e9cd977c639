package warn

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
	"github.com/edgard/lunabot/internal/telegram/telegramtest"
)

var target = models.User{ID: 77, FirstName: "Troll"}

func load(t *testing.T) *plugintest.Env {
	t.Helper()
	env := plugintest.Load(t, Name, New)
	env.Server.SetMember(plugintest.GroupID, telegramtest.BotUser.ID, "administrator", true)
	env.Server.SetMember(plugintest.GroupID, plugintest.AdminID, "administrator", false)
	return env
}

func undoToken(t *testing.T, env *plugintest.Env) string {
	t.Helper()
	reply, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	var markup models.InlineKeyboardMarkup
	require.NoError(t, reply.JSON("reply_markup", &markup))
	data := markup.InlineKeyboard[0][0].CallbackData
	require.True(t, strings.HasPrefix(data, callbackPrefix), data)
	return strings.TrimPrefix(data, callbackPrefix)
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantAmount int
		wantReason string
		wantErr    bool
	}{
		{name: "empty", wantAmount: 1, wantReason: defaultReason},
		{name: "amount only", args: []string{"2"}, wantAmount: 2, wantReason: defaultReason},
		{name: "amount and reason", args: []string{"2", "spam", "links"}, wantAmount: 2, wantReason: "spam links"},
		{name: "reason only", args: []string{"spam"}, wantAmount: 1, wantReason: "spam"},
		{name: "zero", args: []string{"0"}, wantErr: true},
		{name: "negative", args: []string{"-1", "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			amount, reason, err := parseRequest(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, amount)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestWarnAndUndo(t *testing.T) {
	t.Parallel()
	env := load(t)
	ctx := context.Background()

	env.Dispatch(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn spam", target))

	w, err := env.Store.GetWarn(ctx, plugintest.GroupID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count)
	assert.Equal(t, "spam", w.Reason)

	reply, _ := env.Server.Last("sendMessage")
	assert.Contains(t, reply.Params["text"], "1/3")
	token := undoToken(t, env)

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, 1001, callbackPrefix+token))
	answer, _ := env.Server.Last("answerCallbackQuery")
	assert.Equal(t, msgUndoNotYours, answer.Params["text"])

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.AdminID, 1001, callbackPrefix+token))
	w, err = env.Store.GetWarn(ctx, plugintest.GroupID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Count)
	edit, ok := env.Server.Last("editMessageReplyMarkup")
	require.True(t, ok)
	assert.Contains(t, edit.Params["reply_markup"], labelWarnUndone)

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.AdminID, 1001, callbackPrefix+token))
	answer, _ = env.Server.Last("answerCallbackQuery")
	assert.Equal(t, msgUndoExpired, answer.Params["text"], "tokens are single use")

	env.Server.Reset()
	env.Scheduler.RunAll()
	assert.Empty(t, env.Server.Calls("editMessageReplyMarkup"), "undone warns keep their button")
}

func TestWarnUndoWindowCloses(t *testing.T) {
	t.Parallel()
	env := load(t)
	ctx := context.Background()

	env.Dispatch(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn", target))
	token := undoToken(t, env)

	jobs := env.Scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 60*time.Second, jobs[0].Delay)
	env.Scheduler.RunAll()

	_, err := env.Store.GetWarnUndo(ctx, token)
	assert.ErrorIs(t, err, database.ErrNotFound)
	edit, ok := env.Server.Last("editMessageReplyMarkup")
	require.True(t, ok)
	assert.Contains(t, edit.Params["reply_markup"], labelWarnAdded)
}

func TestWarnLimitBans(t *testing.T) {
	t.Parallel()
	env := load(t)

	env.Dispatch(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn 2 first", target))
	assert.Empty(t, env.Server.Calls("banChatMember"))

	env.Dispatch(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn again", target))
	ban, ok := env.Server.Last("banChatMember")
	require.True(t, ok)
	assert.Equal(t, target.ID, ban.Int64("user_id"))
	reply, _ := env.Server.Last("sendMessage")
	assert.Contains(t, reply.Params["text"], "banned after reaching 3 warnings")
	assert.Len(t, env.Scheduler.Jobs(), 1, "no undo offered for the banning warn")
}

func TestWarnByArgument(t *testing.T) {
	t.Parallel()
	env := load(t)

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.AdminID, "/warn 77 2 flood"))

	w, err := env.Store.GetWarn(context.Background(), plugintest.GroupID, 77)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, "flood", w.Reason)
}

func TestWarnRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *models.Update
		want   string
	}{
		{name: "no target", update: plugintest.Message(plugintest.GroupID, plugintest.AdminID, "/warn"), want: msgNoTarget},
		{name: "the bot", update: plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn", telegramtest.BotUser), want: msgWarnBot},
		{name: "an admin", update: plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn", models.User{ID: plugintest.AdminID}), want: msgWarnAdmin},
		{name: "bad amount", update: plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/warn 0", target), want: msgBadAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := load(t)
			env.Dispatch(tt.update)

			reply, ok := env.Server.Last("sendMessage")
			require.True(t, ok)
			assert.Equal(t, tt.want, reply.Params["text"])
			_, err := env.Store.GetWarn(context.Background(), plugintest.GroupID, target.ID)
			assert.ErrorIs(t, err, database.ErrNotFound)
		})
	}
}

func TestCleanupTask(t *testing.T) {
	t.Parallel()
	env := load(t)
	ctx := context.Background()

	require.True(t, env.HasTask(cleanupTaskName))
	require.NoError(t, env.Store.SaveWarnUndo(ctx, &database.WarnUndo{
		Token: "old", ChatID: plugintest.GroupID, UserID: 1, WarnedBy: 2, Amount: 1,
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}))
	require.NoError(t, env.Store.SaveWarnUndo(ctx, &database.WarnUndo{
		Token: "fresh", ChatID: plugintest.GroupID, UserID: 1, WarnedBy: 2, Amount: 1,
		CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, env.RunTask(t, cleanupTaskName))

	_, err := env.Store.GetWarnUndo(ctx, "old")
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = env.Store.GetWarnUndo(ctx, "fresh")
	assert.NoError(t, err)
}
