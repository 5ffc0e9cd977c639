package purge

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func TestSpan(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{3, 4, 5}, span(3, 5))
	assert.Equal(t, []int{3, 4, 5}, span(5, 3))
	assert.Equal(t, []int{7}, span(7, 7))
	assert.Len(t, span(1, 5000), MaxPurge)
}

func load(t *testing.T) *plugintest.Env {
	t.Helper()
	env := plugintest.Load(t, Name, New)
	env.Server.SetMember(plugintest.GroupID, plugintest.AdminID, "administrator", false)
	return env
}

// deleted returns every id sent to deleteMessages.
func deleted(t *testing.T, env *plugintest.Env) []int {
	t.Helper()
	var all []int
	for _, call := range env.Server.Calls("deleteMessages") {
		var ids []int
		require.NoError(t, call.JSON("message_ids", &ids))
		assert.LessOrEqual(t, len(ids), batchSize)
		all = append(all, ids...)
	}
	return all
}

// at sets the command message id and the replied message id.
func at(update *models.Update, id, replyTo int) *models.Update {
	update.Message.ID = id
	if update.Message.ReplyToMessage != nil {
		update.Message.ReplyToMessage.ID = replyTo
	}
	return update
}

func TestPurgeCommands(t *testing.T) {
	t.Parallel()

	author := models.User{ID: 50}
	tests := []struct {
		name      string
		update    *models.Update
		want      []int
		wantReply string
	}{
		{
			name:      "purge up to command",
			update:    at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purge", author), 20, 17),
			want:      []int{17, 18, 19},
			wantReply: "Purged 3 messages.",
		},
		{
			name:      "purge count",
			update:    at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purge 2", author), 40, 10),
			want:      []int{10, 11, 12},
			wantReply: "Purged 3 messages.",
		},
		{
			name:   "silent purge includes command",
			update: at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/spurge", author), 12, 10),
			want:   []int{10, 11, 12},
		},
		{
			name:   "delete one",
			update: at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/del", author), 12, 5),
			want:   []int{5, 12},
		},
		{
			name:      "purge without reply",
			update:    plugintest.Message(plugintest.GroupID, plugintest.AdminID, "/purge"),
			wantReply: msgNeedReply,
		},
		{
			name:      "bad count",
			update:    plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purge x", author),
			wantReply: msgBadCount,
		},
		{
			name:      "not admin",
			update:    plugintest.Reply(plugintest.GroupID, plugintest.UserID, "/purge", author),
			wantReply: plugin.MsgAdminOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := load(t)

			env.Dispatch(tt.update)

			assert.Equal(t, tt.want, deleted(t, env))
			reply, replied := env.Server.Last("sendMessage")
			if tt.wantReply == "" {
				assert.False(t, replied)
				return
			}
			require.True(t, replied)
			assert.Equal(t, tt.wantReply, reply.Params["text"])
		})
	}
}

func TestPurgeFromTo(t *testing.T) {
	t.Parallel()
	env := load(t)
	author := models.User{ID: 50}

	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purgeto", author), 30, 25))
	reply, _ := env.Server.Last("sendMessage")
	assert.Equal(t, msgNoMark, reply.Params["text"])

	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purgefrom", author), 31, 28))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, msgMarked, reply.Params["text"])

	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purgeto", author), 32, 25))
	assert.Equal(t, []int{25, 26, 27, 28}, deleted(t, env))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, "Purged 4 messages.", reply.Params["text"])

	env.Server.Reset()
	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purgeto", author), 33, 25))
	assert.Empty(t, deleted(t, env), "marks are consumed")
}

func TestPurgeBatches(t *testing.T) {
	t.Parallel()
	env := load(t)

	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purge", models.User{ID: 50}), 251, 1))

	assert.Len(t, env.Server.Calls("deleteMessages"), 3)
	assert.Len(t, deleted(t, env), 250)
}

func TestPurgeFailureIsReported(t *testing.T) {
	t.Parallel()
	env := load(t)
	env.Server.Fail("deleteMessages", "Bad Request: message can't be deleted")

	env.Dispatch(at(plugintest.Reply(plugintest.GroupID, plugintest.AdminID, "/purge", models.User{ID: 50}), 20, 17))

	reply, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	assert.Contains(t, reply.Params["text"], "Purge stopped")
}
