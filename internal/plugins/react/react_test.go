package react

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func TestReact(t *testing.T) {
	t.Parallel()

	author := models.User{ID: 50, FirstName: "Poster"}
	tests := []struct {
		name      string
		update    *models.Update
		wantEmoji string
		wantReply string
	}{
		{name: "default", update: plugintest.Reply(plugintest.GroupID, plugintest.UserID, "/react", author), wantEmoji: "🔥", wantReply: "✅ Reacted with 🔥"},
		{name: "custom", update: plugintest.Reply(plugintest.GroupID, plugintest.UserID, "/react 👍", author), wantEmoji: "👍", wantReply: "✅ Reacted with 👍"},
		{name: "no reply", update: plugintest.Message(plugintest.GroupID, plugintest.UserID, "/react"), wantReply: msgNeedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := plugintest.Load(t, Name, New)

			env.Dispatch(tt.update)

			reply, ok := env.Server.Last("sendMessage")
			require.True(t, ok)
			assert.Equal(t, tt.wantReply, reply.Params["text"])

			call, reacted := env.Server.Last("setMessageReaction")
			if tt.wantEmoji == "" {
				assert.False(t, reacted)
				return
			}
			require.True(t, reacted)
			assert.Equal(t, "9", call.Params["message_id"])
			var reaction []map[string]any
			require.NoError(t, call.JSON("reaction", &reaction))
			require.Len(t, reaction, 1)
			assert.Equal(t, "emoji", reaction[0]["type"])
			assert.Equal(t, tt.wantEmoji, reaction[0]["emoji"])
		})
	}
}

func TestReactFailureIsReported(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)
	env.Server.Fail("setMessageReaction", "Bad Request: REACTION_INVALID")

	env.Dispatch(plugintest.Reply(plugintest.GroupID, plugintest.UserID, "/react", models.User{ID: 50}))

	reply, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	assert.Contains(t, reply.Params["text"], "Failed to react")
}
