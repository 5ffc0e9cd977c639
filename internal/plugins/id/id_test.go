package id

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	chat := models.Chat{ID: -100, Type: models.ChatTypeSupergroup}
	tests := []struct {
		name string
		msg  *models.Message
		want string
	}{
		{
			name: "chat",
			msg:  &models.Message{Chat: chat},
			want: "💬 This chat's ID: <code>-100</code>",
		},
		{
			name: "reply",
			msg: &models.Message{Chat: chat, ReplyToMessage: &models.Message{
				From: &models.User{ID: 5, FirstName: "Ann", LastName: "Lee"},
			}},
			want: "👤 Replied to user:\nName: <code>Ann Lee</code>\nID: <code>5</code>",
		},
		{
			name: "forwarded from channel",
			msg: &models.Message{Chat: chat, ReplyToMessage: &models.Message{
				From: &models.User{ID: 5},
				ForwardOrigin: &models.MessageOrigin{
					MessageOriginChannel: &models.MessageOriginChannel{Chat: models.Chat{ID: -200, Title: "News"}},
				},
			}},
			want: "📢 Forwarded from channel:\nName: <code>News</code>\nID: <code>-200</code>",
		},
		{
			name: "forwarded from user",
			msg: &models.Message{Chat: chat, ReplyToMessage: &models.Message{
				From: &models.User{ID: 5},
				ForwardOrigin: &models.MessageOrigin{
					MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 9, Username: "bob"}},
				},
			}},
			want: "👤 Forwarded from user:\nName: <code>bob</code>\nID: <code>9</code>",
		},
		{
			name: "no sender",
			msg:  &models.Message{Chat: chat, ReplyToMessage: &models.Message{}},
			want: "⚠️ Couldn't extract any ID from the message.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Describe(tt.msg))
		})
	}
}

func TestIDCommand(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/id"))

	reply, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	assert.Contains(t, reply.Params["text"], "-100100")
}
