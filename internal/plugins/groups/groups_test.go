package groups

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func load(t *testing.T, intn func(int) int) *plugintest.Env {
	t.Helper()
	return plugintest.Load(t, Name, func(d plugin.Deps) (plugin.Plugin, error) {
		p, err := New(d)
		if err != nil {
			return nil, err
		}
		p.(*Plugin).intn = intn
		p.(*Plugin).now = func() time.Time { return fixedNow }
		return p, nil
	})
}

func first(int) int { return 0 }

func last(n int) int { return n - 1 }

func memberUpdate(joined []models.User, left *models.User) *models.Update {
	update := plugintest.Message(plugintest.GroupID, plugintest.UserID, "")
	update.Message.NewChatMembers = joined
	update.Message.LeftChatMember = left
	return update
}

func TestWelcomeAndGoodbye(t *testing.T) {
	t.Parallel()
	env := load(t, first)
	ctx := context.Background()

	env.Dispatch(memberUpdate([]models.User{
		{ID: 50, FirstName: "Ana <3"},
		{ID: 51, IsBot: true, FirstName: "Other Bot"},
		{ID: 52, Username: "noname"},
	}, nil))

	sent := env.Server.Calls("sendMessage")
	require.Len(t, sent, 2, "bots are not greeted")
	assert.Equal(t, "🎉 Welcome Ana &lt;3! Great to have you here!", sent[0].Params["text"])
	assert.Contains(t, sent[0].Params["reply_markup"], "welcome_hi_50")
	assert.Equal(t, "🎉 Welcome noname! Great to have you here!", sent[1].Params["text"])

	env.Dispatch(memberUpdate(nil, &models.User{ID: 50, FirstName: "Ana"}))
	bye, _ := env.Server.Last("sendMessage")
	assert.Equal(t, "👋 Goodbye Ana! Thanks for being part of our community!", bye.Params["text"])

	group, err := env.Store.GetGroup(ctx, plugintest.GroupID)
	require.NoError(t, err)
	assert.Equal(t, 1, group.MemberDelta)
	assert.Equal(t, "Test Group", group.Title)
	assert.True(t, fixedNow.Equal(group.LastActivity))
}

func TestMembersIgnoredInPrivateChats(t *testing.T) {
	t.Parallel()
	env := load(t, first)

	update := plugintest.Message(plugintest.UserID, plugintest.UserID, "")
	update.Message.NewChatMembers = []models.User{{ID: 50, FirstName: "Ana"}}
	env.Dispatch(update)

	assert.Empty(t, env.Server.Calls("sendMessage"))
}

func TestSayHi(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		userID int64
		want   string
	}{
		{name: "newcomer", userID: 50, want: "👋 Thanks for saying hi! Welcome to the group! 🎉"},
		{name: "someone else", userID: plugintest.UserID, want: "👋 Someone said hi to our new member! 🎉"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := load(t, first)
			env.Dispatch(plugintest.Callback(plugintest.GroupID, tt.userID, 1001, "welcome_hi_50"))

			edit, ok := env.Server.Last("editMessageText")
			require.True(t, ok)
			assert.Equal(t, tt.want, edit.Params["text"])
		})
	}
}

func TestTruthOrDare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		intn func(int) int
		data string
		want string
	}{
		{name: "truth", intn: first, data: dataTruth, want: "🤔 <b>Truth Question:</b>\n\n" + "What&#39;s the most embarrassing thing you&#39;ve done in public?"},
		{name: "dare", intn: first, data: dataDare, want: "😈 <b>Dare Challenge:</b>\n\nSend a voice message singing your favorite song"},
		{name: "random picks dare", intn: last, data: dataRandom, want: "😈 <b>Dare Challenge:</b>\n\nSend a voice message in a funny accent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := load(t, tt.intn)

			env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/tod"))
			reply, ok := env.Server.Last("sendMessage")
			require.True(t, ok)
			assert.Contains(t, reply.Params["reply_markup"], dataRandom)

			env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, 1001, tt.data))
			edit, ok := env.Server.Last("editMessageText")
			require.True(t, ok)
			assert.Equal(t, tt.want, edit.Params["text"])
		})
	}
}

func TestEightBallAndFact(t *testing.T) {
	t.Parallel()
	env := load(t, first)

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/8ball"))
	reply, _ := env.Server.Last("sendMessage")
	assert.Equal(t, msg8BallUsage, reply.Params["text"])

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/8ball Will it rain?"))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, "🎱 <b>Magic 8-Ball</b>\n\n<b>Question:</b> Will it rain?\n<b>Answer:</b> 🟢 Yes, definitely!", reply.Params["text"])

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/fact"))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, "🎯 <b>Random Fact:</b>\n\n🐙 Octopuses have three hearts and blue blood!", reply.Params["text"])
}

func TestGroupStats(t *testing.T) {
	t.Parallel()
	env := load(t, first)
	ctx := context.Background()

	_, err := env.Store.AddWarn(ctx, &database.Warn{ChatID: plugintest.GroupID, UserID: 77, Reason: "spam"}, 2)
	require.NoError(t, err)
	env.Dispatch(memberUpdate([]models.User{{ID: 50, FirstName: "Ana"}}, nil))

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/groupstats"))

	reply, _ := env.Server.Last("sendMessage")
	text := reply.Params["text"]
	assert.Contains(t, text, "<b>Group:</b> Test Group")
	assert.Contains(t, text, "<b>Members:</b> 42")
	assert.Contains(t, text, "<b>Total Warnings:</b> 2")
	assert.Contains(t, text, "<b>Member Changes:</b> +1")
	assert.Contains(t, text, "<b>Last Activity:</b> 2024-05-01 12:30")
}

func TestGroupStatsGroupOnly(t *testing.T) {
	t.Parallel()
	env := load(t, first)

	env.Dispatch(plugintest.Message(plugintest.UserID, plugintest.UserID, "/groupstats"))

	reply, _ := env.Server.Last("sendMessage")
	assert.Equal(t, plugin.MsgGroupOnly, reply.Params["text"])
}
