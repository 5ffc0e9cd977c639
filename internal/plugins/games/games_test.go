package games

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

// gameMessageID is the ID the fake server gives the first bot message.
const gameMessageID = 1001

type fixture struct {
	env *plugintest.Env
	now time.Time
}

func load(t *testing.T, intn func(int) int) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.env = plugintest.Load(t, Name, func(d plugin.Deps) (plugin.Plugin, error) {
		p, err := New(d)
		if err != nil {
			return nil, err
		}
		p.(*Plugin).intn = intn
		p.(*Plugin).now = func() time.Time { return f.now }
		return p, nil
	})
	return f
}

func first(int) int { return 0 }

func highest(n int) int { return n - 1 }

func lastText(t *testing.T, env *plugintest.Env, method string) string {
	t.Helper()
	call, ok := env.Server.Last(method)
	require.True(t, ok, "%s not called", method)
	return call.Params["text"]
}

func TestTrivia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "correct", data: "trivia_2", want: "✅ <b>Correct!</b>\n\n<b>Answer:</b> Paris"},
		{name: "wrong", data: "trivia_0", want: "❌ <b>Wrong!</b>\n\n<b>Your answer:</b> London\n<b>Correct answer:</b> Paris"},
		{name: "cancel", data: "trivia_cancel", want: "❌ Trivia cancelled."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := load(t, first)
			env := f.env

			env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/trivia"))
			reply, ok := env.Server.Last("sendMessage")
			require.True(t, ok)
			assert.Contains(t, reply.Params["text"], "What is the capital of France?")
			var markup models.InlineKeyboardMarkup
			require.NoError(t, reply.JSON("reply_markup", &markup))
			require.Len(t, markup.InlineKeyboard, 5)
			assert.Equal(t, "C. Paris", markup.InlineKeyboard[2][0].Text)

			env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, gameMessageID, tt.data))
			assert.Equal(t, tt.want, lastText(t, env, "editMessageText"))

			env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, gameMessageID, "trivia_2"))
			assert.Equal(t, msgGameGone, lastText(t, env, "editMessageText"), "finished games ignore buttons")
		})
	}
}

func TestOnlyPlayerCanPress(t *testing.T) {
	t.Parallel()
	env := load(t, first).env

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/trivia"))
	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.AdminID, gameMessageID, "trivia_2"))

	answer, ok := env.Server.Last("answerCallbackQuery")
	require.True(t, ok)
	assert.Equal(t, msgNotYourGame, answer.Params["text"])
	assert.Empty(t, env.Server.Calls("editMessageText"))

	_, err := env.Store.GetActiveGameByMessage(context.Background(), plugintest.GroupID, gameMessageID)
	assert.NoError(t, err, "game stays active")
}

func TestRiddleHintAndAnswer(t *testing.T) {
	t.Parallel()
	f := load(t, first)
	env := f.env

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/riddle"))
	assert.Contains(t, lastText(t, env, "sendMessage"), "I have keys but no locks.")

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, gameMessageID, "riddle_hint"))
	answer, _ := env.Server.Last("answerCallbackQuery")
	assert.Equal(t, "💡 Hint: You use it to type!", answer.Params["text"])
	assert.Equal(t, "true", answer.Params["show_alert"])

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "piano"))
	assert.Len(t, env.Server.Calls("sendMessage"), 1, "wrong answers are ignored")

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.AdminID, "keyboard"))
	assert.Len(t, env.Server.Calls("sendMessage"), 1, "only the player can answer")

	f.now = f.now.Add(42 * time.Second)
	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "  KeyBoard "))
	text := lastText(t, env, "sendMessage")
	assert.Contains(t, text, "🎉 <b>Correct!</b>")
	assert.Contains(t, text, "<b>Time:</b> 42 seconds")
	assert.Contains(t, text, "(Hint was used)")

	_, err := env.Store.GetActiveGameForPlayer(context.Background(), plugintest.GroupID, plugintest.UserID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestWordGameGiveUp(t *testing.T) {
	t.Parallel()
	env := load(t, first).env

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/wordgame"))
	text := lastText(t, env, "sendMessage")
	assert.Contains(t, text, "Scrambled Word:")
	assert.NotContains(t, text, "GOPHER")

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, gameMessageID, "riddle_giveup"))
	assert.Empty(t, env.Server.Calls("editMessageText"), "buttons of another game type are rejected")

	env.Dispatch(plugintest.Callback(plugintest.GroupID, plugintest.UserID, gameMessageID, "word_giveup"))
	assert.Equal(t, "🔤 <b>Word:</b> GOPHER\n\nBetter luck next time!", lastText(t, env, "editMessageText"))
}

func TestScramble(t *testing.T) {
	t.Parallel()

	for _, w := range words {
		got := scramble(w.Word, first)
		assert.NotEqual(t, w.Word, got)
		assert.ElementsMatch(t, strings.Split(w.Word, ""), strings.Split(got, ""))
	}
	assert.Equal(t, "AA", scramble("AA", first))
}

func TestParseDice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args      []string
		wantCount int
		wantSides int
		wantErr   bool
	}{
		{wantCount: 1, wantSides: 6},
		{args: []string{"3"}, wantCount: 3, wantSides: 6},
		{args: []string{"2", "20"}, wantCount: 2, wantSides: 20},
		{args: []string{"50", "1000"}, wantCount: 10, wantSides: 100},
		{args: []string{"0", "1"}, wantCount: 1, wantSides: 2},
		{args: []string{"x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			t.Parallel()
			count, sides, err := parseDice(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantSides, sides)
		})
	}
}

func TestDiceAndCoin(t *testing.T) {
	t.Parallel()
	env := load(t, highest).env

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/dice 3 10"))
	text := lastText(t, env, "sendMessage")
	assert.Contains(t, text, "3d10")
	assert.Contains(t, text, "<b>Results:</b> 10, 10, 10")
	assert.Contains(t, text, "<b>Total:</b> 30")

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/dice many"))
	assert.Equal(t, msgDiceUsage, lastText(t, env, "sendMessage"))

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/flip"))
	assert.Contains(t, lastText(t, env, "sendMessage"), "Tails")
}

func TestRockPaperScissors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{text: "/rps paper", want: "You win!"},
		{text: "/rps ROCK", want: "It's a tie!"},
		{text: "/rps scissors", want: "I win!"},
		{text: "/rps lizard", want: msgRPSInvalid},
		{text: "/rps", want: "Usage:"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			env := load(t, first).env
			env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, tt.text))
			assert.Contains(t, lastText(t, env, "sendMessage"), tt.want)
		})
	}
}

func TestExpireTask(t *testing.T) {
	t.Parallel()
	f := load(t, first)
	env := f.env
	ctx := context.Background()

	require.NoError(t, env.Store.CreateGame(ctx, &database.Game{
		ChatID: plugintest.GroupID, MessageID: 5, UserID: plugintest.UserID,
		GameType: TypeRiddle, Payload: "{}", StartedAt: f.now.Add(-2 * time.Hour),
	}))
	require.NoError(t, env.Store.CreateGame(ctx, &database.Game{
		ChatID: plugintest.GroupID, MessageID: 6, UserID: plugintest.UserID,
		GameType: TypeRiddle, Payload: "{}", StartedAt: f.now.Add(-time.Minute),
	}))

	require.NoError(t, env.RunTask(t, expireTaskName))

	_, err := env.Store.GetActiveGameByMessage(ctx, plugintest.GroupID, 5)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = env.Store.GetActiveGameByMessage(ctx, plugintest.GroupID, 6)
	assert.NoError(t, err)
}
