package about

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin/plugintest"
	"github.com/edgard/lunabot/internal/plugins/core"
)

func TestAbout(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{"/about", "/info", "/INFO@luna_bot"} {
		t.Run(cmd, func(t *testing.T) {
			t.Parallel()
			env := plugintest.Load(t, Name, New)

			env.Dispatch(plugintest.Message(plugintest.UserID, plugintest.UserID, cmd))

			reply, ok := env.Server.Last("sendMessage")
			require.True(t, ok)
			assert.Contains(t, reply.Params["text"], "<b>About Luna</b>")
			var markup models.InlineKeyboardMarkup
			require.NoError(t, reply.JSON("reply_markup", &markup))
			assert.Equal(t, core.DataMainMenu, markup.InlineKeyboard[0][0].CallbackData)
			assert.Equal(t, 0, env.Catalog.Len())
		})
	}
}
