package getdata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func lastReply(t *testing.T, env *plugintest.Env) string {
	t.Helper()
	call, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	return call.Params["text"]
}

func TestAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chatID int64
		userID int64
		want   string
	}{
		{name: "other chat", chatID: plugintest.GroupID, userID: plugintest.OwnerID, want: plugin.MsgSupportChatOnly},
		{name: "not owner", chatID: plugintest.SupportChatID, userID: plugintest.UserID, want: plugin.MsgOwnerOnly},
		{name: "owner in support chat", chatID: plugintest.SupportChatID, userID: plugintest.OwnerID, want: msgNoKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := plugintest.Load(t, Name, New)
			env.Dispatch(plugintest.Message(tt.chatID, tt.userID, "/keys"))
			assert.Equal(t, tt.want, lastReply(t, env))
		})
	}
}

func TestSetGetAndKeys(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)
	send := func(text string) string {
		env.Dispatch(plugintest.Message(plugintest.SupportChatID, plugintest.OwnerID, text))
		return lastReply(t, env)
	}

	assert.Equal(t, msgSetUsage, send("/setdata lonely"))
	assert.Equal(t, "✅ Stored <code>config</code>.", send(`/setdata config {"mode":"<fast>"}`))
	assert.Equal(t, "✅ Stored <code>motd</code>.", send("/setdata motd hello there"))
	assert.Equal(t, "✅ Stored <code>notes</code>.", send("/setdata notes\nfirst line\nsecond"))

	assert.Equal(t, "🔍 <b>Data for</b> <code>config</code>:\n<pre>{\n  &#34;mode&#34;: &#34;&lt;fast&gt;&#34;\n}</pre>", send("/getdata config"))
	assert.Equal(t, "🔍 <b>Data for</b> <code>motd</code>:\n<pre>hello there</pre>", send("/getdata motd"))
	assert.Equal(t, "❌ No data found for <code>missing</code>", send("/getdata missing"))
	assert.Equal(t, msgGetUsage, send("/getdata"))
	assert.Equal(t, "🔍 <b>Data for</b> <code>notes</code>:\n<pre>first line\nsecond</pre>", send("/getdata notes"))
	assert.Equal(t, "🗂️ <b>Available Keys:</b>\n• <code>config</code>\n• <code>motd</code>\n• <code>notes</code>", send("/keys"))
}

func TestLongValueIsSentAsDocument(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)
	long := strings.Repeat("x", inlineLimit)
	require.NoError(t, env.Store.PutData(context.Background(), "big", long))

	env.Dispatch(plugintest.Message(plugintest.SupportChatID, plugintest.OwnerID, "/getdata big"))

	assert.Empty(t, env.Server.Calls("sendMessage"))
	doc, ok := env.Server.Last("sendDocument")
	require.True(t, ok)
	assert.Equal(t, []byte(long), doc.Files["document"])
	assert.Contains(t, doc.Params["caption"], "<code>big</code>")
}
