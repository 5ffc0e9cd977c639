package sample

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func TestSampleAndLog(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/samplelog"))
	reply, ok := env.Server.Last("sendMessage")
	require.True(t, ok)
	assert.Equal(t, msgNoEntries, reply.Params["text"])

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/sample"))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, "✅ Sample stored for User.\n📝 Message: No message", reply.Params["text"])

	for i := 1; i <= 3; i++ {
		env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, fmt.Sprintf("/sample note <%d>", i)))
	}
	env.Dispatch(plugintest.Message(plugintest.UserID, plugintest.UserID, "/sample elsewhere"))

	env.Dispatch(plugintest.Message(plugintest.GroupID, plugintest.UserID, "/samplelog"))
	reply, _ = env.Server.Last("sendMessage")
	assert.Equal(t, "👤 User → note &lt;3&gt;\n\n👤 User → note &lt;2&gt;\n\n👤 User → note &lt;1&gt;", reply.Params["text"])
}
