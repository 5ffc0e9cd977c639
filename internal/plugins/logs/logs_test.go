package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugin/plugintest"
)

func loadWithFile(t *testing.T, content *string) *plugintest.Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.log")
	if content != nil {
		require.NoError(t, os.WriteFile(path, []byte(*content), 0o600))
	}
	return plugintest.Load(t, Name, New, plugintest.WithConfig(func(c *config.Config) {
		c.Logger.File = path
	}))
}

func replies(env *plugintest.Env) []string {
	var out []string
	for _, c := range env.Server.Calls("sendMessage") {
		out = append(out, c.Params["text"])
	}
	return out
}

func TestSendLogs(t *testing.T) {
	t.Parallel()
	content := "level=INFO msg=\"Bot started\"\nlevel=ERROR msg=\"a < b\"\n"
	env := loadWithFile(t, &content)

	env.Dispatch(plugintest.Message(plugintest.OwnerID, plugintest.OwnerID, "/sendlogs"))

	want := []string{header + "<pre>level=INFO msg=&#34;Bot started&#34;\nlevel=ERROR msg=&#34;a &lt; b&#34;\n</pre>"}
	if diff := cmp.Diff(want, replies(env)); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestSendLogsEdgeCases(t *testing.T) {
	t.Parallel()
	empty := "  \n"

	tests := []struct {
		name    string
		content *string
		userID  int64
		want    string
	}{
		{name: "not owner", content: &empty, userID: plugintest.UserID, want: plugin.MsgOwnerOnly},
		{name: "empty file", content: &empty, userID: plugintest.OwnerID, want: msgEmpty},
		{name: "missing file", userID: plugintest.OwnerID, want: "⚠️ Failed to read logs: failed to open log file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := loadWithFile(t, tt.content)
			env.Dispatch(plugintest.Message(tt.userID, tt.userID, "/sendlogs"))

			got := replies(env)
			require.Len(t, got, 1)
			assert.True(t, strings.HasPrefix(got[0], tt.want), got[0])
		})
	}
}

func TestFileLoggingDisabled(t *testing.T) {
	t.Parallel()
	env := plugintest.Load(t, Name, New)

	env.Dispatch(plugintest.Message(plugintest.OwnerID, plugintest.OwnerID, "/sendlogs"))

	assert.Equal(t, []string{msgNoFile}, replies(env))
}

func TestTailStartsAtLineBoundary(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot.log")
	require.NoError(t, os.WriteFile(path, []byte("first line\nsecond line\nthird\n"), 0o600))

	got, err := readTail(path, 15)
	require.NoError(t, err)
	assert.Equal(t, "third\n", got)

	got, err = readTail(path, 1000)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\nthird\n", got)
}

func TestChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "fits", text: "abc", size: 10, want: []string{"abc"}},
		{name: "split", text: "abcdef", size: 4, want: []string{"abcd", "ef"}},
		{name: "escape sequences stay whole", text: "a<b", size: 4, want: []string{"a", "&lt;", "b"}},
		{name: "multibyte runes stay whole", text: "ééé", size: 5, want: []string{"éé", "é"}},
		{name: "empty", text: "", size: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Chunks(tt.text, tt.size))
		})
	}
}
