package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, html)
	return n.err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func newTestLogger(buf *bytes.Buffer) (*slog.Logger, *SupportHandler) {
	h := NewSupportHandler(NewHandler(buf, "debug", false), slog.LevelError)
	return slog.New(h), h
}

func TestSupportHandlerForwardsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, h := newTestLogger(&buf)
	n := &recordingNotifier{}
	h.SetNotifier(n)

	log.Info("just info")
	log.With("plugin", "ban").Error("Handler failed", "error", "boom <script>")

	sent := n.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "<b>ERROR</b> Handler failed")
	assert.Contains(t, sent[0], "plugin = ban")
	assert.Contains(t, sent[0], "error = boom &lt;script&gt;")
	assert.Contains(t, buf.String(), "just info")
}

func TestSupportHandlerWithoutNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, _ := newTestLogger(&buf)

	log.Error("nobody listening")
	assert.Contains(t, buf.String(), "nobody listening")
}

func TestSupportHandlerSuppressedContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, h := newTestLogger(&buf)
	n := &recordingNotifier{}
	h.SetNotifier(n)

	log.ErrorContext(WithoutSupport(context.Background()), "local only")
	assert.Empty(t, n.sent())
	assert.Contains(t, buf.String(), "local only")
}

func TestSupportHandlerNotifyFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, h := newTestLogger(&buf)
	h.SetNotifier(&recordingNotifier{err: errors.New("chat not found")})

	log.Error("will not arrive")
	assert.Contains(t, buf.String(), "Failed to forward log record to support chat")
	assert.Contains(t, buf.String(), "chat not found")
}

func TestSupportHandlerGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, h := newTestLogger(&buf)
	n := &recordingNotifier{}
	h.SetNotifier(n)

	log.WithGroup("loader").Error("Plugin failed", "plugin", "calc")

	sent := n.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "loader.plugin = calc")
}

func TestTruncateHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int
		check func(t *testing.T, out string)
	}{
		{
			name:  "short text untouched",
			input: "<b>ERROR</b> x",
			limit: 100,
			check: func(t *testing.T, out string) { assert.Equal(t, "<b>ERROR</b> x", out) },
		},
		{
			name:  "cut inside pre closes it",
			input: "<b>ERROR</b> x\n<pre>" + strings.Repeat("a", 200) + "</pre>",
			limit: 50,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasSuffix(out, "…</pre>"))
				assert.LessOrEqual(t, len([]rune(out)), 50)
			},
		},
		{
			name:  "partial entity dropped",
			input: "<pre>" + strings.Repeat("a", 36) + "&amp;&amp;&amp;&amp;" + "</pre>",
			limit: 50,
			check: func(t *testing.T, out string) {
				body := strings.TrimSuffix(out, "…</pre>")
				assert.False(t, strings.HasSuffix(body, "&am"))
				assert.Equal(t, strings.Count(body, "&"), strings.Count(body, ";"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, truncateHTML(tt.input, tt.limit))
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}
