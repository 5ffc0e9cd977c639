package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	t.Parallel()

	t.Run("short text is one chunk", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"hello"}, SplitText("  hello \n", 10))
	})

	t.Run("empty text has no chunks", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, SplitText(" \n ", 10))
	})

	t.Run("prefers newlines", func(t *testing.T) {
		t.Parallel()
		got := SplitText("first line\nsecond line", 15)
		assert.Equal(t, []string{"first line", "second line"}, got)
	})

	t.Run("falls back to whitespace", func(t *testing.T) {
		t.Parallel()
		got := SplitText("alpha beta gamma", 12)
		assert.Equal(t, []string{"alpha beta", "gamma"}, got)
	})

	t.Run("hard cut on long words", func(t *testing.T) {
		t.Parallel()
		got := SplitText(strings.Repeat("ж", 25), 10)
		assert.Len(t, got, 3)
		for _, c := range got {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
		}
		assert.Equal(t, strings.Repeat("ж", 25), strings.Join(got, ""))
	})
}

func TestUserFormatting(t *testing.T) {
	t.Parallel()

	u := &models.User{ID: 7, FirstName: "Ann", LastName: "<Lee>"}
	assert.Equal(t, "Ann <Lee>", FullName(u))
	assert.Equal(t, `<a href="tg://user?id=7">Ann &lt;Lee&gt;</a>`, MentionHTML(u))
	assert.Equal(t, `<a href="tg://user?id=8">8</a>`, MentionHTML(&models.User{ID: 8}))
	assert.Empty(t, FullName(nil))
	assert.Empty(t, MentionHTML(nil))
}

func TestHumanDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: time.Hour, want: "1 hour"},
		{in: 2 * time.Hour, want: "2 hours"},
		{in: 90 * time.Minute, want: "90 minutes"},
		{in: time.Minute, want: "1 minute"},
		{in: 90 * time.Second, want: "90 seconds"},
		{in: 1500 * time.Millisecond, want: "2 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HumanDuration(tt.in))
		})
	}
}
