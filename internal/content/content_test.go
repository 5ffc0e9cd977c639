package content

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("defaults only", func(t *testing.T) {
		t.Parallel()
		texts, err := Load("", log)
		require.NoError(t, err)
		assert.Contains(t, texts.Welcome, "{bot}")
		assert.Contains(t, texts.Help, "Help")
		assert.Contains(t, texts.About, "About")
	})

	t.Run("files override defaults", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, WelcomeFile), []byte("  custom welcome \n"), 0o600))

		texts, err := Load(dir, log)
		require.NoError(t, err)
		assert.Equal(t, "custom welcome", texts.Welcome)
		assert.Contains(t, texts.Help, "Pick a plugin")
	})

	t.Run("missing directory falls back", func(t *testing.T) {
		t.Parallel()
		texts, err := Load(filepath.Join(t.TempDir(), "nope"), log)
		require.NoError(t, err)
		assert.NotEmpty(t, texts.About)
	})
}

func TestRender(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Hi Luna, Luna", Render("Hi {bot}, {bot}", "Luna"))
	assert.Equal(t, "Hi the bot", Render("Hi {bot}", ""))
}
