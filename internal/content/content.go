// Package content loads the static HTML texts shown by the start, help and
// about menus.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/*.txt
var defaults embed.FS

// File names looked up in the content directory.
const (
	WelcomeFile = "welcome.txt"
	HelpFile    = "help.txt"
	AboutFile   = "about.txt"
)

// Texts are the menu texts. "{bot}" is replaced with the bot's name.
type Texts struct {
	Welcome string
	Help    string
	About   string
}

// Load reads the texts from dir. Files that are missing or unreadable fall
// back to the embedded defaults with a warning. An empty dir uses the
// defaults only.
func Load(dir string, log *slog.Logger) (*Texts, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "content")

	read := func(name string) (string, error) {
		if dir != "" {
			data, err := os.ReadFile(filepath.Join(dir, name))
			switch {
			case err == nil:
				return strings.TrimSpace(string(data)), nil
			case errors.Is(err, fs.ErrNotExist):
				log.Warn("Content file not found, using default", "file", name, "dir", dir)
			default:
				log.Warn("Failed to read content file, using default", "file", name, "dir", dir, "error", err)
			}
		}
		data, err := defaults.ReadFile("defaults/" + name)
		if err != nil {
			return "", fmt.Errorf("missing embedded default %s: %w", name, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var t Texts
	var err error
	if t.Welcome, err = read(WelcomeFile); err != nil {
		return nil, err
	}
	if t.Help, err = read(HelpFile); err != nil {
		return nil, err
	}
	if t.About, err = read(AboutFile); err != nil {
		return nil, err
	}
	return &t, nil
}

// Render replaces the {bot} placeholder.
func Render(text, botName string) string {
	if botName == "" {
		botName = "the bot"
	}
	return strings.ReplaceAll(text, "{bot}", botName)
}
