// Package logs sends the tail of the bot's log file to the owner.
package logs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "logs"

const (
	// ChunkSize is the maximum escaped size of one log message.
	ChunkSize = 4000

	// MaxTail is how many bytes from the end of the file are sent.
	MaxTail = 8 * ChunkSize

	header    = "📝 Logs:\n\n"
	msgEmpty  = "📭 No logs yet."
	msgNoFile = "⚠️ File logging is disabled (logger.file is not set)."
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /sendlogs.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "📝 Logs",
		Description: "Sends the latest lines of the bot log to the owner.",
		Commands:    []string{"/sendlogs"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("sendlogs", p.handle, plugin.OwnerOnly(p.deps.Config, p.deps.Logger))
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	path := p.deps.Config.Logger.File
	if path == "" {
		_, err := telegram.Reply(ctx, b, msg, msgNoFile, nil)
		return err
	}

	tail, err := readTail(path, MaxTail)
	if err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "⚠️ Failed to read logs: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(err, replyErr)
	}
	if strings.TrimSpace(tail) == "" {
		_, err = telegram.Reply(ctx, b, msg, msgEmpty, nil)
		return err
	}

	for _, chunk := range Chunks(tail, ChunkSize) {
		if _, err := telegram.Reply(ctx, b, msg, header+"<pre>"+chunk+"</pre>", nil); err != nil {
			return err
		}
	}
	return nil
}

// readTail returns at most limit bytes from the end of the file, starting at
// a line boundary when the file was cut.
func readTail(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat log file: %w", err)
	}
	offset := info.Size() - limit
	if offset < 0 {
		offset = 0
	}
	data, err := io.ReadAll(io.NewSectionReader(f, offset, info.Size()-offset))
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	if offset > 0 {
		if i := strings.IndexByte(string(data), '\n'); i >= 0 {
			data = data[i+1:]
		}
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// Chunks HTML-escapes text and splits it so that no chunk is longer than
// size bytes and no escape sequence is cut.
func Chunks(text string, size int) []string {
	var chunks []string
	var sb strings.Builder
	for _, r := range text {
		piece := telegram.EscapeHTML(string(r))
		if sb.Len()+len(piece) > size && sb.Len() > 0 {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		sb.WriteString(piece)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}
