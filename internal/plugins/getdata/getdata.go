// Package getdata lets the owner inspect the bot_data key/value documents
// from the support chat.
package getdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "getdata"

// inlineLimit is the longest reply sent as a message. Longer values go out
// as a text document.
const inlineLimit = 3500

const (
	msgGetUsage = "❌ Usage: <code>/getdata &lt;key&gt;</code>"
	msgSetUsage = "❌ Usage: <code>/setdata &lt;key&gt; &lt;value&gt;</code>"
	msgNoKeys   = "❌ No keys found in the database."
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /getdata, /setdata and /keys.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil || deps.BotInfo == nil {
		return nil, errors.New("getdata requires a store and the bot identity")
	}
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🗂️ Bot Data",
		Description: "Owner tools to read and write stored bot data. Only works in the support chat.",
		Commands:    []string{"/getdata <key>", "/setdata <key> <value>", "/keys"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	mw := []tgbot.Middleware{
		plugin.SupportChatOnly(p.deps.Config, p.deps.Logger),
		plugin.OwnerOnly(p.deps.Config, p.deps.Logger),
	}
	r.Command("getdata", p.handleGet, mw...)
	r.Command("setdata", p.handleSet, mw...)
	r.Command("keys", p.handleKeys, mw...)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(ctx context.Context) error {
	_, err := p.deps.Store.ListDataKeys(ctx)
	return err
}

func (p *Plugin) handleGet(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)
	if len(cmd.Args) == 0 {
		_, err := telegram.Reply(ctx, b, msg, msgGetUsage, nil)
		return err
	}
	key := cmd.Args[0]

	entry, err := p.deps.Store.GetData(ctx, key)
	if database.IsNotFound(err) {
		_, err = telegram.Reply(ctx, b, msg, fmt.Sprintf("❌ No data found for <code>%s</code>", telegram.EscapeHTML(key)), nil)
		return err
	}
	if err != nil {
		return err
	}

	value := prettyValue(entry.Value)
	text := fmt.Sprintf("🔍 <b>Data for</b> <code>%s</code>:\n<pre>%s</pre>", telegram.EscapeHTML(key), telegram.EscapeHTML(value))
	if len(text) <= inlineLimit {
		_, err = telegram.Reply(ctx, b, msg, text, nil)
		return err
	}

	_, err = b.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID:          msg.Chat.ID,
		Document:        &models.InputFileUpload{Filename: key + "_data.txt", Data: bytes.NewReader([]byte(value))},
		Caption:         fmt.Sprintf("📄 Data for <code>%s</code>", telegram.EscapeHTML(key)),
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		return fmt.Errorf("failed to send data document for %q: %w", key, err)
	}
	return nil
}

// prettyValue indents JSON values and returns anything else unchanged.
func prettyValue(v string) string {
	var buf bytes.Buffer
	if json.Valid([]byte(v)) && json.Indent(&buf, []byte(v), "", "  ") == nil {
		return buf.String()
	}
	return v
}

func (p *Plugin) handleSet(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)
	key, value := splitKeyValue(cmd.Payload)
	if key == "" || value == "" {
		_, err := telegram.Reply(ctx, b, msg, msgSetUsage, nil)
		return err
	}
	if err := p.deps.Store.PutData(ctx, key, value); err != nil {
		return err
	}
	p.deps.Logger.InfoContext(ctx, "Bot data updated", "key", key, "user_id", msg.From.ID)
	_, err := telegram.Reply(ctx, b, msg, fmt.Sprintf("✅ Stored <code>%s</code>.", telegram.EscapeHTML(key)), nil)
	return err
}

// splitKeyValue splits payload at the first whitespace, newlines included.
func splitKeyValue(payload string) (key, value string) {
	i := strings.IndexFunc(payload, unicode.IsSpace)
	if i < 0 {
		return payload, ""
	}
	return payload[:i], strings.TrimSpace(payload[i:])
}

func (p *Plugin) handleKeys(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	keys, err := p.deps.Store.ListDataKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		_, err = telegram.Reply(ctx, b, update.Message, msgNoKeys, nil)
		return err
	}
	var sb strings.Builder
	sb.WriteString("🗂️ <b>Available Keys:</b>")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n• <code>%s</code>", telegram.EscapeHTML(k))
	}
	for _, chunk := range telegram.SplitText(sb.String(), telegram.MaxMessageLength) {
		if _, err := telegram.Reply(ctx, b, update.Message, chunk, nil); err != nil {
			return err
		}
	}
	return nil
}
