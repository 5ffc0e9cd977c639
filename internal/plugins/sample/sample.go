// Package sample is a minimal database backed plugin that can serve as a
// template for new plugins.
package sample

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "sample"

const (
	recentLimit  = 3
	emptyMessage = "No message"
	msgNoEntries = "📭 No entries found."
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /sample and /samplelog.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil || deps.BotInfo == nil {
		return nil, errors.New("sample requires a store and the bot identity")
	}
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🧩 Sample",
		Description: "Template plugin that stores a note per message in the database.",
		Commands:    []string{"/sample <text>", "/samplelog"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("sample", p.handleSample)
	r.Command("samplelog", p.handleLog)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(ctx context.Context) error {
	return p.deps.Store.Ping(ctx)
}

func (p *Plugin) handleSample(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)
	text := cmd.Payload
	if text == "" {
		text = emptyMessage
	}

	sample := &database.Sample{
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		Username:  msg.From.Username,
		FullName:  telegram.FullName(msg.From),
		Message:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.deps.Store.SaveSample(ctx, sample); err != nil {
		return fmt.Errorf("failed to store sample: %w", err)
	}

	reply := fmt.Sprintf("✅ Sample stored for %s.\n📝 Message: %s",
		telegram.EscapeHTML(msg.From.FirstName), telegram.EscapeHTML(text))
	_, err := telegram.Reply(ctx, b, msg, reply, nil)
	return err
}

func (p *Plugin) handleLog(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	samples, err := p.deps.Store.RecentSamples(ctx, update.Message.Chat.ID, recentLimit)
	if err != nil {
		return err
	}
	text := msgNoEntries
	if len(samples) > 0 {
		lines := make([]string, len(samples))
		for i, s := range samples {
			lines[i] = fmt.Sprintf("👤 %s → %s", telegram.EscapeHTML(s.FullName), telegram.EscapeHTML(s.Message))
		}
		text = strings.Join(lines, "\n\n")
	}
	_, err = telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}
