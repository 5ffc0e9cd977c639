// Package ping measures the Bot API round trip.
package ping

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "ping"

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /ping.
type Plugin struct {
	started time.Time
	now     func() time.Time
}

// New builds the plugin.
func New(plugin.Deps) (plugin.Plugin, error) {
	return &Plugin{started: time.Now(), now: time.Now}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🏓 Ping",
		Description: "Checks how fast the bot reaches Telegram.",
		Commands:    []string{"/ping"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("ping", p.handle)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(context.Context) error {
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	start := p.now()
	sent, err := telegram.Reply(ctx, b, update.Message, "🏓 Pinging...", nil)
	if err != nil {
		return err
	}
	latency := p.now().Sub(start)

	text := fmt.Sprintf("✅ <b>Pong!</b>\n📡 <b>Ping:</b> %d ms\n⏱ <b>Uptime:</b> %s",
		latency.Milliseconds(), p.now().Sub(p.started).Round(time.Second))
	return telegram.EditText(ctx, b, sent.Chat.ID, sent.ID, text, nil)
}
