// Package echo repeats the text after /echo.
package echo

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "echo"

const msgUsage = "🗣 Usage: <code>/echo &lt;your message&gt;</code>"

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /echo.
type Plugin struct {
	botUsername string
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	p := &Plugin{}
	if deps.BotInfo != nil {
		p.botUsername = deps.BotInfo.Username
	}
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🔁 Echo",
		Description: "Repeats your message.",
		Commands:    []string{"/echo <text>"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("echo", p.handle)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(context.Context) error {
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	cmd, _ := telegram.CommandFromUpdate(update, p.botUsername)
	text := msgUsage
	if cmd.Payload != "" {
		text = "🔁 " + telegram.EscapeHTML(cmd.Payload)
	}
	_, err := telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}
