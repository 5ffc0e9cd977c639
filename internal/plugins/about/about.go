// Package about answers /about and /info with the about text.
package about

import (
	"context"
	"errors"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/content"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/plugins/core"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "about"

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /about and /info.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Content == nil {
		return nil, errors.New("about requires texts")
	}
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("about", p.handle)
	r.Command("info", p.handle)
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	name := ""
	if p.deps.BotInfo != nil {
		name = p.deps.BotInfo.FirstName
	}
	_, err := telegram.Reply(ctx, b, update.Message, content.Render(p.deps.Content.About, name), telegram.Keyboard(
		[]models.InlineKeyboardButton{telegram.Button("🔙 Back", core.DataMainMenu)},
	))
	return err
}
