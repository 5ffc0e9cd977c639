// Package core serves the start menu and the help menu built from the
// plugin catalog.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/content"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "core"

// Callback data of the menu buttons.
const (
	DataMainMenu     = "main_menu"
	DataInfo         = "info"
	DataHelp         = "help"
	DataPluginPrefix = "plugin::"
)

const helpColumns = 2

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /start, /help and the menu callbacks. It is not listed
// in the catalog itself.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Content == nil || deps.Catalog == nil {
		return nil, errors.New("core requires texts and a catalog")
	}
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("start", p.handleStart)
	r.Command("help", p.handleHelp)
	r.CallbackExact(DataMainMenu, p.handleMainMenu)
	r.CallbackExact(DataInfo, p.handleInfo)
	r.CallbackExact(DataHelp, p.handleHelpMenu)
	r.Callback(DataPluginPrefix, p.handlePlugin)
	r.CallbackExact(telegram.NoopData, p.handleNoop)
	return nil
}

func (p *Plugin) botName() string {
	if p.deps.BotInfo == nil {
		return ""
	}
	return p.deps.BotInfo.FirstName
}

func (p *Plugin) welcome() (string, *models.InlineKeyboardMarkup) {
	return content.Render(p.deps.Content.Welcome, p.botName()), telegram.Keyboard(
		[]models.InlineKeyboardButton{telegram.Button("ℹ️ About", DataInfo)},
		[]models.InlineKeyboardButton{telegram.Button("❓ Help", DataHelp)},
	)
}

// helpMenu lists every catalog entry, helpColumns buttons per row.
func (p *Plugin) helpMenu() (string, *models.InlineKeyboardMarkup) {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, e := range p.deps.Catalog.List() {
		row = append(row, telegram.Button(e.Info.Name, DataPluginPrefix+e.Key))
		if len(row) == helpColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{telegram.Button("🔙 Back", DataMainMenu)})

	text := content.Render(p.deps.Content.Help, p.botName())
	if p.deps.Catalog.Len() == 0 {
		text += "\n\nNo plugins are available right now."
	}
	return text, telegram.Keyboard(rows...)
}

// PluginText renders the help page of one plugin.
func PluginText(info plugin.Info) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n%s", telegram.EscapeHTML(info.Name), telegram.EscapeHTML(info.Description))
	if len(info.Commands) > 0 {
		sb.WriteString("\n\n<b>Commands:</b>")
		for _, c := range info.Commands {
			fmt.Fprintf(&sb, "\n• <code>%s</code>", telegram.EscapeHTML(c))
		}
	}
	return sb.String()
}

func (p *Plugin) handleStart(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	text, keyboard := p.welcome()
	_, err := telegram.Reply(ctx, b, update.Message, text, keyboard)
	return err
}

func (p *Plugin) handleHelp(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	text, keyboard := p.helpMenu()
	_, err := telegram.Reply(ctx, b, update.Message, text, keyboard)
	return err
}

// edit answers the query and replaces the menu message in place.
func (p *Plugin) edit(ctx context.Context, b *tgbot.Bot, query *models.CallbackQuery, text string, keyboard *models.InlineKeyboardMarkup) error {
	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return nil
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, keyboard)
}

func (p *Plugin) handleMainMenu(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	text, keyboard := p.welcome()
	return p.edit(ctx, b, update.CallbackQuery, text, keyboard)
}

func (p *Plugin) handleInfo(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	return p.edit(ctx, b, update.CallbackQuery, content.Render(p.deps.Content.About, p.botName()), telegram.Keyboard(
		[]models.InlineKeyboardButton{telegram.Button("🔙 Back", DataMainMenu)},
	))
}

func (p *Plugin) handleHelpMenu(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	text, keyboard := p.helpMenu()
	return p.edit(ctx, b, update.CallbackQuery, text, keyboard)
}

func (p *Plugin) handlePlugin(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	key := strings.TrimPrefix(query.Data, DataPluginPrefix)
	info, ok := p.deps.Catalog.Get(key)
	if !ok {
		return telegram.Answer(ctx, b, query, "This plugin is not available.", true)
	}
	return p.edit(ctx, b, query, PluginText(info), telegram.Keyboard(
		[]models.InlineKeyboardButton{telegram.Button("🔙 Back", DataHelp)},
	))
}

func (p *Plugin) handleNoop(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	return telegram.Answer(ctx, b, update.CallbackQuery, "", false)
}
