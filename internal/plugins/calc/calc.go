// Package calc is an inline keyboard calculator. The expression typed so far
// travels in the callback data of every button.
package calc

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "calc"

const (
	callbackPrefix = "calc:"
	title          = "🧮 Calculator"

	// Telegram limits callback data to 64 bytes.
	maxExpression = 64 - len(callbackPrefix) - 1
)

var keys = [][]string{
	{"7", "8", "9", "/"},
	{"4", "5", "6", "*"},
	{"1", "2", "3", "-"},
	{"0", ".", "=", "+"},
	{"(", ")", "C"},
}

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /calc and the keypad.
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
		Name:        "🧮 Calculator",
		Description: "A button calculator for + - * / and parentheses.",
		Commands:    []string{"/calc"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("calc", p.handleCalc)
	r.Callback(callbackPrefix, p.handleKey)
	return nil
}

// Test implements plugin.Tester by checking the evaluator.
func (p *Plugin) Test(context.Context) error {
	got, err := Evaluate("(1+2)*3")
	if err != nil {
		return err
	}
	if got != "9" {
		return fmt.Errorf("(1+2)*3 evaluated to %s", got)
	}
	return nil
}

// Keypad builds the keyboard for the expression typed so far.
func Keypad(expr string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(keys))
	for _, row := range keys {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, key := range row {
			buttons = append(buttons, telegram.Button(key, callbackPrefix+expr+key))
		}
		rows = append(rows, buttons)
	}
	return telegram.Keyboard(rows...)
}

func (p *Plugin) handleCalc(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	_, err := telegram.Reply(ctx, b, update.Message, title, Keypad(""))
	return err
}

func (p *Plugin) handleKey(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return telegram.Answer(ctx, b, query, "", false)
	}
	data := strings.TrimPrefix(query.Data, callbackPrefix)

	var text, expr string
	switch {
	case strings.HasSuffix(data, "C"):
		text = title
	case strings.HasSuffix(data, "="):
		result, err := Evaluate(strings.TrimSuffix(data, "="))
		if err != nil {
			p.deps.Logger.DebugContext(ctx, "Calculator expression failed", "error", err)
			result = "Error"
		}
		text = "Result: " + result
	case len(data) > maxExpression:
		return telegram.Answer(ctx, b, query, "Expression too long", true)
	default:
		text, expr = telegram.EscapeHTML(data), data
	}

	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	// Telegram rejects edits that leave the message unchanged.
	if msg.Text == text {
		return nil
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, Keypad(expr))
}
