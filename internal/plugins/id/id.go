// Package id shows Telegram ids of chats, users and forward origins.
package id

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "id"

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /id.
type Plugin struct{}

// New builds the plugin.
func New(plugin.Deps) (plugin.Plugin, error) {
	return &Plugin{}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🆔 ID",
		Description: "Get the ID of this chat, of the user you reply to or of the origin of a forwarded message.",
		Commands:    []string{"/id", "/id (reply)"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("id", p.handle)
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	_, err := telegram.Reply(ctx, b, update.Message, Describe(update.Message), nil)
	return err
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func userLine(label string, u *models.User) string {
	name := nameOr(telegram.FullName(u), nameOr(u.Username, "Unknown"))
	return fmt.Sprintf("%s\nName: <code>%s</code>\nID: <code>%d</code>", label, telegram.EscapeHTML(name), u.ID)
}

func chatLine(label string, c *models.Chat) string {
	name := nameOr(c.Title, nameOr(c.Username, "Unknown"))
	return fmt.Sprintf("%s\nName: <code>%s</code>\nID: <code>%d</code>", label, telegram.EscapeHTML(name), c.ID)
}

// Describe renders the ids relevant to msg.
func Describe(msg *models.Message) string {
	reply := msg.ReplyToMessage
	if reply == nil {
		return fmt.Sprintf("💬 This chat's ID: <code>%d</code>", msg.Chat.ID)
	}

	if origin := reply.ForwardOrigin; origin != nil {
		switch {
		case origin.MessageOriginChannel != nil:
			return chatLine("📢 Forwarded from channel:", &origin.MessageOriginChannel.Chat)
		case origin.MessageOriginChat != nil:
			return chatLine("📢 Forwarded from group:", &origin.MessageOriginChat.SenderChat)
		case origin.MessageOriginUser != nil:
			return userLine("👤 Forwarded from user:", &origin.MessageOriginUser.SenderUser)
		case origin.MessageOriginHiddenUser != nil:
			return fmt.Sprintf("🙈 Forwarded from <code>%s</code>, who hides their account.",
				telegram.EscapeHTML(origin.MessageOriginHiddenUser.SenderUserName))
		}
	}
	if reply.From != nil {
		return userLine("👤 Replied to user:", reply.From)
	}
	return "⚠️ Couldn't extract any ID from the message."
}
