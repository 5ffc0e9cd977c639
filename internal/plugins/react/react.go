// Package react puts an emoji reaction on the replied message.
package react

import (
	"context"
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "react"

// DefaultReaction is used when /react has no argument.
const DefaultReaction = "🔥"

const msgNeedReply = "⚠️ Reply to a message to react!"

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /react.
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
		Name:        "🔥 React",
		Description: "React to the replied message with an emoji, " + DefaultReaction + " by default.",
		Commands:    []string{"/react [emoji] (reply)"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("react", p.handle)
	return nil
}

func (p *Plugin) handle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		_, err := telegram.Reply(ctx, b, msg, msgNeedReply, nil)
		return err
	}
	emoji := DefaultReaction
	if cmd, _ := telegram.CommandFromUpdate(update, p.botUsername); len(cmd.Args) > 0 {
		emoji = cmd.Args[0]
	}

	_, err := b.SetMessageReaction(ctx, &tgbot.SetMessageReactionParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ReplyToMessage.ID,
		Reaction: []models.ReactionType{{
			Type:              models.ReactionTypeTypeEmoji,
			ReactionTypeEmoji: &models.ReactionTypeEmoji{Emoji: emoji},
		}},
	})
	if err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "❌ Failed to react: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(fmt.Errorf("failed to set reaction: %w", err), replyErr)
	}
	_, err = telegram.Reply(ctx, b, msg, "✅ Reacted with "+telegram.EscapeHTML(emoji), nil)
	return err
}
