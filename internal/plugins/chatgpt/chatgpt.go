// Package chatgpt answers text messages with the configured AI backend for
// users and groups that switched it on.
package chatgpt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/ai"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "chatgpt"

const (
	callbackPrefix = "chatgpt:"
	dataUser       = callbackPrefix + "user"
	dataGroup      = callbackPrefix + "group"

	msgPrompt      = "Enable AI reply mode:"
	msgGroupAdmin  = "Only admins can enable group-wide AI replies."
	msgGroupOnly   = "Group-wide replies only work in groups."
	msgReplyFailed = "⚠️ Error getting a reply from the AI."
)

// ErrNoClient is returned by the self-test when no AI provider is configured.
var ErrNoClient = errors.New("no ai provider configured")

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /chatgpt, its toggles and the reply listener.
type Plugin struct {
	deps plugin.Deps
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil {
		return nil, errors.New("chatgpt requires a store")
	}
	return &Plugin{deps: deps}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🤖 ChatGPT",
		Description: "AI replies to your messages once you enable it for yourself, or an admin enables it for the whole group.",
		Commands:    []string{"/chatgpt"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("chatgpt", p.handleCommand)
	r.Callback(callbackPrefix, p.handleToggle)
	r.Message("ai_reply", isPrompt, p.handleMessage)
	return nil
}

// Test implements plugin.Tester. Without a backend the plugin stays hidden.
func (p *Plugin) Test(ctx context.Context) error {
	if p.deps.AI == nil {
		return ErrNoClient
	}
	return p.deps.Store.Ping(ctx)
}

// isPrompt accepts plain text messages from humans.
func isPrompt(update *models.Update) bool {
	msg := update.Message
	return msg != nil && msg.From != nil && !msg.From.IsBot &&
		strings.TrimSpace(msg.Text) != "" && !strings.HasPrefix(msg.Text, "/")
}

func (p *Plugin) handleCommand(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	_, err := telegram.Reply(ctx, b, update.Message, msgPrompt, telegram.Keyboard([]models.InlineKeyboardButton{
		telegram.Button("🧠 Toggle for me only", dataUser),
		telegram.Button("🌍 Toggle for this group", dataGroup),
	}))
	return err
}

func (p *Plugin) handleToggle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	userID := query.From.ID

	switch query.Data {
	case dataUser:
		enabled, err := p.deps.Store.ToggleChatGPTUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to toggle ai for user %d: %w", userID, err)
		}
		p.deps.Logger.InfoContext(ctx, "AI replies toggled for user", "user_id", userID, "enabled", enabled)
		return telegram.Answer(ctx, b, query, stateText(enabled, "you"), false)

	case dataGroup:
		msg := telegram.CallbackMessage(query)
		if msg == nil || !telegram.IsGroup(msg.Chat) {
			return telegram.Answer(ctx, b, query, msgGroupOnly, true)
		}
		chatID := msg.Chat.ID
		if !p.deps.Config.IsOwner(userID) {
			admin, err := telegram.IsAdmin(ctx, b, chatID, userID)
			if err != nil {
				return err
			}
			if !admin {
				return telegram.Answer(ctx, b, query, msgGroupAdmin, true)
			}
		}
		enabled, err := p.deps.Store.ToggleChatGPTGroup(ctx, chatID, userID)
		if err != nil {
			return fmt.Errorf("failed to toggle ai for chat %d: %w", chatID, err)
		}
		p.deps.Logger.InfoContext(ctx, "AI replies toggled for group", "chat_id", chatID, "user_id", userID, "enabled", enabled)
		return telegram.Answer(ctx, b, query, stateText(enabled, "this group"), false)

	default:
		return telegram.Answer(ctx, b, query, "", false)
	}
}

func stateText(enabled bool, scope string) string {
	if enabled {
		return "✅ Enabled for " + scope
	}
	return "❌ Disabled for " + scope
}

func (p *Plugin) handleMessage(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	if p.deps.AI == nil {
		return nil
	}
	msg := update.Message
	enabled, err := p.deps.Store.ChatGPTEnabled(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		return fmt.Errorf("failed to check ai state: %w", err)
	}
	if !enabled {
		return nil
	}

	if _, err := b.SendChatAction(ctx, &tgbot.SendChatActionParams{ChatID: msg.Chat.ID, Action: models.ChatActionTyping}); err != nil {
		p.deps.Logger.DebugContext(ctx, "Failed to send typing action", "chat_id", msg.Chat.ID, "error", err)
	}

	req := ai.Request{UserName: telegram.FullName(msg.From), Text: msg.Text}
	if p.deps.BotInfo != nil {
		req.BotName = p.deps.BotInfo.FirstName
	}
	reply, err := p.deps.AI.Complete(ctx, req)
	if err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, msgReplyFailed, nil)
		return errors.Join(fmt.Errorf("failed to get ai reply: %w", err), replyErr)
	}

	for _, chunk := range telegram.SplitText(ai.Plaintext(reply), telegram.MaxMessageLength) {
		if _, err := telegram.Reply(ctx, b, msg, telegram.EscapeHTML(chunk), nil); err != nil {
			return err
		}
	}
	return nil
}
