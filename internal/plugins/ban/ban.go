// Package ban bans and unbans chat members. Every ban message carries an
// unban button that works for moderation.unban_window.
package ban

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "ban"

const (
	callbackPrefix = "unban::"
	defaultReason  = "No reason provided."

	msgNoTarget      = "⚠️ Couldn't resolve user. Reply or use a valid @username or ID."
	msgUnbanExpired  = "⌛ Unban period expired or already unbanned."
	msgInvalidButton = "❗ Invalid unban button."
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /ban, /unban and the unban button.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil {
		return nil, errors.New("ban requires a store")
	}
	if deps.BotInfo == nil {
		return nil, errors.New("ban requires the bot identity")
	}
	return &Plugin{deps: deps, now: time.Now}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🔨 Ban",
		Description: "Ban a user by reply, @username or ID. The ban message has an unban button for a short while.",
		Commands:    []string{"/ban [@user|id] [reason]", "/unban [@user|id]"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	mw := []tgbot.Middleware{
		plugin.BotCanRestrict(p.deps.BotInfo.ID, p.deps.Logger),
		plugin.AdminOnly(p.deps.Config, p.deps.Logger),
	}
	r.Command("ban", p.handleBan, mw...)
	r.Command("unban", p.handleUnban, mw...)
	r.Callback(callbackPrefix, p.handleUnbanButton, mw...)
	return nil
}

func (p *Plugin) handleBan(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)

	target, rest, err := telegram.TargetUser(ctx, b, msg, cmd.Args)
	if err != nil {
		if !errors.Is(err, telegram.ErrNoTarget) {
			p.deps.Logger.WarnContext(ctx, "Failed to resolve ban target", "chat_id", msg.Chat.ID, "error", err)
		}
		_, err = telegram.Reply(ctx, b, msg, msgNoTarget, nil)
		return err
	}
	reason := strings.Join(rest, " ")
	if reason == "" {
		reason = defaultReason
	}

	if _, err := b.BanChatMember(ctx, &tgbot.BanChatMemberParams{ChatID: msg.Chat.ID, UserID: target.ID}); err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "❌ Failed to ban user: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(fmt.Errorf("failed to ban user %d: %w", target.ID, err), replyErr)
	}

	now := p.now().UTC()
	ban := &database.Ban{
		ChatID:         msg.Chat.ID,
		UserID:         target.ID,
		Username:       target.Username,
		FullName:       telegram.FullName(target),
		Reason:         reason,
		BannedBy:       msg.From.ID,
		BannedAt:       now,
		UnbanExpiresAt: now.Add(p.deps.Config.Moderation.UnbanWindow),
	}
	if err := p.deps.Store.SaveBan(ctx, ban); err != nil {
		return fmt.Errorf("failed to record ban: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "User banned", "chat_id", msg.Chat.ID, "user_id", target.ID, "banned_by", msg.From.ID)

	text := fmt.Sprintf("🚫 %s has been banned.\n📝 Reason: %s",
		telegram.MentionHTML(target), telegram.EscapeHTML(reason))
	keyboard := telegram.Keyboard([]models.InlineKeyboardButton{
		telegram.Button("🔓 Unban ("+windowLabel(p.deps.Config.Moderation.UnbanWindow)+")", unbanData(msg.Chat.ID, target.ID)),
	})
	_, err = telegram.Reply(ctx, b, msg, text, keyboard)
	return err
}

func (p *Plugin) handleUnban(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)

	target, _, err := telegram.TargetUser(ctx, b, msg, cmd.Args)
	if err != nil {
		_, err = telegram.Reply(ctx, b, msg, msgNoTarget, nil)
		return err
	}
	if err := p.unban(ctx, b, msg.Chat.ID, target.ID, msg.From.ID); err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "❌ Failed to unban user: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(err, replyErr)
	}
	_, err = telegram.Reply(ctx, b, msg, fmt.Sprintf("✅ %s has been unbanned.", telegram.MentionHTML(target)), nil)
	return err
}

func (p *Plugin) handleUnbanButton(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	chatID, userID, ok := parseUnbanData(query.Data)
	msg := telegram.CallbackMessage(query)
	if !ok || msg == nil || msg.Chat.ID != chatID {
		return telegram.Answer(ctx, b, query, msgInvalidButton, true)
	}

	ban, err := p.deps.Store.GetActiveBan(ctx, chatID, userID)
	if database.IsNotFound(err) || (err == nil && !p.now().Before(ban.UnbanExpiresAt)) {
		return telegram.Answer(ctx, b, query, msgUnbanExpired, true)
	}
	if err != nil {
		return fmt.Errorf("failed to load ban: %w", err)
	}

	if err := p.unban(ctx, b, chatID, userID, query.From.ID); err != nil {
		editErr := telegram.EditText(ctx, b, chatID, msg.ID, "❌ Failed to unban: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(err, editErr)
	}
	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	return telegram.EditText(ctx, b, chatID, msg.ID, "✅ User has been unbanned.", nil)
}

// unban lifts the ban in Telegram first and then closes the records.
func (p *Plugin) unban(ctx context.Context, b *tgbot.Bot, chatID, userID, by int64) error {
	if _, err := b.UnbanChatMember(ctx, &tgbot.UnbanChatMemberParams{ChatID: chatID, UserID: userID, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("failed to unban user %d: %w", userID, err)
	}
	n, err := p.deps.Store.MarkUnbanned(ctx, chatID, userID, by, p.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record unban: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "User unbanned", "chat_id", chatID, "user_id", userID, "unbanned_by", by, "records", n)
	return nil
}

func unbanData(chatID, userID int64) string {
	return fmt.Sprintf("%s%d::%d", callbackPrefix, chatID, userID)
}

func parseUnbanData(data string) (chatID, userID int64, ok bool) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return 0, 0, false
	}
	chatStr, userStr, found := strings.Cut(rest, "::")
	if !found {
		return 0, 0, false
	}
	chatID, err := strconv.ParseInt(chatStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	userID, err = strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return chatID, userID, true
}

// windowLabel renders a window as "1 min" or "30 s".
func windowLabel(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return fmt.Sprintf("%d s", int(d.Round(time.Second)/time.Second))
}
