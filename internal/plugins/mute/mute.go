// Package mute temporarily restricts a chat member, with an undo button that
// turns into a plain status once moderation.undo_window passes.
package mute

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
const Name = "mute"

const (
	callbackPrefix = "mute_undo:"

	msgNeedReply   = "⚠️ Reply to a user to mute them."
	msgMuteBot     = "🤖 I can't mute myself."
	msgMuteSelf    = "🙃 You can't mute yourself."
	msgMuteAdmin   = "🛡️ Cannot mute an admin."
	msgMuteUndone  = "✅ Mute undone successfully."
	msgInvalidUndo = "❗ Invalid undo button."
	labelUndo      = "↩️ Undo Mute"
	labelMuteAdded = "✅ Mute added"
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /mute and its undo button.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("mute requires a store")
	case deps.Scheduler == nil:
		return nil, errors.New("mute requires a scheduler")
	case deps.BotInfo == nil:
		return nil, errors.New("mute requires the bot identity")
	}
	return &Plugin{deps: deps, now: time.Now}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🔇 Mute",
		Description: "Reply to a user to mute them for " + telegram.HumanDuration(p.deps.Config.Moderation.MuteDuration) + ". Admins can undo it right away.",
		Commands:    []string{"/mute (reply)"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("mute", p.handleMute,
		plugin.BotCanRestrict(p.deps.BotInfo.ID, p.deps.Logger),
		plugin.AdminOnly(p.deps.Config, p.deps.Logger),
	)
	r.Callback(callbackPrefix, p.handleUndo,
		plugin.BotCanRestrict(p.deps.BotInfo.ID, p.deps.Logger),
		plugin.AdminOnly(p.deps.Config, p.deps.Logger),
	)
	return nil
}

func (p *Plugin) handleMute(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		_, err := telegram.Reply(ctx, b, msg, msgNeedReply, nil)
		return err
	}
	target := msg.ReplyToMessage.From

	switch {
	case target.ID == p.deps.BotInfo.ID:
		_, err := telegram.Reply(ctx, b, msg, msgMuteBot, nil)
		return err
	case target.ID == msg.From.ID:
		_, err := telegram.Reply(ctx, b, msg, msgMuteSelf, nil)
		return err
	}
	admin, err := telegram.IsAdmin(ctx, b, msg.Chat.ID, target.ID)
	if err != nil {
		return err
	}
	if admin {
		_, err := telegram.Reply(ctx, b, msg, msgMuteAdmin, nil)
		return err
	}

	now := p.now().UTC()
	until := now.Add(p.deps.Config.Moderation.MuteDuration)
	if _, err := b.RestrictChatMember(ctx, &tgbot.RestrictChatMemberParams{
		ChatID:      msg.Chat.ID,
		UserID:      target.ID,
		Permissions: &models.ChatPermissions{},
		UntilDate:   int(until.Unix()),
	}); err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "❌ Failed to mute: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(fmt.Errorf("failed to restrict user %d: %w", target.ID, err), replyErr)
	}

	if err := p.deps.Store.SaveMute(ctx, &database.Mute{
		ChatID:  msg.Chat.ID,
		UserID:  target.ID,
		MutedBy: msg.From.ID,
		MutedAt: now,
		Until:   until,
		Reason:  "Muted by admin",
	}); err != nil {
		return fmt.Errorf("failed to record mute: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "User muted", "chat_id", msg.Chat.ID, "user_id", target.ID, "muted_by", msg.From.ID, "until", until)

	text := fmt.Sprintf("🔇 %s has been muted for %s.",
		telegram.MentionHTML(target), telegram.HumanDuration(p.deps.Config.Moderation.MuteDuration))
	sent, err := telegram.Reply(ctx, b, msg, text, telegram.Keyboard([]models.InlineKeyboardButton{
		telegram.Button(labelUndo, undoData(msg.Chat.ID, target.ID)),
	}))
	if err != nil {
		return err
	}

	chatID, messageID := msg.Chat.ID, sent.ID
	return p.deps.Scheduler.After(p.deps.Config.Moderation.UndoWindow, "mute_undo_expire", func(ctx context.Context) {
		err := telegram.EditMarkup(ctx, b, chatID, messageID, telegram.Keyboard([]models.InlineKeyboardButton{
			telegram.Button(labelMuteAdded, telegram.NoopData),
		}))
		if err != nil {
			p.deps.Logger.WarnContext(ctx, "Failed to close mute undo button", "chat_id", chatID, "message_id", messageID, "error", err)
		}
	})
}

func (p *Plugin) handleUndo(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	chatID, userID, ok := parseUndoData(query.Data)
	msg := telegram.CallbackMessage(query)
	if !ok || msg == nil || msg.Chat.ID != chatID {
		return telegram.Answer(ctx, b, query, msgInvalidUndo, true)
	}

	if _, err := b.RestrictChatMember(ctx, &tgbot.RestrictChatMemberParams{
		ChatID: chatID,
		UserID: userID,
		Permissions: &models.ChatPermissions{
			CanSendMessages:       true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	}); err != nil {
		answerErr := telegram.Answer(ctx, b, query, "❌ Failed to undo mute.", true)
		return errors.Join(fmt.Errorf("failed to lift restriction of user %d: %w", userID, err), answerErr)
	}

	n, err := p.deps.Store.DeleteMutes(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete mute records: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "Mute undone", "chat_id", chatID, "user_id", userID, "undone_by", query.From.ID, "records", n)

	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	return telegram.EditText(ctx, b, chatID, msg.ID, msgMuteUndone, nil)
}

func undoData(chatID, userID int64) string {
	return fmt.Sprintf("%s%d:%d", callbackPrefix, chatID, userID)
}

func parseUndoData(data string) (chatID, userID int64, ok bool) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return 0, 0, false
	}
	chatStr, userStr, found := strings.Cut(rest, ":")
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
