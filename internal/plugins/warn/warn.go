// Package warn keeps per-chat warning counters and bans users who reach
// moderation.warn_limit. The warning admin can undo a warn for a short while.
package warn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "warn"

const (
	callbackPrefix  = "undo_warn::"
	cleanupTaskName = "warn_undo_cleanup"
	defaultReason   = "No reason provided"

	msgNoTarget     = "⚠️ Please reply to a user or provide a valid username or ID."
	msgBadTarget    = "⚠️ Invalid username or ID provided."
	msgBadAmount    = "⚠️ The warn amount must be a positive number."
	msgWarnBot      = "🤖 I can't warn myself."
	msgWarnAdmin    = "🛡️ Cannot warn an admin."
	msgUndoExpired  = "❌ Undo expired or invalid."
	msgUndoNotYours = "⚠️ Only the admin who warned can undo."
	msgWarnUndone   = "✅ Warn undone."
	labelUndo       = "↩️ Undo Warn"
	labelWarnAdded  = "✅ Warn added"
	labelWarnUndone = "↩️ Warn undone"
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements /warn, its undo button and the token cleanup task.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("warn requires a store")
	case deps.Scheduler == nil:
		return nil, errors.New("warn requires a scheduler")
	case deps.BotInfo == nil:
		return nil, errors.New("warn requires the bot identity")
	}
	return &Plugin{deps: deps, now: time.Now}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	desc := fmt.Sprintf("Warn a user, optionally several times at once. %d warnings mean a ban.", p.deps.Config.Moderation.WarnLimit)
	return plugin.Info{
		Name:        "⚠️ Warn",
		Description: desc,
		Commands:    []string{"/warn [amount] [reason] (reply)", "/warn @user|id [amount] [reason]"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("warn", p.handleWarn,
		plugin.BotCanRestrict(p.deps.BotInfo.ID, p.deps.Logger),
		plugin.AdminOnly(p.deps.Config, p.deps.Logger),
	)
	r.Callback(callbackPrefix, p.handleUndo)
	r.Task(cleanupTaskName, "0 */5 * * * *", p.cleanup)
	return nil
}

// request is a parsed /warn command.
type request struct {
	target *models.User
	amount int
	reason string
}

// parseRequest reads "[amount] [reason]" after the target. A first token
// that is not a number starts the reason.
func parseRequest(args []string) (amount int, reason string, err error) {
	amount, reason = 1, strings.Join(args, " ")
	if len(args) > 0 {
		if n, convErr := strconv.Atoi(args[0]); convErr == nil {
			if n < 1 {
				return 0, "", errors.New("non-positive amount")
			}
			amount, reason = n, strings.Join(args[1:], " ")
		}
	}
	if reason == "" {
		reason = defaultReason
	}
	return amount, reason, nil
}

func (p *Plugin) handleWarn(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	cmd, _ := telegram.CommandFromUpdate(update, p.deps.BotInfo.Username)

	target, rest, err := telegram.TargetUser(ctx, b, msg, cmd.Args)
	switch {
	case errors.Is(err, telegram.ErrNoTarget):
		_, err = telegram.Reply(ctx, b, msg, msgNoTarget, nil)
		return err
	case err != nil:
		p.deps.Logger.WarnContext(ctx, "Failed to resolve warn target", "chat_id", msg.Chat.ID, "error", err)
		_, err = telegram.Reply(ctx, b, msg, msgBadTarget, nil)
		return err
	}
	amount, reason, err := parseRequest(rest)
	if err != nil {
		_, err = telegram.Reply(ctx, b, msg, msgBadAmount, nil)
		return err
	}
	req := request{target: target, amount: amount, reason: reason}

	if target.ID == p.deps.BotInfo.ID {
		_, err := telegram.Reply(ctx, b, msg, msgWarnBot, nil)
		return err
	}
	admin, err := telegram.IsAdmin(ctx, b, msg.Chat.ID, target.ID)
	if err != nil {
		return err
	}
	if admin {
		_, err := telegram.Reply(ctx, b, msg, msgWarnAdmin, nil)
		return err
	}

	return p.warn(ctx, b, msg, req)
}

func (p *Plugin) warn(ctx context.Context, b *tgbot.Bot, msg *models.Message, req request) error {
	limit := p.deps.Config.Moderation.WarnLimit
	now := p.now().UTC()

	count, err := p.deps.Store.AddWarn(ctx, &database.Warn{
		ChatID:     msg.Chat.ID,
		UserID:     req.target.ID,
		Username:   req.target.Username,
		FullName:   telegram.FullName(req.target),
		Reason:     req.reason,
		LastWarned: now,
	}, req.amount)
	if err != nil {
		return fmt.Errorf("failed to add warn: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "User warned", "chat_id", msg.Chat.ID, "user_id", req.target.ID,
		"warned_by", msg.From.ID, "amount", req.amount, "count", count)

	if count >= limit {
		if _, err := b.BanChatMember(ctx, &tgbot.BanChatMemberParams{ChatID: msg.Chat.ID, UserID: req.target.ID}); err != nil {
			return fmt.Errorf("failed to ban user %d after %d warnings: %w", req.target.ID, count, err)
		}
		text := fmt.Sprintf("🚫 %s has been banned after reaching %d warnings.\n\nLast reason: %s",
			telegram.MentionHTML(req.target), limit, telegram.EscapeHTML(req.reason))
		_, err := telegram.Reply(ctx, b, msg, text, nil)
		return err
	}

	undo := &database.WarnUndo{
		Token:     uuid.NewString(),
		ChatID:    msg.Chat.ID,
		UserID:    req.target.ID,
		WarnedBy:  msg.From.ID,
		Amount:    req.amount,
		CreatedAt: now,
	}
	if err := p.deps.Store.SaveWarnUndo(ctx, undo); err != nil {
		return fmt.Errorf("failed to save undo token: %w", err)
	}

	text := fmt.Sprintf("⚠️ %s has been warned.\n\n<b>Reason:</b> %s\n<b>Warnings:</b> %d/%d",
		telegram.MentionHTML(req.target), telegram.EscapeHTML(req.reason), count, limit)
	sent, err := telegram.Reply(ctx, b, msg, text, telegram.Keyboard([]models.InlineKeyboardButton{
		telegram.Button(labelUndo, callbackPrefix+undo.Token),
	}))
	if err != nil {
		return err
	}

	chatID, messageID, token := msg.Chat.ID, sent.ID, undo.Token
	return p.deps.Scheduler.After(p.deps.Config.Moderation.UndoWindow, "warn_undo_expire", func(ctx context.Context) {
		if _, err := p.deps.Store.GetWarnUndo(ctx, token); database.IsNotFound(err) {
			return
		}
		if err := p.deps.Store.DeleteWarnUndo(ctx, token); err != nil {
			p.deps.Logger.WarnContext(ctx, "Failed to delete undo token", "error", err)
		}
		err := telegram.EditMarkup(ctx, b, chatID, messageID, telegram.Keyboard([]models.InlineKeyboardButton{
			telegram.Button(labelWarnAdded, telegram.NoopData),
		}))
		if err != nil {
			p.deps.Logger.WarnContext(ctx, "Failed to close warn undo button", "chat_id", chatID, "message_id", messageID, "error", err)
		}
	})
}

func (p *Plugin) handleUndo(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	token := strings.TrimPrefix(query.Data, callbackPrefix)

	undo, err := p.deps.Store.GetWarnUndo(ctx, token)
	if database.IsNotFound(err) {
		return telegram.Answer(ctx, b, query, msgUndoExpired, true)
	}
	if err != nil {
		return fmt.Errorf("failed to load undo token: %w", err)
	}
	if query.From.ID != undo.WarnedBy {
		return telegram.Answer(ctx, b, query, msgUndoNotYours, true)
	}

	count, err := p.deps.Store.UndoWarn(ctx, undo)
	if database.IsNotFound(err) {
		return telegram.Answer(ctx, b, query, msgUndoExpired, true)
	}
	if err != nil {
		return fmt.Errorf("failed to undo warn: %w", err)
	}
	p.deps.Logger.InfoContext(ctx, "Warn undone", "chat_id", undo.ChatID, "user_id", undo.UserID, "amount", undo.Amount, "count", count)

	if msg := telegram.CallbackMessage(query); msg != nil {
		err := telegram.EditMarkup(ctx, b, msg.Chat.ID, msg.ID, telegram.Keyboard([]models.InlineKeyboardButton{
			telegram.Button(labelWarnUndone, telegram.NoopData),
		}))
		if err != nil {
			return err
		}
	}
	return telegram.Answer(ctx, b, query, msgWarnUndone, false)
}

// cleanup purges undo tokens older than the undo window.
func (p *Plugin) cleanup(ctx context.Context) error {
	cutoff := p.now().UTC().Add(-p.deps.Config.Moderation.UndoWindow)
	n, err := p.deps.Store.DeleteWarnUndoBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge undo tokens: %w", err)
	}
	if n > 0 {
		p.deps.Logger.InfoContext(ctx, "Purged expired warn undo tokens", "count", n)
	}
	return nil
}
