package plugin

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/telegram"
)

// Replies sent by the access middleware.
const (
	MsgOwnerOnly = "This command is restricted to the bot owner."
	MsgAdminOnly = "You need to be an admin to do this."
	MsgGroupOnly = "This command only works in groups."

	MsgSupportChatOnly = "This command only works in the support chat."
)

// sender returns the user and chat of a message or callback update.
func sender(update *models.Update) (*models.User, *models.Chat) {
	switch {
	case update.Message != nil:
		return update.Message.From, &update.Message.Chat
	case update.CallbackQuery != nil:
		var chat *models.Chat
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			chat = &msg.Chat
		}
		return &update.CallbackQuery.From, chat
	default:
		return nil, nil
	}
}

func deny(ctx context.Context, b *tgbot.Bot, log *slog.Logger, update *models.Update, text string) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = telegram.Answer(ctx, b, update.CallbackQuery, text, true)
	case update.Message != nil:
		_, err = telegram.Reply(ctx, b, update.Message, text, nil)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to send access denied message", "error", err)
	}
}

// OwnerOnly lets through only users listed in telegram.owner_ids.
func OwnerOnly(cfg *config.Config, log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			user, _ := sender(update)
			if user == nil {
				return
			}
			if !cfg.IsOwner(user.ID) {
				log.WarnContext(ctx, "Unauthorized access attempt", "middleware", "OwnerOnly", "user_id", user.ID)
				deny(ctx, b, log, update, MsgOwnerOnly)
				return
			}
			next(ctx, b, update)
		}
	}
}

// GroupOnly rejects updates from private chats.
func GroupOnly(log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			_, chat := sender(update)
			if chat == nil || !telegram.IsGroup(*chat) {
				deny(ctx, b, log, update, MsgGroupOnly)
				return
			}
			next(ctx, b, update)
		}
	}
}

// SupportChatOnly lets through only updates from telegram.support_chat_id.
func SupportChatOnly(cfg *config.Config, log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			_, chat := sender(update)
			if chat == nil || cfg.Telegram.SupportChatID == 0 || chat.ID != cfg.Telegram.SupportChatID {
				deny(ctx, b, log, update, MsgSupportChatOnly)
				return
			}
			next(ctx, b, update)
		}
	}
}

// AdminOnly lets through only chat administrators and bot owners. It
// implies GroupOnly.
func AdminOnly(cfg *config.Config, log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			user, chat := sender(update)
			if user == nil || chat == nil || !telegram.IsGroup(*chat) {
				deny(ctx, b, log, update, MsgGroupOnly)
				return
			}
			if cfg.IsOwner(user.ID) {
				next(ctx, b, update)
				return
			}
			admin, err := telegram.IsAdmin(ctx, b, chat.ID, user.ID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to check admin status", "chat_id", chat.ID, "user_id", user.ID, "error", err)
				return
			}
			if !admin {
				log.WarnContext(ctx, "Unauthorized access attempt", "middleware", "AdminOnly", "user_id", user.ID, "chat_id", chat.ID)
				deny(ctx, b, log, update, MsgAdminOnly)
				return
			}
			next(ctx, b, update)
		}
	}
}

// MsgBotCannotRestrict is sent when the bot lacks the right to restrict members.
const MsgBotCannotRestrict = "I need admin rights with permission to restrict members."

// BotCanRestrict lets through only updates from chats where the bot may
// restrict or ban members.
func BotCanRestrict(botID int64, log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			_, chat := sender(update)
			if chat == nil {
				return
			}
			ok, err := telegram.CanRestrict(ctx, b, chat.ID, botID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to check bot rights", "chat_id", chat.ID, "error", err)
				return
			}
			if !ok {
				deny(ctx, b, log, update, MsgBotCannotRestrict)
				return
			}
			next(ctx, b, update)
		}
	}
}
