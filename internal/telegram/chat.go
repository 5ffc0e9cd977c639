package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MemberStatus returns the membership status of userID in chatID.
func MemberStatus(ctx context.Context, b *bot.Bot, chatID, userID int64) (models.ChatMemberType, error) {
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to get chat member %d in chat %d: %w", userID, chatID, err)
	}
	return member.Type, nil
}

// IsAdmin reports whether userID is the creator or an administrator of chatID.
func IsAdmin(ctx context.Context, b *bot.Bot, chatID, userID int64) (bool, error) {
	status, err := MemberStatus(ctx, b, chatID, userID)
	if err != nil {
		return false, err
	}
	return status == models.ChatMemberTypeOwner || status == models.ChatMemberTypeAdministrator, nil
}

// CanRestrict reports whether userID may restrict or ban members of chatID.
func CanRestrict(ctx context.Context, b *bot.Bot, chatID, userID int64) (bool, error) {
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member %d in chat %d: %w", userID, chatID, err)
	}
	switch member.Type {
	case models.ChatMemberTypeOwner:
		return true, nil
	case models.ChatMemberTypeAdministrator:
		return member.Administrator != nil && member.Administrator.CanRestrictMembers, nil
	default:
		return false, nil
	}
}

// IsGroup reports whether the chat is a group or supergroup.
func IsGroup(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}

// Reply sends an HTML message replying to msg.
func Reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string, markup models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	sent, err := b.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to reply in chat %d: %w", msg.Chat.ID, err)
	}
	return sent, nil
}

// Send sends an HTML message to chatID.
func Send(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	sent, err := b.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return sent, nil
}

// Answer acknowledges a callback query, optionally with an alert.
func Answer(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, text string, alert bool) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// CallbackMessage returns the message the callback button belongs to, or
// nil when it is no longer accessible.
func CallbackMessage(query *models.CallbackQuery) *models.Message {
	if query == nil {
		return nil
	}
	return query.Message.Message
}

// EditText replaces the text and keyboard of a message.
func EditText(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, markup models.ReplyMarkup) error {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("failed to edit message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// Keyboard builds an inline keyboard from rows of buttons.
func Keyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Button builds a callback button.
func Button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// ResolveUser resolves a numeric id or @username argument to a user. Ids are
// looked up as members of chatID; usernames through getChat.
func ResolveUser(ctx context.Context, b *bot.Bot, chatID int64, arg string) (*models.User, error) {
	if arg == "" {
		return nil, fmt.Errorf("empty user argument")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: id})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %d: %w", id, err)
		}
		if u := MemberUser(member); u != nil {
			return u, nil
		}
		return &models.User{ID: id}, nil
	}
	if !strings.HasPrefix(arg, "@") {
		arg = "@" + arg
	}
	chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: arg})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", arg, err)
	}
	return &models.User{ID: chat.ID, FirstName: chat.FirstName, LastName: chat.LastName, Username: chat.Username}, nil
}

// MemberUser returns the user carried by a chat member of any status.
func MemberUser(m *models.ChatMember) *models.User {
	if m == nil {
		return nil
	}
	switch m.Type {
	case models.ChatMemberTypeOwner:
		if m.Owner != nil {
			return m.Owner.User
		}
	case models.ChatMemberTypeAdministrator:
		if m.Administrator != nil {
			u := m.Administrator.User
			return &u
		}
	case models.ChatMemberTypeMember:
		if m.Member != nil {
			return m.Member.User
		}
	case models.ChatMemberTypeRestricted:
		if m.Restricted != nil {
			return m.Restricted.User
		}
	case models.ChatMemberTypeLeft:
		if m.Left != nil {
			return m.Left.User
		}
	case models.ChatMemberTypeBanned:
		if m.Banned != nil {
			return m.Banned.User
		}
	}
	return nil
}

// ErrNoTarget is returned by TargetUser when the message names no user.
var ErrNoTarget = errors.New("no target user")

// TargetUser picks the user a moderation command acts on: the author of the
// replied message, or else the user named by the first argument. It returns
// the arguments left after the target.
func TargetUser(ctx context.Context, b *bot.Bot, msg *models.Message, args []string) (*models.User, []string, error) {
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From, args, nil
	}
	if len(args) == 0 {
		return nil, nil, ErrNoTarget
	}
	user, err := ResolveUser(ctx, b, msg.Chat.ID, args[0])
	if err != nil {
		return nil, nil, err
	}
	return user, args[1:], nil
}

// EditMarkup replaces only the inline keyboard of a message.
func EditMarkup(ctx context.Context, b *bot.Bot, chatID int64, messageID int, markup models.ReplyMarkup) error {
	params := &bot.EditMessageReplyMarkupParams{ChatID: chatID, MessageID: messageID}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.EditMessageReplyMarkup(ctx, params); err != nil {
		return fmt.Errorf("failed to edit keyboard of message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// NoopData is the callback data of buttons that only display a state.
const NoopData = "noop"
