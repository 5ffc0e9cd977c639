package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// SupportNotifier delivers log reports to the support chat.
type SupportNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewSupportNotifier returns a notifier posting to chatID.
func NewSupportNotifier(b *bot.Bot, chatID int64) *SupportNotifier {
	return &SupportNotifier{bot: b, chatID: chatID}
}

// Notify sends an HTML formatted report.
func (n *SupportNotifier) Notify(ctx context.Context, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to notify support chat %d: %w", n.chatID, err)
	}
	return nil
}
