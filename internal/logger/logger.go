// Package logger provides structured logging for LunaBot on top of slog,
// an update-logging bot middleware and a handler that forwards serious
// records to the support chat.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler creates the base slog handler writing to w.
// If jsonOutput is true, records are formatted as JSON, otherwise as text.
func NewHandler(w io.Writer, levelStr string, jsonOutput bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}
	if jsonOutput {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// OpenOutput returns stdout, or stdout teed into the given log file when
// path is not empty. The returned close function is never nil.
func OpenOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return io.MultiWriter(os.Stdout, f), f.Close, nil
}

// Middleware creates a logging middleware for the Telegram bot.
// Every update is logged when it arrives and when its handler returns.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			logEntry := log.With("update_id", update.ID).With(UpdateAttrs(update)...)

			logEntry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// UpdateAttrs describes an update as log attributes.
func UpdateAttrs(update *models.Update) []any {
	switch {
	case update == nil:
		return []any{"update_type", "none"}
	case update.Message != nil:
		msg := update.Message
		attrs := []any{
			"update_type", "message",
			"message_id", msg.ID,
			"chat_id", msg.Chat.ID,
			"text_preview", truncateString(msg.Text, 50),
		}
		if msg.From != nil {
			attrs = append(attrs, "user_id", msg.From.ID)
		}
		return attrs
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		attrs := []any{
			"update_type", "callback_query",
			"callback_query_id", cq.ID,
			"user_id", cq.From.ID,
			"data", cq.Data,
		}
		switch {
		case cq.Message.Message != nil:
			attrs = append(attrs, "chat_id", cq.Message.Message.Chat.ID, "message_accessible", true)
		case cq.Message.InaccessibleMessage != nil:
			attrs = append(attrs, "chat_id", cq.Message.InaccessibleMessage.Chat.ID, "message_accessible", false)
		}
		return attrs
	case update.EditedMessage != nil:
		return []any{"update_type", "edited_message", "chat_id", update.EditedMessage.Chat.ID}
	default:
		return []any{"update_type", "other"}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
