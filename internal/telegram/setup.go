// Package telegram wraps the go-telegram/bot SDK: bot construction, handler
// registration, the listener router and small chat helpers shared by plugins.
package telegram

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandlerKind selects how a RegisteredHandler is matched against updates.
type HandlerKind int

const (
	// KindCommand matches "/pattern" and "/pattern@botusername" messages.
	KindCommand HandlerKind = iota
	// KindCallbackPrefix matches callback data starting with pattern.
	KindCallbackPrefix
	// KindCallbackExact matches callback data equal to pattern.
	KindCallbackExact
)

func (k HandlerKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindCallbackPrefix:
		return "callback_prefix"
	case KindCallbackExact:
		return "callback_exact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RegisteredHandler is a handler together with its match rule and middleware.
type RegisteredHandler struct {
	Kind       HandlerKind
	Pattern    string
	Owner      string
	Handler    bot.HandlerFunc
	Middleware []bot.Middleware
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	log.Info("Telegram bot instance created successfully", "token_prefix", prefix+"...")
	return b, nil
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// MatchFunc returns the update predicate for a handler of the given kind.
func MatchFunc(kind HandlerKind, pattern, botUsername string) bot.MatchFunc {
	switch kind {
	case KindCommand:
		return MatchCommand(pattern, botUsername)
	case KindCallbackPrefix:
		return func(update *models.Update) bool {
			return update.CallbackQuery != nil && strings.HasPrefix(update.CallbackQuery.Data, pattern)
		}
	case KindCallbackExact:
		return func(update *models.Update) bool {
			return update.CallbackQuery != nil && update.CallbackQuery.Data == pattern
		}
	default:
		return func(*models.Update) bool { return false }
	}
}

// RegisterHandlers registers command and callback handlers with the Telegram
// bot instance, applying the middleware of each handler.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, botUsername string, registeredHandlers []RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	log.Info("Registering Telegram handlers...", "count", len(registeredHandlers))

	for _, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", regHandler.Pattern)
			continue
		}

		finalHandler := applyMiddleware(regHandler.Handler, regHandler.Middleware)
		b.RegisterHandlerMatchFunc(MatchFunc(regHandler.Kind, regHandler.Pattern, botUsername), finalHandler)
		log.Debug("Registered handler",
			"pattern", regHandler.Pattern,
			"kind", regHandler.Kind,
			"owner", regHandler.Owner,
			"middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}
