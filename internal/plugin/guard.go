package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/logger"
)

type guard struct {
	log *slog.Logger
}

// Guard wraps a plugin handler so that neither a returned error nor a panic
// escapes into the dispatch loop. Both are logged at error level, which the
// support handler forwards to the support chat. Middleware runs inside the
// guard, the first one outermost.
func Guard(log *slog.Logger, plugin, name string, h Handler, mw ...tgbot.Middleware) tgbot.HandlerFunc {
	return (&guard{log: log}).wrap(plugin, name, h, mw...)
}

func (g *guard) wrap(plugin, name string, h Handler, mw ...tgbot.Middleware) tgbot.HandlerFunc {
	log := g.log.With("plugin", plugin, "handler", name)

	next := tgbot.HandlerFunc(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if err := h(ctx, b, update); err != nil {
			attrs := append([]any{"error", err}, logger.UpdateAttrs(update)...)
			log.ErrorContext(ctx, "Plugin handler failed", attrs...)
		}
	})
	for i := len(mw) - 1; i >= 0; i-- {
		next = mw[i](next)
	}

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		defer func() {
			if r := recover(); r != nil {
				attrs := append([]any{"panic", fmt.Sprint(r), "stack", string(debug.Stack())}, logger.UpdateAttrs(update)...)
				log.ErrorContext(ctx, "Plugin handler panicked", attrs...)
			}
		}()
		next(ctx, b, update)
	}
}

// safeCall runs fn, turning a panic into an error carrying the stack.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
