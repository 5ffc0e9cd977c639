// Package ai provides the completion client used by the chatgpt plugin.
// Two backends are supported: OpenAI compatible chat completions and Google
// Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/lunabot/internal/config"
)

// Provider names accepted in ai.provider.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrEmptyReply is returned when the backend answered without any text.
var ErrEmptyReply = errors.New("ai returned an empty reply")

// Request is a single prompt addressed to the bot.
type Request struct {
	BotName  string
	UserName string
	Text     string
}

// Client generates a reply for a user message.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// systemHeader is prepended to the configured system instruction.
const systemHeader = "You are %s, a friendly Telegram bot. Reply to %s directly and keep the answer short enough for a chat message.\n\n"

// New builds the client selected by cfg.Provider behind a circuit breaker.
// It returns a nil Client and no error when the provider is "none".
func New(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		log.Info("AI provider disabled")
		return nil, nil
	case ProviderOpenAI:
		return withBreaker(ProviderOpenAI, newOpenAIClient(cfg, log), breakerFailures, breakerCooldown, log), nil
	case ProviderGemini:
		c, err := newGeminiClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return withBreaker(ProviderGemini, c, breakerFailures, breakerCooldown, log), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func systemInstruction(cfg config.AIConfig, req Request) string {
	botName := req.BotName
	if botName == "" {
		botName = "the bot"
	}
	userName := req.UserName
	if userName == "" {
		userName = "the user"
	}
	return fmt.Sprintf(systemHeader, botName, userName) + cfg.SystemInstruction
}

// withRetries runs call until it succeeds, fails with an error that
// retriable rejects, or maxRetries extra attempts are used.
func withRetries(ctx context.Context, log *slog.Logger, maxRetries int, delay time.Duration, retriable func(error) bool, call func(context.Context) error) error {
	var err error
	for i := 0; i <= maxRetries; i++ {
		err = call(ctx)
		if err == nil {
			return nil
		}

		log.WarnContext(ctx, "AI API call failed, checking for retry", "attempt", i+1, "max_retries", maxRetries, "error", err)

		if !retriable(err) {
			return fmt.Errorf("ai API call failed: %w", err)
		}
		if i == maxRetries {
			break
		}

		log.InfoContext(ctx, "Retrying AI API call", "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("ai API call cancelled while waiting to retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ai API call failed after %d retries: %w", maxRetries, err)
}
