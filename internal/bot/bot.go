// Package bot orchestrates the running bot: the update listener (long
// polling or webhook), the scheduler and the plugin installation.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/database"
)

// shutdownTimeout bounds the graceful stop of the webhook HTTP server.
const shutdownTimeout = 5 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts the listener and the scheduler and blocks until ctx is
// cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	if b.cfg.Telegram.Webhook.URL != "" {
		g.Go(func() error { return b.runWebhook(gCtx) })
	} else {
		g.Go(func() error { return b.runPolling(gCtx) })
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) runPolling(ctx context.Context) error {
	// A webhook left over from a previous deployment blocks getUpdates.
	if _, err := b.tgBot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{
		DropPendingUpdates: b.cfg.Telegram.DropPendingUpdates,
	}); err != nil {
		return fmt.Errorf("failed to delete webhook before polling: %w", err)
	}

	b.logger.Info("Starting Telegram long polling listener...")
	b.tgBot.Start(ctx)
	b.logger.Info("Telegram polling listener stopped.")

	if ctx.Err() == nil {
		b.logger.Warn("Telegram polling listener stopped unexpectedly without context cancellation.")
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}

func (b *Bot) runWebhook(ctx context.Context) error {
	wh := b.cfg.Telegram.Webhook
	path := "/"
	if u, err := url.Parse(wh.URL); err == nil && u.Path != "" {
		path = u.Path
	}

	if _, err := b.tgBot.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:                wh.URL,
		SecretToken:        wh.SecretToken,
		DropPendingUpdates: b.cfg.Telegram.DropPendingUpdates,
	}); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler(b.store))
	mux.Handle(path, b.tgBot.WebhookHandler())

	srv := &http.Server{
		Addr:              wh.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.logger.Info("Starting Telegram webhook listener...", "listen", wh.Listen, "path", path)
		b.tgBot.StartWebhook(gCtx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error shutting down webhook server", "error", err)
		}
		return nil
	})

	err := g.Wait()
	b.logger.Info("Telegram webhook listener stopped.")
	return err
}

// HealthHandler answers 200 while the database is reachable and 503 otherwise.
func HealthHandler(store database.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}
