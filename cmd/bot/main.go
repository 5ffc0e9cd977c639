// Package main contains the entrypoint for the LunaBot Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/lunabot/internal/ai"
	"github.com/edgard/lunabot/internal/bot"
	"github.com/edgard/lunabot/internal/bot/tasks"
	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/content"
	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/logger"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"

	_ "github.com/edgard/lunabot/internal/plugins/all" //revive:disable:blank-imports
)

const pluginCloseTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logging, storage, the AI client, the Telegram client,
// the plugins and the scheduler, then blocks until ctx is cancelled.
// It returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	out, closeOut, err := logger.OpenOutput(cfg.Logger.File)
	if err != nil {
		slog.Error("Failed to open log output", "path", cfg.Logger.File, "error", err)
		return 1
	}
	defer func() { _ = closeOut() }()

	support := logger.NewSupportHandler(
		logger.NewHandler(out, cfg.Logger.Level, cfg.Logger.JSON),
		logger.ParseLevel(cfg.Logger.SupportLevel),
	)
	log := slog.New(support)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "file", cfg.Logger.File)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	aiClient, err := ai.New(ctx, cfg.AI, log)
	if err != nil {
		log.Error("Failed to initialize AI client", "provider", cfg.AI.Provider, "error", err)
		return 1
	}

	texts, err := content.Load(cfg.Content.Dir, log)
	if err != nil {
		log.Error("Failed to load menu texts", "dir", cfg.Content.Dir, "error", err)
		return 1
	}

	router := telegram.NewRouter(log)
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), router.Middleware),
		tgbot.WithDefaultHandler(router.DefaultHandler),
	}
	if secret := cfg.Telegram.Webhook.SecretToken; secret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(secret))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	var notifier logger.Notifier
	if cfg.Telegram.SupportChatID != 0 {
		notifier = telegram.NewSupportNotifier(tg, cfg.Telegram.SupportChatID)
		support.SetNotifier(notifier)
	} else {
		log.Warn("No support chat configured, plugin errors are only logged")
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	deps := plugin.Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		AI:        aiClient,
		Scheduler: sched,
		Catalog:   plugin.NewCatalog(),
		Content:   texts,
		BotInfo:   cfg.Telegram.BotInfo,
		Support:   notifier,
	}
	result, err := bot.InstallPlugins(ctx, plugin.Default(), tg, router, sched, deps, plugin.Options{
		Allowed:     cfg.PluginAllowed,
		TestTimeout: cfg.Plugins.TestTimeout,
	})
	if err != nil {
		log.Error("Failed to install plugins", "error", err)
		return 1
	}
	log.Info("Plugins installed", "loaded", result.Loaded, "failed", len(result.Failed), "skipped", result.Skipped)

	app := bot.NewBot(log, cfg, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	closeCtx, cancelClose := context.WithTimeout(context.Background(), pluginCloseTimeout)
	if err := result.Close(closeCtx); err != nil {
		log.Error("Failed to close plugins", "error", err)
	}
	cancelClose()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
