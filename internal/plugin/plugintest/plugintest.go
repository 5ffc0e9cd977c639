// Package plugintest loads a single plugin against a fake Telegram API and a
// throwaway SQLite database so plugin tests can drive it with updates.
package plugintest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/ai"
	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/content"
	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
	"github.com/edgard/lunabot/internal/telegram/telegramtest"
)

// Fixed identities used by the fixtures.
const (
	OwnerID       int64 = 1
	AdminID       int64 = 2
	UserID        int64 = 3
	GroupID       int64 = -100100
	SupportChatID int64 = -100999
)

// Env is a loaded plugin with everything it talks to.
type Env struct {
	Server    *telegramtest.Server
	Bot       *tgbot.Bot
	Store     database.Store
	Config    *config.Config
	Scheduler *Scheduler
	Support   *Support
	Catalog   *plugin.Catalog
	Result    *plugin.LoadResult

	tasks map[string]plugin.TaskFunc
}

// Option adjusts the dependencies before the plugin is built.
type Option func(*plugin.Deps)

// WithAI sets the completion client.
func WithAI(c ai.Client) Option {
	return func(d *plugin.Deps) { d.AI = c }
}

// WithConfig edits the configuration.
func WithConfig(fn func(*config.Config)) Option {
	return func(d *plugin.Deps) { fn(d.Config) }
}

// Config returns the configuration used by the fixtures: one owner, a
// support chat and the default moderation timings.
func Config() *config.Config {
	return &config.Config{
		Logger: config.LoggerConfig{Level: "debug", SupportLevel: "error"},
		Telegram: config.TelegramConfig{
			Token:         telegramtest.Token,
			OwnerIDs:      []int64{OwnerID},
			SupportChatID: SupportChatID,
		},
		AI: config.AIConfig{Provider: ai.ProviderNone},
		Plugins: config.PluginsConfig{
			TestTimeout: config.DefaultPluginTestTimeout,
		},
		Moderation: config.ModerationConfig{
			UnbanWindow:  config.DefaultUnbanWindow,
			MuteDuration: config.DefaultMuteDuration,
			UndoWindow:   config.DefaultUndoWindow,
			WarnLimit:    config.DefaultWarnLimit,
		},
	}
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore opens a migrated database in a temporary directory.
func NewStore(t testing.TB) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, Logger())
}

// Load registers factory under name in a private registry and loads it.
// The test fails when the plugin does not load.
func Load(t testing.TB, name string, factory plugin.Factory, opts ...Option) *Env {
	t.Helper()
	env := LoadAllowFailure(t, name, factory, opts...)
	if err, failed := env.Result.Failed[name]; failed {
		t.Fatalf("plugin %s failed to load: %v", name, err)
	}
	return env
}

// LoadAllowFailure is Load without the success check.
func LoadAllowFailure(t testing.TB, name string, factory plugin.Factory, opts ...Option) *Env {
	t.Helper()
	ctx := context.Background()
	log := Logger()

	srv := telegramtest.New(t)
	router := telegram.NewRouter(log)
	b := srv.Bot(t, tgbot.WithDefaultHandler(router.DefaultHandler), tgbot.WithMiddlewares(router.Middleware))

	texts, err := content.Load("", log)
	if err != nil {
		t.Fatalf("failed to load default texts: %v", err)
	}

	botUser := telegramtest.BotUser
	env := &Env{
		Server:    srv,
		Bot:       b,
		Store:     NewStore(t),
		Config:    Config(),
		Scheduler: &Scheduler{},
		Support:   &Support{},
		Catalog:   plugin.NewCatalog(),
		tasks:     make(map[string]plugin.TaskFunc),
	}
	deps := plugin.Deps{
		Logger:    log,
		Config:    env.Config,
		Store:     env.Store,
		Scheduler: env.Scheduler,
		Catalog:   env.Catalog,
		Content:   texts,
		BotInfo:   &botUser,
		Support:   env.Support,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	reg := plugin.NewRegistry()
	reg.Register(name, factory)
	result, err := reg.Load(ctx, deps, plugin.Options{TestTimeout: env.Config.Plugins.TestTimeout})
	if err != nil {
		t.Fatalf("failed to load plugins: %v", err)
	}
	env.Result = result

	if err := telegram.RegisterHandlers(b, log, botUser.Username, result.Table.Handlers); err != nil {
		t.Fatalf("failed to register handlers: %v", err)
	}
	for _, l := range result.Table.Listeners {
		router.AddListener(l)
	}
	for _, o := range result.Table.Observers {
		router.AddObserver(o)
	}
	for _, task := range result.Table.Tasks {
		env.tasks[task.Name] = task.Fn
	}
	return env
}

// Dispatch feeds an update through the bot synchronously.
func (e *Env) Dispatch(update *models.Update) {
	e.Bot.ProcessUpdate(context.Background(), update)
}

// RunTask runs a periodic task contributed by the plugin.
func (e *Env) RunTask(t testing.TB, name string) error {
	t.Helper()
	fn, ok := e.tasks[name]
	if !ok {
		t.Fatalf("plugin registered no task %q", name)
	}
	return fn(context.Background())
}

// HasTask reports whether the plugin registered a task.
func (e *Env) HasTask(name string) bool {
	_, ok := e.tasks[name]
	return ok
}

// Scheduler records delayed jobs and runs them on demand.
type Scheduler struct {
	mu   sync.Mutex
	jobs []Job
}

// Job is a recorded delayed job.
type Job struct {
	Name  string
	Delay time.Duration
	Fn    func(ctx context.Context)
}

// After records the job.
func (s *Scheduler) After(delay time.Duration, name string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, Job{Name: name, Delay: delay, Fn: fn})
	return nil
}

// Jobs returns the pending jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// RunAll runs and forgets every pending job.
func (s *Scheduler) RunAll() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, j := range jobs {
		j.Fn(context.Background())
	}
}

// Support records support chat notifications.
type Support struct {
	mu    sync.Mutex
	texts []string
}

// Notify records text.
func (s *Support) Notify(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

// Texts returns the recorded notifications.
func (s *Support) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Message builds a text message update from userID in chatID.
func Message(chatID, userID int64, text string) *models.Update {
	chatType := models.ChatTypeSupergroup
	if chatID > 0 {
		chatType = models.ChatTypePrivate
	}
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Date: int(time.Now().Unix()),
			Text: text,
			Chat: models.Chat{ID: chatID, Type: chatType, Title: "Test Group"},
			From: &models.User{ID: userID, FirstName: "User", Username: "user"},
		},
	}
}

// Reply builds a message update that replies to a message of target.
func Reply(chatID, userID int64, text string, target models.User) *models.Update {
	update := Message(chatID, userID, text)
	update.Message.ReplyToMessage = &models.Message{
		ID:   9,
		Text: "original",
		Chat: update.Message.Chat,
		From: &target,
	}
	return update
}

// Callback builds a callback query update on bot message messageID.
func Callback(chatID, userID int64, messageID int, data string) *models.Update {
	return &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb",
			From: models.User{ID: userID, FirstName: "User"},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID:   messageID,
					Chat: models.Chat{ID: chatID, Type: models.ChatTypeSupergroup},
					From: &telegramtest.BotUser,
				},
			},
		},
	}
}
