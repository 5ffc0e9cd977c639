package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
	"github.com/edgard/lunabot/internal/telegram/telegramtest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pingStore struct {
	database.Store
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "healthy", wantCode: http.StatusOK},
		{name: "database down", err: errors.New("closed"), wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			HealthHandler(pingStore{err: tt.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestSchedulerAfter(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(discard(), &config.SchedulerConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, sched.Start())
	t.Cleanup(func() { _ = sched.Stop() })

	done := make(chan struct{})
	require.NoError(t, sched.After(10*time.Millisecond, "test_job", func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("one-shot job did not run")
	}

	assert.Error(t, sched.After(time.Second, "nil_job", nil))
	assert.Error(t, sched.AddTask("late", "* * * * * *", func(context.Context) error { return nil }))
}

func TestSchedulerTaskConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"configured": {Enabled: false, Schedule: "0 0 * * * *"},
	}}
	sched, err := NewScheduler(discard(), cfg, nil)
	require.NoError(t, err)

	noop := func(context.Context) error { return nil }
	require.NoError(t, sched.AddTask("configured", "0 * * * * *", noop))
	require.NoError(t, sched.AddTask("fallback", "0 */5 * * * *", noop))
	require.NoError(t, sched.AddTask("unscheduled", "", noop))
	assert.Error(t, sched.AddTask("fallback", "", noop), "task names are unique")

	assert.Equal(t, config.TaskConfig{Enabled: false, Schedule: "0 0 * * * *"}, sched.taskConfig("configured", sched.taskMap["configured"]))
	assert.Equal(t, config.TaskConfig{Enabled: true, Schedule: "0 */5 * * * *"}, sched.taskConfig("fallback", sched.taskMap["fallback"]))
	assert.False(t, sched.taskConfig("unscheduled", sched.taskMap["unscheduled"]).Enabled)

	require.NoError(t, sched.Start())
	assert.Error(t, sched.Start())
	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop())
}

// testPlugin registers one command, one listener and one observer.
type testPlugin struct {
	name     string
	command  string
	commands *atomic.Int32
	heard    *atomic.Int32
	seen     *atomic.Int32
	panics   bool
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) Setup(r *plugin.Registrar) error {
	r.Command(p.command, func(context.Context, *tgbot.Bot, *models.Update) error {
		p.commands.Add(1)
		if p.panics {
			panic("handler bug")
		}
		return nil
	})
	r.Message("text", func(u *models.Update) bool { return u.Message != nil }, func(context.Context, *tgbot.Bot, *models.Update) error {
		p.heard.Add(1)
		if p.panics {
			panic("listener bug")
		}
		return nil
	})
	r.Observe("all", func(context.Context, *tgbot.Bot, *models.Update) error {
		p.seen.Add(1)
		return nil
	})
	r.Task(p.name+"_task", "0 0 * * * *", func(context.Context) error { return nil })
	return nil
}

func TestInstallPluginsDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := telegramtest.New(t)
	router := telegram.NewRouter(discard())
	tg := srv.Bot(t, tgbot.WithDefaultHandler(router.DefaultHandler), tgbot.WithMiddlewares(router.Middleware))

	sched, err := NewScheduler(discard(), &config.SchedulerConfig{}, nil)
	require.NoError(t, err)

	var commands, heard, seen atomic.Int32
	reg := plugin.NewRegistry()
	reg.Register("alpha", func(plugin.Deps) (plugin.Plugin, error) {
		return &testPlugin{name: "alpha", command: "alpha", commands: &commands, heard: &heard, seen: &seen, panics: true}, nil
	})
	reg.Register("beta", func(plugin.Deps) (plugin.Plugin, error) {
		return &testPlugin{name: "beta", command: "beta", commands: &commands, heard: &heard, seen: &seen}, nil
	})
	reg.Register("gamma", func(plugin.Deps) (plugin.Plugin, error) {
		return &testPlugin{name: "gamma", command: "beta", commands: &commands, heard: &heard, seen: &seen}, nil
	})

	botUser := telegramtest.BotUser
	result, err := InstallPlugins(ctx, reg, tg, router, sched, plugin.Deps{Logger: discard(), BotInfo: &botUser}, plugin.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, result.Loaded)
	assert.ErrorIs(t, result.Failed["gamma"], plugin.ErrDuplicate)
	assert.Contains(t, sched.taskMap, "alpha_task")
	assert.NotContains(t, sched.taskMap, "gamma_task")

	message := func(text string) *models.Update {
		return &models.Update{ID: 1, Message: &models.Message{ID: 1, Text: text, Chat: models.Chat{ID: -1}, From: &models.User{ID: 5}}}
	}

	assert.NotPanics(t, func() { tg.ProcessUpdate(ctx, message("/alpha")) })
	assert.NotPanics(t, func() { tg.ProcessUpdate(ctx, message("/beta@luna_bot")) })
	assert.Equal(t, int32(2), commands.Load())
	assert.Equal(t, int32(0), heard.Load(), "commands are not fanned out to listeners")

	assert.NotPanics(t, func() { tg.ProcessUpdate(ctx, message("hello")) })
	assert.Equal(t, int32(2), heard.Load(), "every listener runs even after one panics")
	assert.Equal(t, int32(6), seen.Load(), "observers see every update")
}
