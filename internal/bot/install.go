package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/lunabot/internal/bot/tasks"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// InstallPlugins loads every plugin of reg and wires the committed table
// into the bot: commands and callbacks to the SDK, listeners and observers
// to the router and tasks to the scheduler.
func InstallPlugins(
	ctx context.Context,
	reg *plugin.Registry,
	tg *tgbot.Bot,
	router *telegram.Router,
	sched *Scheduler,
	deps plugin.Deps,
	opts plugin.Options,
) (*plugin.LoadResult, error) {
	result, err := reg.Load(ctx, deps, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}
	table := result.Table

	botUsername := ""
	if deps.BotInfo != nil {
		botUsername = deps.BotInfo.Username
	}
	if err := telegram.RegisterHandlers(tg, deps.Logger, botUsername, table.Handlers); err != nil {
		return nil, fmt.Errorf("failed to register plugin handlers: %w", err)
	}
	for _, l := range table.Listeners {
		router.AddListener(l)
	}
	for _, o := range table.Observers {
		router.AddObserver(o)
	}
	for _, task := range table.Tasks {
		if err := sched.AddTask(task.Name, task.Schedule, tasks.ScheduledTaskFunc(task.Fn)); err != nil {
			deps.Logger.ErrorContext(ctx, "Failed to add plugin task", "plugin", task.Owner, "task_name", task.Name, "error", err)
		}
	}
	return result, nil
}
