package tasks

import "context"

// ScheduledTaskFunc is the signature of every scheduled task. The context
// is cancelled when the scheduler stops.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the core tasks keyed by their scheduler.tasks name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
	}
	deps.Logger.Info("Initialized core scheduled tasks", "count", len(tasks))
	return tasks
}
