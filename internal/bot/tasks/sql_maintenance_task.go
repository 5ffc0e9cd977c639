package tasks

import (
	"context"
	"fmt"
	"time"
)

// maintenanceTimeout bounds a single VACUUM run.
const maintenanceTimeout = 10 * time.Minute

// newSQLMaintenanceTask checks the connection and compacts the database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		startTime := time.Now()
		if err := deps.Store.Ping(ctx); err != nil {
			log.ErrorContext(ctx, "Database unreachable, skipping maintenance", "error", err)
			return fmt.Errorf("sql maintenance ping failed: %w", err)
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(startTime))
		return nil
	}
}
