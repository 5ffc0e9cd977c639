// Package tasks implements the scheduled tasks owned by the bot core.
// Plugins contribute their own tasks through their registrar.
package tasks

import (
	"log/slog"

	"github.com/edgard/lunabot/internal/config"
	"github.com/edgard/lunabot/internal/database"
)

// TaskDeps contains the dependencies of core tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
