package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the persistence operations used by plugins and tasks.
// Every method accepts a context for cancellation and timeouts. Lookups
// that match nothing return ErrNotFound.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// SaveBan inserts a ban record.
	SaveBan(ctx context.Context, ban *Ban) error
	// GetActiveBan returns the latest ban of the user that is not yet lifted.
	GetActiveBan(ctx context.Context, chatID, userID int64) (*Ban, error)
	// MarkUnbanned lifts every open ban of the user and returns how many rows changed.
	MarkUnbanned(ctx context.Context, chatID, userID, unbannedBy int64, at time.Time) (int64, error)

	// SaveMute inserts a mute record.
	SaveMute(ctx context.Context, mute *Mute) error
	// DeleteMutes removes every mute of the user in the chat.
	DeleteMutes(ctx context.Context, chatID, userID int64) (int64, error)

	// AddWarn adds amount to the user's counter, creating it when missing,
	// and returns the new count.
	AddWarn(ctx context.Context, warn *Warn, amount int) (int, error)
	// GetWarn returns the warn counter of the user.
	GetWarn(ctx context.Context, chatID, userID int64) (*Warn, error)
	// SaveWarnUndo stores an undo token.
	SaveWarnUndo(ctx context.Context, undo *WarnUndo) error
	// GetWarnUndo looks up an undo token.
	GetWarnUndo(ctx context.Context, token string) (*WarnUndo, error)
	// DeleteWarnUndo removes an undo token. Missing tokens are not an error.
	DeleteWarnUndo(ctx context.Context, token string) error
	// UndoWarn reverts the warn behind undo and consumes the token atomically.
	// The counter never drops below zero. It returns the new count.
	UndoWarn(ctx context.Context, undo *WarnUndo) (int, error)
	// DeleteWarnUndoBefore purges tokens created before cutoff.
	DeleteWarnUndoBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// CountChatWarns sums all warn counters of a chat.
	CountChatWarns(ctx context.Context, chatID int64) (int, error)

	// TouchUser records an interaction of the user. It reports true when the
	// user was seen for the first time.
	TouchUser(ctx context.Context, user *User) (bool, error)
	// CountUsers returns the number of tracked users.
	CountUsers(ctx context.Context) (int, error)
	// GetUserStats returns totals, users first seen since dayStart and the
	// top users by interaction count.
	GetUserStats(ctx context.Context, dayStart time.Time, top int) (*UserStats, error)

	// ToggleChatGPTUser flips per-user AI replies and returns the new state.
	ToggleChatGPTUser(ctx context.Context, userID int64) (bool, error)
	// ToggleChatGPTGroup flips group-wide AI replies and returns the new state.
	ToggleChatGPTGroup(ctx context.Context, chatID, enabledBy int64) (bool, error)
	// ChatGPTEnabled reports whether AI replies are on for the user or the chat.
	ChatGPTEnabled(ctx context.Context, userID, chatID int64) (bool, error)

	// CreateGame inserts a game and sets its ID.
	CreateGame(ctx context.Context, game *Game) error
	// GetActiveGameByMessage finds the active game bound to a bot message.
	GetActiveGameByMessage(ctx context.Context, chatID int64, messageID int) (*Game, error)
	// GetActiveGameForPlayer returns the player's most recent active game in the chat.
	GetActiveGameForPlayer(ctx context.Context, chatID, userID int64) (*Game, error)
	// FinishGame sets a terminal status on an active game. It returns
	// ErrNotFound when the game is no longer active.
	FinishGame(ctx context.Context, id int64, status string, at time.Time) error
	// MarkGameHintUsed flags that the player asked for a hint.
	MarkGameHintUsed(ctx context.Context, id int64) error
	// ExpireGames closes active games started before cutoff.
	ExpireGames(ctx context.Context, cutoff time.Time) (int64, error)

	// SaveSample inserts a sample note.
	SaveSample(ctx context.Context, sample *Sample) error
	// RecentSamples returns the newest samples of a chat.
	RecentSamples(ctx context.Context, chatID int64, limit int) ([]Sample, error)

	// GetData returns a stored document.
	GetData(ctx context.Context, key string) (*DataEntry, error)
	// PutData creates or replaces a stored document.
	PutData(ctx context.Context, key, value string) error
	// ListDataKeys returns all document keys in order.
	ListDataKeys(ctx context.Context) ([]string, error)

	// TouchGroup upserts group activity, adding memberDelta to the join/leave balance.
	TouchGroup(ctx context.Context, group *Group, memberDelta int) error
	// GetGroup returns the activity record of a group.
	GetGroup(ctx context.Context, chatID int64) (*Group, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, rolling back when fn fails.
func (s *sqlxStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction for %s: %w", op, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction for %s: %w", op, err)
	}
	tx = nil
	return nil
}

// getOne wraps GetContext so that no-row results become ErrNotFound.
func getOne[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*T, error) {
	var out T
	if err := sqlx.GetContext(ctx, q, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
