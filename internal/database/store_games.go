package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// errNotActive explains an ErrNotFound from a conditional update.
var errNotActive = errors.New("game not active")

const gameColumns = `id, chat_id, message_id, user_id, game_type, payload, status, hint_used, started_at, ended_at`

// CreateGame inserts a game and sets its ID.
func (s *sqlxStore) CreateGame(ctx context.Context, game *Game) error {
	if game == nil {
		return fmt.Errorf("cannot save nil game")
	}
	if game.Status == "" {
		game.Status = GameActive
	}
	query := `
        INSERT INTO games (chat_id, message_id, user_id, game_type, payload, status, hint_used, started_at)
        VALUES (:chat_id, :message_id, :user_id, :game_type, :payload, :status, :hint_used, :started_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, game)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving game", "chat_id", game.ChatID, "game_type", game.GameType, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		game.ID = id
	}
	return nil
}

// GetActiveGameByMessage finds the active game bound to a bot message.
func (s *sqlxStore) GetActiveGameByMessage(ctx context.Context, chatID int64, messageID int) (*Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
        WHERE chat_id = ? AND message_id = ? AND status = ?
        LIMIT 1;`
	return getOne[Game](ctx, s.db, query, chatID, messageID, GameActive)
}

// GetActiveGameForPlayer returns the most recent active game of the player.
func (s *sqlxStore) GetActiveGameForPlayer(ctx context.Context, chatID, userID int64) (*Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
        WHERE chat_id = ? AND user_id = ? AND status = ?
        ORDER BY started_at DESC, id DESC
        LIMIT 1;`
	return getOne[Game](ctx, s.db, query, chatID, userID, GameActive)
}

// FinishGame moves an active game to a terminal status.
func (s *sqlxStore) FinishGame(ctx context.Context, id int64, status string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, ended_at = ? WHERE id = ? AND status = ?;`,
		status, at.UTC(), id, GameActive)
	if err != nil {
		return fmt.Errorf("failed to finish game %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %w", ErrNotFound, errNotActive)
	}
	return nil
}

// MarkGameHintUsed flags that the player asked for a hint.
func (s *sqlxStore) MarkGameHintUsed(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE games SET hint_used = 1 WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("failed to mark hint for game %d: %w", id, err)
	}
	return nil
}

// ExpireGames closes active games started before cutoff.
func (s *sqlxStore) ExpireGames(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, ended_at = ? WHERE status = ? AND started_at < ?;`,
		GameExpired, time.Now().UTC(), GameActive, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire games: %w", err)
	}
	return result.RowsAffected()
}

// IsNotFound reports whether err means a lookup matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
