package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SaveBan inserts a ban record and sets its ID.
func (s *sqlxStore) SaveBan(ctx context.Context, ban *Ban) error {
	if ban == nil {
		return fmt.Errorf("cannot save nil ban")
	}
	if ban.ChatID == 0 || ban.UserID == 0 {
		return fmt.Errorf("ban must have non-zero chat_id and user_id")
	}

	query := `
        INSERT INTO bans (chat_id, user_id, username, full_name, reason, banned_by, banned_at, unbanned, unban_expires_at)
        VALUES (:chat_id, :user_id, :username, :full_name, :reason, :banned_by, :banned_at, :unbanned, :unban_expires_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, ban)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving ban", "chat_id", ban.ChatID, "user_id", ban.UserID, "error", err)
		return fmt.Errorf("failed to save ban (chat %d, user %d): %w", ban.ChatID, ban.UserID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		ban.ID = id
	}
	return nil
}

// GetActiveBan returns the newest ban of the user that is still in place.
func (s *sqlxStore) GetActiveBan(ctx context.Context, chatID, userID int64) (*Ban, error) {
	query := `
        SELECT id, chat_id, user_id, username, full_name, reason, banned_by, banned_at,
               unbanned, unbanned_by, unbanned_at, unban_expires_at
        FROM bans
        WHERE chat_id = ? AND user_id = ? AND unbanned = 0
        ORDER BY banned_at DESC
        LIMIT 1;
    `
	ban, err := getOne[Ban](ctx, s.db, query, chatID, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get active ban (chat %d, user %d): %w", chatID, userID, err)
	}
	return ban, err
}

// MarkUnbanned lifts all open bans of the user.
func (s *sqlxStore) MarkUnbanned(ctx context.Context, chatID, userID, unbannedBy int64, at time.Time) (int64, error) {
	query := `
        UPDATE bans SET unbanned = 1, unbanned_by = ?, unbanned_at = ?
        WHERE chat_id = ? AND user_id = ? AND unbanned = 0;
    `
	result, err := s.db.ExecContext(ctx, query, unbannedBy, at.UTC(), chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark bans lifted (chat %d, user %d): %w", chatID, userID, err)
	}
	return result.RowsAffected()
}

// SaveMute inserts a mute record and sets its ID.
func (s *sqlxStore) SaveMute(ctx context.Context, mute *Mute) error {
	if mute == nil {
		return fmt.Errorf("cannot save nil mute")
	}
	query := `
        INSERT INTO mutes (chat_id, user_id, muted_by, muted_at, muted_until, reason)
        VALUES (:chat_id, :user_id, :muted_by, :muted_at, :muted_until, :reason);
    `
	result, err := s.db.NamedExecContext(ctx, query, mute)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving mute", "chat_id", mute.ChatID, "user_id", mute.UserID, "error", err)
		return fmt.Errorf("failed to save mute (chat %d, user %d): %w", mute.ChatID, mute.UserID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		mute.ID = id
	}
	return nil
}

// DeleteMutes removes every mute of the user in the chat.
func (s *sqlxStore) DeleteMutes(ctx context.Context, chatID, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM mutes WHERE chat_id = ? AND user_id = ?;`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete mutes (chat %d, user %d): %w", chatID, userID, err)
	}
	return result.RowsAffected()
}

// AddWarn upserts the warn counter inside a transaction.
func (s *sqlxStore) AddWarn(ctx context.Context, warn *Warn, amount int) (int, error) {
	if warn == nil {
		return 0, fmt.Errorf("cannot save nil warn")
	}
	if amount <= 0 {
		return 0, fmt.Errorf("warn amount must be positive, got %d", amount)
	}

	var newCount int
	err := s.inTx(ctx, "add_warn", func(tx *sqlx.Tx) error {
		query := `
            INSERT INTO warns (chat_id, user_id, username, full_name, reason, count, last_warned)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (chat_id, user_id) DO UPDATE SET
                username = excluded.username,
                full_name = excluded.full_name,
                reason = excluded.reason,
                last_warned = excluded.last_warned,
                count = warns.count + excluded.count;
        `
		if _, err := tx.ExecContext(ctx, query,
			warn.ChatID, warn.UserID, warn.Username, warn.FullName, warn.Reason, amount, warn.LastWarned.UTC()); err != nil {
			return fmt.Errorf("failed to upsert warn (chat %d, user %d): %w", warn.ChatID, warn.UserID, err)
		}
		return tx.GetContext(ctx, &newCount, `SELECT count FROM warns WHERE chat_id = ? AND user_id = ?;`, warn.ChatID, warn.UserID)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding warn", "chat_id", warn.ChatID, "user_id", warn.UserID, "error", err)
		return 0, err
	}
	warn.Count = newCount
	return newCount, nil
}

// GetWarn returns the warn counter of the user.
func (s *sqlxStore) GetWarn(ctx context.Context, chatID, userID int64) (*Warn, error) {
	query := `
        SELECT chat_id, user_id, username, full_name, reason, count, last_warned
        FROM warns WHERE chat_id = ? AND user_id = ?;
    `
	return getOne[Warn](ctx, s.db, query, chatID, userID)
}

// SaveWarnUndo stores an undo token.
func (s *sqlxStore) SaveWarnUndo(ctx context.Context, undo *WarnUndo) error {
	if undo == nil || undo.Token == "" {
		return fmt.Errorf("undo token must not be empty")
	}
	query := `
        INSERT INTO warn_undo (token, chat_id, user_id, warned_by, amount, created_at)
        VALUES (:token, :chat_id, :user_id, :warned_by, :amount, :created_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, undo); err != nil {
		return fmt.Errorf("failed to save warn undo token: %w", err)
	}
	return nil
}

// GetWarnUndo looks up an undo token.
func (s *sqlxStore) GetWarnUndo(ctx context.Context, token string) (*WarnUndo, error) {
	query := `SELECT token, chat_id, user_id, warned_by, amount, created_at FROM warn_undo WHERE token = ?;`
	return getOne[WarnUndo](ctx, s.db, query, token)
}

// DeleteWarnUndo removes an undo token.
func (s *sqlxStore) DeleteWarnUndo(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM warn_undo WHERE token = ?;`, token); err != nil {
		return fmt.Errorf("failed to delete warn undo token: %w", err)
	}
	return nil
}

// UndoWarn decrements the counter by the token's amount and deletes the
// token in one transaction. A token consumed concurrently yields ErrNotFound.
func (s *sqlxStore) UndoWarn(ctx context.Context, undo *WarnUndo) (int, error) {
	var newCount int
	err := s.inTx(ctx, "undo_warn", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM warn_undo WHERE token = ?;`, undo.Token)
		if err != nil {
			return fmt.Errorf("failed to consume warn undo token: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		query := `UPDATE warns SET count = MAX(count - ?, 0) WHERE chat_id = ? AND user_id = ?;`
		if _, err := tx.ExecContext(ctx, query, undo.Amount, undo.ChatID, undo.UserID); err != nil {
			return fmt.Errorf("failed to decrement warn: %w", err)
		}

		err = tx.GetContext(ctx, &newCount, `SELECT count FROM warns WHERE chat_id = ? AND user_id = ?;`, undo.ChatID, undo.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			newCount = 0
			return nil
		}
		return err
	})
	return newCount, err
}

// DeleteWarnUndoBefore purges tokens created before cutoff.
func (s *sqlxStore) DeleteWarnUndoBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM warn_undo WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge warn undo tokens: %w", err)
	}
	return result.RowsAffected()
}

// CountChatWarns sums all warn counters of a chat.
func (s *sqlxStore) CountChatWarns(ctx context.Context, chatID int64) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(count), 0) FROM warns WHERE chat_id = ?;`, chatID); err != nil {
		return 0, fmt.Errorf("failed to count warns for chat %d: %w", chatID, err)
	}
	return total, nil
}
