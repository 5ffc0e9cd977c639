package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TouchUser inserts the user on first sight, otherwise refreshes names and
// last_seen and increments the interaction counter.
func (s *sqlxStore) TouchUser(ctx context.Context, user *User) (bool, error) {
	if user == nil || user.UserID == 0 {
		return false, fmt.Errorf("user must have a non-zero user_id")
	}

	now := user.LastSeen.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var created bool
	err := s.inTx(ctx, "touch_user", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE users SET
                username = ?, first_name = ?, last_name = ?,
                last_seen = ?, interaction_count = interaction_count + 1
            WHERE user_id = ?;
        `, user.Username, user.FirstName, user.LastName, now, user.UserID)
		if err != nil {
			return fmt.Errorf("failed to update user %d: %w", user.UserID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			return nil
		}

		user.FirstSeen = now
		user.LastSeen = now
		user.InteractionCount = 1
		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO users (user_id, username, first_name, last_name, language_code, is_bot,
                               chat_id, chat_type, first_seen, last_seen, interaction_count)
            VALUES (:user_id, :username, :first_name, :last_name, :language_code, :is_bot,
                    :chat_id, :chat_type, :first_seen, :last_seen, :interaction_count);
        `, user)
		if err != nil {
			return fmt.Errorf("failed to insert user %d: %w", user.UserID, err)
		}
		created = true
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error tracking user", "user_id", user.UserID, "error", err)
		return false, err
	}
	return created, nil
}

// CountUsers returns the number of tracked users.
func (s *sqlxStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users;`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetUserStats returns totals and the most active users.
func (s *sqlxStore) GetUserStats(ctx context.Context, dayStart time.Time, top int) (*UserStats, error) {
	if top <= 0 {
		top = 5
	}
	stats := &UserStats{}
	if err := s.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM users;`); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.NewToday, `SELECT COUNT(*) FROM users WHERE first_seen >= ?;`, dayStart.UTC()); err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}
	err := s.db.SelectContext(ctx, &stats.Top, `
        SELECT user_id, username, first_name, last_name, language_code, is_bot,
               chat_id, chat_type, first_seen, last_seen, interaction_count
        FROM users
        ORDER BY interaction_count DESC, user_id ASC
        LIMIT ?;
    `, top)
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}
	return stats, nil
}

// ToggleChatGPTUser flips per-user AI replies.
func (s *sqlxStore) ToggleChatGPTUser(ctx context.Context, userID int64) (bool, error) {
	var enabled bool
	err := s.inTx(ctx, "toggle_chatgpt_user", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM chatgpt_users WHERE user_id = ?;`, userID)
		if err != nil {
			return fmt.Errorf("failed to disable chatgpt for user %d: %w", userID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chatgpt_users (user_id, enabled_at) VALUES (?, ?);`,
			userID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to enable chatgpt for user %d: %w", userID, err)
		}
		enabled = true
		return nil
	})
	return enabled, err
}

// ToggleChatGPTGroup flips group-wide AI replies.
func (s *sqlxStore) ToggleChatGPTGroup(ctx context.Context, chatID, enabledBy int64) (bool, error) {
	var enabled bool
	err := s.inTx(ctx, "toggle_chatgpt_group", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM chatgpt_groups WHERE chat_id = ?;`, chatID)
		if err != nil {
			return fmt.Errorf("failed to disable chatgpt for chat %d: %w", chatID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chatgpt_groups (chat_id, enabled_by, enabled_at) VALUES (?, ?, ?);`,
			chatID, enabledBy, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to enable chatgpt for chat %d: %w", chatID, err)
		}
		enabled = true
		return nil
	})
	return enabled, err
}

// ChatGPTEnabled reports whether AI replies are on for the user or the chat.
func (s *sqlxStore) ChatGPTEnabled(ctx context.Context, userID, chatID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
        SELECT (SELECT COUNT(*) FROM chatgpt_users WHERE user_id = ?)
             + (SELECT COUNT(*) FROM chatgpt_groups WHERE chat_id = ?);
    `, userID, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to check chatgpt state: %w", err)
	}
	return n > 0, nil
}
