package database

import (
	"context"
	"fmt"
	"time"
)

// SaveSample inserts a sample note and sets its ID.
func (s *sqlxStore) SaveSample(ctx context.Context, sample *Sample) error {
	if sample == nil {
		return fmt.Errorf("cannot save nil sample")
	}
	query := `
        INSERT INTO samples (chat_id, user_id, username, full_name, message, created_at)
        VALUES (:chat_id, :user_id, :username, :full_name, :message, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, sample)
	if err != nil {
		return fmt.Errorf("failed to save sample: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		sample.ID = id
	}
	return nil
}

// RecentSamples returns the newest samples of a chat, newest first.
func (s *sqlxStore) RecentSamples(ctx context.Context, chatID int64, limit int) ([]Sample, error) {
	if limit <= 0 || limit > 100 {
		limit = 3
	}
	var samples []Sample
	err := s.db.SelectContext(ctx, &samples, `
        SELECT id, chat_id, user_id, username, full_name, message, created_at
        FROM samples WHERE chat_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples for chat %d: %w", chatID, err)
	}
	return samples, nil
}

// GetData returns a stored document.
func (s *sqlxStore) GetData(ctx context.Context, key string) (*DataEntry, error) {
	return getOne[DataEntry](ctx, s.db, `SELECT key, value, updated_at FROM bot_data WHERE key = ?;`, key)
}

// PutData creates or replaces a stored document.
func (s *sqlxStore) PutData(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("data key must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO bot_data (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
    `, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store data %q: %w", key, err)
	}
	return nil
}

// ListDataKeys returns all document keys in order.
func (s *sqlxStore) ListDataKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM bot_data ORDER BY key;`); err != nil {
		return nil, fmt.Errorf("failed to list data keys: %w", err)
	}
	return keys, nil
}

// TouchGroup upserts group activity.
func (s *sqlxStore) TouchGroup(ctx context.Context, group *Group, memberDelta int) error {
	if group == nil || group.ChatID == 0 {
		return fmt.Errorf("group must have a non-zero chat_id")
	}
	at := group.LastActivity.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_groups (chat_id, title, chat_type, member_delta, last_activity)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (chat_id) DO UPDATE SET
            title = CASE WHEN excluded.title = '' THEN chat_groups.title ELSE excluded.title END,
            chat_type = CASE WHEN excluded.chat_type = '' THEN chat_groups.chat_type ELSE excluded.chat_type END,
            member_delta = chat_groups.member_delta + excluded.member_delta,
            last_activity = excluded.last_activity;
    `, group.ChatID, group.Title, group.ChatType, memberDelta, at)
	if err != nil {
		return fmt.Errorf("failed to record group activity for chat %d: %w", group.ChatID, err)
	}
	return nil
}

// GetGroup returns the activity record of a group.
func (s *sqlxStore) GetGroup(ctx context.Context, chatID int64) (*Group, error) {
	return getOne[Group](ctx, s.db, `
        SELECT chat_id, title, chat_type, member_delta, last_activity
        FROM chat_groups WHERE chat_id = ?;
    `, chatID)
}
