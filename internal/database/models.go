package database

import (
	"database/sql"
	"time"
)

// Ban records a ban issued by an admin. The inline unban button stays
// usable until UnbanExpiresAt.
type Ban struct {
	ID             int64         `db:"id"`
	ChatID         int64         `db:"chat_id"`
	UserID         int64         `db:"user_id"`
	Username       string        `db:"username"`
	FullName       string        `db:"full_name"`
	Reason         string        `db:"reason"`
	BannedBy       int64         `db:"banned_by"`
	BannedAt       time.Time     `db:"banned_at"`
	Unbanned       bool          `db:"unbanned"`
	UnbannedBy     sql.NullInt64 `db:"unbanned_by"`
	UnbannedAt     sql.NullTime  `db:"unbanned_at"`
	UnbanExpiresAt time.Time     `db:"unban_expires_at"`
}

// Mute records a temporary restriction.
type Mute struct {
	ID      int64     `db:"id"`
	ChatID  int64     `db:"chat_id"`
	UserID  int64     `db:"user_id"`
	MutedBy int64     `db:"muted_by"`
	MutedAt time.Time `db:"muted_at"`
	Until   time.Time `db:"muted_until"`
	Reason  string    `db:"reason"`
}

// Warn is the warning counter of a user in a chat.
type Warn struct {
	ChatID     int64     `db:"chat_id"`
	UserID     int64     `db:"user_id"`
	Username   string    `db:"username"`
	FullName   string    `db:"full_name"`
	Reason     string    `db:"reason"`
	Count      int       `db:"count"`
	LastWarned time.Time `db:"last_warned"`
}

// WarnUndo is a short-lived token that lets the warning admin revert a warn.
type WarnUndo struct {
	Token     string    `db:"token"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	WarnedBy  int64     `db:"warned_by"`
	Amount    int       `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// User is a tracked user of the bot.
type User struct {
	UserID           int64     `db:"user_id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	LanguageCode     string    `db:"language_code"`
	IsBot            bool      `db:"is_bot"`
	ChatID           int64     `db:"chat_id"`
	ChatType         string    `db:"chat_type"`
	FirstSeen        time.Time `db:"first_seen"`
	LastSeen         time.Time `db:"last_seen"`
	InteractionCount int       `db:"interaction_count"`
}

// UserStats summarises the users table.
type UserStats struct {
	Total    int
	NewToday int
	Top      []User
}

// Game statuses.
const (
	GameActive    = "active"
	GameCompleted = "completed"
	GameCancelled = "cancelled"
	GameGivenUp   = "given_up"
	GameExpired   = "expired"
)

// Game is a running or finished mini game. Payload holds the game specific
// state as JSON.
type Game struct {
	ID        int64        `db:"id"`
	ChatID    int64        `db:"chat_id"`
	MessageID int          `db:"message_id"`
	UserID    int64        `db:"user_id"`
	GameType  string       `db:"game_type"`
	Payload   string       `db:"payload"`
	Status    string       `db:"status"`
	HintUsed  bool         `db:"hint_used"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}

// Sample is a free-form note stored by the sample plugin.
type Sample struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	FullName  string    `db:"full_name"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// DataEntry is a key/value document readable by the owner.
type DataEntry struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Group tracks activity of a group chat.
type Group struct {
	ChatID       int64     `db:"chat_id"`
	Title        string    `db:"title"`
	ChatType     string    `db:"chat_type"`
	MemberDelta  int       `db:"member_delta"`
	LastActivity time.Time `db:"last_activity"`
}
