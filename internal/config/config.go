// Package config loads, defaults and validates the LunaBot configuration.
// Values come from an optional YAML file, a .env file and BOT_* environment
// variables, in increasing order of precedence.
package config

import (
	"slices"
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the root configuration of the bot.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AI         AIConfig         `mapstructure:"ai"`
	Plugins    PluginsConfig    `mapstructure:"plugins"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Content    ContentConfig    `mapstructure:"content"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LoggerConfig controls log output and which records reach the support chat.
type LoggerConfig struct {
	Level        string `mapstructure:"level"         validate:"required,oneof=debug info warn error"`
	JSON         bool   `mapstructure:"json"`
	File         string `mapstructure:"file"`
	SupportLevel string `mapstructure:"support_level" validate:"required,oneof=debug info warn error"`
}

// TelegramConfig holds the Bot API credentials and delivery settings.
type TelegramConfig struct {
	Token              string        `mapstructure:"token"                validate:"required"`
	OwnerIDs           []int64       `mapstructure:"owner_ids"`
	SupportChatID      int64         `mapstructure:"support_chat_id"`
	DropPendingUpdates bool          `mapstructure:"drop_pending_updates"`
	Webhook            WebhookConfig `mapstructure:"webhook"`

	// BotInfo is filled from getMe at startup.
	BotInfo *models.User `mapstructure:"-"`
}

// WebhookConfig switches update delivery from long polling to a webhook
// when URL is set.
type WebhookConfig struct {
	URL         string `mapstructure:"url"          validate:"omitempty,url"`
	Listen      string `mapstructure:"listen"       validate:"required_with=URL"`
	SecretToken string `mapstructure:"secret_token"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AIConfig selects the completion backend used by the chatgpt plugin.
type AIConfig struct {
	Provider          string        `mapstructure:"provider"            validate:"oneof=none openai gemini"`
	APIKey            string        `mapstructure:"api_key"             validate:"required_unless=Provider none"`
	Model             string        `mapstructure:"model"               validate:"required_unless=Provider none"`
	BaseURL           string        `mapstructure:"base_url"            validate:"omitempty,url"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=10m"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// PluginsConfig filters which registered plugins are loaded.
// An empty Enabled list means every registered plugin.
type PluginsConfig struct {
	Enabled     []string      `mapstructure:"enabled"`
	Disabled    []string      `mapstructure:"disabled"`
	TestTimeout time.Duration `mapstructure:"test_timeout" validate:"min=100ms,max=5m"`
}

// ModerationConfig holds the timings of the ban, mute and warn plugins.
type ModerationConfig struct {
	UnbanWindow  time.Duration `mapstructure:"unban_window"  validate:"min=1s"`
	MuteDuration time.Duration `mapstructure:"mute_duration" validate:"min=30s"`
	UndoWindow   time.Duration `mapstructure:"undo_window"   validate:"min=1s"`
	WarnLimit    int           `mapstructure:"warn_limit"    validate:"min=1,max=100"`
}

// ContentConfig locates the welcome, help and about texts.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// IsOwner reports whether userID is one of the configured bot owners.
func (c *Config) IsOwner(userID int64) bool {
	return slices.Contains(c.Telegram.OwnerIDs, userID)
}

// PluginAllowed reports whether the named plugin passes the enabled and
// disabled filters.
func (c *Config) PluginAllowed(name string) bool {
	if slices.Contains(c.Plugins.Disabled, name) {
		return false
	}
	if len(c.Plugins.Enabled) == 0 {
		return true
	}
	return slices.Contains(c.Plugins.Enabled, name)
}
