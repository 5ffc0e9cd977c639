package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional settings.
const (
	DefaultLogLevel     = "info"
	DefaultSupportLevel = "error"

	DefaultDBPath = "lunabot.db"

	DefaultAIProvider          = "none"
	DefaultAIModel             = "gpt-4o-mini"
	DefaultAITemperature       = 1.0
	DefaultAITimeout           = 2 * time.Minute
	DefaultAIMaxRetries        = 2
	DefaultAIRetryDelaySeconds = 2

	DefaultPluginTestTimeout = 10 * time.Second

	DefaultUnbanWindow  = time.Minute
	DefaultMuteDuration = time.Hour
	DefaultUndoWindow   = 60 * time.Second
	DefaultWarnLimit    = 3

	DefaultContentDir = "content"
)

// defaultTasks are the scheduled tasks known out of the box. Plugins may
// register more; they only run when listed here or in the config file.
var defaultTasks = map[string]TaskConfig{
	"sql_maintenance":   {Enabled: true, Schedule: "0 0 4 * * *"},
	"warn_undo_cleanup": {Enabled: true, Schedule: "0 */5 * * * *"},
	"games_expire":      {Enabled: true, Schedule: "0 */10 * * * *"},
}

// setDefaults registers every known key so that BOT_* environment variables
// can override it even when the config file omits it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.support_level", DefaultSupportLevel)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.owner_ids", []int64{})
	v.SetDefault("telegram.support_chat_id", 0)
	v.SetDefault("telegram.drop_pending_updates", true)
	v.SetDefault("telegram.webhook.url", "")
	v.SetDefault("telegram.webhook.listen", ":8080")
	v.SetDefault("telegram.webhook.secret_token", "")

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("ai.provider", DefaultAIProvider)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", DefaultAIModel)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.system_instruction", "")
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.retry_delay_seconds", DefaultAIRetryDelaySeconds)

	v.SetDefault("plugins.enabled", []string{})
	v.SetDefault("plugins.disabled", []string{})
	v.SetDefault("plugins.test_timeout", DefaultPluginTestTimeout)

	v.SetDefault("moderation.unban_window", DefaultUnbanWindow)
	v.SetDefault("moderation.mute_duration", DefaultMuteDuration)
	v.SetDefault("moderation.undo_window", DefaultUndoWindow)
	v.SetDefault("moderation.warn_limit", DefaultWarnLimit)

	v.SetDefault("content.dir", DefaultContentDir)

	for name, task := range defaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}
