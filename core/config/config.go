package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/offerbot/core/database"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// OpsConfig configures the operational HTTP server.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// BotConfig carries conversation-level settings of the offer bot.
type BotConfig struct {
	// RequiredChannels lists channel usernames a user must join before
	// protected actions unlock. Entries may carry a leading @.
	RequiredChannels []string `yaml:"required_channels" envconfig:"REQUIRED_CHANNELS"`
	// HelpDailyLimit caps help requests per user per UTC day.
	HelpDailyLimit int `yaml:"help_daily_limit" envconfig:"HELP_DAILY_LIMIT"`
	// MessageLimit bounds outbound message length in characters.
	MessageLimit int `yaml:"message_limit" envconfig:"MESSAGE_LIMIT"`
}

// PostbackConfig tunes the postback orchestration engine.
type PostbackConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" envconfig:"POSTBACK_TIMEOUT_SECONDS"`
	Workers               int `yaml:"workers" envconfig:"POSTBACK_WORKERS"`
	QueueSize             int `yaml:"queue_size" envconfig:"POSTBACK_QUEUE_SIZE"`
	// BodyLimit bounds stored/reported response bodies in characters.
	// Zero selects a profile default (500 debug, 1000 prod).
	BodyLimit int `yaml:"body_limit" envconfig:"POSTBACK_BODY_LIMIT"`
}

// RateLimitConfig holds settings for the transport-level flood limiter.
// ExcludeCallbacks skips limiting for button presses so menu taps stay snappy.
type RateLimitConfig struct {
	IntervalMS       int  `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeCallbacks bool `yaml:"exclude_callbacks" envconfig:"RATE_LIMIT_EXCLUDE_CALLBACKS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// MaxPostbackSteps bounds how many callback templates one offer may carry.
	MaxPostbackSteps = 5

	defaultHelpDailyLimit  = 2
	defaultMessageLimit    = 4000
	defaultPostbackTimeout = 15
	defaultPostbackWorkers = 8
	defaultPostbackQueue   = 64
	defaultBodyLimitDebug  = 500
	defaultBodyLimitProd   = 1000
)

// Config aggregates the full service configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Database  database.Config `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ops       OpsConfig       `yaml:"ops"`
	Bot       BotConfig       `yaml:"bot"`
	Postback  PostbackConfig  `yaml:"postback"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for i, ch := range cfg.Bot.RequiredChannels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			return fmt.Errorf("bot.required_channels[%d] is empty", i)
		}
		if !strings.HasPrefix(ch, "@") {
			ch = "@" + ch
		}
		cfg.Bot.RequiredChannels[i] = ch
	}

	if cfg.Bot.HelpDailyLimit <= 0 {
		cfg.Bot.HelpDailyLimit = defaultHelpDailyLimit
	}
	if cfg.Bot.MessageLimit <= 0 {
		cfg.Bot.MessageLimit = defaultMessageLimit
	}

	if cfg.Postback.RequestTimeoutSeconds <= 0 {
		cfg.Postback.RequestTimeoutSeconds = defaultPostbackTimeout
	}
	if cfg.Postback.Workers <= 0 {
		cfg.Postback.Workers = defaultPostbackWorkers
	}
	if cfg.Postback.QueueSize <= 0 {
		cfg.Postback.QueueSize = defaultPostbackQueue
	}
	if cfg.Postback.BodyLimit <= 0 {
		if IsDebugProfile(cfg) {
			cfg.Postback.BodyLimit = defaultBodyLimitDebug
		} else {
			cfg.Postback.BodyLimit = defaultBodyLimitProd
		}
	}

	if cfg.RateLimit.IntervalMS <= 0 {
		cfg.RateLimit.IntervalMS = 700
	}

	if cfg.Ops.Listen == "" {
		cfg.Ops.Listen = ":8080"
	}

	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	return nil
}

// PostbackTimeout returns the per-step HTTP timeout as a duration.
func (c PostbackConfig) PostbackTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// IsDebugProfile reports whether the logging profile selects dev behaviour.
func IsDebugProfile(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(cfg.Logging.Profile))
	return p == "debug" || p == "dev"
}
