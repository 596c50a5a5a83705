// Package config loads hookrelay settings in layers: built-in defaults,
// then an optional YAML/JSON/TOML file, then HOOKRELAY_* environment
// variables, then command-line flags. The merged result is validated
// before it is returned.
package config

import (
	"time"
)

// EnvPrefix prefixes every environment variable, so dispatch.min_emit_interval
// is read from HOOKRELAY_DISPATCH_MIN_EMIT_INTERVAL.
const EnvPrefix = "HOOKRELAY"

// Config is the complete hookrelay configuration.
type Config struct {
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
}

// WebhookConfig identifies the endpoint and how posts appear there.
type WebhookConfig struct {
	URL       string `mapstructure:"url" validate:"required,http_url"`
	Username  string `mapstructure:"username" validate:"max=80"`
	AvatarURL string `mapstructure:"avatar_url" validate:"omitempty,http_url"`
	CodeBlock bool   `mapstructure:"code_block"`
}

// DispatchConfig controls pacing and which events are forwarded.
type DispatchConfig struct {
	MinEmitInterval time.Duration `mapstructure:"min_emit_interval" validate:"min=0"`
	SendTimeout     time.Duration `mapstructure:"send_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	Level           string        `mapstructure:"level" validate:"oneof=debug info warn warning error critical fatal"`
}

// TransportConfig tunes the HTTP client.
type TransportConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=0"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxRPS    int           `mapstructure:"max_rps" validate:"min=0"`
	Burst     int           `mapstructure:"burst" validate:"min=0"`
}

// LoggingConfig is the relay's own diagnostic logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json auto"`
}

// ServerConfig is used by the ingest server only.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// defaults maps every key to its built-in value. Every key must appear here
// so environment variables can override it.
var defaults = map[string]any{
	"webhook.url":        "",
	"webhook.username":   "",
	"webhook.avatar_url": "",
	"webhook.code_block": true,

	"dispatch.min_emit_interval": "1s",
	"dispatch.send_timeout":      "10s",
	"dispatch.shutdown_timeout":  "15s",
	"dispatch.level":             "info",

	"transport.timeout":    "30s",
	"transport.user_agent": "hookrelay",
	"transport.max_rps":    0,
	"transport.burst":      1,

	"logging.level":  "info",
	"logging.format": "text",

	"server.listen":         ":8080",
	"server.read_timeout":   "5s",
	"server.write_timeout":  "10s",
	"server.idle_timeout":   "120s",
	"server.max_body_bytes": 1 << 20,
	"server.cors_origins":   []string{},
}

// FlagKeys maps command-line flag names onto config keys. Load binds
// whichever of these the given flag set defines.
var FlagKeys = map[string]string{
	"url":              "webhook.url",
	"username":         "webhook.username",
	"avatar-url":       "webhook.avatar_url",
	"code-block":       "webhook.code_block",
	"interval":         "dispatch.min_emit_interval",
	"send-timeout":     "dispatch.send_timeout",
	"shutdown-timeout": "dispatch.shutdown_timeout",
	"level":            "dispatch.level",
	"timeout":          "transport.timeout",
	"user-agent":       "transport.user_agent",
	"max-rps":          "transport.max_rps",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"listen":           "server.listen",
}
