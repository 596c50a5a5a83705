package hookrelay

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/hookrelay/client"
	"github.com/adamwoolhether/hookrelay/dispatch"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/webhook"
)

// Option is a functional option for configuring a [Relay] via [New].
type Option func(*options) error

type options struct {
	logger       *slog.Logger
	level        payload.Level
	filter       func(payload.LogEvent) bool
	builder      payload.Builder
	clientOpts   []client.Option
	webhookOpts  []webhook.Option
	dispatchOpts []dispatch.Option
}

// WithLogger sets the relay's own diagnostic logger. It is handed to the
// client and the dispatcher, and must not write back into the relay.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithLevel sets the minimum level forwarded. Default is info.
func WithLevel(level payload.Level) Option {
	return func(o *options) error {
		o.level = level
		return nil
	}
}

// WithFilter drops events fn returns false for.
func WithFilter(fn func(payload.LogEvent) bool) Option {
	return func(o *options) error {
		o.filter = fn
		return nil
	}
}

// WithMaxLength caps each payload at n runes.
func WithMaxLength(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("max length must be positive")
		}
		o.builder = payload.Builder{MaxLength: n}
		return nil
	}
}

// WithClientOptions configures the HTTP client shared by every send.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

// WithWebhookOptions configures how messages appear at the endpoint.
// A webhook.WithClient among them replaces the client built from
// WithClientOptions.
func WithWebhookOptions(opts ...webhook.Option) Option {
	return func(o *options) error {
		o.webhookOpts = append(o.webhookOpts, opts...)
		return nil
	}
}

// WithDispatchOptions configures pacing, clock, tracing and metrics.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(o *options) error {
		o.dispatchOpts = append(o.dispatchOpts, opts...)
		return nil
	}
}
