package ingest

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/hookrelay/payload"
)

// DefaultMaxBodyBytes caps a request body.
const DefaultMaxBodyBytes = 1 << 20

// Option configures an App.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	builder   payload.Builder
	threshold payload.Level
	filter    func(payload.LogEvent) bool
	maxBody   int64
	cors      []string
	mw        []Middleware
}

// WithLogger sets the logger for requests and handler errors.
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// WithTracer records a span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

// WithLevel sets the minimum level forwarded. Default is info.
func WithLevel(level payload.Level) Option {
	return func(opts *options) {
		opts.threshold = level
	}
}

// WithFilter drops events fn returns false for.
func WithFilter(fn func(payload.LogEvent) bool) Option {
	return func(opts *options) {
		opts.filter = fn
	}
}

// WithBuilder sets the payload builder.
func WithBuilder(b payload.Builder) Option {
	return func(opts *options) {
		opts.builder = b
	}
}

// WithMaxBodyBytes caps request bodies. Larger ones get a 413.
func WithMaxBodyBytes(n int64) Option {
	return func(opts *options) {
		opts.maxBody = n
	}
}

// WithMiddleware appends mw after the built-in logger, error and panic
// middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(opts *options) {
		opts.mw = append(opts.mw, mw...)
	}
}

// WithCORS allows browsers on origins to post events. See [CORS].
func WithCORS(origins ...string) Option {
	return func(opts *options) {
		opts.cors = append(opts.cors, origins...)
	}
}
