package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/uber-go/tally"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMinInterval is the pacing used when WithMinInterval is not given.
const DefaultMinInterval = time.Second

// DefaultSendTimeout bounds a single request.
const DefaultSendTimeout = 10 * time.Second

// Option is a functional option for configuring a [Dispatcher] via [New].
type Option func(*options) error

type options struct {
	minInterval *time.Duration
	sendTimeout *time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     tally.Scope
}

// WithMinInterval sets the minimum time between the start of two sends.
// Zero disables pacing, leaving server cooldowns as the only throttle.
func WithMinInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("%w: min interval[%s] must not be negative", ErrInvalidConfig, d)
		}
		o.minInterval = &d
		return nil
	}
}

// WithSendTimeout bounds each request. Zero leaves requests unbounded
// apart from the Sender's own timeouts.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("%w: send timeout[%s] must not be negative", ErrInvalidConfig, d)
		}
		o.sendTimeout = &d
		return nil
	}
}

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.New("clock must not be nil"))
		}
		o.clock = c
		return nil
	}
}

// WithLogger sets the logger for delivery diagnostics. It must not feed
// back into the Dispatcher. The default writes text to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer records a span per send.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithMetrics reports delivery counters under a "dispatch" sub-scope.
func WithMetrics(scope tally.Scope) Option {
	return func(o *options) error {
		o.metrics = scope
		return nil
	}
}
