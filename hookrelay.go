// Package hookrelay forwards application log events to a chat webhook
// without ever blocking the code that logs them.
//
// [New] wires an HTTP client, a webhook sender and a rate-limited
// dispatcher into a started [Relay]. Log through it with slog, zap, or
// direct calls to [Relay.Emit], and call [Relay.Close] before exiting so
// anything still queued gets one last chance to go out.
//
//	relay, err := hookrelay.New(os.Getenv("WEBHOOK_URL"), hookrelay.WithLevel(payload.LevelWarn))
//	if err != nil {
//		return err
//	}
//	defer relay.Close(context.Background())
//
//	log := relay.Logger()
//	log.Error("payment failed", "order", 1234)
package hookrelay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adamwoolhether/hookrelay/client"
	"github.com/adamwoolhether/hookrelay/dispatch"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/slogx"
	"github.com/adamwoolhether/hookrelay/webhook"
	"github.com/adamwoolhether/hookrelay/zaphook"
)

// Relay owns a started dispatcher and the adapters that feed it.
type Relay struct {
	dispatcher *dispatch.Dispatcher
	level      payload.Level
	filter     func(payload.LogEvent) bool
	builder    payload.Builder
}

// New returns a started Relay posting to webhookURL.
func New(webhookURL string, optFns ...Option) (*Relay, error) {
	opts := options{
		level: payload.LevelInfo,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying relay option: %w", err)
		}
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	c, err := client.Build(append([]client.Option{client.WithLogger(opts.logger)}, opts.clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}

	wh, err := webhook.New(webhookURL, append([]webhook.Option{webhook.WithClient(c)}, opts.webhookOpts...)...)
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(wh, append([]dispatch.Option{dispatch.WithLogger(opts.logger.With("component", "dispatch"))}, opts.dispatchOpts...)...)
	if err != nil {
		return nil, err
	}
	d.Start()

	r := Relay{
		dispatcher: d,
		level:      opts.level,
		filter:     opts.filter,
		builder:    opts.builder,
	}

	return &r, nil
}

// Emit forwards one already rendered message, subject to the level
// threshold and filter. It reports whether the message was queued.
func (r *Relay) Emit(level payload.Level, msg string) bool {
	e := payload.LogEvent{Level: level, Message: msg, Time: time.Now()}
	if e.Level < r.level || (r.filter != nil && !r.filter(e)) {
		return false
	}

	r.dispatcher.Submit(r.builder.Build(e))

	return true
}

// Submit queues p as is, bypassing the threshold and filter.
func (r *Relay) Submit(p payload.Payload) {
	r.dispatcher.Submit(p)
}

// Len reports how many payloads are waiting.
func (r *Relay) Len() int {
	return r.dispatcher.Len()
}

// State reports the dispatcher phase.
func (r *Relay) State() dispatch.State {
	return r.dispatcher.State()
}

// Handler returns a slog handler feeding the relay. Unset fields of opts
// take the relay's level, filter and length cap.
func (r *Relay) Handler(opts *slogx.Options) *slogx.Handler {
	var o slogx.Options
	if opts != nil {
		o = *opts
	}
	if o.Level == nil {
		o.Level = SlogLevel(r.level)
	}
	if o.Filter == nil {
		o.Filter = r.filter
	}
	if o.Builder == (payload.Builder{}) {
		o.Builder = r.builder
	}

	return slogx.NewHandler(r, &o)
}

// Logger returns a *slog.Logger writing only to the relay.
func (r *Relay) Logger() *slog.Logger {
	return slog.New(r.Handler(nil))
}

// ZapCore returns a zapcore.Core feeding the relay, for use alone or
// in a zapcore.NewTee next to an existing core.
func (r *Relay) ZapCore() zapcore.Core {
	enab := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return zaphook.FromZap(l) >= r.level
	})

	opts := []zaphook.Option{zaphook.WithBuilder(r.builder)}
	if r.filter != nil {
		opts = append(opts, zaphook.WithFilter(r.filter))
	}

	return zaphook.NewCore(r, enab, opts...)
}

// Close stops the dispatcher and makes one last delivery attempt for
// anything queued, bounded by ctx.
func (r *Relay) Close(ctx context.Context) error {
	return r.dispatcher.Stop(ctx)
}

// SlogLevel maps level onto the slog scale.
func SlogLevel(level payload.Level) slog.Level {
	switch {
	case level <= payload.LevelDebug:
		return slog.LevelDebug
	case level == payload.LevelInfo:
		return slog.LevelInfo
	case level == payload.LevelWarn:
		return slog.LevelWarn
	case level == payload.LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}
