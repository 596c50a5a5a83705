// Package zaphook forwards zap log entries to a dispatcher through a
// [zapcore.Core]. Tee it with an existing core to relay a subset of a
// service's logs:
//
//	core := zapcore.NewTee(existing, zaphook.NewCore(dispatcher, zapcore.WarnLevel))
//	logger := zap.New(core)
package zaphook

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/adamwoolhether/hookrelay/payload"
)

// Submitter accepts payloads for asynchronous delivery.
type Submitter interface {
	Submit(p payload.Payload)
}

// Option configures a Core.
type Option func(*Core)

// WithEncoder replaces the default console encoder.
func WithEncoder(enc zapcore.Encoder) Option {
	return func(c *Core) {
		c.enc = enc
	}
}

// WithFilter drops events fn returns false for.
func WithFilter(fn func(payload.LogEvent) bool) Option {
	return func(c *Core) {
		c.filter = fn
	}
}

// WithBuilder sets the payload builder, mostly to change the length cap.
func WithBuilder(b payload.Builder) Option {
	return func(c *Core) {
		c.builder = b
	}
}

// Core is a zapcore.Core that submits every enabled entry.
type Core struct {
	zapcore.LevelEnabler

	sub     Submitter
	enc     zapcore.Encoder
	filter  func(payload.LogEvent) bool
	builder payload.Builder
}

// NewCore returns a Core submitting entries enabled by enab.
func NewCore(sub Submitter, enab zapcore.LevelEnabler, opts ...Option) *Core {
	c := Core{
		LevelEnabler: enab,
		sub:          sub,
		enc:          zapcore.NewConsoleEncoder(EncoderConfig()),
	}
	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// EncoderConfig is the default console layout: level, logger name, caller,
// message and fields, without a timestamp since the endpoint stamps posts.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

// With returns a Core that encodes fields into every entry.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.enc = c.enc.Clone()
	for _, f := range fields {
		f.AddTo(clone.enc)
	}

	return &clone
}

// Check adds c to ce when the entry's level is enabled.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// Write encodes ent and submits it. Only encoding errors are returned.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := strings.TrimRight(buf.String(), "\n")
	buf.Free()

	event := payload.LogEvent{
		Level:   FromZap(ent.Level),
		Message: msg,
		Time:    ent.Time,
	}
	if c.filter != nil && !c.filter(event) {
		return nil
	}

	c.sub.Submit(c.builder.Build(event))

	return nil
}

// Sync is a no-op. Delivery is flushed by stopping the dispatcher.
func (c *Core) Sync() error {
	return nil
}

// FromZap maps a zap level onto the payload scale. DPanic, Panic and
// Fatal are critical.
func FromZap(l zapcore.Level) payload.Level {
	switch {
	case l <= zapcore.DebugLevel:
		return payload.LevelDebug
	case l == zapcore.InfoLevel:
		return payload.LevelInfo
	case l == zapcore.WarnLevel:
		return payload.LevelWarn
	case l == zapcore.ErrorLevel:
		return payload.LevelError
	default:
		return payload.LevelCritical
	}
}
