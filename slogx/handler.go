// Package slogx forwards log/slog records to a dispatcher.
//
// The [Handler] renders each record into a single line of text, applies the
// level threshold and an optional admission filter, and submits the result
// without waiting on delivery. Delivery errors never surface from a logging
// call.
//
//	logger := slog.New(slogx.NewHandler(dispatcher, &slogx.Options{Level: slog.LevelWarn}))
//	logger.Error("payment failed", "order", 1234)
package slogx

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/hookrelay/payload"
)

// Submitter accepts payloads for asynchronous delivery.
type Submitter interface {
	Submit(p payload.Payload)
}

// Renderer turns a record into message text. Attrs are already resolved
// and their keys qualified by any open groups ("req.id").
type Renderer func(t time.Time, level payload.Level, msg string, attrs []slog.Attr) string

// Options configure a Handler. A nil *Options is valid.
type Options struct {
	// Level is the minimum level forwarded. Defaults to slog.LevelInfo.
	Level slog.Leveler

	// Filter, when set, drops events it returns false for.
	Filter func(payload.LogEvent) bool

	// Render formats records. Defaults to RenderText.
	Render Renderer

	// Builder caps message length. The zero value uses payload.DefaultMaxLength.
	Builder payload.Builder
}

// Handler is a slog.Handler feeding a Submitter.
type Handler struct {
	sub    Submitter
	opts   Options
	prefix string
	attrs  []slog.Attr
}

// NewHandler returns a Handler submitting to sub.
func NewHandler(sub Submitter, opts *Options) *Handler {
	h := Handler{sub: sub}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.Render == nil {
		h.opts.Render = RenderText
	}

	return &h
}

// Enabled reports whether level meets the threshold.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle renders r and submits it. It never returns an error.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})

	level := payload.FromSlog(r.Level)
	event := payload.LogEvent{
		Level:   level,
		Message: h.opts.Render(r.Time, level, r.Message, attrs),
		Time:    r.Time,
	}

	if h.opts.Filter != nil && !h.opts.Filter(event) {
		return nil
	}

	h.sub.Submit(h.opts.Builder.Build(event))

	return nil
}

// WithAttrs returns a Handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		h2.attrs = appendAttr(h2.attrs, h.prefix, a)
	}

	return &h2
}

// WithGroup returns a Handler that qualifies later attrs with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."

	return &h2
}

// RenderText is the default Renderer: "[LEVEL] message key=value ...".
// Values containing spaces or quotes are quoted.
func RenderText(_ time.Time, level payload.Level, msg string, attrs []slog.Attr) string {
	var sb strings.Builder

	sb.WriteByte('[')
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	for _, a := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteByte('=')

		v := a.Value.String()
		if strings.ContainsAny(v, " \t\n\"=") || v == "" {
			v = strconv.Quote(v)
		}
		sb.WriteString(v)
	}

	return sb.String()
}

// =============================================================================

// appendAttr resolves a, flattens groups and qualifies keys with prefix.
func appendAttr(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return dst
		}

		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			dst = appendAttr(dst, p, ga)
		}

		return dst
	}

	return append(dst, slog.Attr{Key: prefix + a.Key, Value: a.Value})
}
