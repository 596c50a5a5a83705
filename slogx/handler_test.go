package slogx_test

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/slogx"
)

type recorder struct {
	mu       sync.Mutex
	payloads []payload.Payload
}

func (r *recorder) Submit(p payload.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payloads = append(r.payloads, p)
}

func (r *recorder) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.payloads))
	for _, p := range r.payloads {
		out = append(out, p.Body)
	}
	return out
}

func TestHandler_Threshold(t *testing.T) {
	testCases := []struct {
		name string
		opts *slogx.Options
		exp  []string
	}{
		{
			name: "Default is info",
			opts: nil,
			exp:  []string{"[INFO] info", "[WARN] warn", "[ERROR] error"},
		},
		{
			name: "Warn and above",
			opts: &slogx.Options{Level: slog.LevelWarn},
			exp:  []string{"[WARN] warn", "[ERROR] error"},
		},
		{
			name: "Dynamic level",
			opts: &slogx.Options{Level: func() *slog.LevelVar {
				var lv slog.LevelVar
				lv.Set(slog.LevelError)
				return &lv
			}()},
			exp: []string{"[ERROR] error"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recorder{}
			logger := slog.New(slogx.NewHandler(&rec, tc.opts))

			logger.Debug("debug")
			logger.Info("info")
			logger.Warn("warn")
			logger.Error("error")

			assert.Equal(t, tc.exp, rec.bodies())
		})
	}
}

func TestHandler_AttrsAndGroups(t *testing.T) {
	rec := recorder{}
	logger := slog.New(slogx.NewHandler(&rec, nil))

	logger.
		With("service", "billing").
		WithGroup("req").
		With("id", 42).
		Info("charge declined",
			"reason", "insufficient funds",
			slog.Group("card", "brand", "visa"),
			slog.Group("empty"),
		)

	require.Len(t, rec.bodies(), 1)
	assert.Equal(t,
		`[INFO] charge declined service=billing req.id=42 req.reason="insufficient funds" req.card.brand=visa`,
		rec.bodies()[0],
	)
}

func TestHandler_Filter(t *testing.T) {
	rec := recorder{}
	logger := slog.New(slogx.NewHandler(&rec, &slogx.Options{
		Filter: func(e payload.LogEvent) bool {
			return !strings.Contains(e.Message, "healthcheck")
		},
	}))

	logger.Info("GET /healthcheck")
	logger.Info("GET /orders")

	assert.Equal(t, []string{"[INFO] GET /orders"}, rec.bodies())
}

func TestHandler_RenderAndTruncate(t *testing.T) {
	rec := recorder{}
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	h := slogx.NewHandler(&rec, &slogx.Options{
		Builder: payload.Builder{MaxLength: 10},
		Render: func(ts time.Time, level payload.Level, msg string, _ []slog.Attr) string {
			return ts.Format(time.TimeOnly) + " " + level.String() + " " + msg
		},
	})

	r := slog.NewRecord(stamp, slog.LevelError+4, "database unreachable", 0)
	require.NoError(t, h.Handle(t.Context(), r))

	require.Len(t, rec.payloads, 1)
	got := rec.payloads[0]
	assert.Equal(t, "12:00:00 C", got.Body)
	assert.Equal(t, payload.LevelCritical, got.Level)
	assert.True(t, got.Time.Equal(stamp))
}
