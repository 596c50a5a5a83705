package zaphook_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/zaphook"
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

func TestCore_TeeWithExistingCore(t *testing.T) {
	rec := recorder{}
	observed, logs := observer.New(zapcore.DebugLevel)

	logger := zap.New(zapcore.NewTee(observed, zaphook.NewCore(&rec, zapcore.WarnLevel)))
	logger = logger.Named("billing").With(zap.String("region", "eu"))

	logger.Info("charge accepted", zap.Int("order", 1))
	logger.Warn("charge retried", zap.Int("order", 2))
	logger.Error("charge failed", zap.Int("order", 3))

	assert.Equal(t, 3, logs.Len(), "existing core sees everything")

	require.Len(t, rec.payloads, 2)
	assert.Equal(t, `WARN billing charge retried {"region": "eu", "order": 2}`, rec.payloads[0].Body)
	assert.Equal(t, payload.LevelWarn, rec.payloads[0].Level)
	assert.Equal(t, `ERROR billing charge failed {"region": "eu", "order": 3}`, rec.payloads[1].Body)
	assert.Equal(t, payload.LevelError, rec.payloads[1].Level)
}

func TestCore_Options(t *testing.T) {
	rec := recorder{}
	core := zaphook.NewCore(&rec, zapcore.DebugLevel,
		zaphook.WithEncoder(zapcore.NewJSONEncoder(zapcore.EncoderConfig{MessageKey: "msg"})),
		zaphook.WithFilter(func(e payload.LogEvent) bool { return !strings.Contains(e.Message, "noisy") }),
		zaphook.WithBuilder(payload.Builder{MaxLength: 15}),
	)

	logger := zap.New(core)
	logger.Debug("noisy heartbeat")
	logger.Debug("cache rebuilt in 3s")

	require.Len(t, rec.payloads, 1)
	assert.Equal(t, `{"msg":"cache r`, rec.payloads[0].Body)
}

func TestFromZap(t *testing.T) {
	testCases := []struct {
		in  zapcore.Level
		exp payload.Level
	}{
		{in: zapcore.DebugLevel, exp: payload.LevelDebug},
		{in: zapcore.InfoLevel, exp: payload.LevelInfo},
		{in: zapcore.WarnLevel, exp: payload.LevelWarn},
		{in: zapcore.ErrorLevel, exp: payload.LevelError},
		{in: zapcore.DPanicLevel, exp: payload.LevelCritical},
		{in: zapcore.FatalLevel, exp: payload.LevelCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.in.String(), func(t *testing.T) {
			assert.Equal(t, tc.exp, zaphook.FromZap(tc.in))
		})
	}
}
