package payload

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
var ErrUnknownLevel = errors.New("unknown level")

// Level is the severity of a LogEvent. Levels are ordered, so they
// can be compared against a threshold.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
// "warning" and "fatal" are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// FromSlog maps a slog level onto the Level scale. Anything at or
// above slog.LevelError+4 is treated as critical.
func FromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	case l < slog.LevelError+4:
		return LevelError
	default:
		return LevelCritical
	}
}

// LogEvent is a single record produced by a logging framework.
// Message is expected to be fully rendered.
type LogEvent struct {
	Level   Level
	Message string
	Time    time.Time
}

// Payload is the transport-ready form of a LogEvent.
type Payload struct {
	Body  string
	Level Level
	Time  time.Time
}
