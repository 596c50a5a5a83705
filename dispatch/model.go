package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamwoolhether/hookrelay/payload"
)

var (
	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid dispatcher config")
	// ErrUndelivered is returned by Stop when payloads were still queued
	// and could not be delivered.
	ErrUndelivered = errors.New("payloads left undelivered")
)

// Sender delivers one batch, in order, as a single request.
//
// An error implementing RetryAfter() time.Duration means the endpoint is
// over quota and the batch will be retried after that delay. Any other
// error drops the batch.
type Sender interface {
	Send(ctx context.Context, batch []payload.Payload) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, batch []payload.Payload) error

func (f SenderFunc) Send(ctx context.Context, batch []payload.Payload) error {
	return f(ctx, batch)
}

// retryAfterer is implemented by quota errors carrying a server cooldown.
type retryAfterer interface {
	RetryAfter() time.Duration
}

// QuotaError is a ready-made quota error for Senders that do not have
// their own.
type QuotaError struct {
	Wait time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded, retry after %s", e.Wait)
}

// RetryAfter reports the cooldown.
func (e *QuotaError) RetryAfter() time.Duration {
	return e.Wait
}

// State is the phase of a Dispatcher.
type State int32

const (
	// StateIdle means the queue is empty and no timer is pending.
	StateIdle State = iota
	// StateScheduled means payloads are queued and waiting for the
	// worker, the minimum interval or a cooldown.
	StateScheduled
	// StateSending means a request is in flight.
	StateSending
	// StateStopped means Stop was called.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateSending:
		return "sending"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
