package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uber-go/tally"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/hookrelay/client/throttle"
	"github.com/adamwoolhether/hookrelay/payload"
)

// Dispatcher batches submitted payloads and delivers them through a
// Sender at most once per minimum interval, honoring server cooldowns.
// It is safe for concurrent use.
type Dispatcher struct {
	sender      Sender
	clock       clockwork.Clock
	log         *slog.Logger
	tracer      trace.Tracer
	metrics     tally.Scope
	sendTimeout time.Duration

	mu      sync.Mutex
	queue   []payload.Payload
	gate    *throttle.Gate
	state   State
	started bool
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	// sendCtx is cancelled when Stop runs out of time with a send in flight.
	sendCtx    context.Context
	cancelSend context.CancelFunc
}

// New returns a Dispatcher delivering through sender. Call Start to begin
// delivery. Payloads submitted before Start are kept and go out in the
// first batch.
func New(sender Sender, optFns ...Option) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender must not be nil", ErrInvalidConfig)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, err
		}
	}

	minInterval := DefaultMinInterval
	if opts.minInterval != nil {
		minInterval = *opts.minInterval
	}

	gate, err := throttle.NewGate(minInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	sendTimeout := DefaultSendTimeout
	if opts.sendTimeout != nil {
		sendTimeout = *opts.sendTimeout
	}

	clock := opts.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log := opts.logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	tracer := opts.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("hookrelay/dispatch")
	}

	metrics := opts.metrics
	if metrics == nil {
		metrics = tally.NoopScope
	}

	sendCtx, cancelSend := context.WithCancel(context.Background())

	d := Dispatcher{
		sender:      sender,
		clock:       clock,
		log:         log.With("component", "dispatch"),
		tracer:      tracer,
		metrics:     metrics.SubScope("dispatch"),
		sendTimeout: sendTimeout,
		gate:        gate,
		state:       StateIdle,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		sendCtx:     sendCtx,
		cancelSend:  cancelSend,
	}

	return &d, nil
}

// Start launches the worker. Calling it more than once, or after Stop,
// has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}
	d.started = true

	go d.run()
}

// Submit queues p for delivery and returns immediately. It never waits
// on the network. Payloads submitted after Stop are dropped and reported
// on the diagnostic logger.
func (d *Dispatcher) Submit(p payload.Payload) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.metrics.Counter("payloads_dropped").Inc(1)
		d.log.Warn("dispatcher stopped, dropping payload", "level", p.Level, "length", payload.Len(p.Body))
		return
	}

	d.queue = append(d.queue, p)
	if d.state == StateIdle {
		d.state = StateScheduled
	}
	n := len(d.queue)
	d.mu.Unlock()

	d.metrics.Gauge("queue_length").Update(float64(n))

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// State reports the current phase.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Len reports how many payloads are waiting to be sent.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queue)
}

// Stop halts the worker and makes one final attempt to deliver whatever
// is still queued. The minimum interval is ignored for that attempt but an
// active server cooldown is not: queued payloads are then dropped and
// ErrUndelivered is returned. When ctx ends while a send is in flight, that
// send is cancelled. Stop is idempotent; later calls return nil.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	close(d.stop)

	if started {
		select {
		case <-d.done:
		case <-ctx.Done():
			d.log.Warn("shutdown deadline reached, cancelling in-flight send")
			d.cancelSend()
			<-d.done
		}
	}
	d.cancelSend()

	return d.finalFlush(ctx)
}

// =============================================================================

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case <-d.stop:
			return
		case <-d.wake:
		}

		if !d.drain() {
			return
		}
	}
}

// drain sends batches until the queue is empty, sleeping on the clock
// whenever the gate is closed. It reports false once Stop was called.
func (d *Dispatcher) drain() bool {
	for {
		select {
		case <-d.stop:
			return false
		default:
		}

		wait, more := d.flush()
		if !more {
			return true
		}
		if wait <= 0 {
			continue
		}

		timer := d.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-d.stop:
			timer.Stop()
			return false
		}
	}
}

// flush performs at most one send. It reports whether the queue still
// holds payloads and, if the gate is closed, how long to wait.
func (d *Dispatcher) flush() (time.Duration, bool) {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.state = StateIdle
		d.mu.Unlock()
		return 0, false
	}

	now := d.clock.Now()
	if wait, ok := d.gate.Ready(now); !ok {
		d.state = StateScheduled
		d.mu.Unlock()
		return wait, true
	}

	batch := d.queue
	d.queue = nil
	d.state = StateSending
	d.mu.Unlock()

	d.metrics.Gauge("queue_length").Update(0)

	id := uuid.NewString()
	err := d.send(d.sendCtx, id, batch)

	d.mu.Lock()
	defer d.mu.Unlock()

	var quota retryAfterer
	switch {
	case err == nil:
		d.gate.Record(now)
		d.metrics.Counter("batches_sent").Inc(1)
		d.metrics.Counter("payloads_sent").Inc(int64(len(batch)))
		d.log.Debug("batch delivered", "batch_id", id, "payloads", len(batch))

	case errors.As(err, &quota):
		retryAfter := quota.RetryAfter()
		d.gate.RecordQuota(d.clock.Now(), retryAfter)
		d.queue = slices.Concat(batch, d.queue)
		d.metrics.Counter("batches_requeued").Inc(1)
		d.log.Info("endpoint over quota, batch requeued", "batch_id", id, "payloads", len(batch), "retry_after", retryAfter)

	default:
		d.gate.Record(now)
		d.metrics.Counter("batches_dropped").Inc(1)
		d.metrics.Counter("payloads_dropped").Inc(int64(len(batch)))
		d.log.Error("batch dropped", "batch_id", id, "payloads", len(batch), "error", err)
	}

	if len(d.queue) == 0 {
		d.state = StateIdle
		return 0, false
	}
	d.state = StateScheduled

	return 0, true
}

// finalFlush runs after the worker has exited.
func (d *Dispatcher) finalFlush(ctx context.Context) error {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	if len(batch) == 0 {
		d.state = StateStopped
		d.mu.Unlock()
		return nil
	}

	if d.gate.CoolingDown(d.clock.Now()) {
		until := d.gate.CooldownUntil()
		d.state = StateStopped
		d.mu.Unlock()
		d.metrics.Counter("payloads_dropped").Inc(int64(len(batch)))
		d.log.Warn("endpoint cooling down at shutdown, dropping payloads", "payloads", len(batch), "cooldown_until", until)
		return fmt.Errorf("%w: %d payloads, endpoint cooling down", ErrUndelivered, len(batch))
	}
	d.state = StateSending
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.state = StateStopped
		d.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		d.metrics.Counter("payloads_dropped").Inc(int64(len(batch)))
		return fmt.Errorf("%w: %d payloads: %w", ErrUndelivered, len(batch), err)
	}

	id := uuid.NewString()
	if err := d.send(ctx, id, batch); err != nil {
		d.metrics.Counter("payloads_dropped").Inc(int64(len(batch)))
		d.log.Error("final batch dropped", "batch_id", id, "payloads", len(batch), "error", err)
		return fmt.Errorf("%w: %d payloads: %w", ErrUndelivered, len(batch), err)
	}

	d.metrics.Counter("batches_sent").Inc(1)
	d.metrics.Counter("payloads_sent").Inc(int64(len(batch)))

	return nil
}

func (d *Dispatcher) send(ctx context.Context, id string, batch []payload.Payload) error {
	ctx, span := d.tracer.Start(ctx, "dispatch.send", trace.WithAttributes(
		attribute.String("batch.id", id),
		attribute.Int("batch.size", len(batch)),
	))
	defer span.End()

	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	sw := d.metrics.Timer("send_latency").Start()
	err := d.sender.Send(ctx, batch)
	sw.Stop()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
