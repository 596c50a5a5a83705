// Package ingest accepts log events over HTTP and submits them to a
// dispatcher, for producers that cannot embed a logging adapter.
//
// Routes:
//
//	POST /v1/events   one JSON event or an array of them
//	GET  /v1/health   queue length and dispatcher state
//
// An event is {"level":"warn","message":"disk at 91%","time":"...","fields":{...}}.
// Level defaults to info and time to the moment of receipt. Events below the
// configured level are counted as filtered and not forwarded. A request is
// all-or-nothing: if any event fails validation none are submitted.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/hookrelay/dispatch"
	"github.com/adamwoolhether/hookrelay/payload"
)

// Queue is the dispatcher surface the server needs.
type Queue interface {
	Submit(p payload.Payload)
	Len() int
	State() dispatch.State
}

// Handler is an http handler that returns an error for the middleware
// to turn into a response.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware wraps a Handler.
type Middleware func(handler Handler) Handler

// App routes ingest requests. It implements http.Handler.
type App struct {
	mux       *http.ServeMux
	mw        []Middleware
	log       *slog.Logger
	tracer    trace.Tracer
	queue     Queue
	builder   payload.Builder
	threshold payload.Level
	filter    func(payload.LogEvent) bool
	maxBody   int64
}

// New returns an App submitting to queue.
func New(queue Queue, optFns ...Option) (*App, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue must not be nil")
	}

	opts := options{
		threshold: payload.LevelInfo,
		maxBody:   DefaultMaxBodyBytes,
	}
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("hookrelay/ingest")
	}
	if opts.maxBody <= 0 {
		return nil, fmt.Errorf("max body size[%d] must be positive", opts.maxBody)
	}

	app := App{
		mux:       http.NewServeMux(),
		log:       opts.logger,
		tracer:    opts.tracer,
		queue:     queue,
		builder:   opts.builder,
		threshold: opts.threshold,
		filter:    opts.filter,
		maxBody:   opts.maxBody,
	}
	app.mw = []Middleware{Logger(app.log), Errors(app.log), Panics()}
	if len(opts.cors) > 0 {
		app.mw = append(app.mw, CORS(opts.cors))
	}
	app.mw = append(app.mw, opts.mw...)

	app.handle(http.MethodPost, "/v1/events", app.events)
	app.handle(http.MethodGet, "/v1/health", app.health)
	if len(opts.cors) > 0 {
		app.handle(http.MethodOptions, "/v1/events", noContent)
		app.handle(http.MethodOptions, "/v1/health", noContent)
	}

	return &app, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *App) handle(method, path string, handler Handler) {
	handler = wrap(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := a.tracer.Start(r.Context(), "ingest.handler")
		defer span.End()
		span.SetAttributes(attribute.String("http.route", path))

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.NewString()
		}

		v := requestValues{
			TraceID: traceID,
			Start:   time.Now(),
		}
		ctx = context.WithValue(ctx, valuesKey, &v)

		if err := handler(ctx, w, r.WithContext(ctx)); err != nil {
			a.log.Error("ingest handler", "trace_id", traceID, "error", err)
		}
	}

	a.mux.HandleFunc(method+" "+path, h)
}

// wrap applies mw so the first element runs outermost.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}

// =============================================================================

type ctxKey int

const valuesKey ctxKey = 1

// requestValues are shared by the middleware of one request.
type requestValues struct {
	TraceID    string
	Start      time.Time
	StatusCode int
}

func values(ctx context.Context) *requestValues {
	v, ok := ctx.Value(valuesKey).(*requestValues)
	if !ok {
		return &requestValues{
			TraceID: uuid.Nil.String(),
			Start:   time.Now(),
		}
	}

	return v
}

func setStatusCode(ctx context.Context, code int) {
	if v, ok := ctx.Value(valuesKey).(*requestValues); ok {
		v.StatusCode = code
	}
}
