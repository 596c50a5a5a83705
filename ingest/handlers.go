package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/slogx"
	"github.com/adamwoolhether/hookrelay/validate"
)

// EventRequest is one event in a POST /v1/events body.
type EventRequest struct {
	Level   string         `json:"level"`
	Message string         `json:"message" validate:"required"`
	Time    time.Time      `json:"time"`
	Fields  map[string]any `json:"fields"`
}

// EventsResponse reports what happened to the events of one request.
type EventsResponse struct {
	Accepted int `json:"accepted"`
	Filtered int `json:"filtered"`
}

// HealthResponse describes the dispatcher behind the server.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Queued int    `json:"queued"`
}

func (a *App) events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	reqs, err := decodeEvents(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		if _, ok := errors.AsType[*http.MaxBytesError](err); ok {
			return NewError(http.StatusRequestEntityTooLarge, err)
		}
		return NewError(http.StatusBadRequest, err)
	}
	if len(reqs) == 0 {
		return NewError(http.StatusBadRequest, errors.New("no events in request"))
	}

	now := time.Now().UTC()
	events := make([]payload.LogEvent, 0, len(reqs))
	var fieldErrs validate.FieldErrors

	for i, req := range reqs {
		event, errs := toEvent(req, now)
		for _, fe := range errs {
			fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
			fieldErrs = append(fieldErrs, fe)
		}
		events = append(events, event)
	}
	if len(fieldErrs) > 0 {
		return fieldErrs
	}

	var resp EventsResponse
	for _, e := range events {
		if e.Level < a.threshold || (a.filter != nil && !a.filter(e)) {
			resp.Filtered++
			continue
		}
		a.queue.Submit(a.builder.Build(e))
		resp.Accepted++
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("events.accepted", resp.Accepted),
		attribute.Int("events.filtered", resp.Filtered),
	)

	return respond(ctx, w, http.StatusAccepted, resp)
}

func (a *App) health(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	resp := HealthResponse{
		Status: "ok",
		State:  a.queue.State().String(),
		Queued: a.queue.Len(),
	}

	return respond(ctx, w, http.StatusOK, resp)
}

// =============================================================================

// decodeEvents accepts a single event object or an array of them.
func decodeEvents(r io.Reader) ([]EventRequest, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()

	if body[0] == '[' {
		var reqs []EventRequest
		if err := decoder.Decode(&reqs); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return reqs, nil
	}

	var req EventRequest
	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return []EventRequest{req}, nil
}

// toEvent validates req and renders it the way slogx renders records.
func toEvent(req EventRequest, now time.Time) (payload.LogEvent, validate.FieldErrors) {
	var errs validate.FieldErrors
	if err := validate.Struct(req); err != nil {
		if fe, ok := errors.AsType[validate.FieldErrors](err); ok {
			errs = append(errs, fe...)
		} else {
			errs = append(errs, validate.FieldError{Field: "event", Err: err.Error()})
		}
	}

	level, err := payload.ParseLevel(req.Level)
	if err != nil {
		errs = append(errs, validate.FieldError{Field: "level", Err: err.Error()})
	}

	if len(errs) > 0 {
		return payload.LogEvent{}, errs
	}

	ts := req.Time
	if ts.IsZero() {
		ts = now
	}

	attrs := make([]slog.Attr, 0, len(req.Fields))
	for _, k := range slices.Sorted(maps.Keys(req.Fields)) {
		attrs = append(attrs, slog.Any(k, req.Fields[k]))
	}

	return payload.LogEvent{
		Level:   level,
		Message: slogx.RenderText(ts, level, req.Message, attrs),
		Time:    ts,
	}, nil
}

// respond writes data as JSON with the given status.
func respond(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	setStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}
