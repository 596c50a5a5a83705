package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"runtime/debug"
	"time"

	"github.com/adamwoolhether/hookrelay/validate"
)

// Logger logs the start and end of every request.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := values(ctx)

			log.Info("request started", "trace_id", v.TraceID, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

			err := handler(ctx, w, r)

			log.Info("request completed", "trace_id", v.TraceID, "method", r.Method, "path", r.URL.Path,
				"statusCode", v.StatusCode, "since", time.Since(v.Start).String())

			return err
		}

		return h
	}

	return m
}

// Errors turns handler errors into JSON responses. Validation failures
// become 422 with the failing fields; unrecognized errors become an
// opaque 500.
func Errors(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			if fieldErrs, ok := errors.AsType[validate.FieldErrors](err); ok {
				return respond(ctx, w, http.StatusUnprocessableEntity, fieldErrs)
			}

			appErr, ok := errors.AsType[*Error](err)
			if !ok {
				appErr = NewInternalError(err)
			}

			log.Error(err.Error(), "trace_id", values(ctx).TraceID,
				"source_err_file", path.Base(appErr.FileName), "source_err_func", path.Base(appErr.FuncName))

			if appErr.Internal {
				appErr.Message = http.StatusText(appErr.Code)
			}

			return respond(ctx, w, appErr.Code, appErr)
		}

		return h
	}

	return m
}

// Panics converts a panic into an error carrying the stack.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(debug.Stack()))
				}
			}()

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
