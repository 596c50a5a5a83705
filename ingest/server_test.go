package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewServer_Defaults(t *testing.T) {
	srv := NewServer(http.NewServeMux())

	if srv.srv.Addr != ":8080" {
		t.Errorf("addr = %q, want %q", srv.srv.Addr, ":8080")
	}
	if srv.srv.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want %v", srv.srv.ReadTimeout, 5*time.Second)
	}
	if srv.srv.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want %v", srv.srv.WriteTimeout, 10*time.Second)
	}
	if srv.srv.IdleTimeout != 120*time.Second {
		t.Errorf("idle timeout = %v, want %v", srv.srv.IdleTimeout, 120*time.Second)
	}
	if srv.shutdownTimeout != 20*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.shutdownTimeout, 20*time.Second)
	}
}

func TestNewServer_WithOptions(t *testing.T) {
	srv := NewServer(http.NewServeMux(),
		WithAddr("127.0.0.1:9090"),
		WithTimeouts(time.Second, 0, 3*time.Second),
		WithShutdownTimeout(4*time.Second),
		WithShutdownFunc(func(context.Context) error { return nil }),
	)

	if srv.srv.Addr != "127.0.0.1:9090" {
		t.Errorf("addr = %q", srv.srv.Addr)
	}
	if srv.srv.ReadTimeout != time.Second {
		t.Errorf("read timeout = %v, want %v", srv.srv.ReadTimeout, time.Second)
	}
	if srv.srv.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want default", srv.srv.WriteTimeout)
	}
	if srv.srv.IdleTimeout != 3*time.Second {
		t.Errorf("idle timeout = %v, want %v", srv.srv.IdleTimeout, 3*time.Second)
	}
	if srv.shutdownTimeout != 4*time.Second {
		t.Errorf("shutdown timeout = %v", srv.shutdownTimeout)
	}
	if len(srv.shutdownFuncs) != 1 {
		t.Errorf("shutdown funcs = %d, want 1", len(srv.shutdownFuncs))
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var order []string
	srv := NewServer(mux,
		WithServerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithShutdownFunc(func(context.Context) error {
			order = append(order, "first")
			return nil
		}),
		WithShutdownFunc(func(context.Context) error {
			order = append(order, "second")
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("shutdown funcs ran as %v, want [first second]", order)
	}
}

func TestShutdown_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	srv := NewServer(http.NewServeMux(),
		WithServerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithShutdownFunc(func(context.Context) error { return errA }),
	)

	err := srv.Shutdown(t.Context())
	if !errors.Is(err, errA) {
		t.Errorf("err = %v, want %v", err, errA)
	}
}
