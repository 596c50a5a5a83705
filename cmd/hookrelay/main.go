// Command hookrelay forwards log lines to a chat webhook.
//
//	hookrelay send --url $WEBHOOK --severity error "backup failed"
//	tail -F app.log | hookrelay pipe --url $WEBHOOK
//	hookrelay serve --url $WEBHOOK --listen :8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Set via ldflags: -X main.version=1.0.0 -X main.commit=abc123
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
