package hookrelay_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"

	"github.com/adamwoolhether/hookrelay"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/webhook"
)

func ExampleNew() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg struct{ Content string }
		json.NewDecoder(r.Body).Decode(&msg)
		fmt.Println(msg.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	relay, err := hookrelay.New(ts.URL,
		hookrelay.WithLevel(payload.LevelWarn),
		hookrelay.WithWebhookOptions(webhook.WithCodeBlock(false)),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	log := relay.Logger()
	log.Info("cache warmed")
	log.Error("payment failed", "order", 1234)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := relay.Close(ctx); err != nil {
		fmt.Println("error:", err)
	}
	// Output: [ERROR] payment failed order=1234
}
