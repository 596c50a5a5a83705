// Package throttle paces outbound webhook requests.
//
// # Gate
//
// [Gate] holds the pacing state of a single endpoint: the minimum interval
// between sends, the time of the last send and any cooldown imposed by the
// server. It is plain arithmetic and is not safe for concurrent use; the
// owner guards it with its own lock.
//
//	g := throttle.NewGate(time.Second)
//	if wait, ok := g.Ready(now); !ok {
//		// try again after wait
//	}
//	g.Record(now)
//
// # RoundTripper
//
// [NewRoundTripper] wraps a transport with a token bucket from
// [golang.org/x/time/rate], capping the request rate independently of
// what the server reports:
//
//	rt, err := throttle.NewRoundTripper(
//		5, // requests per second
//		1, // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// When tokens are exhausted, requests block until one is available or the
// request context ends.
package throttle
