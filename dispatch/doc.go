// Package dispatch delivers payloads to a rate-limited endpoint without
// blocking the code that produces them.
//
// A [Dispatcher] owns a FIFO queue of pending payloads and a single worker
// goroutine. [Dispatcher.Submit] only appends under a mutex and nudges the
// worker, so logging call sites never wait on the network. The worker drains
// the whole queue into one batch whenever the endpoint may be called:
//
//   - at least the configured minimum interval after the previous send, and
//   - not before a cooldown the server imposed with a rate-limit response.
//
// While it waits, new payloads keep joining the same batch. A batch rejected
// for quota is put back at the front of the queue and retried once the
// cooldown ends, ahead of anything submitted later. Any other failure drops
// the batch after one attempt and is reported on the dispatcher's own logger,
// never on the logger being relayed.
//
//	d, err := dispatch.New(sender, dispatch.WithMinInterval(time.Second))
//	if err != nil {
//		return err
//	}
//	d.Start()
//	defer d.Stop(ctx)
//
//	d.Submit(payload.Build(event))
package dispatch
