// Package client provides the configurable HTTP client the webhook
// transport is built on, on top of [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("hookrelay/1.0"),
//		client.WithThrottle(5, 1),
//	)
//
// # Rate-limited responses
//
// Pass [WithRateLimitStatus] to [Client.Do] to have quota rejections
// returned as a [*RateLimitError]. The reset window is read from
// X-RateLimit-Reset-After, then Retry-After, then a JSON body field
// retry_after, and defaults to [DefaultRetryAfter]:
//
//	err := c.Do(req, http.StatusNoContent, client.WithRateLimitStatus(http.StatusTooManyRequests))
//	if rle, ok := errors.AsType[*client.RateLimitError](err); ok {
//		wait := rle.RetryAfter()
//	}
//
// # Request bodies
//
// [Request] JSON-encodes [WithPayload] values, sends [WithRawBody] bytes as
// is, and builds multipart/form-data bodies from [WithMultipart].
package client
