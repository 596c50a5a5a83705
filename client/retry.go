package client

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Rate limit hints, most specific first.
const (
	headerResetAfter = "X-RateLimit-Reset-After"
	headerGlobal     = "X-RateLimit-Global"
	headerRetryAfter = "Retry-After"
)

// rateLimitBody is the JSON body webhook endpoints return with a 429.
// retry_after is in seconds and may be fractional.
type rateLimitBody struct {
	RetryAfter *float64 `json:"retry_after"`
	Global     bool     `json:"global"`
}

// newRateLimitError builds a RateLimitError from the response headers,
// falling back to the body and then to DefaultRetryAfter.
func newRateLimitError(resp *http.Response, body []byte) *RateLimitError {
	rle := RateLimitError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Global:     strings.EqualFold(resp.Header.Get(headerGlobal), "true"),
	}

	var rlb rateLimitBody
	if len(body) > 0 && json.Unmarshal(body, &rlb) == nil {
		rle.Global = rle.Global || rlb.Global
	}

	switch {
	case parseSeconds(resp.Header.Get(headerResetAfter), &rle.ResetAfter):
	case parseRetryAfter(resp.Header.Get(headerRetryAfter), &rle.ResetAfter):
	case rlb.RetryAfter != nil && *rlb.RetryAfter >= 0:
		rle.ResetAfter = secondsToDuration(*rlb.RetryAfter)
	default:
		rle.ResetAfter = DefaultRetryAfter
	}

	return &rle
}

// parseRetryAfter accepts either delay-seconds or an HTTP-date.
func parseRetryAfter(v string, dst *time.Duration) bool {
	if parseSeconds(v, dst) {
		return true
	}

	when, err := http.ParseTime(v)
	if err != nil {
		return false
	}

	*dst = max(time.Until(when), 0)

	return true
}

func parseSeconds(v string, dst *time.Duration) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}

	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return false
	}

	*dst = secondsToDuration(secs)

	return true
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Ceil(secs*1000)) * time.Millisecond // rounded up to the millisecond
}
