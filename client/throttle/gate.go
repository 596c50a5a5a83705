package throttle

import (
	"fmt"
	"time"
)

// Gate tracks when the next send to an endpoint is allowed.
// A zero lastSent means nothing has been sent yet and a zero
// cooldownUntil means no cooldown is active.
type Gate struct {
	minInterval   time.Duration
	lastSent      time.Time
	cooldownUntil time.Time
}

// NewGate returns a Gate enforcing minInterval between sends.
// A zero interval disables pacing, leaving server cooldowns as
// the only throttle.
func NewGate(minInterval time.Duration) (*Gate, error) {
	if minInterval < 0 {
		return nil, fmt.Errorf("min interval[%s] %w", minInterval, ErrNegative)
	}

	return &Gate{minInterval: minInterval}, nil
}

// MinInterval returns the configured pacing interval.
func (g *Gate) MinInterval() time.Duration { return g.minInterval }

// LastSent returns the time of the last recorded send.
func (g *Gate) LastSent() time.Time { return g.lastSent }

// CooldownUntil returns the end of the active server cooldown, if any.
func (g *Gate) CooldownUntil() time.Time { return g.cooldownUntil }

// Next returns the earliest time a send may start:
// max(cooldownUntil, lastSent+minInterval).
func (g *Gate) Next() time.Time {
	var next time.Time
	if !g.lastSent.IsZero() {
		next = g.lastSent.Add(g.minInterval)
	}
	if g.cooldownUntil.After(next) {
		next = g.cooldownUntil
	}

	return next
}

// Ready reports whether a send may start at now. When it may not,
// the returned duration is how long to wait.
func (g *Gate) Ready(now time.Time) (time.Duration, bool) {
	next := g.Next()
	if now.Before(next) {
		return next.Sub(now), false
	}

	return 0, true
}

// CoolingDown reports whether a server cooldown is active at now.
func (g *Gate) CoolingDown(now time.Time) bool {
	return now.Before(g.cooldownUntil)
}

// Record marks a completed send that started at now and clears any cooldown.
func (g *Gate) Record(now time.Time) {
	g.lastSent = now
	g.cooldownUntil = time.Time{}
}

// RecordQuota applies a server cooldown of retryAfter starting at now.
// The last send time is left untouched, the rejected request did not count.
func (g *Gate) RecordQuota(now time.Time, retryAfter time.Duration) {
	if retryAfter < 0 {
		retryAfter = 0
	}

	g.cooldownUntil = now.Add(retryAfter)
}
