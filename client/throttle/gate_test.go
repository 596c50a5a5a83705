package throttle

import (
	"errors"
	"testing"
	"time"
)

func TestNewGate_Validation(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
		expErr   error
	}{
		{name: "Negative", interval: -time.Second, expErr: ErrNegative},
		{name: "Zero disables pacing", interval: 0},
		{name: "Positive", interval: time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewGate(tc.interval)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v; got: %v", tc.expErr, err)
			}
			if tc.expErr == nil && g.MinInterval() != tc.interval {
				t.Errorf("exp interval %s, got %s", tc.interval, g.MinInterval())
			}
		})
	}
}

func TestGate_Ready(t *testing.T) {
	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		interval time.Duration
		setup    func(g *Gate)
		at       time.Time
		expOK    bool
		expWait  time.Duration
	}{
		{
			name:     "Never sent",
			interval: time.Second,
			setup:    func(*Gate) {},
			at:       t0,
			expOK:    true,
		},
		{
			name:     "Within interval",
			interval: 2 * time.Second,
			setup:    func(g *Gate) { g.Record(t0) },
			at:       t0.Add(500 * time.Millisecond),
			expWait:  1500 * time.Millisecond,
		},
		{
			name:     "Interval elapsed exactly",
			interval: 2 * time.Second,
			setup:    func(g *Gate) { g.Record(t0) },
			at:       t0.Add(2 * time.Second),
			expOK:    true,
		},
		{
			name:     "Zero interval sends back to back",
			interval: 0,
			setup:    func(g *Gate) { g.Record(t0) },
			at:       t0,
			expOK:    true,
		},
		{
			name:     "Cooldown dominates interval",
			interval: time.Second,
			setup: func(g *Gate) {
				g.Record(t0)
				g.RecordQuota(t0, 5*time.Second)
			},
			at:      t0.Add(time.Second),
			expWait: 4 * time.Second,
		},
		{
			name:     "Interval dominates short cooldown",
			interval: 10 * time.Second,
			setup: func(g *Gate) {
				g.Record(t0)
				g.RecordQuota(t0, time.Second)
			},
			at:      t0.Add(2 * time.Second),
			expWait: 8 * time.Second,
		},
		{
			name:     "Cooldown without prior send",
			interval: time.Second,
			setup:    func(g *Gate) { g.RecordQuota(t0, 3*time.Second) },
			at:       t0.Add(time.Second),
			expWait:  2 * time.Second,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewGate(tc.interval)
			if err != nil {
				t.Fatal(err)
			}
			tc.setup(g)

			wait, ok := g.Ready(tc.at)
			if ok != tc.expOK {
				t.Errorf("exp ok %t, got %t", tc.expOK, ok)
			}
			if wait != tc.expWait {
				t.Errorf("exp wait %s, got %s", tc.expWait, wait)
			}
		})
	}
}

func TestGate_RecordClearsCooldown(t *testing.T) {
	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	g, err := NewGate(0)
	if err != nil {
		t.Fatal(err)
	}

	g.RecordQuota(t0, 5*time.Second)
	if !g.CoolingDown(t0.Add(4 * time.Second)) {
		t.Fatal("exp cooldown active before retry-after elapsed")
	}
	if g.CoolingDown(t0.Add(5 * time.Second)) {
		t.Fatal("exp cooldown over once retry-after elapsed")
	}
	if !g.LastSent().IsZero() {
		t.Error("rate-limited request must not count as a send")
	}

	g.Record(t0.Add(6 * time.Second))
	if !g.CooldownUntil().IsZero() {
		t.Errorf("exp cooldown cleared, got %s", g.CooldownUntil())
	}
}
