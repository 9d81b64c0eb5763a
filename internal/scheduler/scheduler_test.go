package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30m":   30 * time.Minute,
		"1H":    time.Hour,
		"1d":    24 * time.Hour,
		"2w":    14 * 24 * time.Hour,
		"45s":   45 * time.Second,
		"1h30m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0h", "-1d", "soon", "h"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestPeriodicRunsAndStops(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("test", 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, func(context.Context) { runs.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic did not stop")
	}
}

func TestPeriodicPausedUntilReset(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("paused", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, func(context.Context) { runs.Add(1) })

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	p.Reset(2 * time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, p.Interval())
}
