package scheduler

import (
	"context"
	"sync"
	"time"

	"arbiter/internal/logger"
)

// Periodic runs a task every Interval until its context ends. Reset re-arms
// the timer with a new interval; a non-positive interval pauses the loop
// until the next Reset.
type Periodic struct {
	Name string

	mu       sync.Mutex
	interval time.Duration
	reset    chan struct{}
	nowFn    func() time.Time
}

func NewPeriodic(name string, interval time.Duration) *Periodic {
	return &Periodic{
		Name:     name,
		interval: interval,
		reset:    make(chan struct{}, 1),
		nowFn:    time.Now,
	}
}

func (p *Periodic) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Reset swaps the interval and restarts the countdown.
func (p *Periodic) Reset(interval time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.interval = interval
	p.mu.Unlock()
	select {
	case p.reset <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context, task func(context.Context)) {
	if p == nil {
		return
	}
	if task == nil {
		logger.Warnf("Periodic[%s]: task is nil, exit", p.Name)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Infof("Periodic[%s]: started interval=%s at=%s", p.Name, p.Interval(), p.nowFn().UTC().Format(time.RFC3339))

	for {
		interval := p.Interval()
		if interval <= 0 {
			logger.Infof("Periodic[%s]: paused, waiting for reset", p.Name)
			select {
			case <-ctx.Done():
				logger.Infof("Periodic[%s]: ctx done, exit", p.Name)
				return
			case <-p.reset:
				continue
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("Periodic[%s]: ctx done, exit", p.Name)
			return
		case <-p.reset:
			timer.Stop()
			logger.Infof("Periodic[%s]: re-armed interval=%s", p.Name, p.Interval())
			continue
		case <-timer.C:
		}
		task(ctx)
	}
}
