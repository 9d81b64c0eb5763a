package manager

import (
	"sort"
	"sync"
	"sync/atomic"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
)

type observerSet struct {
	mu   sync.RWMutex
	next int
	subs map[int]decision.Observer
}

func (s *observerSet) add(o decision.Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]decision.Observer)
	}
	id := s.next
	s.next++
	s.subs[id] = o
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// deliver calls every observer in subscription order. A panicking observer is
// logged and skipped.
func (s *observerSet) deliver(evt decision.Event) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	list := make([]decision.Observer, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		list = append(list, s.subs[id])
	}
	s.mu.RUnlock()

	for _, o := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warnf("observer panic on %s: %v", evt.Type, r)
				}
			}()
			o.OnEvent(evt)
		}()
	}
}

// ChannelObserver buffers events for a host to drain. Events that do not fit
// are dropped and counted.
type ChannelObserver struct {
	ch      chan decision.Event
	dropped atomic.Int64
}

func NewChannelObserver(size int) *ChannelObserver {
	if size <= 0 {
		size = 64
	}
	return &ChannelObserver{ch: make(chan decision.Event, size)}
}

func (c *ChannelObserver) OnEvent(evt decision.Event) {
	select {
	case c.ch <- evt:
	default:
		c.dropped.Add(1)
	}
}

// Events is the drain side.
func (c *ChannelObserver) Events() <-chan decision.Event { return c.ch }

// Dropped counts events lost to a full buffer.
func (c *ChannelObserver) Dropped() int64 { return c.dropped.Load() }
