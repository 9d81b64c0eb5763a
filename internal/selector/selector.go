package selector

import (
	"strings"
	"time"

	"arbiter/internal/decision"
)

// Method names a selection rule.
type Method string

const (
	Accuracy Method = "accuracy"
	Usage    Method = "usage"
	Adaptive Method = "adaptive"
	Manual   Method = "manual"
)

const (
	usageSaturation = 100
	recencyWindow   = 7 * 24 * time.Hour
)

// ParseMethod maps a config string to a Method. Unknown names select adaptively.
func ParseMethod(s string) Method {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Accuracy, Usage, Adaptive, Manual:
		return m
	default:
		return Adaptive
	}
}

// Valid reports whether s names a known method.
func Valid(s string) bool {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case Accuracy, Usage, Adaptive, Manual:
		return true
	}
	return false
}

// Selector picks which catalogue entry handles a request.
type Selector struct {
	method    Method
	defaultID string
	now       func() time.Time
}

// Option customises a Selector.
type Option func(*Selector)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a selector. defaultID is only consulted by the manual method.
func New(method Method, defaultID string, opts ...Option) *Selector {
	s := &Selector{method: method, defaultID: defaultID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Method returns the configured rule.
func (s *Selector) Method() Method { return s.method }

// Select returns the winning enabled strategy. strategies must be in
// catalogue order; ties go to the earlier entry.
func (s *Selector) Select(strategies []decision.Strategy, _ decision.Context) (decision.Strategy, error) {
	active := make([]decision.Strategy, 0, len(strategies))
	for _, st := range strategies {
		if st.Enabled {
			active = append(active, st)
		}
	}
	if len(active) == 0 {
		return decision.Strategy{}, decision.ErrNoStrategyAvailable
	}
	switch s.method {
	case Accuracy:
		return argmax(active, func(st decision.Strategy) float64 { return st.Accuracy }), nil
	case Usage:
		return argmax(active, func(st decision.Strategy) float64 { return float64(st.UsageCount) }), nil
	case Manual:
		for _, st := range active {
			if st.ID == s.defaultID {
				return st, nil
			}
		}
		return active[0], nil
	default:
		now := s.now()
		return argmax(active, func(st decision.Strategy) float64 { return AdaptiveScore(st, now) }), nil
	}
}

// AdaptiveScore blends accuracy, usage, staleness and priority:
// 0.4×accuracy + 0.3×min(1, usage/100) + 0.2×min(1, idle/7d) + 0.1×priority/10.
// A strategy never used earns full staleness credit.
func AdaptiveScore(st decision.Strategy, now time.Time) float64 {
	usage := minf(1, float64(st.UsageCount)/usageSaturation)
	recency := 1.0
	if !st.LastUsedAt.IsZero() {
		idle := now.Sub(st.LastUsedAt)
		if idle < 0 {
			idle = 0
		}
		recency = minf(1, float64(idle)/float64(recencyWindow))
	}
	return 0.4*st.Accuracy + 0.3*usage + 0.2*recency + 0.1*float64(st.Priority)/10
}

func argmax(list []decision.Strategy, score func(decision.Strategy) float64) decision.Strategy {
	best, bestScore := list[0], score(list[0])
	for _, st := range list[1:] {
		if v := score(st); v > bestScore {
			best, bestScore = st, v
		}
	}
	return best
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
