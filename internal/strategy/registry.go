package strategy

import (
	"fmt"
	"sort"
	"sync"

	"arbiter/internal/decision"
)

// Registry maps a strategy type to the Decider that runs it.
type Registry struct {
	mu       sync.RWMutex
	deciders map[decision.StrategyType]decision.Decider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		deciders: make(map[decision.StrategyType]decision.Decider),
	}
}

// NewDefaultRegistry registers the seven built-in kinds.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RiskBased{})
	r.Register(UtilityBased{})
	r.Register(MultiObjective{})
	r.Register(GameTheoretic{})
	r.Register(Reinforcement{})
	r.Register(Heuristic{})
	r.Register(Genetic{})
	return r
}

// Register adds d, replacing any Decider already registered for its type.
func (r *Registry) Register(d decision.Decider) {
	if r == nil || d == nil {
		return
	}
	typ := d.Type()
	if typ == "" {
		panic("strategy register: empty type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deciders[typ] = d
}

// Decider returns the implementation for typ.
func (r *Registry) Decider(typ decision.StrategyType) (decision.Decider, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deciders[typ]
	return d, ok
}

// MustDecider panics when typ is not registered.
func (r *Registry) MustDecider(typ decision.StrategyType) decision.Decider {
	if d, ok := r.Decider(typ); ok {
		return d
	}
	panic(fmt.Sprintf("strategy type not registered: %s", typ))
}

// Types lists the registered kinds in sorted order.
func (r *Registry) Types() []decision.StrategyType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]decision.StrategyType, 0, len(r.deciders))
	for typ := range r.deciders {
		list = append(list, typ)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
