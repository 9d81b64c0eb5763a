package manager

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"arbiter/internal/decision"
)

// Patch is a partial strategy update. Nil fields are left alone; ID and Type
// never change.
type Patch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Parameters  map[string]any     `json:"parameters,omitempty"`
	Weights     map[string]float64 `json:"weights,omitempty"`
	Enabled     *bool              `json:"enabled,omitempty"`
	Priority    *int               `json:"priority,omitempty"`
	Accuracy    *float64           `json:"accuracy,omitempty"`
}

// AddStrategy validates st and appends it to the catalogue.
func (m *Manager) AddStrategy(st decision.Strategy) (decision.Strategy, error) {
	st = st.Clone()
	m.mu.Lock()
	if len(m.order) >= m.cfg.MaxStrategies {
		m.mu.Unlock()
		return decision.Strategy{}, decision.NewError(decision.KindValidation, "add_strategy", st.ID, decision.ErrCatalogFull)
	}
	if err := m.insert(st); err != nil {
		m.mu.Unlock()
		return decision.Strategy{}, err
	}
	out := m.strategies[strings.TrimSpace(st.ID)].Clone()
	m.mu.Unlock()

	m.emit(decision.EventStrategyAdded, "", out)
	return out, nil
}

// insert validates and stores st. Callers hold the write lock.
func (m *Manager) insert(st decision.Strategy) error {
	const op = "add_strategy"
	st.ID = strings.TrimSpace(st.ID)
	if st.ID == "" {
		return decision.NewError(decision.KindValidation, op, "", fmt.Errorf("%w: id is required", decision.ErrInvalidStrategy))
	}
	if _, exists := m.strategies[st.ID]; exists {
		return decision.NewError(decision.KindValidation, op, st.ID, decision.ErrStrategyExists)
	}
	d, ok := m.registry.Decider(st.Type)
	if !ok {
		return decision.NewError(decision.KindValidation, op, st.ID, fmt.Errorf("%w: %q", decision.ErrUnknownStrategyType, st.Type))
	}
	if err := d.Validate(st.Parameters); err != nil {
		return decision.NewError(decision.KindValidation, op, st.ID, fmt.Errorf("%w: %v", decision.ErrInvalidStrategy, err))
	}
	if st.Name == "" {
		st.Name = st.ID
	}
	if len(st.Weights) == 0 {
		st.Weights = DefaultWeights(st.Type)
	}
	st.Accuracy = clamp01(st.Accuracy)
	if st.UsageCount < 0 {
		st.UsageCount = 0
	}
	m.strategies[st.ID] = &st
	m.order = append(m.order, st.ID)
	return nil
}

// GetStrategy returns a copy of the strategy with id.
func (m *Manager) GetStrategy(id string) (decision.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.strategies[id]
	if !ok {
		return decision.Strategy{}, notFound("get_strategy", id)
	}
	return st.Clone(), nil
}

// Strategies returns the whole catalogue in insertion order.
func (m *Manager) Strategies() []decision.Strategy {
	return m.snapshot(false)
}

// ActiveStrategies returns the enabled strategies in catalogue order.
func (m *Manager) ActiveStrategies() []decision.Strategy {
	return m.snapshot(true)
}

func (m *Manager) snapshot(enabledOnly bool) []decision.Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(enabledOnly)
}

func (m *Manager) snapshotLocked(enabledOnly bool) []decision.Strategy {
	out := make([]decision.Strategy, 0, len(m.order))
	for _, id := range m.order {
		st := m.strategies[id]
		if enabledOnly && !st.Enabled {
			continue
		}
		out = append(out, st.Clone())
	}
	return out
}

// UpdateStrategy applies p to the strategy with id.
func (m *Manager) UpdateStrategy(id string, p Patch) (decision.Strategy, error) {
	const op = "update_strategy"
	m.mu.Lock()
	st, ok := m.strategies[id]
	if !ok {
		m.mu.Unlock()
		return decision.Strategy{}, notFound(op, id)
	}
	next := st.Clone()
	if p.Parameters != nil {
		next.Parameters = maps.Clone(p.Parameters)
		d, ok := m.registry.Decider(next.Type)
		if !ok {
			m.mu.Unlock()
			return decision.Strategy{}, decision.NewError(decision.KindConfiguration, op, id, decision.ErrUnknownStrategyType)
		}
		if err := d.Validate(next.Parameters); err != nil {
			m.mu.Unlock()
			return decision.Strategy{}, decision.NewError(decision.KindValidation, op, id, fmt.Errorf("%w: %v", decision.ErrInvalidStrategy, err))
		}
	}
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Weights != nil {
		next.Weights = maps.Clone(p.Weights)
		if len(next.Weights) == 0 {
			next.Weights = DefaultWeights(next.Type)
		}
	}
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.Accuracy != nil {
		next.Accuracy = clamp01(*p.Accuracy)
		delete(m.stats.accuracy, id)
	}
	*st = next
	out := next.Clone()
	m.mu.Unlock()

	m.emit(decision.EventStrategyUpdated, "", out)
	return out, nil
}

// EnableStrategy turns a strategy on.
func (m *Manager) EnableStrategy(id string) (decision.Strategy, error) {
	return m.setEnabled(id, true)
}

// DisableStrategy turns a strategy off. An explicit request for its id still
// runs it.
func (m *Manager) DisableStrategy(id string) (decision.Strategy, error) {
	return m.setEnabled(id, false)
}

func (m *Manager) setEnabled(id string, on bool) (decision.Strategy, error) {
	op, evt := "disable_strategy", decision.EventStrategyDisabled
	if on {
		op, evt = "enable_strategy", decision.EventStrategyEnabled
	}
	m.mu.Lock()
	st, ok := m.strategies[id]
	if !ok {
		m.mu.Unlock()
		return decision.Strategy{}, notFound(op, id)
	}
	st.Enabled = on
	out := st.Clone()
	m.mu.Unlock()

	m.emit(evt, "", out)
	return out, nil
}

// RemoveStrategy drops a strategy and its counters.
func (m *Manager) RemoveStrategy(id string) error {
	m.mu.Lock()
	if _, ok := m.strategies[id]; !ok {
		m.mu.Unlock()
		return notFound("remove_strategy", id)
	}
	delete(m.strategies, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	delete(m.stats.usage, id)
	delete(m.stats.accuracy, id)
	m.mu.Unlock()

	m.emit(decision.EventStrategyRemoved, "", id)
	return nil
}

func notFound(op, id string) error {
	return decision.NewError(decision.KindNotFound, op, id, decision.ErrUnknownStrategy)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
