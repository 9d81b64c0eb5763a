package decision

import (
	"maps"
	"time"
)

// StrategyType tags which algorithm a strategy runs.
type StrategyType string

const (
	TypeRiskBased             StrategyType = "risk-based"
	TypeUtilityBased          StrategyType = "utility-based"
	TypeMultiObjective        StrategyType = "multi-objective"
	TypeGameTheoretic         StrategyType = "game-theoretic"
	TypeReinforcementLearning StrategyType = "reinforcement-learning"
	TypeHeuristic             StrategyType = "heuristic"
	TypeMetaHeuristic         StrategyType = "meta-heuristic"
)

// StrategyTypes lists the built-in kinds in catalogue order.
func StrategyTypes() []StrategyType {
	return []StrategyType{
		TypeRiskBased,
		TypeUtilityBased,
		TypeMultiObjective,
		TypeGameTheoretic,
		TypeReinforcementLearning,
		TypeHeuristic,
		TypeMetaHeuristic,
	}
}

// Strategy is a long-lived catalogue entry. Accuracy, LastUsedAt and UsageCount
// change after every use; everything else only through explicit updates.
type Strategy struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        StrategyType       `json:"type"`
	Parameters  map[string]any     `json:"parameters,omitempty"`
	Weights     map[string]float64 `json:"weights,omitempty"`
	Enabled     bool               `json:"enabled"`
	Priority    int                `json:"priority"`
	Accuracy    float64            `json:"accuracy"`
	LastUsedAt  time.Time          `json:"last_used_at"`
	UsageCount  int64              `json:"usage_count"`
}

// Clone returns a deep copy.
func (s Strategy) Clone() Strategy {
	out := s
	if s.Parameters != nil {
		out.Parameters = maps.Clone(s.Parameters)
	}
	if s.Weights != nil {
		out.Weights = maps.Clone(s.Weights)
	}
	return out
}

// Weight returns the configured weight for key, or def when absent.
func (s Strategy) Weight(key string, def float64) float64 {
	if w, ok := s.Weights[key]; ok {
		return w
	}
	return def
}
