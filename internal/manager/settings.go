package manager

import (
	"fmt"
	"maps"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/optimizer"
	"arbiter/internal/selector"
)

// Settings is the engine configuration the manager runs with.
type Settings struct {
	SelectionMethod      string
	DefaultStrategy      string
	MaxStrategies        int
	EnableLearning       bool
	LearningRate         float64
	EnableOptimization   bool
	OptimizationInterval time.Duration
	MinSamples           int
	Window               int
	HistoryLimit         int
	// RandomSeed fixes the randomness of every decision when non-zero.
	RandomSeed uint64
	// Enabled holds the per-type enable flags applied to the default catalogue.
	// Missing types are enabled.
	Enabled map[decision.StrategyType]bool
}

// DefaultSettings mirrors the built-in engine defaults.
func DefaultSettings() Settings {
	enabled := make(map[decision.StrategyType]bool, 7)
	for _, typ := range decision.StrategyTypes() {
		enabled[typ] = true
	}
	return Settings{
		SelectionMethod:      string(selector.Adaptive),
		DefaultStrategy:      string(decision.TypeMultiObjective),
		MaxStrategies:        10,
		EnableLearning:       true,
		LearningRate:         0.01,
		EnableOptimization:   true,
		OptimizationInterval: time.Hour,
		MinSamples:           optimizer.DefaultMinSamples,
		Window:               optimizer.DefaultWindow,
		HistoryLimit:         1000,
		Enabled:              enabled,
	}
}

// Validate rejects settings the manager cannot run with.
func (s Settings) Validate() error {
	if !selector.Valid(s.SelectionMethod) {
		return fmt.Errorf("selection_method %q is not one of accuracy, usage, adaptive, manual", s.SelectionMethod)
	}
	if s.MaxStrategies <= 0 {
		return fmt.Errorf("max_strategies must be > 0, got %d", s.MaxStrategies)
	}
	if s.LearningRate < 0 || s.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be within [0,1], got %v", s.LearningRate)
	}
	if s.EnableOptimization && s.OptimizationInterval <= 0 {
		return fmt.Errorf("optimization_interval must be > 0 when optimization is enabled")
	}
	if s.MinSamples <= 0 || s.Window <= 0 {
		return fmt.Errorf("min_samples and window must be > 0")
	}
	if s.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be > 0, got %d", s.HistoryLimit)
	}
	return nil
}

func (s Settings) clone() Settings {
	out := s
	out.Enabled = maps.Clone(s.Enabled)
	return out
}

func (s Settings) typeEnabled(typ decision.StrategyType) bool {
	on, ok := s.Enabled[typ]
	return !ok || on
}

func (s Settings) optimizerInterval() time.Duration {
	if !s.EnableOptimization {
		return 0
	}
	return s.OptimizationInterval
}
