package optimizer

import (
	"math"

	"arbiter/internal/decision"
)

const (
	DefaultMinSamples = 10
	DefaultWindow     = 50
)

// Optimizer recalibrates strategy accuracy from recent decision confidence.
// It is a plain moving average, not a learning method.
type Optimizer struct {
	minSamples int
	window     int
}

// New builds an optimizer. Non-positive arguments take the defaults.
func New(minSamples, window int) *Optimizer {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Optimizer{minSamples: minSamples, window: window}
}

// Recalibrate returns updated copies of the enabled strategies that have at
// least minSamples entries in history, each with accuracy set to the mean
// confidence of its latest window entries. history must be oldest first.
// Strategies whose accuracy would not change are left out.
func (o *Optimizer) Recalibrate(strategies []decision.Strategy, history []decision.HistoryEntry) []decision.Strategy {
	byStrategy := make(map[string][]float64)
	for _, h := range history {
		byStrategy[h.Result.StrategyID] = append(byStrategy[h.Result.StrategyID], h.Result.Confidence)
	}

	var changed []decision.Strategy
	for _, st := range strategies {
		if !st.Enabled {
			continue
		}
		samples := byStrategy[st.ID]
		if len(samples) < o.minSamples {
			continue
		}
		if len(samples) > o.window {
			samples = samples[len(samples)-o.window:]
		}
		acc := mean(samples)
		if acc == st.Accuracy {
			continue
		}
		updated := st.Clone()
		updated.Accuracy = acc
		changed = append(changed, updated)
	}
	return changed
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, sum/float64(n)))
}
