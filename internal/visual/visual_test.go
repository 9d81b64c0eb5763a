package visual

import (
	"testing"

	"arbiter/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMetrics(t *testing.T) {
	strategies := []decision.Strategy{
		{ID: "heuristic", Enabled: true, Accuracy: 0.84},
		{ID: "meta-heuristic", Enabled: false, Accuracy: 0.89},
	}
	m := decision.Metrics{
		TotalStrategies:  2,
		ActiveStrategies: 1,
		TotalDecisions:   3,
		StrategyUsage:    map[string]int64{"heuristic": 3},
		StrategyAccuracy: map[string]float64{"heuristic": 0.8},
	}
	html, err := RenderMetrics(m, strategies)
	require.NoError(t, err)
	body := string(html)
	assert.Contains(t, body, "Strategy usage")
	assert.Contains(t, body, "meta-heuristic")
	assert.Contains(t, body, "echarts")
}

func TestRenderMetricsNeedsStrategies(t *testing.T) {
	_, err := RenderMetrics(decision.Metrics{}, nil)
	assert.Error(t, err)
}
