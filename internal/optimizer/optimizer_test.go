package optimizer

import (
	"testing"

	"arbiter/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(id string, confidences ...float64) []decision.HistoryEntry {
	out := make([]decision.HistoryEntry, len(confidences))
	for i, c := range confidences {
		out[i] = decision.HistoryEntry{Result: decision.Result{StrategyID: id, Confidence: c}}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRecalibrateUsesLatestWindow(t *testing.T) {
	history := entries("a", repeat(0.2, 30)...)
	history = append(history, entries("a", repeat(0.8, 50)...)...)
	strategies := []decision.Strategy{{ID: "a", Enabled: true, Accuracy: 0.9}}

	got := New(0, 0).Recalibrate(strategies, history)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.8, got[0].Accuracy, 1e-9)
	assert.Equal(t, 0.9, strategies[0].Accuracy)
}

func TestRecalibrateSkipsThinAndDisabled(t *testing.T) {
	history := entries("thin", repeat(0.5, 9)...)
	history = append(history, entries("off", repeat(0.5, 20)...)...)
	strategies := []decision.Strategy{
		{ID: "thin", Enabled: true, Accuracy: 0.9},
		{ID: "off", Enabled: false, Accuracy: 0.9},
	}
	assert.Empty(t, New(10, 50).Recalibrate(strategies, history))
}

func TestRecalibrateMixedHistory(t *testing.T) {
	var history []decision.HistoryEntry
	for i := 0; i < 12; i++ {
		history = append(history, entries("a", 0.5)...)
		history = append(history, entries("b", 0.4)...)
	}
	strategies := []decision.Strategy{
		{ID: "a", Enabled: true, Accuracy: 0.5},
		{ID: "b", Enabled: true, Accuracy: 0.9},
	}
	got := New(10, 5).Recalibrate(strategies, history)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.InDelta(t, 0.4, got[0].Accuracy, 1e-9)
}
