package selector

import (
	"testing"
	"time"

	"arbiter/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogue() []decision.Strategy {
	return []decision.Strategy{
		{ID: "a", Enabled: true, Accuracy: 0.80, UsageCount: 40, Priority: 5},
		{ID: "b", Enabled: true, Accuracy: 0.95, UsageCount: 10, Priority: 9},
		{ID: "c", Enabled: false, Accuracy: 0.99, UsageCount: 500, Priority: 10},
		{ID: "d", Enabled: true, Accuracy: 0.70, UsageCount: 90, Priority: 3},
	}
}

func TestSelectByAccuracyAndUsageSkipDisabled(t *testing.T) {
	got, err := New(Accuracy, "").Select(catalogue(), decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	got, err = New(Usage, "").Select(catalogue(), decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "d", got.ID)
}

func TestAdaptiveScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := decision.Strategy{Accuracy: 0.9, UsageCount: 50, Priority: 8, LastUsedAt: now.Add(-84 * time.Hour)}
	// 0.36 + 0.15 + 0.1 + 0.08
	assert.InDelta(t, 0.69, AdaptiveScore(st, now), 1e-9)

	st.LastUsedAt = time.Time{}
	assert.InDelta(t, 0.79, AdaptiveScore(st, now), 1e-9)

	st.UsageCount = 1000
	assert.InDelta(t, 0.94, AdaptiveScore(st, now), 1e-9)
}

func TestAdaptivePrefersStaleStrategies(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []decision.Strategy{
		{ID: "fresh", Enabled: true, Accuracy: 0.9, Priority: 5, LastUsedAt: now},
		{ID: "idle", Enabled: true, Accuracy: 0.9, Priority: 5, LastUsedAt: now.Add(-30 * 24 * time.Hour)},
	}
	got, err := New(Adaptive, "", WithClock(func() time.Time { return now })).Select(list, decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "idle", got.ID)
}

func TestManualFallsBackToFirstEnabled(t *testing.T) {
	sel := New(Manual, "b")
	for i := 0; i < 5; i++ {
		got, err := sel.Select(catalogue(), decision.Context{})
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
	}

	got, err := New(Manual, "c").Select(catalogue(), decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	got, err = New(Manual, "missing").Select(catalogue(), decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestTiesGoToCatalogueOrder(t *testing.T) {
	list := []decision.Strategy{
		{ID: "first", Enabled: true, Accuracy: 0.5},
		{ID: "second", Enabled: true, Accuracy: 0.5},
	}
	got, err := New(Accuracy, "").Select(list, decision.Context{})
	require.NoError(t, err)
	assert.Equal(t, "first", got.ID)
}

func TestNoEnabledStrategy(t *testing.T) {
	list := catalogue()
	for i := range list {
		list[i].Enabled = false
	}
	for _, m := range []Method{Accuracy, Usage, Adaptive, Manual} {
		_, err := New(m, "a").Select(list, decision.Context{})
		assert.ErrorIs(t, err, decision.ErrNoStrategyAvailable, string(m))
	}
}

func TestParseMethod(t *testing.T) {
	assert.Equal(t, Manual, ParseMethod(" Manual "))
	assert.Equal(t, Adaptive, ParseMethod("roulette"))
	assert.True(t, Valid("usage"))
	assert.False(t, Valid("roulette"))
}
