package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"arbiter/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadStrategies(t *testing.T) {
	s, err := NewGormStore(filepath.Join(t.TempDir(), "arbiter.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	used := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	list := []decision.Strategy{
		{ID: "b", Name: "B", Type: decision.TypeHeuristic, Enabled: true, Accuracy: 0.84,
			Weights: map[string]float64{"rule1": 0.2}, UsageCount: 4, LastUsedAt: used},
		{ID: "a", Name: "A", Type: decision.TypeMetaHeuristic,
			Parameters: map[string]any{"population_size": 20}},
	}
	require.NoError(t, s.SaveStrategies(ctx, list))

	got, err := s.LoadStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, int64(4), got[0].UsageCount)
	assert.True(t, used.Equal(got[0].LastUsedAt))
	assert.Equal(t, 0.2, got[0].Weights["rule1"])
	assert.Equal(t, float64(20), got[1].Parameters["population_size"])
	assert.True(t, got[1].LastUsedAt.IsZero())

	list[0].Accuracy = 0.5
	require.NoError(t, s.SaveStrategies(ctx, list[:1]))
	got, err = s.LoadStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.5, got[0].Accuracy)

	require.NoError(t, s.SaveStrategies(ctx, nil))
	got, err = s.LoadStrategies(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewGormStoreRequiresPath(t *testing.T) {
	_, err := NewGormStore(" ")
	assert.Error(t, err)
}
