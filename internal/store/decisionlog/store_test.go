package decisionlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *DecisionLogStore {
	t.Helper()
	s, err := NewDecisionLogStore(filepath.Join(t.TempDir(), "logs", "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"heuristic", "risk-based", "heuristic"} {
		_, err := s.Insert(ctx, store.DecisionRecord{
			TraceID:    id + "-trace",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			StrategyID: id,
			SelectedID: "opt",
			Confidence: 0.5,
			Reasoning:  []string{"Selected option: opt"},
		})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, store.DecisionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "heuristic", all[0].StrategyID)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), all[0].Timestamp.UnixMilli())
	assert.Equal(t, []string{"Selected option: opt"}, all[0].Reasoning)

	filtered, err := s.List(ctx, store.DecisionQuery{StrategyID: "heuristic", Limit: 1})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "heuristic", filtered[0].StrategyID)
}

func TestObserverQueuesAndFlushes(t *testing.T) {
	s := openStore(t)
	res := &decision.Result{
		StrategyID:   "utility-based",
		StrategyType: decision.TypeUtilityBased,
		Selected:     decision.Option{ID: "cache"},
		Confidence:   0.7,
		Metrics:      decision.ResultMetrics{Utility: 0.6, RiskScore: 0.2},
		OptionCount:  3,
		Duration:     4 * time.Millisecond,
		DecidedAt:    time.Now(),
	}
	s.OnEvent(decision.Event{Type: decision.EventDecisionStarted, TraceID: "t1", Payload: 3})
	s.OnEvent(decision.Event{Type: decision.EventDecisionCompleted, TraceID: "t1", Payload: res})
	s.OnEvent(decision.Event{Type: decision.EventDecisionFailed, TraceID: "t2", At: time.Now(),
		Payload: decision.FailurePayload{Options: 2, Err: decision.NewError(decision.KindTimeout, "decide", "slow", errors.New("deadline"))}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))

	list, err := s.List(context.Background(), store.DecisionQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	byTrace := map[string]store.DecisionRecord{}
	for _, rec := range list {
		byTrace[rec.TraceID] = rec
	}
	assert.Equal(t, "cache", byTrace["t1"].SelectedID)
	assert.Equal(t, 3, byTrace["t1"].Options)
	assert.Equal(t, int64(4), byTrace["t1"].DurationMS)
	assert.Equal(t, "slow", byTrace["t2"].StrategyID)
	assert.NotEmpty(t, byTrace["t2"].Error)
}

func TestClosedStoreErrors(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Close())
	_, err := s.Insert(context.Background(), store.DecisionRecord{})
	assert.Error(t, err)
	_, err = NewDecisionLogStore("")
	assert.Error(t, err)
}
