package manager

import (
	"context"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
)

// Optimize recalibrates strategy accuracy from the retained history and
// returns the strategies that changed. It shares the write path with
// decision bookkeeping.
func (m *Manager) Optimize(ctx context.Context) ([]decision.Strategy, error) {
	if err := ctx.Err(); err != nil {
		return nil, decision.NewError(decision.KindTimeout, "optimize", "", err)
	}
	m.mu.Lock()
	changed := m.optimizer.Recalibrate(m.snapshotLocked(true), m.history.chronological())
	for _, st := range changed {
		if cur, ok := m.strategies[st.ID]; ok {
			cur.Accuracy = st.Accuracy
			m.stats.accuracy[st.ID] = st.Accuracy
		}
	}
	m.mu.Unlock()

	if changed == nil {
		changed = []decision.Strategy{}
	}
	logger.Infof("strategies optimized: %d recalibrated", len(changed))
	m.emit(decision.EventStrategiesOptimized, "", changed)
	return changed, nil
}

// Run drives the periodic optimizer until ctx ends. The interval follows the
// settings and is re-armed by UpdateConfig.
func (m *Manager) Run(ctx context.Context) error {
	m.periodic.Run(ctx, func(ctx context.Context) {
		if _, err := m.Optimize(ctx); err != nil {
			logger.Warnf("periodic optimize failed: %v", err)
		}
	})
	return nil
}
