package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Decide resolves a strategy (strategyID when non-empty, otherwise the
// selector's pick), runs it and records the outcome. Constraints.TimeLimit,
// when set, bounds the call in addition to ctx.
func (m *Manager) Decide(ctx context.Context, dctx decision.Context, options []decision.Option, strategyID string) (decision.Result, error) {
	const op = "decide"
	traceID := m.traceID()
	start := m.now()
	m.emit(decision.EventDecisionStarted, traceID, len(options))

	res, err := m.decide(ctx, dctx, options, strategyID)
	if err != nil {
		err = classify(op, strategyID, err)
		m.mu.Lock()
		m.stats.failed++
		m.mu.Unlock()
		logger.Trace(traceID).Warn("decision failed", "strategy", strategyID, "options", len(options), "err", err)
		m.emit(decision.EventDecisionFailed, traceID, decision.FailurePayload{
			StrategyID: strategyID,
			Options:    len(options),
			Err:        err,
		})
		return decision.Result{}, err
	}

	end := m.now()
	res.TraceID = traceID
	res.Duration = end.Sub(start)
	res.DecidedAt = end
	m.record(res)

	log := logger.Trace(traceID)
	log.Debug("decision completed", "strategy", res.StrategyID, "selected", res.Selected.ID,
		"confidence", res.Confidence, "took", res.Duration)
	logger.DebugLines(log, res.Reasoning)
	published := res.Clone()
	m.emit(decision.EventDecisionCompleted, traceID, &published)
	return res, nil
}

func (m *Manager) decide(ctx context.Context, dctx decision.Context, options []decision.Option, strategyID string) (decision.Result, error) {
	if len(options) == 0 {
		return decision.Result{}, decision.NewError(decision.KindValidation, "decide", strategyID, decision.ErrNoOptions)
	}
	st, seed, err := m.resolve(dctx, strategyID)
	if err != nil {
		return decision.Result{}, err
	}
	d, ok := m.registry.Decider(st.Type)
	if !ok {
		return decision.Result{}, decision.NewError(decision.KindConfiguration, "decide", st.ID,
			fmt.Errorf("%w: %q", decision.ErrUnknownStrategyType, st.Type))
	}
	if dctx.Constraints != nil && dctx.Constraints.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dctx.Constraints.TimeLimit)
		defer cancel()
	}
	in := decision.Input{Strategy: st, Context: dctx, Options: options, Rand: m.newRand(seed)}
	res, err := run(ctx, d, in)
	if err != nil {
		return decision.Result{}, classify("decide", st.ID, err)
	}
	res.StrategyID, res.StrategyName, res.StrategyType = st.ID, st.Name, st.Type
	res.OptionCount = len(options)
	return res, nil
}

// resolve picks the strategy under the read lock and returns a private clone.
func (m *Manager) resolve(dctx decision.Context, strategyID string) (decision.Strategy, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seed := m.cfg.RandomSeed
	if strategyID != "" {
		st, ok := m.strategies[strategyID]
		if !ok {
			return decision.Strategy{}, 0, decision.NewError(decision.KindConfiguration, "decide", strategyID, decision.ErrUnknownStrategy)
		}
		return st.Clone(), seed, nil
	}
	st, err := m.selector.Select(m.snapshotLocked(false), dctx)
	if err != nil {
		return decision.Strategy{}, 0, decision.NewError(decision.KindConfiguration, "decide", "", err)
	}
	return st, seed, nil
}

// run executes one strategy, turning a panic into an internal error and
// giving up when ctx ends first.
func run(ctx context.Context, d decision.Decider, in decision.Input) (decision.Result, error) {
	type outcome struct {
		res decision.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: decision.NewError(decision.KindInternal, "decide", in.Strategy.ID, fmt.Errorf("strategy panic: %v", r))}
			}
		}()
		res, err := d.Decide(ctx, in)
		done <- outcome{res: res, err: err}
	}()
	select {
	case <-ctx.Done():
		return decision.Result{}, ctx.Err()
	case out := <-done:
		return out.res, out.err
	}
}

// record applies the post-decision bookkeeping under the write lock.
func (m *Manager) record(res decision.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := res.StrategyID
	m.stats.total++
	m.stats.usage[id]++

	if st, ok := m.strategies[id]; ok {
		st.UsageCount++
		st.LastUsedAt = res.DecidedAt
		prev, tracked := m.stats.accuracy[id]
		if !tracked {
			prev = st.Accuracy
		}
		lr := m.cfg.LearningRate
		next := clamp01(prev*(1-lr) + res.Confidence*lr)
		m.stats.accuracy[id] = next
		if m.cfg.EnableLearning {
			st.Accuracy = next
		}
	}

	n := decimal.NewFromInt(m.stats.total)
	took := decimal.NewFromInt(int64(res.Duration)).Div(decimal.NewFromInt(int64(time.Millisecond)))
	m.stats.avgMillis = m.stats.avgMillis.Mul(n.Sub(decimal.NewFromInt(1))).Add(took).Div(n)

	m.history.push(decision.HistoryEntry{Timestamp: res.DecidedAt, Result: res.Clone()})
}

// Compare runs every enabled strategy against the same request concurrently.
// Nothing is recorded. Results follow catalogue order.
func (m *Manager) Compare(ctx context.Context, dctx decision.Context, options []decision.Option) ([]decision.Result, error) {
	const op = "compare"
	if len(options) == 0 {
		return nil, decision.NewError(decision.KindValidation, op, "", decision.ErrNoOptions)
	}
	active := m.ActiveStrategies()
	if len(active) == 0 {
		return nil, decision.NewError(decision.KindConfiguration, op, "", decision.ErrNoStrategyAvailable)
	}
	seed := m.Config().RandomSeed
	if dctx.Constraints != nil && dctx.Constraints.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dctx.Constraints.TimeLimit)
		defer cancel()
	}

	results := make([]decision.Result, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range active {
		d, ok := m.registry.Decider(st.Type)
		if !ok {
			return nil, decision.NewError(decision.KindConfiguration, op, st.ID, decision.ErrUnknownStrategyType)
		}
		in := decision.Input{Strategy: st, Context: dctx, Options: options, Rand: m.newRand(seed)}
		g.Go(func() error {
			start := time.Now()
			res, err := run(gctx, d, in)
			if err != nil {
				return classify(op, in.Strategy.ID, err)
			}
			res.StrategyID, res.StrategyName, res.StrategyType = in.Strategy.ID, in.Strategy.Name, in.Strategy.Type
			res.OptionCount = len(options)
			res.Duration = time.Since(start)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// classify keeps typed errors and maps everything else to a kind.
func classify(op, strategyID string, err error) error {
	var de *decision.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return decision.NewError(decision.KindTimeout, op, strategyID, err)
	}
	return decision.NewError(decision.KindInternal, op, strategyID, err)
}
