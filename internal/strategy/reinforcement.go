package strategy

import (
	"context"
	"math/rand/v2"
	"time"

	"arbiter/internal/decision"
)

// Reinforcement scores a pseudo Q-value per option and picks ε-greedily.
// It learns nothing between calls; the noise comes from Input.Rand.
type Reinforcement struct{}

func (Reinforcement) Type() decision.StrategyType { return decision.TypeReinforcementLearning }

func (Reinforcement) Validate(params map[string]any) error {
	if err := validateParams(decision.TypeReinforcementLearning, params); err != nil {
		return err
	}
	var p ReinforcementParams
	return decodeParams(params, &p)
}

func (Reinforcement) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	p := ReinforcementParams{ExplorationRate: 0.1, Jitter: 0.1}
	if err := decodeParams(in.Strategy.Parameters, &p); err != nil {
		return decision.Result{}, err
	}
	r := randFor(in)

	items := scoreOptions(in.Options, func(o decision.Option) (float64, struct{}) {
		q := 0.6*netBenefit(o) + 0.4*unit(o.Impact.Reliability)
		return q + (r.Float64()-0.5)*p.Jitter, struct{}{}
	})
	byIndex := make([]scored[struct{}], len(items))
	copy(byIndex, items)
	rank(items)

	best := items[0]
	mode := "exploit"
	if r.Float64() < p.ExplorationRate {
		best = byIndex[r.IntN(len(byIndex))]
		mode = "explore"
	}

	reasoning := []string{
		"Q-value: " + fmtScore(best.score),
		"Mode: " + mode + " (exploration rate " + fmtScore(p.ExplorationRate) + ")",
	}
	reasoning = append(reasoning, failureNotes(items)...)

	return finish(in, outcome{
		selected:     best.option,
		utility:      best.score,
		riskScore:    neutral,
		discount:     0.91,
		alternatives: runnersUp(items, best.index, maxAlternatives),
		reasoning:    reasoning,
	}), nil
}

// randFor returns the injected source, or a time-seeded one for callers that
// did not supply it.
func randFor(in decision.Input) *rand.Rand {
	if in.Rand != nil {
		return in.Rand
	}
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}
