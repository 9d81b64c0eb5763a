package strategy

import (
	"context"

	"arbiter/internal/decision"
)

// Heuristic applies one fixed rule and ignores context and weights:
// 0.25×performance + 0.30×userExperience + 0.20×(1−resourceUsage)
// + 0.15×(1−cost) + 0.10×reliability.
type Heuristic struct{}

func (Heuristic) Type() decision.StrategyType { return decision.TypeHeuristic }

func (Heuristic) Validate(params map[string]any) error {
	return validateParams(decision.TypeHeuristic, params)
}

func (Heuristic) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	items := scoreOptions(in.Options, func(o decision.Option) (float64, struct{}) {
		return heuristicScore(o.Impact), struct{}{}
	})
	rank(items)
	best := items[0]

	reasoning := append([]string{"Heuristic score: " + fmtScore(best.score)}, failureNotes(items)...)
	return finish(in, outcome{
		selected:     best.option,
		utility:      best.score,
		riskScore:    neutral,
		discount:     0.84,
		alternatives: runnersUp(items, best.index, maxAlternatives),
		reasoning:    reasoning,
	}), nil
}
