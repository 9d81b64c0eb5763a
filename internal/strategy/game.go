package strategy

import (
	"context"
	"math"

	"arbiter/internal/decision"
)

// GameTheoretic plays every option against every other and keeps the best
// worst case (maximin). payoff(A,B) = 0.6×net(A) + 0.4×net(B) in a cooperative
// game; a competitive game subtracts the opponent's share instead.
type GameTheoretic struct{}

type gameDetail struct {
	worst float64
	net   float64
}

func (GameTheoretic) Type() decision.StrategyType { return decision.TypeGameTheoretic }

func (GameTheoretic) Validate(params map[string]any) error {
	if err := validateParams(decision.TypeGameTheoretic, params); err != nil {
		return err
	}
	var p GameParams
	return decodeParams(params, &p)
}

func (GameTheoretic) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	p := GameParams{GameType: "cooperative", EquilibriumType: "nash"}
	if err := decodeParams(in.Strategy.Parameters, &p); err != nil {
		return decision.Result{}, err
	}
	selfShare, oppShare := 0.6, 0.4
	if p.GameType == "competitive" {
		oppShare = -0.4
	}

	nets := make([]float64, len(in.Options))
	for i, o := range in.Options {
		nets[i] = netBenefit(o)
	}

	items := scoreOptions(in.Options, func(o decision.Option) (float64, gameDetail) {
		mine := netBenefit(o)
		worst := math.Inf(1)
		for _, theirs := range nets {
			worst = math.Min(worst, selfShare*mine+oppShare*theirs)
		}
		return worst, gameDetail{worst: worst, net: mine}
	})
	rank(items)
	best := items[0]

	// payoffs span [-1,1]
	utility := (best.detail.worst + 1) / 2

	reasoning := []string{
		"Equilibrium: " + p.EquilibriumType + " (" + p.GameType + " game)",
		"Worst-case payoff: " + fmtScore(best.detail.worst),
		"Net benefit: " + fmtScore(best.detail.net),
	}
	reasoning = append(reasoning, failureNotes(items)...)

	return finish(in, outcome{
		selected:     best.option,
		utility:      utility,
		riskScore:    neutral,
		discount:     0.86,
		alternatives: runnersUp(items, best.index, maxAlternatives),
		reasoning:    reasoning,
	}), nil
}

func netBenefit(o decision.Option) float64 {
	return unit(o.ExpectedBenefit) - unit(o.ExpectedCost)
}
