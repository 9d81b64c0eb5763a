package strategy

import (
	"context"
	"math"

	"arbiter/internal/decision"
)

var toleranceMultiplier = map[decision.Level]float64{
	decision.LevelLow:    1.5,
	decision.LevelMedium: 1.0,
	decision.LevelHigh:   0.7,
}

// RiskBased weighs tier risk, benefit, cost and reliability.
//
// With the default "safety" orientation risk and cost count against an
// option. The "legacy" orientation adds them with positive weight, which lets
// a riskier option outrank a safer one; it is kept for callers that depend on
// that ranking.
type RiskBased struct{}

type riskDetail struct {
	risk, benefit, cost, reliability float64
}

func (RiskBased) Type() decision.StrategyType { return decision.TypeRiskBased }

func (RiskBased) Validate(params map[string]any) error {
	if err := validateParams(decision.TypeRiskBased, params); err != nil {
		return err
	}
	var p RiskParams
	return decodeParams(params, &p)
}

func (RiskBased) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	p := RiskParams{RiskTolerance: string(decision.LevelMedium), RiskOrientation: orientationSafety}
	if err := decodeParams(in.Strategy.Parameters, &p); err != nil {
		return decision.Result{}, err
	}
	tolerance := decision.Level(p.RiskTolerance)
	if prefs := in.Context.Preferences; prefs != nil && prefs.RiskTolerance != "" {
		tolerance = prefs.RiskTolerance
	}
	mult, ok := toleranceMultiplier[tolerance]
	if !ok {
		mult = 1.0
	}
	legacy := p.RiskOrientation == orientationLegacy

	wRisk := in.Strategy.Weight("risk", 0.4)
	wBenefit := in.Strategy.Weight("benefit", 0.3)
	wCost := in.Strategy.Weight("cost", 0.2)
	wRel := in.Strategy.Weight("reliability", 0.1)

	items := scoreOptions(in.Options, func(o decision.Option) (float64, riskDetail) {
		d := riskDetail{
			risk:        riskSubScore(o, in.Context.Constraints, mult),
			benefit:     unit(o.ExpectedBenefit),
			cost:        costSubScore(o, in.Context.Constraints),
			reliability: unit(o.Impact.Reliability),
		}
		if legacy {
			return d.risk*wRisk + d.benefit*wBenefit + d.cost*wCost + d.reliability*wRel, d
		}
		return (1-d.risk)*wRisk + d.benefit*wBenefit + (1-d.cost)*wCost + d.reliability*wRel, d
	})
	rank(items)
	best := items[0]

	reasoning := []string{
		"Risk tolerance: " + string(tolerance) + ", orientation: " + p.RiskOrientation,
		"Risk score: " + fmtScore(best.detail.risk),
		"Benefit score: " + fmtScore(best.detail.benefit),
		"Cost score: " + fmtScore(best.detail.cost),
		"Reliability score: " + fmtScore(best.detail.reliability),
		"Utility: " + fmtScore(best.score),
	}
	reasoning = append(reasoning, failureNotes(items)...)

	return finish(in, outcome{
		selected:     best.option,
		utility:      best.score,
		riskScore:    best.detail.risk,
		discount:     0.90,
		alternatives: runnersUp(items, best.index, maxAlternatives),
		reasoning:    reasoning,
		benefit:      floatPtr(best.detail.benefit),
		cost:         floatPtr(best.detail.cost),
	}), nil
}

// riskSubScore is tier risk scaled by tolerance plus 0.3 per unit of
// relative overshoot past MaxRisk.
func riskSubScore(o decision.Option, c *decision.Constraints, mult float64) float64 {
	base := decision.BaseRisk(o.RiskLevel)
	overshoot := 0.0
	if c != nil && c.MaxRisk != nil {
		overshoot = math.Max(0, ratio(base-*c.MaxRisk, *c.MaxRisk))
	}
	return clamp01(base*mult + overshoot*0.3)
}

// costSubScore is expected cost relative to MaxCost. A missing or
// non-positive bound counts as 1.
func costSubScore(o decision.Option, c *decision.Constraints) float64 {
	maxCost := 1.0
	if c != nil && c.MaxCost != nil && *c.MaxCost > 0 {
		maxCost = *c.MaxCost
	}
	return clamp01(ratio(unit(o.ExpectedCost), maxCost))
}

// begin rejects empty option sets and already-cancelled contexts.
func begin(ctx context.Context, in decision.Input) error {
	if len(in.Options) == 0 {
		return decision.NewError(decision.KindValidation, "decide", in.Strategy.ID, decision.ErrNoOptions)
	}
	return ctx.Err()
}
