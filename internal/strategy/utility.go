package strategy

import (
	"context"

	"arbiter/internal/decision"
)

var defaultUtilityWeights = map[string]float64{
	"performance":    0.25,
	"userExperience": 0.30,
	"resourceUsage":  0.20,
	"cost":           0.15,
	"reliability":    0.10,
}

// UtilityBased ranks by a linear combination of impact dimensions. Context
// custom weights override the strategy's weight for the same key.
type UtilityBased struct{}

func (UtilityBased) Type() decision.StrategyType { return decision.TypeUtilityBased }

func (UtilityBased) Validate(params map[string]any) error {
	return validateParams(decision.TypeUtilityBased, params)
}

func (UtilityBased) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	weights := effectiveWeights(in.Strategy.Weights, defaultUtilityWeights, in.Context.Preferences)
	keys := sortedKeys(weights)

	items := scoreOptions(in.Options, func(o decision.Option) (float64, struct{}) {
		return weightedImpact(o, keys, weights), struct{}{}
	})
	rank(items)
	best := items[0]
	sel := best.option

	reasoning := []string{
		"Utility: " + fmtScore(best.score),
		"Performance: " + fmtScore(unit(sel.Impact.Performance)),
		"User experience: " + fmtScore(unit(sel.Impact.UserExperience)),
		"Resource usage: " + fmtScore(unit(sel.Impact.ResourceUsage)),
	}
	reasoning = append(reasoning, failureNotes(items)...)

	return finish(in, outcome{
		selected:     sel,
		utility:      best.score,
		riskScore:    neutral,
		discount:     0.95,
		alternatives: runnersUp(items, best.index, maxAlternatives),
		reasoning:    reasoning,
	}), nil
}

// effectiveWeights starts from the strategy weights (or def when it has
// none) and applies context overrides for keys the strategy already weighs.
func effectiveWeights(own, def map[string]float64, prefs *decision.Preferences) map[string]float64 {
	src := own
	if len(src) == 0 {
		src = def
	}
	out := make(map[string]float64, len(src))
	for k, w := range src {
		out[k] = w
		if prefs != nil {
			if override, ok := prefs.CustomWeights[k]; ok && finite(override) {
				out[k] = override
			}
		}
	}
	return out
}

// weightedImpact sums weight × oriented impact value in key order, clamped.
func weightedImpact(o decision.Option, keys []string, weights map[string]float64) float64 {
	total := 0.0
	for _, k := range keys {
		total += impactValue(o, k) * weights[k]
	}
	return clamp01(total)
}
