package strategy

import (
	"fmt"
	"math"
	"sort"

	"arbiter/internal/decision"

	"github.com/shopspring/decimal"
)

const (
	neutral         = 0.5
	maxAlternatives = 3
)

// clamp01 pins v into [0,1]; NaN collapses to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// unit reads an option attribute that is contractually in [0,1]. Non-finite
// input counts as missing and falls back to the neutral value.
func unit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return neutral
	}
	return clamp01(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ratio divides with the engine-wide convention: a zero or non-finite
// denominator yields 0.
func ratio(num, den float64) float64 {
	if den == 0 || !finite(den) || !finite(num) {
		return 0
	}
	return num / den
}

func fmtScore(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// scored is one option with its score and strategy-specific detail.
type scored[T any] struct {
	index  int
	option decision.Option
	score  float64
	detail T
	failed string
}

// scoreOptions evaluates fn for every option. A panic or a non-finite score
// downgrades that option to the bottom of the ranking instead of aborting.
func scoreOptions[T any](options []decision.Option, fn func(decision.Option) (float64, T)) []scored[T] {
	out := make([]scored[T], len(options))
	for i, opt := range options {
		out[i] = scoreOne(i, opt, fn)
	}
	return out
}

func scoreOne[T any](idx int, opt decision.Option, fn func(decision.Option) (float64, T)) (s scored[T]) {
	s = scored[T]{index: idx, option: opt}
	defer func() {
		if r := recover(); r != nil {
			s.score = math.Inf(-1)
			s.failed = fmt.Sprintf("Option %s downgraded: scoring failed (%v)", opt.ID, r)
		}
	}()
	score, detail := fn(opt)
	if !finite(score) {
		s.score = math.Inf(-1)
		s.failed = fmt.Sprintf("Option %s downgraded: non-finite score", opt.ID)
		return s
	}
	s.score = score
	s.detail = detail
	return s
}

// rank orders by score, highest first. Ties keep input order.
func rank[T any](items []scored[T]) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].score > items[b].score
	})
}

func failureNotes[T any](items []scored[T]) []string {
	var notes []string
	for _, it := range items {
		if it.failed != "" {
			notes = append(notes, it.failed)
		}
	}
	return notes
}

// runnersUp returns clones of up to n ranked options, skipping the option at
// input index skip.
func runnersUp[T any](ranked []scored[T], skip, n int) []decision.Option {
	out := make([]decision.Option, 0, n)
	for _, it := range ranked {
		if len(out) >= n {
			break
		}
		if it.index == skip {
			continue
		}
		out = append(out, it.option.Clone())
	}
	return out
}

// outcome is what every strategy hands to finish.
type outcome struct {
	selected     decision.Option
	utility      float64
	riskScore    float64
	discount     float64
	alternatives []decision.Option
	reasoning    []string
	benefit      *float64
	cost         *float64
}

// finish fills the engine-derived fields on a private copy of the selected
// option and assembles the result.
func finish(in decision.Input, out outcome) decision.Result {
	sel := out.selected.Clone()
	sel.Utility = clamp01(out.utility)
	sel.RiskScore = clamp01(out.riskScore)

	metrics := decision.ResultMetrics{
		Utility:         sel.Utility,
		RiskScore:       sel.RiskScore,
		ExpectedBenefit: sel.ExpectedBenefit,
		ExpectedCost:    sel.ExpectedCost,
	}
	if out.benefit != nil {
		metrics.ExpectedBenefit = *out.benefit
	}
	if out.cost != nil {
		metrics.ExpectedCost = *out.cost
	}

	reasoning := append([]string{fmt.Sprintf("Selected option: %s", displayName(sel))}, out.reasoning...)
	for _, v := range in.Context.Constraints.Violations(sel) {
		reasoning = append(reasoning, "Constraint warning: "+v)
	}
	alts := out.alternatives
	if alts == nil {
		alts = []decision.Option{}
	}
	return decision.Result{
		StrategyID:   in.Strategy.ID,
		StrategyName: in.Strategy.Name,
		StrategyType: in.Strategy.Type,
		Selected:     sel,
		Alternatives: alts,
		Confidence:   clamp01(unit(sel.Confidence) * out.discount),
		Reasoning:    reasoning,
		Metrics:      metrics,
	}
}

func displayName(o decision.Option) string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

// impactValue reads an impact dimension oriented so that higher is better:
// resource usage and cost are inverted. Unknown keys fall back to option
// parameters, then to the neutral value.
func impactValue(o decision.Option, key string) float64 {
	switch key {
	case "resourceUsage", "resource_usage":
		return 1 - unit(o.Impact.ResourceUsage)
	case "cost":
		return 1 - unit(o.Impact.Cost)
	}
	if v, ok := o.Impact.Dimension(key); ok {
		return unit(v)
	}
	if v, ok := decision.NumericParam(o.Parameters, key); ok {
		return unit(v)
	}
	return neutral
}

// heuristicScore is the fixed rule shared by the heuristic strategy and the
// genetic search's fitness.
func heuristicScore(i decision.Impact) float64 {
	return unit(i.Performance)*0.25 +
		unit(i.UserExperience)*0.30 +
		(1-unit(i.ResourceUsage))*0.20 +
		(1-unit(i.Cost))*0.15 +
		unit(i.Reliability)*0.10
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func floatPtr(v float64) *float64 { return &v }
