package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"arbiter/internal/decision"
)

const maxFrontAlternatives = 4

var defaultObjectives = []decision.Objective{
	{ID: "performance", Name: "Performance", Type: decision.Maximize, Weight: 0.24, Importance: decision.ImportanceHigh},
	{ID: "userExperience", Name: "User Experience", Type: decision.Maximize, Weight: 0.29, Importance: decision.ImportanceHigh},
	{ID: "resourceUsage", Name: "Resource Usage", Type: decision.Minimize, Weight: 0.21, Importance: decision.ImportanceMedium},
	{ID: "cost", Name: "Cost", Type: decision.Minimize, Weight: 0.15, Importance: decision.ImportanceMedium},
	{ID: "reliability", Name: "Reliability", Type: decision.Maximize, Weight: 0.11, Importance: decision.ImportanceMedium},
}

// MultiObjective keeps the Pareto-optimal options and picks the one with the
// best weighted aggregate.
type MultiObjective struct{}

func (MultiObjective) Type() decision.StrategyType { return decision.TypeMultiObjective }

func (MultiObjective) Validate(params map[string]any) error {
	if err := validateParams(decision.TypeMultiObjective, params); err != nil {
		return err
	}
	var p MultiObjectiveParams
	return decodeParams(params, &p)
}

func (MultiObjective) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	var p MultiObjectiveParams
	if err := decodeParams(in.Strategy.Parameters, &p); err != nil {
		return decision.Result{}, err
	}
	objectives := resolveObjectives(in.Context.Objectives, in.Strategy, p.Objectives)

	items := scoreOptions(in.Options, func(o decision.Option) (float64, []float64) {
		vec := make([]float64, len(objectives))
		for i, obj := range objectives {
			vec[i] = orientedValue(o, obj)
		}
		return aggregate(vec, objectives), vec
	})

	front := paretoFront(items)
	rank(front)
	best := front[0]

	ids := make([]string, len(objectives))
	for i, obj := range objectives {
		ids[i] = obj.ID
	}
	reasoning := []string{
		fmt.Sprintf("Pareto front: %d of %d options", len(front), len(items)),
		"Objectives: " + strings.Join(ids, ", "),
		"Aggregate utility: " + fmtScore(best.score),
	}
	reasoning = append(reasoning, failureNotes(items)...)

	return finish(in, outcome{
		selected:     best.option,
		utility:      best.score,
		riskScore:    neutral,
		discount:     0.97,
		alternatives: runnersUp(front, best.index, maxFrontAlternatives),
		reasoning:    reasoning,
	}), nil
}

// paretoFront returns the items no other item dominates, in input order.
// Items whose scoring failed are left out unless nothing else remains.
func paretoFront(items []scored[[]float64]) []scored[[]float64] {
	var pool []scored[[]float64]
	for _, it := range items {
		if it.failed == "" {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		return append([]scored[[]float64](nil), items...)
	}
	front := make([]scored[[]float64], 0, len(pool))
	for i, cand := range pool {
		dominated := false
		for j, other := range pool {
			if i != j && dominates(other.detail, cand.detail) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, cand)
		}
	}
	return front
}

// dominates reports whether a is at least as good as b on every oriented
// objective and strictly better on at least one.
func dominates(a, b []float64) bool {
	strict := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strict = true
		}
	}
	return strict
}

// orientedValue maps an objective reading so that higher is always better.
func orientedValue(o decision.Option, obj decision.Objective) float64 {
	v := rawValue(o, obj.ID)
	switch obj.Type {
	case decision.Minimize:
		return 1 - v
	case decision.Target:
		target := obj.Target
		if !finite(target) {
			target = neutral
		}
		return clamp01(1 - math.Abs(v-target))
	default:
		return v
	}
}

// rawValue reads an objective as stated on the option, without inversion.
func rawValue(o decision.Option, id string) float64 {
	if v, ok := o.Impact.Dimension(id); ok {
		return unit(v)
	}
	if v, ok := decision.NumericParam(o.Parameters, id); ok {
		return unit(v)
	}
	return neutral
}

func aggregate(vec []float64, objectives []decision.Objective) float64 {
	total := 0.0
	for i, obj := range objectives {
		w := obj.Weight
		if !finite(w) {
			continue
		}
		total += vec[i] * w
	}
	return clamp01(total)
}

// resolveObjectives prefers the context's objectives. Otherwise it uses the
// default set, narrowed and ordered by ids, weighted by the strategy.
func resolveObjectives(fromContext []decision.Objective, s decision.Strategy, ids []string) []decision.Objective {
	if len(fromContext) > 0 {
		return fromContext
	}
	base := make([]decision.Objective, 0, len(defaultObjectives))
	if len(ids) == 0 {
		base = append(base, defaultObjectives...)
	} else {
		for _, id := range ids {
			for _, obj := range defaultObjectives {
				if obj.ID == id {
					base = append(base, obj)
				}
			}
		}
		if len(base) == 0 {
			base = append(base, defaultObjectives...)
		}
	}
	for i := range base {
		base[i].Weight = s.Weight(base[i].ID, base[i].Weight)
	}
	return base
}
