package strategy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"arbiter/internal/decision"
)

const (
	seedMutation   = 0.2
	offspringDrift = 0.1
	finalistCount  = 10
	crossoverGenes = 5
)

// Genetic evolves the impact vectors of the supplied options under the
// heuristic fitness rule. Its winner may be a synthesized variant; such a
// result carries Synthesized and DerivedFrom on the selected option.
type Genetic struct{}

type individual struct {
	parent  int
	impact  decision.Impact
	fitness float64
}

func (Genetic) Type() decision.StrategyType { return decision.TypeMetaHeuristic }

func (Genetic) Validate(params map[string]any) error {
	if err := validateParams(decision.TypeMetaHeuristic, params); err != nil {
		return err
	}
	p := defaultGeneticParams()
	return decodeParams(params, &p)
}

func (Genetic) Decide(ctx context.Context, in decision.Input) (decision.Result, error) {
	if err := begin(ctx, in); err != nil {
		return decision.Result{}, err
	}
	p := defaultGeneticParams()
	if err := decodeParams(in.Strategy.Parameters, &p); err != nil {
		return decision.Result{}, err
	}
	if p.PopulationSize < 2 {
		p.PopulationSize = 2
	}
	if p.TournamentSize < 1 {
		p.TournamentSize = 1
	}

	if len(in.Options) == 1 {
		only := in.Options[0]
		fitness := heuristicScore(only.Impact)
		return finish(in, outcome{
			selected:  only,
			utility:   fitness,
			riskScore: neutral,
			discount:  0.89,
			reasoning: []string{
				"Single candidate: genetic search skipped",
				"Fitness: " + fmtScore(fitness),
			},
		}), nil
	}

	r := randFor(in)
	population := seedPopulation(in.Options, p.PopulationSize, r)
	for gen := 0; gen < p.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return decision.Result{}, err
		}
		evaluate(population)
		parents := selectParents(population, p, r)
		offspring := crossover(parents, r)
		for i := range offspring {
			if r.Float64() < p.MutationRate {
				offspring[i].impact = mutateImpact(offspring[i].impact, offspringDrift, r)
			}
		}
		population = append(parents, offspring...)
		if len(population) > p.PopulationSize {
			population = population[:p.PopulationSize]
		}
	}
	evaluate(population)
	population = distinct(population, finalistCount)

	finalists := make([]decision.Option, len(population))
	for i, ind := range population {
		finalists[i] = materialize(in.Options[ind.parent], ind, i)
	}
	winner := population[0]
	sel := finalists[0]

	reasoning := []string{
		fmt.Sprintf("Genetic search: population %d, %d generations", p.PopulationSize, p.Generations),
		"Fitness: " + fmtScore(winner.fitness),
	}
	if sel.Synthesized {
		reasoning = append(reasoning, "Synthesized variant derived from "+sel.DerivedFrom)
	}

	alts := make([]decision.Option, 0, maxAlternatives)
	for _, f := range finalists[1:] {
		if len(alts) == maxAlternatives {
			break
		}
		alts = append(alts, f)
	}

	return finish(in, outcome{
		selected:     sel,
		utility:      winner.fitness,
		riskScore:    neutral,
		discount:     0.89,
		alternatives: alts,
		reasoning:    reasoning,
	}), nil
}

func seedPopulation(options []decision.Option, size int, r *rand.Rand) []individual {
	pop := make([]individual, size)
	for i := range pop {
		parent := i % len(options)
		pop[i] = individual{
			parent: parent,
			impact: mutateImpact(options[parent].Impact, seedMutation, r),
		}
	}
	return pop
}

// evaluate scores the population and sorts it fittest first.
func evaluate(pop []individual) {
	for i := range pop {
		pop[i].fitness = heuristicScore(pop[i].impact)
	}
	sort.SliceStable(pop, func(a, b int) bool { return pop[a].fitness > pop[b].fitness })
}

// selectParents keeps the elite and fills up to half the population with
// tournament winners. pop must be sorted.
func selectParents(pop []individual, p GeneticParams, r *rand.Rand) []individual {
	elite := int(float64(len(pop)) * p.EliteRatio)
	if elite > len(pop) {
		elite = len(pop)
	}
	selected := make([]individual, 0, len(pop))
	selected = append(selected, pop[:elite]...)
	for float64(len(selected)) < float64(len(pop))/2 {
		winner := pop[r.IntN(len(pop))]
		for k := 1; k < p.TournamentSize; k++ {
			if c := pop[r.IntN(len(pop))]; c.fitness > winner.fitness {
				winner = c
			}
		}
		selected = append(selected, winner)
	}
	return selected
}

func crossover(parents []individual, r *rand.Rand) []individual {
	out := make([]individual, 0, len(parents))
	for i := 0; i+1 < len(parents); i += 2 {
		a, b := parents[i], parents[i+1]
		out = append(out, splice(a, b, r.IntN(crossoverGenes)), splice(b, a, r.IntN(crossoverGenes)))
	}
	return out
}

// splice takes genes before point from a and the rest from b.
func splice(a, b individual, point int) individual {
	pick := func(gene int, av, bv float64) float64 {
		if point > gene {
			return av
		}
		return bv
	}
	child := a
	child.impact.Performance = pick(0, a.impact.Performance, b.impact.Performance)
	child.impact.UserExperience = pick(1, a.impact.UserExperience, b.impact.UserExperience)
	child.impact.ResourceUsage = pick(2, a.impact.ResourceUsage, b.impact.ResourceUsage)
	child.impact.Cost = pick(3, a.impact.Cost, b.impact.Cost)
	child.impact.Reliability = pick(4, a.impact.Reliability, b.impact.Reliability)
	child.impact.Overall = overallOf(child.impact)
	return child
}

func mutateImpact(in decision.Impact, amount float64, r *rand.Rand) decision.Impact {
	drift := func(v float64) float64 {
		return clamp01(unit(v) + (r.Float64()-0.5)*amount)
	}
	out := in
	out.Performance = drift(in.Performance)
	out.UserExperience = drift(in.UserExperience)
	out.ResourceUsage = drift(in.ResourceUsage)
	out.Cost = drift(in.Cost)
	out.Reliability = drift(in.Reliability)
	out.Overall = overallOf(out)
	return out
}

func overallOf(i decision.Impact) float64 {
	return i.Performance*0.25 + i.UserExperience*0.30 + i.ResourceUsage*0.20 + i.Cost*0.15 + i.Reliability*0.10
}

// distinct keeps at most limit individuals from a sorted population,
// dropping any whose genes repeat a fitter one.
func distinct(pop []individual, limit int) []individual {
	out := make([]individual, 0, limit)
	for _, ind := range pop {
		if len(out) == limit {
			break
		}
		dup := false
		for _, kept := range out {
			if sameGenes(kept.impact, ind.impact) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ind)
		}
	}
	return out
}

// materialize turns an individual back into an option. An individual whose
// genes match its parent returns the parent verbatim.
func materialize(parent decision.Option, ind individual, pos int) decision.Option {
	if sameGenes(parent.Impact, ind.impact) {
		return parent.Clone()
	}
	out := parent.Clone()
	out.ID = fmt.Sprintf("%s~ga%d", parent.ID, pos)
	out.Impact = ind.impact
	out.Synthesized = true
	out.DerivedFrom = parent.ID
	return out
}

func sameGenes(a, b decision.Impact) bool {
	return a.Performance == b.Performance &&
		a.UserExperience == b.UserExperience &&
		a.ResourceUsage == b.ResourceUsage &&
		a.Cost == b.Cost &&
		a.Reliability == b.Reliability
}
