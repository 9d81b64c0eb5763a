package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"arbiter/internal/decision"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	orientationSafety = "safety"
	orientationLegacy = "legacy"
)

// RiskParams tunes the risk-based strategy.
type RiskParams struct {
	// RiskTolerance applies when the context carries no preference.
	RiskTolerance   string `mapstructure:"risk_tolerance"`
	RiskOrientation string `mapstructure:"risk_orientation"`
}

// MultiObjectiveParams tunes the Pareto search.
type MultiObjectiveParams struct {
	// Objectives restricts and orders the default objective set when the
	// context supplies none.
	Objectives []string `mapstructure:"objectives"`
}

// GameParams tunes the payoff matrix.
type GameParams struct {
	GameType        string `mapstructure:"game_type"`
	EquilibriumType string `mapstructure:"equilibrium_type"`
}

// ReinforcementParams tunes the ε-greedy pick.
type ReinforcementParams struct {
	ExplorationRate float64 `mapstructure:"exploration_rate"`
	Jitter          float64 `mapstructure:"jitter"`
}

// GeneticParams tunes the genetic search.
type GeneticParams struct {
	PopulationSize int     `mapstructure:"population_size"`
	Generations    int     `mapstructure:"generations"`
	MutationRate   float64 `mapstructure:"mutation_rate"`
	EliteRatio     float64 `mapstructure:"elite_ratio"`
	TournamentSize int     `mapstructure:"tournament_size"`
}

var schemaSources = map[decision.StrategyType]string{
	decision.TypeRiskBased: `{
		"type": "object",
		"properties": {
			"risk_tolerance": {"enum": ["low", "medium", "high"]},
			"risk_orientation": {"enum": ["safety", "legacy"]}
		}
	}`,
	decision.TypeUtilityBased: `{
		"type": "object",
		"properties": {
			"utility_function": {"enum": ["linear"]},
			"discount_factor": {"type": "number", "minimum": 0, "maximum": 1},
			"time_horizon": {"type": "number", "minimum": 0}
		}
	}`,
	decision.TypeMultiObjective: `{
		"type": "object",
		"properties": {
			"objectives": {"type": "array", "items": {"type": "string", "minLength": 1}},
			"optimization_method": {"enum": ["pareto"]},
			"aggregation_method": {"enum": ["weighted-sum"]}
		}
	}`,
	decision.TypeGameTheoretic: `{
		"type": "object",
		"properties": {
			"game_type": {"enum": ["cooperative", "competitive"]},
			"equilibrium_type": {"enum": ["nash", "maximin"]},
			"player_count": {"type": "integer", "minimum": 2}
		}
	}`,
	decision.TypeReinforcementLearning: `{
		"type": "object",
		"properties": {
			"algorithm": {"type": "string"},
			"learning_rate": {"type": "number", "minimum": 0, "maximum": 1},
			"discount_factor": {"type": "number", "minimum": 0, "maximum": 1},
			"exploration_rate": {"type": "number", "minimum": 0, "maximum": 1},
			"jitter": {"type": "number", "minimum": 0, "maximum": 1}
		}
	}`,
	decision.TypeHeuristic: `{
		"type": "object",
		"properties": {
			"heuristic_type": {"type": "string"},
			"rule_count": {"type": "integer", "minimum": 0},
			"complexity": {"enum": ["low", "medium", "high"]}
		}
	}`,
	decision.TypeMetaHeuristic: `{
		"type": "object",
		"properties": {
			"algorithm": {"enum": ["genetic"]},
			"population_size": {"type": "integer", "minimum": 2, "maximum": 1000},
			"generations": {"type": "integer", "minimum": 0, "maximum": 10000},
			"mutation_rate": {"type": "number", "minimum": 0, "maximum": 1},
			"elite_ratio": {"type": "number", "minimum": 0, "maximum": 1},
			"tournament_size": {"type": "integer", "minimum": 1}
		}
	}`,
}

var schemas = compileSchemas()

func compileSchemas() map[decision.StrategyType]*jsonschema.Schema {
	out := make(map[decision.StrategyType]*jsonschema.Schema, len(schemaSources))
	for typ, src := range schemaSources {
		name := string(typ) + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("strategy schema %s: %v", typ, err))
		}
		out[typ] = compiler.MustCompile(name)
	}
	return out
}

// validateParams checks a parameter bag against the schema for typ. The bag
// is normalised through JSON first so Go integers and YAML-decoded values
// validate the same way as request bodies.
func validateParams(typ decision.StrategyType, params map[string]any) error {
	schema, ok := schemas[typ]
	if !ok || len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s parameters: %w", typ, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s parameters: %w", typ, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s parameters: %w", typ, err)
	}
	return nil
}

// decodeParams overlays params onto out, which already holds the defaults.
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func defaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize: 20,
		Generations:    50,
		MutationRate:   0.1,
		EliteRatio:     0.2,
		TournamentSize: 5,
	}
}
