package manager

import (
	"maps"

	"arbiter/internal/decision"
)

var defaultWeights = map[decision.StrategyType]map[string]float64{
	decision.TypeRiskBased: {
		"risk": 0.4, "benefit": 0.3, "cost": 0.2, "reliability": 0.1,
	},
	decision.TypeUtilityBased: {
		"performance": 0.25, "userExperience": 0.30, "resourceUsage": 0.20, "cost": 0.15, "reliability": 0.10,
	},
	decision.TypeMultiObjective: {
		"performance": 0.24, "userExperience": 0.29, "resourceUsage": 0.21, "cost": 0.15, "reliability": 0.11,
	},
	decision.TypeGameTheoretic: {
		"cooperation": 0.4, "competition": 0.3, "fairness": 0.2, "efficiency": 0.1,
	},
	decision.TypeReinforcementLearning: {
		"reward": 0.5, "state": 0.3, "action": 0.2,
	},
	decision.TypeHeuristic: {
		"rule1": 0.2, "rule2": 0.2, "rule3": 0.2, "rule4": 0.2, "rule5": 0.2,
	},
	decision.TypeMetaHeuristic: {
		"fitness": 0.4, "diversity": 0.3, "convergence": 0.2, "efficiency": 0.1,
	},
}

// DefaultWeights returns a copy of the documented weights for typ.
func DefaultWeights(typ decision.StrategyType) map[string]float64 {
	return maps.Clone(defaultWeights[typ])
}

// DefaultCatalogue builds the seven built-in strategies, honouring the
// per-type enable flags of s.
func DefaultCatalogue(s Settings) []decision.Strategy {
	list := []decision.Strategy{
		{
			ID:          "risk-based",
			Name:        "Risk-Based Strategy",
			Description: "Decision strategy based on risk assessment and mitigation",
			Type:        decision.TypeRiskBased,
			Parameters:  map[string]any{"risk_tolerance": "medium", "risk_orientation": "safety"},
			Priority:    8,
			Accuracy:    0.88,
		},
		{
			ID:          "utility-based",
			Name:        "Utility-Based Strategy",
			Description: "Decision strategy based on utility maximization",
			Type:        decision.TypeUtilityBased,
			Parameters:  map[string]any{"utility_function": "linear", "discount_factor": 0.95, "time_horizon": 10},
			Priority:    9,
			Accuracy:    0.90,
		},
		{
			ID:          "multi-objective",
			Name:        "Multi-Objective Strategy",
			Description: "Decision strategy based on multi-objective optimization",
			Type:        decision.TypeMultiObjective,
			Parameters: map[string]any{
				"objectives":          []string{"performance", "userExperience", "resourceUsage", "cost", "reliability"},
				"optimization_method": "pareto",
				"aggregation_method":  "weighted-sum",
			},
			Priority: 10,
			Accuracy: 0.92,
		},
		{
			ID:          "game-theoretic",
			Name:        "Game-Theoretic Strategy",
			Description: "Decision strategy based on game theory principles",
			Type:        decision.TypeGameTheoretic,
			Parameters:  map[string]any{"game_type": "cooperative", "equilibrium_type": "nash", "player_count": 2},
			Priority:    7,
			Accuracy:    0.86,
		},
		{
			ID:          "reinforcement-learning",
			Name:        "Reinforcement Learning Strategy",
			Description: "Decision strategy based on reinforcement learning",
			Type:        decision.TypeReinforcementLearning,
			Parameters: map[string]any{
				"algorithm": "q-learning", "learning_rate": 0.01, "discount_factor": 0.95, "exploration_rate": 0.1,
			},
			Priority: 9,
			Accuracy: 0.91,
		},
		{
			ID:          "heuristic",
			Name:        "Heuristic Strategy",
			Description: "Decision strategy based on heuristic rules",
			Type:        decision.TypeHeuristic,
			Parameters:  map[string]any{"heuristic_type": "rule-based", "rule_count": 10, "complexity": "low"},
			Priority:    6,
			Accuracy:    0.84,
		},
		{
			ID:          "meta-heuristic",
			Name:        "Meta-Heuristic Strategy",
			Description: "Decision strategy based on meta-heuristic optimization",
			Type:        decision.TypeMetaHeuristic,
			Parameters: map[string]any{
				"algorithm": "genetic", "population_size": 20, "generations": 50,
				"mutation_rate": 0.1, "elite_ratio": 0.2, "tournament_size": 5,
			},
			Priority: 8,
			Accuracy: 0.89,
		},
	}
	for i := range list {
		list[i].Weights = DefaultWeights(list[i].Type)
		list[i].Enabled = s.typeEnabled(list[i].Type)
	}
	return list
}
