package decision

import (
	"maps"
	"time"
)

// Level is a three-step preference tier.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// RiskLevel is the risk tier of an option.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Category classifies what kind of response an option represents.
type Category string

const (
	CategoryAdaptation     Category = "adaptation"
	CategoryOptimization   Category = "optimization"
	CategoryRecommendation Category = "recommendation"
	CategoryAction         Category = "action"
	CategoryHybrid         Category = "hybrid"
	CategoryMitigation     Category = "mitigation"
	CategoryPrevention     Category = "prevention"
)

// ObjectiveType tells the multi-objective search which direction is better.
type ObjectiveType string

const (
	Maximize ObjectiveType = "maximize"
	Minimize ObjectiveType = "minimize"
	Target   ObjectiveType = "target"
)

// Importance is the declared importance tier of an objective.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Context is the situational input a decision is made against.
// The engine only reads it.
type Context struct {
	Timestamp   time.Time      `json:"timestamp"`
	Environment map[string]any `json:"environment,omitempty"`
	User        map[string]any `json:"user,omitempty"`
	System      map[string]any `json:"system,omitempty"`
	Historical  []Snapshot     `json:"historical,omitempty"`
	Constraints *Constraints   `json:"constraints,omitempty"`
	Preferences *Preferences   `json:"preferences,omitempty"`
	Objectives  []Objective    `json:"objectives,omitempty"`
}

// Snapshot is one entry of the context's historical log.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Constraints are hard bounds. A nil pointer means "not constrained".
type Constraints struct {
	MaxCost          *float64         `json:"max_cost,omitempty"`
	MaxRisk          *float64         `json:"max_risk,omitempty"`
	MinReliability   *float64         `json:"min_reliability,omitempty"`
	MinPerformance   *float64         `json:"min_performance,omitempty"`
	MaxResourceUsage *float64         `json:"max_resource_usage,omitempty"`
	TimeLimit        time.Duration    `json:"time_limit,omitempty"`
	Custom           map[string]Bound `json:"custom,omitempty"`
}

// Bound is a named custom constraint evaluated against option parameters.
type Bound struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Equals *float64 `json:"equals,omitempty"`
}

// Preferences carry the caller's soft preferences.
type Preferences struct {
	RiskTolerance          Level              `json:"risk_tolerance,omitempty"`
	CostSensitivity        Level              `json:"cost_sensitivity,omitempty"`
	PerformancePriority    Level              `json:"performance_priority,omitempty"`
	UserExperiencePriority Level              `json:"user_experience_priority,omitempty"`
	ReliabilityPriority    Level              `json:"reliability_priority,omitempty"`
	CustomWeights          map[string]float64 `json:"custom_weights,omitempty"`
}

// Objective is one axis of a multi-objective decision.
type Objective struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Type       ObjectiveType `json:"type"`
	Target     float64       `json:"target,omitempty"`
	Weight     float64       `json:"weight"`
	Importance Importance    `json:"importance,omitempty"`
}

// Impact is the expected effect of an option, every dimension in [0,1].
type Impact struct {
	Performance     float64 `json:"performance"`
	UserExperience  float64 `json:"user_experience"`
	ResourceUsage   float64 `json:"resource_usage"`
	Cost            float64 `json:"cost"`
	Reliability     float64 `json:"reliability"`
	Security        float64 `json:"security"`
	Scalability     float64 `json:"scalability"`
	Maintainability float64 `json:"maintainability"`
	Overall         float64 `json:"overall"`
}

// Dimension returns an impact dimension by name. Both the camelCase names used in
// strategy weights and the snake_case JSON names are accepted.
func (i Impact) Dimension(name string) (float64, bool) {
	switch name {
	case "performance":
		return i.Performance, true
	case "userExperience", "user_experience":
		return i.UserExperience, true
	case "resourceUsage", "resource_usage":
		return i.ResourceUsage, true
	case "cost":
		return i.Cost, true
	case "reliability":
		return i.Reliability, true
	case "security":
		return i.Security, true
	case "scalability":
		return i.Scalability, true
	case "maintainability":
		return i.Maintainability, true
	case "overall":
		return i.Overall, true
	default:
		return 0, false
	}
}

// Option is a candidate response. Utility and RiskScore are filled by the engine
// on its own copy; Synthesized marks variants produced by the genetic search.
type Option struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Category        Category       `json:"category,omitempty"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Impact          Impact         `json:"impact"`
	Confidence      float64        `json:"confidence"`
	Priority        int            `json:"priority,omitempty"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	ExpectedBenefit float64        `json:"expected_benefit"`
	ExpectedCost    float64        `json:"expected_cost"`
	Utility         float64        `json:"utility"`
	RiskScore       float64        `json:"risk_score"`
	Synthesized     bool           `json:"synthesized,omitempty"`
	DerivedFrom     string         `json:"derived_from,omitempty"`
}

// Clone returns a copy that shares no maps with the receiver.
func (o Option) Clone() Option {
	out := o
	if o.Parameters != nil {
		out.Parameters = maps.Clone(o.Parameters)
	}
	return out
}

// ResultMetrics is the numeric summary attached to a result.
type ResultMetrics struct {
	Utility         float64 `json:"utility"`
	RiskScore       float64 `json:"risk_score"`
	ExpectedBenefit float64 `json:"expected_benefit"`
	ExpectedCost    float64 `json:"expected_cost"`
}

// Result is the outcome of one decision.
type Result struct {
	TraceID      string        `json:"trace_id"`
	StrategyID   string        `json:"strategy_id"`
	StrategyName string        `json:"strategy_name"`
	StrategyType StrategyType  `json:"strategy_type"`
	Selected     Option        `json:"selected"`
	Alternatives []Option      `json:"alternatives"`
	Confidence   float64       `json:"confidence"`
	Reasoning    []string      `json:"reasoning"`
	Metrics      ResultMetrics `json:"metrics"`
	OptionCount  int           `json:"option_count"`
	Duration     time.Duration `json:"duration"`
	DecidedAt    time.Time     `json:"decided_at"`
}

// Clone deep-copies the result.
func (r Result) Clone() Result {
	out := r
	out.Selected = r.Selected.Clone()
	if r.Alternatives != nil {
		out.Alternatives = make([]Option, len(r.Alternatives))
		for i, alt := range r.Alternatives {
			out.Alternatives[i] = alt.Clone()
		}
	}
	if r.Reasoning != nil {
		out.Reasoning = append([]string(nil), r.Reasoning...)
	}
	return out
}

// HistoryEntry is one append-only audit record.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Result    Result    `json:"result"`
}

// Metrics is the aggregate view over the catalogue and the decisions made so far.
type Metrics struct {
	TotalStrategies     int                `json:"total_strategies"`
	ActiveStrategies    int                `json:"active_strategies"`
	TotalDecisions      int64              `json:"total_decisions"`
	FailedDecisions     int64              `json:"failed_decisions"`
	SuccessRate         float64            `json:"success_rate"`
	StrategyUsage       map[string]int64   `json:"strategy_usage"`
	StrategyAccuracy    map[string]float64 `json:"strategy_accuracy"`
	AverageDecisionTime time.Duration      `json:"average_decision_time"`
}

// Float returns a pointer to v, handy for optional constraint bounds.
func Float(v float64) *float64 {
	return &v
}
