package decision

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyCloneIsDeep(t *testing.T) {
	s := Strategy{
		ID:         "s",
		Weights:    map[string]float64{"risk": 0.4},
		Parameters: map[string]any{"risk_orientation": "safety"},
	}
	c := s.Clone()
	c.Weights["risk"] = 0.9
	c.Parameters["risk_orientation"] = "legacy"

	assert.Equal(t, 0.4, s.Weights["risk"])
	assert.Equal(t, "safety", s.Parameters["risk_orientation"])
	assert.Equal(t, 0.3, s.Weight("benefit", 0.3))
}

func TestResultCloneDoesNotShareOptions(t *testing.T) {
	r := Result{
		Selected:     Option{ID: "a", Parameters: map[string]any{"x": 1}},
		Alternatives: []Option{{ID: "b"}},
		Reasoning:    []string{"first"},
	}
	c := r.Clone()
	c.Selected.Parameters["x"] = 2
	c.Alternatives[0].ID = "z"
	c.Reasoning[0] = "changed"

	assert.Equal(t, 1, r.Selected.Parameters["x"])
	assert.Equal(t, "b", r.Alternatives[0].ID)
	assert.Equal(t, "first", r.Reasoning[0])
}

func TestBaseRiskDefaultsToMedium(t *testing.T) {
	assert.Equal(t, 0.2, BaseRisk(RiskLow))
	assert.Equal(t, 1.0, BaseRisk(RiskCritical))
	assert.Equal(t, 0.5, BaseRisk("unheard-of"))
}

func TestConstraintViolations(t *testing.T) {
	var none *Constraints
	assert.Empty(t, none.Violations(Option{}))

	c := &Constraints{
		MaxCost:        Float(0.3),
		MaxRisk:        Float(0.5),
		MinReliability: Float(0.7),
		Custom: map[string]Bound{
			"latency_ms": {Max: Float(200)},
			"replicas":   {Equals: Float(3)},
		},
	}
	o := Option{
		ExpectedCost: 0.4,
		RiskLevel:    RiskHigh,
		Impact:       Impact{Reliability: 0.9},
		Parameters:   map[string]any{"latency_ms": 250.0, "replicas": 2},
	}
	got := c.Violations(o)
	require.Len(t, got, 4)
	assert.Contains(t, got[0], "cost")
	assert.Contains(t, got[1], "risk")
	assert.Contains(t, got[2], "latency_ms")
	assert.Contains(t, got[3], "replicas")
}

func TestImpactDimension(t *testing.T) {
	i := Impact{UserExperience: 0.7, ResourceUsage: 0.1}
	v, ok := i.Dimension("userExperience")
	assert.True(t, ok)
	assert.Equal(t, 0.7, v)
	v, ok = i.Dimension("resource_usage")
	assert.True(t, ok)
	assert.Equal(t, 0.1, v)
	_, ok = i.Dimension("latency")
	assert.False(t, ok)
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	base := NewError(KindConfiguration, "decide", "", ErrNoStrategyAvailable)
	wrapped := fmt.Errorf("http: %w", base)

	assert.Equal(t, KindConfiguration, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrNoStrategyAvailable))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Contains(t, base.Error(), "no strategy available")
}
