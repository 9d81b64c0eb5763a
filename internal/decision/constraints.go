package decision

import (
	"fmt"
	"sort"
)

var riskTierValue = map[RiskLevel]float64{
	RiskLow:      0.2,
	RiskMedium:   0.5,
	RiskHigh:     0.8,
	RiskCritical: 1.0,
}

// BaseRisk maps a risk tier to its base score. Unknown tiers count as medium.
func BaseRisk(level RiskLevel) float64 {
	if v, ok := riskTierValue[level]; ok {
		return v
	}
	return riskTierValue[RiskMedium]
}

// Violations lists the hard bounds o breaks. A nil receiver has no bounds.
func (c *Constraints) Violations(o Option) []string {
	if c == nil {
		return nil
	}
	var out []string
	check := func(name string, bound *float64, value float64, upper bool) {
		if bound == nil {
			return
		}
		if upper && value > *bound {
			out = append(out, fmt.Sprintf("%s %.2f exceeds max %.2f", name, value, *bound))
		}
		if !upper && value < *bound {
			out = append(out, fmt.Sprintf("%s %.2f below min %.2f", name, value, *bound))
		}
	}
	check("cost", c.MaxCost, o.ExpectedCost, true)
	check("risk", c.MaxRisk, BaseRisk(o.RiskLevel), true)
	check("reliability", c.MinReliability, o.Impact.Reliability, false)
	check("performance", c.MinPerformance, o.Impact.Performance, false)
	check("resource usage", c.MaxResourceUsage, o.Impact.ResourceUsage, true)

	names := make([]string, 0, len(c.Custom))
	for name := range c.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bound := c.Custom[name]
		value, ok := numericParam(o.Parameters, name)
		if !ok {
			continue
		}
		check(name, bound.Max, value, true)
		check(name, bound.Min, value, false)
		if bound.Equals != nil && value != *bound.Equals {
			out = append(out, fmt.Sprintf("%s %.2f differs from %.2f", name, value, *bound.Equals))
		}
	}
	return out
}

func numericParam(params map[string]any, key string) (float64, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

// NumericParam exposes numericParam to strategies that read option parameters.
func NumericParam(params map[string]any, key string) (float64, bool) {
	return numericParam(params, key)
}
