package decision

import (
	"context"
	"math/rand/v2"
)

// Input is everything a strategy sees for one decision. Strategy is a private
// clone; Options must be treated as read-only.
type Input struct {
	Strategy Strategy
	Context  Context
	Options  []Option
	// Rand is the only source of randomness a strategy may use.
	Rand *rand.Rand
}

// Decider maps (context, options) to a ranked choice for one strategy kind.
type Decider interface {
	Type() StrategyType
	// Validate checks a strategy's parameter bag before it enters the catalogue.
	Validate(params map[string]any) error
	Decide(ctx context.Context, in Input) (Result, error)
}
