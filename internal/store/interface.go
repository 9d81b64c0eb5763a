package store

import (
	"context"
	"time"

	"arbiter/internal/decision"
)

// CatalogStore persists the strategy catalogue between runs.
type CatalogStore interface {
	// LoadStrategies returns the stored catalogue in its original order.
	LoadStrategies(ctx context.Context) ([]decision.Strategy, error)
	// SaveStrategies replaces the stored catalogue with list.
	SaveStrategies(ctx context.Context, list []decision.Strategy) error
	// Close closes the store connection.
	Close() error
}

// DecisionLog is the append-only audit trail of decisions.
type DecisionLog interface {
	Insert(ctx context.Context, rec DecisionRecord) (int64, error)
	List(ctx context.Context, q DecisionQuery) ([]DecisionRecord, error)
	Close() error
}

// DecisionRecord is one audited decision, successful or not.
type DecisionRecord struct {
	ID           int64     `json:"id"`
	TraceID      string    `json:"trace_id"`
	Timestamp    time.Time `json:"ts"`
	StrategyID   string    `json:"strategy_id"`
	StrategyType string    `json:"strategy_type,omitempty"`
	SelectedID   string    `json:"selected_id,omitempty"`
	Confidence   float64   `json:"confidence"`
	Utility      float64   `json:"utility"`
	RiskScore    float64   `json:"risk_score"`
	DurationMS   int64     `json:"duration_ms"`
	Options      int       `json:"options"`
	Reasoning    []string  `json:"reasoning,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// DecisionQuery filters DecisionLog.List. Zero values mean no filter.
type DecisionQuery struct {
	StrategyID string
	Limit      int
	Offset     int
}
