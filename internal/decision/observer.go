package decision

import "time"

// EventType names a lifecycle notification.
type EventType string

const (
	EventInitialized         EventType = "initialized"
	EventDecisionStarted     EventType = "decision-started"
	EventDecisionCompleted   EventType = "decision-completed"
	EventDecisionFailed      EventType = "decision-failed"
	EventStrategyAdded       EventType = "strategy-added"
	EventStrategyUpdated     EventType = "strategy-updated"
	EventStrategyEnabled     EventType = "strategy-enabled"
	EventStrategyDisabled    EventType = "strategy-disabled"
	EventStrategyRemoved     EventType = "strategy-removed"
	EventStrategiesOptimized EventType = "strategies-optimized"
	EventConfigUpdated       EventType = "config-updated"
	EventReset               EventType = "reset"
)

// Event is a best-effort notification. Payload depends on Type: the option
// count for decision-started, *Result for decision-completed, FailurePayload
// for decision-failed, Strategy for single-strategy events, []Strategy for
// strategies-optimized, Metrics for initialized/reset, the removed id for
// strategy-removed and the new settings for config-updated.
type Event struct {
	Type    EventType
	At      time.Time
	TraceID string
	Payload any
}

// FailurePayload accompanies decision-failed.
type FailurePayload struct {
	StrategyID string
	Options    int
	Err        error
}

// Observer receives lifecycle events. Implementations must not block for long;
// nothing in the engine depends on delivery.
type Observer interface {
	OnEvent(evt Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(evt Event)

func (f ObserverFunc) OnEvent(evt Event) { f(evt) }
