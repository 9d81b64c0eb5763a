package config

import (
	"fmt"
	"slices"
	"strings"

	"arbiter/internal/decision"
	"arbiter/internal/scheduler"
	"arbiter/internal/selector"
)

var knownEvents = []decision.EventType{
	decision.EventInitialized,
	decision.EventDecisionStarted,
	decision.EventDecisionCompleted,
	decision.EventDecisionFailed,
	decision.EventStrategyAdded,
	decision.EventStrategyUpdated,
	decision.EventStrategyEnabled,
	decision.EventStrategyDisabled,
	decision.EventStrategyRemoved,
	decision.EventStrategiesOptimized,
	decision.EventConfigUpdated,
	decision.EventReset,
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Catalog.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %s", a.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %s", a.LogFormat)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if !selector.Valid(e.SelectionMethod) {
		return fmt.Errorf("engine.selection_method must be one of accuracy/usage/adaptive/manual, got %s", e.SelectionMethod)
	}
	if e.MaxStrategies <= 0 {
		return fmt.Errorf("engine.max_strategies must be > 0")
	}
	if e.LearningRate < 0 || e.LearningRate > 1 {
		return fmt.Errorf("engine.learning_rate must be in [0, 1]")
	}
	if e.EnableOptimization {
		if d, ok := scheduler.ParseIntervalDuration(e.OptimizationInterval); !ok || d <= 0 {
			return fmt.Errorf("engine.optimization_interval invalid: %s", e.OptimizationInterval)
		}
	}
	if e.MinSamples <= 0 || e.Window <= 0 {
		return fmt.Errorf("engine.min_samples and engine.window must be > 0")
	}
	if e.HistoryLimit <= 0 {
		return fmt.Errorf("engine.history_limit must be > 0")
	}
	known := decision.StrategyTypes()
	for key := range e.Strategies {
		if !slices.Contains(known, decision.StrategyType(key)) {
			return fmt.Errorf("engine.strategies contains unknown strategy type: %s", key)
		}
	}
	return nil
}

func (c *CatalogConfig) validate() error {
	if c.Watch && strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("catalog.watch requires catalog.path")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.FlushInterval) == "" {
		return nil
	}
	if d, ok := scheduler.ParseIntervalDuration(s.FlushInterval); !ok || d <= 0 {
		return fmt.Errorf("store.flush_interval invalid: %s", s.FlushInterval)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	for _, evt := range n.Telegram.Events {
		if !slices.Contains(knownEvents, decision.EventType(evt)) {
			return fmt.Errorf("notify.telegram.events contains unknown event: %s", evt)
		}
	}
	return nil
}
