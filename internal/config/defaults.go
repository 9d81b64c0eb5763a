package config

import (
	"strings"

	"arbiter/internal/decision"
)

// 默认值常量
const (
	defaultAppEnv               = "dev"
	defaultAppLogLevel          = "info"
	defaultAppLogFormat         = "text"
	defaultAppHTTPAddr          = ":9991"
	defaultSelectionMethod      = "adaptive"
	defaultDefaultStrategy      = "multi-objective"
	defaultMaxStrategies        = 10
	defaultLearningRate         = 0.01
	defaultOptimizationInterval = "1h"
	defaultMinSamples           = 10
	defaultWindow               = 50
	defaultHistoryLimit         = 1000
	defaultCatalogPath          = "configs/strategies.yaml"
	defaultStoreCatalogPath     = "data/arbiter.db"
	defaultStoreDecisionLog     = "data/decisions.db"
	defaultStoreFlushInterval   = "5m"
)

var defaultTelegramEvents = []string{
	string(decision.EventDecisionFailed),
	string(decision.EventStrategiesOptimized),
	string(decision.EventReset),
}

// applyDefaults 为所有子配置应用默认值，只处理配置文件未显式设置的键。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Catalog.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("engine.selection_method", &e.SelectionMethod, defaultSelectionMethod),
		stringFieldDefault("engine.default_strategy", &e.DefaultStrategy, defaultDefaultStrategy),
		stringFieldDefault("engine.optimization_interval", &e.OptimizationInterval, defaultOptimizationInterval),
		boolFieldDefault("engine.enable_learning", &e.EnableLearning, true),
		boolFieldDefault("engine.enable_optimization", &e.EnableOptimization, true),
		fieldDefault{
			key:   "engine.max_strategies",
			need:  func() bool { return e.MaxStrategies <= 0 },
			apply: func() { e.MaxStrategies = defaultMaxStrategies },
		},
		fieldDefault{
			key:   "engine.learning_rate",
			need:  func() bool { return e.LearningRate <= 0 },
			apply: func() { e.LearningRate = defaultLearningRate },
		},
		fieldDefault{
			key:   "engine.min_samples",
			need:  func() bool { return e.MinSamples <= 0 },
			apply: func() { e.MinSamples = defaultMinSamples },
		},
		fieldDefault{
			key:   "engine.window",
			need:  func() bool { return e.Window <= 0 },
			apply: func() { e.Window = defaultWindow },
		},
		fieldDefault{
			key:   "engine.history_limit",
			need:  func() bool { return e.HistoryLimit <= 0 },
			apply: func() { e.HistoryLimit = defaultHistoryLimit },
		},
	)
	if e.Strategies == nil {
		e.Strategies = make(map[string]bool)
	}
	for _, typ := range decision.StrategyTypes() {
		key := string(typ)
		if _, ok := e.Strategies[key]; !ok {
			e.Strategies[key] = true
		}
	}
}

func (c *CatalogConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("catalog.path", &c.Path, defaultCatalogPath),
		boolFieldDefault("catalog.watch", &c.Watch, true),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.catalog_path", &s.CatalogPath, defaultStoreCatalogPath),
		stringFieldDefault("store.decision_log_path", &s.DecisionLogPath, defaultStoreDecisionLog),
		stringFieldDefault("store.flush_interval", &s.FlushInterval, defaultStoreFlushInterval),
	)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "notify.telegram.events",
			need:  func() bool { return len(t.Events) == 0 },
			apply: func() { t.Events = append([]string(nil), defaultTelegramEvents...) },
		},
	)
	t.Events = normalizeEventList(t.Events)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizeEventList(events []string) []string {
	if len(events) == 0 {
		return nil
	}
	out := make([]string, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, evt := range events {
		evt = strings.ToLower(strings.TrimSpace(evt))
		if evt == "" || seen[evt] {
			continue
		}
		seen[evt] = true
		out = append(out, evt)
	}
	return out
}
