package config

import (
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/manager"
	"arbiter/internal/scheduler"
)

// ManagerSettings 将 engine 段转换为引擎运行参数。
func (e EngineConfig) ManagerSettings() manager.Settings {
	out := manager.DefaultSettings()
	out.SelectionMethod = e.SelectionMethod
	out.DefaultStrategy = e.DefaultStrategy
	out.MaxStrategies = e.MaxStrategies
	out.EnableLearning = e.EnableLearning
	out.LearningRate = e.LearningRate
	out.EnableOptimization = e.EnableOptimization
	if d, ok := scheduler.ParseIntervalDuration(e.OptimizationInterval); ok {
		out.OptimizationInterval = d
	}
	out.MinSamples = e.MinSamples
	out.Window = e.Window
	out.HistoryLimit = e.HistoryLimit
	out.RandomSeed = e.RandomSeed
	for key, on := range e.Strategies {
		out.Enabled[decision.StrategyType(key)] = on
	}
	return out
}

// FlushEvery 返回策略目录落盘周期，未配置时返回 0（仅在退出时落盘）。
func (s StoreConfig) FlushEvery() time.Duration {
	d, ok := scheduler.ParseIntervalDuration(s.FlushInterval)
	if !ok {
		return 0
	}
	return d
}
