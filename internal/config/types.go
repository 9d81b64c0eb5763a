package config

import "strings"

// Config 是 arbiter 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Engine  EngineConfig  `toml:"engine"`
	Catalog CatalogConfig `toml:"catalog"`
	Store   StoreConfig   `toml:"store"`
	Notify  NotifyConfig  `toml:"notify"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
	HTTPAddr  string `toml:"http_addr"`
}

// EngineConfig 对应决策引擎的运行参数，键名与引擎配置项一一对应。
type EngineConfig struct {
	SelectionMethod      string          `toml:"selection_method"`
	DefaultStrategy      string          `toml:"default_strategy"`
	MaxStrategies        int             `toml:"max_strategies"`
	EnableLearning       bool            `toml:"enable_learning"`
	LearningRate         float64         `toml:"learning_rate"`
	EnableOptimization   bool            `toml:"enable_optimization"`
	OptimizationInterval string          `toml:"optimization_interval"` // "1h" / "30m" / "1d"
	MinSamples           int             `toml:"min_samples"`
	Window               int             `toml:"window"`
	HistoryLimit         int             `toml:"history_limit"`
	RandomSeed           uint64          `toml:"random_seed"` // 0 表示不固定随机种子
	Strategies           map[string]bool `toml:"strategies"`  // 按策略类型开关
}

// CatalogConfig 描述策略覆盖文件（支持热加载）。
type CatalogConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// StoreConfig 控制策略目录与决策审计日志的落盘位置。
type StoreConfig struct {
	CatalogPath     string `toml:"catalog_path"`
	DecisionLogPath string `toml:"decision_log_path"`
	FlushInterval   string `toml:"flush_interval"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool     `toml:"enabled"`
	BotToken string   `toml:"bot_token"`
	ChatID   string   `toml:"chat_id"`
	Events   []string `toml:"events"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
