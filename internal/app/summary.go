package app

import (
	"fmt"
	"strings"

	brcfg "arbiter/internal/config"
	"arbiter/internal/decision"
	"arbiter/internal/manager"
	httpapi "arbiter/internal/transport/http"
)

type StartupSummary struct {
	Engine     EngineSummary
	Strategies []decision.Strategy
	Stores     StoreSummary
	HTTPAddr   string
	Notify     []string
}

type EngineSummary struct {
	SelectionMethod      string
	DefaultStrategy      string
	LearningRate         float64
	EnableLearning       bool
	EnableOptimization   bool
	OptimizationInterval string
	HistoryLimit         int
}

type StoreSummary struct {
	CatalogPath     string
	DecisionLogPath string
	CatalogFile     string
	FlushInterval   string
}

func buildSummary(cfg *brcfg.Config, mgr *manager.Manager, server *httpapi.Server) *StartupSummary {
	settings := mgr.Config()
	s := &StartupSummary{
		Engine: EngineSummary{
			SelectionMethod:      settings.SelectionMethod,
			DefaultStrategy:      settings.DefaultStrategy,
			LearningRate:         settings.LearningRate,
			EnableLearning:       settings.EnableLearning,
			EnableOptimization:   settings.EnableOptimization,
			OptimizationInterval: settings.OptimizationInterval.String(),
			HistoryLimit:         settings.HistoryLimit,
		},
		Strategies: mgr.Strategies(),
		Stores: StoreSummary{
			CatalogPath:     cfg.Store.CatalogPath,
			DecisionLogPath: cfg.Store.DecisionLogPath,
			CatalogFile:     cfg.Catalog.Path,
			FlushInterval:   cfg.Store.FlushInterval,
		},
		HTTPAddr: server.Addr(),
	}
	if cfg.Notify.Telegram.Enabled {
		s.Notify = append([]string(nil), cfg.Notify.Telegram.Events...)
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[决策引擎 (ENGINE)]")
	fmt.Printf("  选择方式: %s\n", s.Engine.SelectionMethod)
	fmt.Printf("  默认策略: %s\n", s.Engine.DefaultStrategy)
	fmt.Printf("  在线学习: %t (lr=%.3f)\n", s.Engine.EnableLearning, s.Engine.LearningRate)
	fmt.Printf("  周期优化: %t (every %s)\n", s.Engine.EnableOptimization, s.Engine.OptimizationInterval)
	fmt.Printf("  历史长度: %d\n", s.Engine.HistoryLimit)
	fmt.Println()

	fmt.Println("[策略目录 (STRATEGIES)]")
	if len(s.Strategies) == 0 {
		fmt.Println("  (无)")
	}
	for _, st := range s.Strategies {
		status := "on"
		if !st.Enabled {
			status = "off"
		}
		fmt.Printf("  > %-24s %-24s %-3s acc=%.2f prio=%d\n", st.ID, st.Type, status, st.Accuracy, st.Priority)
	}
	fmt.Println()

	fmt.Println("[存储 (STORAGE)]")
	fmt.Printf("  策略库: %s\n", orDash(s.Stores.CatalogPath))
	fmt.Printf("  决策日志: %s\n", orDash(s.Stores.DecisionLogPath))
	fmt.Printf("  目录文件: %s\n", orDash(s.Stores.CatalogFile))
	fmt.Printf("  落盘周期: %s\n", orDash(s.Stores.FlushInterval))
	fmt.Println()

	fmt.Println("[接口与通知 (HTTP & NOTIFY)]")
	fmt.Printf("  HTTP: %s\n", orDash(s.HTTPAddr))
	fmt.Printf("  Telegram: %s\n", formatList(s.Notify))
	fmt.Println(strings.Repeat("=", 80))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
