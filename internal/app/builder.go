package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"arbiter/internal/catalog"
	brcfg "arbiter/internal/config"
	"arbiter/internal/logger"
	"arbiter/internal/manager"
	"arbiter/internal/notifier"
	"arbiter/internal/pkg/circuit"
	"arbiter/internal/scheduler"
	"arbiter/internal/store"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/store/gormstore"
	httpapi "arbiter/internal/transport/http"
)

const (
	notifyBreakerThreshold = 3
	notifyBreakerCooldown  = time.Minute
)

type AppBuilder struct {
	cfg *brcfg.Config

	catalogStoreFn func(string) (store.CatalogStore, error)
	decisionLogFn  func(string) (*decisionlog.DecisionLogStore, error)
	senderFn       func(brcfg.TelegramConfig) notifier.TextNotifier
	httpFn         func(brcfg.AppConfig, httpapi.Engine, store.DecisionLog) (*httpapi.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		catalogStoreFn: openCatalogStore,
		decisionLogFn:  decisionlog.NewDecisionLogStore,
		senderFn:       newTelegram,
		httpFn:         buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	catalogStore, err := b.catalogStoreFn(cfg.Store.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化策略库失败: %w", err)
	}
	decisionLog, err := b.decisionLogFn(cfg.Store.DecisionLogPath)
	if err != nil {
		_ = catalogStore.Close()
		return nil, fmt.Errorf("初始化决策日志失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = decisionLog.Close()
			_ = catalogStore.Close()
		}
	}()

	saved, err := catalogStore.LoadStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取策略库失败: %w", err)
	}
	if len(saved) > 0 {
		logger.Infof("✓ 从策略库恢复 %d 个策略", len(saved))
	}

	opts := []manager.Option{
		manager.WithCatalogue(saved),
		manager.WithObserver(decisionLog),
	}
	var events *notifier.EventNotifier
	if sender := b.senderFn(cfg.Notify.Telegram); sender != nil {
		breaker := circuit.NewCircuitBreaker("telegram", notifyBreakerThreshold, notifyBreakerCooldown)
		breaker.SetStateChangeHandler(func(name string, from, to circuit.State) {
			logger.Warnf("notifier %s breaker %s -> %s", name, from, to)
		})
		events = notifier.NewEventNotifier(sender, cfg.Notify.Telegram.Events, breaker)
		opts = append(opts, manager.WithObserver(events))
		logger.Infof("✓ Telegram 通知已启用 events=%v", cfg.Notify.Telegram.Events)
	}

	mgr, err := manager.New(cfg.Engine.ManagerSettings(), opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化决策引擎失败: %w", err)
	}

	registry, err := loadCatalog(cfg.Catalog, mgr)
	if err != nil {
		return nil, err
	}

	server, err := b.httpFn(cfg.App, mgr, decisionLog)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:          cfg,
		manager:      mgr,
		server:       server,
		catalogStore: catalogStore,
		decisionLog:  decisionLog,
		notifier:     events,
		registry:     registry,
		flush:        scheduler.NewPeriodic("catalog-flush", cfg.Store.FlushEvery()),
		Summary:      buildSummary(cfg, mgr, server),
	}, nil
}

// loadCatalog 加载策略目录文件并应用到引擎，文件变更时重新应用。
func loadCatalog(cfg brcfg.CatalogConfig, mgr *manager.Manager) (*catalog.Registry, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warnf("策略目录 %s 不存在，跳过", path)
		return nil, nil
	}
	registry, err := catalog.NewRegistry(path, cfg.Watch)
	if err != nil {
		return nil, fmt.Errorf("加载策略目录失败: %w", err)
	}
	applied, err := catalog.Apply(mgr, registry.Snapshot())
	if err != nil {
		logger.Warnf("策略目录部分条目未应用: %v", err)
	}
	logger.Infof("✓ 策略目录 %s 已应用 %d 条", path, applied)
	registry.OnChange(func(snap catalog.Snapshot) {
		n, err := catalog.Apply(mgr, snap)
		if err != nil {
			logger.Warnf("策略目录重载部分失败: %v", err)
		}
		logger.Infof("策略目录重载 v%d 应用 %d 条", snap.Version, n)
	})
	return registry, nil
}

func openCatalogStore(path string) (store.CatalogStore, error) {
	return gormstore.NewGormStore(path)
}

func buildHTTPServer(cfg brcfg.AppConfig, engine httpapi.Engine, logs store.DecisionLog) (*httpapi.Server, error) {
	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:   cfg.HTTPAddr,
		Engine: engine,
		Logs:   logs,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}
	return server, nil
}

func newTelegram(cfg brcfg.TelegramConfig) notifier.TextNotifier {
	if !cfg.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.BotToken, cfg.ChatID)
}

// WithCatalogStore 替换策略库实现，主要用于测试。
func WithCatalogStore(fn func(string) (store.CatalogStore, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.catalogStoreFn = fn
		}
	}
}

// WithSender 替换通知发送端。
func WithSender(fn func(brcfg.TelegramConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.senderFn = fn
		}
	}
}

func WithHTTP(fn func(brcfg.AppConfig, httpapi.Engine, store.DecisionLog) (*httpapi.Server, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.httpFn = fn
		}
	}
}
