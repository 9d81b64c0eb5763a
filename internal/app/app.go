package app

import (
	"context"
	"fmt"
	"time"

	"arbiter/internal/catalog"
	brcfg "arbiter/internal/config"
	"arbiter/internal/logger"
	"arbiter/internal/manager"
	"arbiter/internal/notifier"
	"arbiter/internal/scheduler"
	"arbiter/internal/store"
	"arbiter/internal/store/decisionlog"
	httpapi "arbiter/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

const finalFlushTimeout = 10 * time.Second

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP、优化器与落盘任务。
type App struct {
	cfg          *brcfg.Config
	manager      *manager.Manager
	server       *httpapi.Server
	catalogStore store.CatalogStore
	decisionLog  *decisionlog.DecisionLogStore
	notifier     *notifier.EventNotifier
	registry     *catalog.Registry
	flush        *scheduler.Periodic
	Summary      *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动所有后台任务，ctx 结束后落盘并关闭存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.manager == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)
	if a.server != nil {
		group.Go(func() error {
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error { return a.manager.Run(ctx) })
	if a.decisionLog != nil {
		group.Go(func() error { return a.decisionLog.Run(ctx) })
	}
	if a.notifier != nil {
		group.Go(func() error { return a.notifier.Run(ctx) })
	}
	if a.catalogStore != nil {
		group.Go(func() error {
			a.flush.Run(ctx, func(ctx context.Context) {
				if err := a.saveCatalog(ctx); err != nil {
					logger.Warnf("策略库落盘失败: %v", err)
				}
			})
			return nil
		})
	}
	return group.Wait()
}

// Manager 返回决策引擎实例。
func (a *App) Manager() *manager.Manager {
	if a == nil {
		return nil
	}
	return a.manager
}

func (a *App) saveCatalog(ctx context.Context) error {
	list := a.manager.Strategies()
	if err := a.catalogStore.SaveStrategies(ctx, list); err != nil {
		return err
	}
	logger.Debugf("策略库已落盘 %d 条", len(list))
	return nil
}

func (a *App) close() {
	if a.catalogStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		if err := a.saveCatalog(ctx); err != nil {
			logger.Errorf("退出前策略库落盘失败: %v", err)
		}
		cancel()
		_ = a.catalogStore.Close()
	}
	if a.decisionLog != nil {
		if n := a.decisionLog.Dropped(); n > 0 {
			logger.Warnf("决策日志共丢弃 %d 条", n)
		}
		_ = a.decisionLog.Close()
	}
}
