package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	brcfg "arbiter/internal/config"
	"arbiter/internal/decision"
	"arbiter/internal/notifier"
	"arbiter/internal/store"
	"arbiter/internal/store/decisionlog"
	"arbiter/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func writeConfig(t *testing.T) (*brcfg.Config, string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "strategies.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
strategies:
  heuristic:
    priority: 7
  cautious-risk:
    type: risk-based
    name: Cautious Risk
    parameters:
      risk_tolerance: low
`), 0o644))
	body := `
app:
  log_level: error
  http_addr: "127.0.0.1:0"
engine:
  selection_method: manual
  enable_optimization: false
catalog:
  path: ` + catalogPath + `
  watch: false
store:
  catalog_path: ` + filepath.Join(dir, "arbiter.db") + `
  decision_log_path: ` + filepath.Join(dir, "decisions.db") + `
  flush_interval: 1h
notify:
  telegram:
    enabled: true
    bot_token: token
    chat_id: "42"
    events: [decision-completed]
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := brcfg.Load(path)
	require.NoError(t, err)
	return cfg, dir
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestAppRunPersistsAndNotifies(t *testing.T) {
	cfg, dir := writeConfig(t)
	sender := &recordingSender{}
	app, err := NewAppBuilder(cfg, WithSender(func(brcfg.TelegramConfig) notifier.TextNotifier { return sender })).
		Build(context.Background())
	require.NoError(t, err)

	mgr := app.Manager()
	list := mgr.Strategies()
	require.Len(t, list, 8)
	heuristic, err := mgr.GetStrategy("heuristic")
	require.NoError(t, err)
	assert.Equal(t, 7, heuristic.Priority)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	res, err := mgr.Decide(ctx, decision.Context{Timestamp: time.Now()}, []decision.Option{
		{ID: "a", Confidence: 0.9, RiskLevel: decision.RiskLow, ExpectedBenefit: 0.6, ExpectedCost: 0.1,
			Impact: decision.Impact{Performance: 0.7, Reliability: 0.8}},
		{ID: "b", Confidence: 0.5, RiskLevel: decision.RiskHigh, ExpectedBenefit: 0.2, ExpectedCost: 0.3,
			Impact: decision.Impact{Performance: 0.3, Reliability: 0.4}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "multi-objective", res.StrategyID)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}

	texts := sender.sent()
	require.Len(t, texts, 1)
	assert.True(t, strings.Contains(texts[0], "multi-objective"), texts[0])

	catalogStore, err := gormstore.NewGormStore(filepath.Join(dir, "arbiter.db"))
	require.NoError(t, err)
	defer catalogStore.Close()
	saved, err := catalogStore.LoadStrategies(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 8)
	assert.Equal(t, "cautious-risk", saved[7].ID)
	for _, st := range saved {
		if st.ID == "multi-objective" {
			assert.Equal(t, int64(1), st.UsageCount)
		}
	}

	logs, err := decisionlog.NewDecisionLogStore(filepath.Join(dir, "decisions.db"))
	require.NoError(t, err)
	defer logs.Close()
	records, err := logs.List(context.Background(), store.DecisionQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.Selected.ID, records[0].SelectedID)
	assert.Equal(t, 2, records[0].Options)
}

func TestBuildRestoresSavedCatalogue(t *testing.T) {
	cfg, dir := writeConfig(t)
	cfg.Catalog.Path = ""
	cfg.Notify.Telegram.Enabled = false

	seed, err := gormstore.NewGormStore(filepath.Join(dir, "arbiter.db"))
	require.NoError(t, err)
	require.NoError(t, seed.SaveStrategies(context.Background(), []decision.Strategy{
		{ID: "only", Name: "Only", Type: decision.TypeHeuristic, Enabled: true, Accuracy: 0.7},
	}))
	require.NoError(t, seed.Close())

	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	defer app.close()

	list := app.Manager().Strategies()
	require.Len(t, list, 1)
	assert.Equal(t, "only", list[0].ID)
	assert.Nil(t, app.notifier)
	assert.Nil(t, app.registry)
}

func TestBuildSurfacesStoreErrors(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := NewAppBuilder(cfg, WithCatalogStore(func(string) (store.CatalogStore, error) {
		return nil, assert.AnError
	})).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
