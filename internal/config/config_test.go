package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"arbiter/internal/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9991", cfg.App.HTTPAddr)
	assert.Equal(t, "adaptive", cfg.Engine.SelectionMethod)
	assert.Equal(t, "multi-objective", cfg.Engine.DefaultStrategy)
	assert.Equal(t, 10, cfg.Engine.MaxStrategies)
	assert.True(t, cfg.Engine.EnableLearning)
	assert.True(t, cfg.Engine.EnableOptimization)
	assert.Equal(t, 0.01, cfg.Engine.LearningRate)
	assert.Len(t, cfg.Engine.Strategies, 7)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 5*time.Minute, cfg.Store.FlushEvery())
	assert.Equal(t, []string{"decision-failed", "strategies-optimized", "reset"}, cfg.Notify.Telegram.Events)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
engine:
  enable_learning: false
  enable_optimization: false
  strategies:
    heuristic: false
catalog:
  watch: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Engine.EnableLearning)
	assert.False(t, cfg.Engine.EnableOptimization)
	assert.False(t, cfg.Catalog.Watch)

	settings := cfg.Engine.ManagerSettings()
	assert.False(t, settings.Enabled[decision.TypeHeuristic])
	assert.True(t, settings.Enabled[decision.TypeRiskBased])
	assert.False(t, settings.EnableLearning)
	require.NoError(t, settings.Validate())
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
engine:
  max_strategies: 20
  learning_rate: 0.05
  optimization_interval: 30m
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
engine:
  learning_rate: 0.2
  random_seed: 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Engine.MaxStrategies)
	assert.Equal(t, 0.2, cfg.Engine.LearningRate)

	settings := cfg.Engine.ManagerSettings()
	assert.Equal(t, 30*time.Minute, settings.OptimizationInterval)
	assert.Equal(t, uint64(7), settings.RandomSeed)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"selection method": "engine:\n  selection_method: random\n",
		"learning rate":    "engine:\n  learning_rate: 2\n",
		"strategy type":    "engine:\n  strategies:\n    astrology: true\n",
		"interval":         "engine:\n  optimization_interval: soon\n",
		"telegram":         "notify:\n  telegram:\n    enabled: true\n",
		"event":            "notify:\n  telegram:\n    events: [decision-exploded]\n",
		"log level":        "app:\n  log_level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, ResolvePath())
	t.Setenv(EnvPath, "/etc/arbiter.yaml")
	assert.Equal(t, "/etc/arbiter.yaml", ResolvePath())
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
