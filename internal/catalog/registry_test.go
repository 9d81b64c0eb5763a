package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/manager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
strategies:
  risk-based:
    priority: 3
    parameters:
      risk_tolerance: high
  cautious:
    type: risk-based
    name: Cautious
    enabled: false
    accuracy: 0.8
    parameters:
      risk_tolerance: low
  orphan:
    name: Missing type
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newManager(t *testing.T) *manager.Manager {
	t.Helper()
	cfg := manager.DefaultSettings()
	cfg.EnableOptimization = false
	m, err := manager.New(cfg)
	require.NoError(t, err)
	return m
}

func TestRegistryLoadsOverrides(t *testing.T) {
	r, err := NewRegistry(writeCatalog(t, sampleCatalog), false)
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	require.Len(t, snap.Overrides, 3)
	o, ok := r.Override("cautious")
	require.True(t, ok)
	assert.Equal(t, "risk-based", o.Type)
	require.NotNil(t, o.Enabled)
	assert.False(t, *o.Enabled)
}

func TestRegistryRejectsUnknownFields(t *testing.T) {
	_, err := NewRegistry(writeCatalog(t, "strategies:\n  heuristic:\n    colour: blue\n"), false)
	assert.Error(t, err)

	_, err = NewRegistry("", false)
	assert.Error(t, err)
}

func TestRegistryAcceptsEmptyFile(t *testing.T) {
	r, err := NewRegistry(writeCatalog(t, ""), false)
	require.NoError(t, err)
	assert.Empty(t, r.Snapshot().Overrides)
}

func TestApplyPatchesAndAdds(t *testing.T) {
	r, err := NewRegistry(writeCatalog(t, sampleCatalog), false)
	require.NoError(t, err)
	m := newManager(t)

	applied, err := Apply(m, r.Snapshot())
	assert.Equal(t, 2, applied)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan")

	risk, err := m.GetStrategy("risk-based")
	require.NoError(t, err)
	assert.Equal(t, 3, risk.Priority)
	assert.Equal(t, "high", risk.Parameters["risk_tolerance"])
	assert.Equal(t, "Risk-Based Strategy", risk.Name)

	cautious, err := m.GetStrategy("cautious")
	require.NoError(t, err)
	assert.Equal(t, decision.TypeRiskBased, cautious.Type)
	assert.False(t, cautious.Enabled)
	assert.Equal(t, 0.8, cautious.Accuracy)
}

func TestApplyRejectsTypeChange(t *testing.T) {
	r, err := NewRegistry(writeCatalog(t, "strategies:\n  heuristic:\n    type: genetic\n"), false)
	require.NoError(t, err)
	applied, err := Apply(newManager(t), r.Snapshot())
	assert.Zero(t, applied)
	assert.Error(t, err)
}

func TestReloadNotifiesListeners(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	r, err := NewRegistry(path, false)
	require.NoError(t, err)

	got := make(chan Snapshot, 1)
	r.OnChange(func(s Snapshot) { got <- s })
	r.OnChange(func(Snapshot) { panic("listener bug") })

	require.NoError(t, os.WriteFile(path, []byte("strategies:\n  heuristic:\n    priority: 1\n"), 0o644))
	require.NoError(t, r.reload())
	r.notifyListeners()

	select {
	case snap := <-got:
		assert.Equal(t, int64(2), snap.Version)
		assert.Len(t, snap.Overrides, 1)
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
}
