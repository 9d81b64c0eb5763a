package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
	"arbiter/internal/manager"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Override 描述对单个策略的覆盖。目录中不存在的 id 必须带 type，会作为新策略加入。
type Override struct {
	ID          string             `yaml:"id"`
	Type        string             `yaml:"type"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Enabled     *bool              `yaml:"enabled"`
	Priority    *int               `yaml:"priority"`
	Accuracy    *float64           `yaml:"accuracy"`
	Parameters  map[string]any     `yaml:"parameters"`
	Weights     map[string]float64 `yaml:"weights"`
}

// FileConfig 映射覆盖文件顶层的 strategies。
type FileConfig struct {
	Strategies map[string]Override `yaml:"strategies"`
}

// Snapshot 公开的覆盖快照。
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Overrides map[string]Override
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理策略覆盖文件。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取覆盖文件；watch 为 true 时监听文件变化并自动重载。
func NewRegistry(path string, watch bool) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("strategy catalog requires path")
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if watch {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read strategy catalog failed: %w", err)
		}
		v.OnConfigChange(func(evt fsnotify.Event) {
			if err := r.reload(); err != nil {
				logger.Errorf("strategy catalog reload failed (%s): %v", evt.Name, err)
				return
			}
			r.notifyListeners()
		})
		v.WatchConfig()
		r.v = v
	}
	return r, nil
}

// Path 返回覆盖文件路径。
func (r *Registry) Path() string { return r.path }

// Snapshot 返回当前覆盖集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Override 返回指定 ID 的覆盖。
func (r *Registry) Override(id string) (Override, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.snapshot.Overrides[strings.TrimSpace(id)]
	return o, ok
}

// OnChange 注册重载回调，回调在独立 goroutine 中执行。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readCatalogFile(r.path)
	if err != nil {
		return err
	}
	overrides := make(map[string]Override, len(cfg.Strategies))
	for name, o := range cfg.Strategies {
		norm := normalizeOverride(name, o)
		if norm.ID == "" {
			continue
		}
		overrides[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Overrides: overrides,
	}
	r.mu.Unlock()
	logger.Infof("strategy catalog loaded %d overrides from %s", len(overrides), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("strategy catalog listener")
			cb(snap)
		}(fn)
	}
}

// Target 是覆盖落地的对象，由 manager.Manager 实现。
type Target interface {
	GetStrategy(id string) (decision.Strategy, error)
	AddStrategy(st decision.Strategy) (decision.Strategy, error)
	UpdateStrategy(id string, p manager.Patch) (decision.Strategy, error)
}

// Apply 按 id 顺序把快照写入 t：已存在的策略打补丁，未知 id 作为新策略加入。
// 单条失败不会中断其余条目，错误合并返回。
func Apply(t Target, snap Snapshot) (int, error) {
	ids := make([]string, 0, len(snap.Overrides))
	for id := range snap.Overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	applied := 0
	var errs []error
	for _, id := range ids {
		o := snap.Overrides[id]
		if err := applyOne(t, o); err != nil {
			errs = append(errs, fmt.Errorf("strategy %s: %w", id, err))
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}

func applyOne(t Target, o Override) error {
	cur, err := t.GetStrategy(o.ID)
	switch {
	case err == nil:
		if o.Type != "" && decision.StrategyType(o.Type) != cur.Type {
			return fmt.Errorf("type cannot change from %s to %s", cur.Type, o.Type)
		}
		_, err = t.UpdateStrategy(o.ID, o.patch())
		return err
	case decision.KindOf(err) == decision.KindNotFound:
		if o.Type == "" {
			return fmt.Errorf("new strategy requires type")
		}
		_, err = t.AddStrategy(o.strategy())
		return err
	default:
		return err
	}
}

func (o Override) patch() manager.Patch {
	p := manager.Patch{
		Parameters: o.Parameters,
		Weights:    o.Weights,
		Enabled:    o.Enabled,
		Priority:   o.Priority,
		Accuracy:   o.Accuracy,
	}
	if o.Name != "" {
		name := o.Name
		p.Name = &name
	}
	if o.Description != "" {
		desc := o.Description
		p.Description = &desc
	}
	return p
}

func (o Override) strategy() decision.Strategy {
	st := decision.Strategy{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Type:        decision.StrategyType(o.Type),
		Parameters:  o.Parameters,
		Weights:     o.Weights,
		Enabled:     true,
	}
	if o.Enabled != nil {
		st.Enabled = *o.Enabled
	}
	if o.Priority != nil {
		st.Priority = *o.Priority
	}
	if o.Accuracy != nil {
		st.Accuracy = *o.Accuracy
	}
	return st
}

func normalizeOverride(name string, o Override) Override {
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		o.ID = strings.TrimSpace(name)
	}
	o.Type = strings.ToLower(strings.TrimSpace(o.Type))
	o.Name = strings.TrimSpace(o.Name)
	o.Description = strings.TrimSpace(o.Description)
	return o
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Overrides: make(map[string]Override, len(src.Overrides)),
	}
	for id, o := range src.Overrides {
		dst.Overrides[id] = o
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func readCatalogFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read strategy catalog failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("parse strategy catalog failed: %w", err)
	}
	return cfg, nil
}
