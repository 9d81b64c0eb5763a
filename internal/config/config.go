package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPath 指定配置文件路径的环境变量。
	EnvPath     = "ARBITER_CONFIG"
	DefaultPath = "configs/config.yaml"
)

// ResolvePath 返回 ARBITER_CONFIG 指定的路径，未设置时回退到 DefaultPath。
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load 读取 path 及其 include 链，按顺序合并后解码、补默认值并校验。
// include 中的文件先于引用者合并，后合并的同名键覆盖先前的值。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := newIncludeWalker()
	if err := w.visit(root); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range w.order {
		if err := v.MergeConfigMap(w.settings[file]); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	for _, key := range v.AllKeys() {
		setKeys.mark(key)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// includeWalker 深度优先展开 include，记录合并顺序并检测环。
type includeWalker struct {
	done     map[string]bool
	active   map[string]bool
	order    []string
	settings map[string]map[string]any
}

func newIncludeWalker() *includeWalker {
	return &includeWalker{
		done:     make(map[string]bool),
		active:   make(map[string]bool),
		settings: make(map[string]map[string]any),
	}
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	if w.active[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.done[path] {
		return nil
	}
	w.active[path] = true
	defer delete(w.active, path)

	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	for _, inc := range file.GetStringSlice("include") {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	settings := file.AllSettings()
	delete(settings, "include")
	w.settings[path] = settings
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}
