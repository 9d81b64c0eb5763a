package manager

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
	"arbiter/internal/optimizer"
	"arbiter/internal/scheduler"
	"arbiter/internal/selector"
	"arbiter/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const seedMix = 0x9e3779b97f4a7c15

// Manager owns the strategy catalogue, dispatches decisions and keeps the
// bookkeeping. Scoring runs on clones outside the lock; every mutation goes
// through the write lock.
type Manager struct {
	mu         sync.RWMutex
	cfg        Settings
	order      []string
	strategies map[string]*decision.Strategy
	history    *ring
	stats      stats
	selector   *selector.Selector
	optimizer  *optimizer.Optimizer

	registry  *strategy.Registry
	observers observerSet
	periodic  *scheduler.Periodic
	now       func() time.Time
	traceID   func() string

	randMu sync.Mutex
	master *rand.Rand
}

type stats struct {
	total     int64
	failed    int64
	usage     map[string]int64
	accuracy  map[string]float64
	avgMillis decimal.Decimal
}

func newStats() stats {
	return stats{
		usage:     make(map[string]int64),
		accuracy:  make(map[string]float64),
		avgMillis: decimal.Zero,
	}
}

// Option customises a Manager at construction.
type Option func(*options)

type options struct {
	registry  *strategy.Registry
	now       func() time.Time
	traceID   func() string
	catalogue []decision.Strategy
	observers []decision.Observer
}

// WithRegistry replaces the default seven-kind registry.
func WithRegistry(r *strategy.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTraceIDs replaces the uuid trace id generator.
func WithTraceIDs(fn func() string) Option {
	return func(o *options) { o.traceID = fn }
}

// WithCatalogue starts from a previously persisted catalogue instead of the
// defaults. Reset still reloads the defaults.
func WithCatalogue(list []decision.Strategy) Option {
	return func(o *options) { o.catalogue = list }
}

// WithObserver subscribes o before the initialized event fires.
func WithObserver(obs decision.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// New builds a manager. Strategies in a restored catalogue that fail
// validation are skipped with a warning.
func New(cfg Settings, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, decision.NewError(decision.KindConfiguration, "new", "", err)
	}
	o := options{registry: strategy.NewDefaultRegistry(), now: time.Now, traceID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.clone()
	seed := uint64(time.Now().UnixNano())
	m := &Manager{
		cfg:        cfg,
		strategies: make(map[string]*decision.Strategy),
		history:    newRing(cfg.HistoryLimit),
		stats:      newStats(),
		registry:   o.registry,
		now:        o.now,
		traceID:    o.traceID,
		periodic:   scheduler.NewPeriodic("optimizer", cfg.optimizerInterval()),
		master:     rand.New(rand.NewPCG(seed, seed^seedMix)),
	}
	m.rebuildPolicies()

	if len(o.catalogue) > 0 {
		for _, st := range o.catalogue {
			if err := m.insert(st.Clone()); err != nil {
				logger.Warnf("restore strategy %s skipped: %v", st.ID, err)
			}
		}
	}
	if len(m.order) == 0 {
		m.loadDefaults()
	}
	for _, obs := range o.observers {
		m.Subscribe(obs)
	}
	m.emit(decision.EventInitialized, "", m.Metrics())
	return m, nil
}

// Subscribe registers an observer and returns its unsubscribe function.
func (m *Manager) Subscribe(o decision.Observer) func() {
	if o == nil {
		return func() {}
	}
	return m.observers.add(o)
}

func (m *Manager) emit(typ decision.EventType, traceID string, payload any) {
	m.observers.deliver(decision.Event{Type: typ, At: m.now(), TraceID: traceID, Payload: payload})
}

// rebuildPolicies refreshes selector and optimizer from cfg. Callers hold
// the write lock or own m exclusively.
func (m *Manager) rebuildPolicies() {
	m.selector = selector.New(selector.ParseMethod(m.cfg.SelectionMethod), m.cfg.DefaultStrategy, selector.WithClock(m.now))
	m.optimizer = optimizer.New(m.cfg.MinSamples, m.cfg.Window)
}

func (m *Manager) loadDefaults() {
	for _, st := range DefaultCatalogue(m.cfg) {
		if err := m.insert(st); err != nil {
			panic(fmt.Sprintf("default strategy %s rejected: %v", st.ID, err))
		}
	}
}

// newRand hands out the per-decision source. A fixed seed gives every call
// the same sequence.
func (m *Manager) newRand(seed uint64) *rand.Rand {
	if seed != 0 {
		return rand.New(rand.NewPCG(seed, seed^seedMix))
	}
	m.randMu.Lock()
	a, b := m.master.Uint64(), m.master.Uint64()
	m.randMu.Unlock()
	return rand.New(rand.NewPCG(a, b))
}

// Metrics returns a snapshot of the aggregate counters.
func (m *Manager) Metrics() decision.Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := decision.Metrics{
		TotalStrategies:  len(m.order),
		TotalDecisions:   m.stats.total,
		FailedDecisions:  m.stats.failed,
		SuccessRate:      ratio(float64(m.stats.total), float64(m.stats.total+m.stats.failed)),
		StrategyUsage:    make(map[string]int64, len(m.stats.usage)),
		StrategyAccuracy: make(map[string]float64, len(m.order)),
	}
	for _, id := range m.order {
		st := m.strategies[id]
		if st.Enabled {
			out.ActiveStrategies++
		}
		if acc, ok := m.stats.accuracy[id]; ok {
			out.StrategyAccuracy[id] = acc
		} else {
			out.StrategyAccuracy[id] = st.Accuracy
		}
	}
	for id, n := range m.stats.usage {
		out.StrategyUsage[id] = n
	}
	out.AverageDecisionTime = time.Duration(m.stats.avgMillis.Mul(decimal.NewFromInt(int64(time.Millisecond))).IntPart())
	return out
}

// History returns up to limit entries, newest first. limit <= 0 returns all
// retained entries.
func (m *Manager) History(limit int) []decision.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.recent(limit)
}

// Config returns a copy of the current settings.
func (m *Manager) Config() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.clone()
}

// UpdateConfig applies fn to a copy of the settings and installs the result
// if it validates.
func (m *Manager) UpdateConfig(fn func(*Settings)) (Settings, error) {
	m.mu.Lock()
	next := m.cfg.clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return Settings{}, decision.NewError(decision.KindValidation, "update_config", "", err)
	}
	known := m.registry.Types()
	for typ := range next.Enabled {
		if !slices.Contains(known, typ) {
			m.mu.Unlock()
			return Settings{}, decision.NewError(decision.KindValidation, "update_config", "",
				fmt.Errorf("%w: %q", decision.ErrUnknownStrategyType, typ))
		}
	}
	prev := m.cfg
	m.cfg = next
	toggled := m.applyTypeFlags(prev, next)
	m.rebuildPolicies()
	m.history.resize(next.HistoryLimit)
	out := next.clone()
	m.mu.Unlock()

	m.periodic.Reset(out.optimizerInterval())
	for _, st := range toggled {
		evt := decision.EventStrategyDisabled
		if st.Enabled {
			evt = decision.EventStrategyEnabled
		}
		m.emit(evt, "", st)
	}
	m.emit(decision.EventConfigUpdated, "", out)
	return out, nil
}

// applyTypeFlags pushes changed per-type flags onto the default catalogue
// entries still present. Callers hold the write lock.
func (m *Manager) applyTypeFlags(prev, next Settings) []decision.Strategy {
	var toggled []decision.Strategy
	for _, def := range DefaultCatalogue(next) {
		if prev.typeEnabled(def.Type) == next.typeEnabled(def.Type) {
			continue
		}
		st, ok := m.strategies[def.ID]
		if !ok || st.Type != def.Type || st.Enabled == def.Enabled {
			continue
		}
		st.Enabled = def.Enabled
		toggled = append(toggled, st.Clone())
	}
	return toggled
}

// Reset clears history and counters and reloads the default catalogue.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.order = nil
	m.strategies = make(map[string]*decision.Strategy)
	m.history.clear()
	m.stats = newStats()
	m.loadDefaults()
	m.mu.Unlock()

	m.emit(decision.EventReset, "", m.Metrics())
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
