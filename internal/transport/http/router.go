package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/manager"
	"arbiter/internal/scheduler"
	"arbiter/internal/store"
	"arbiter/internal/visual"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	defaultLogLimit     = 100
	maxLogLimit         = 500
)

// Engine is the part of the manager the API drives.
type Engine interface {
	Decide(ctx context.Context, dctx decision.Context, options []decision.Option, strategyID string) (decision.Result, error)
	Compare(ctx context.Context, dctx decision.Context, options []decision.Option) ([]decision.Result, error)
	Strategies() []decision.Strategy
	ActiveStrategies() []decision.Strategy
	GetStrategy(id string) (decision.Strategy, error)
	AddStrategy(st decision.Strategy) (decision.Strategy, error)
	UpdateStrategy(id string, p manager.Patch) (decision.Strategy, error)
	EnableStrategy(id string) (decision.Strategy, error)
	DisableStrategy(id string) (decision.Strategy, error)
	RemoveStrategy(id string) error
	Metrics() decision.Metrics
	History(limit int) []decision.HistoryEntry
	Config() manager.Settings
	UpdateConfig(fn func(*manager.Settings)) (manager.Settings, error)
	Reset()
	Optimize(ctx context.Context) ([]decision.Strategy, error)
}

var _ Engine = (*manager.Manager)(nil)

// Router 负责 /api 路由。
type Router struct {
	engine Engine
	logs   store.DecisionLog
}

// NewRouter 创建路由。
func NewRouter(engine Engine, logs store.DecisionLog) *Router {
	return &Router{engine: engine, logs: logs}
}

// Register 把所有路由挂到 group 下。
func (r *Router) Register(group *gin.RouterGroup) {
	if r == nil || group == nil {
		return
	}
	group.POST("/decide", r.handleDecide)
	group.POST("/compare", r.handleCompare)

	group.GET("/strategies", r.handleListStrategies)
	group.GET("/strategies/active", r.handleActiveStrategies)
	group.GET("/strategies/:id", r.handleGetStrategy)
	group.POST("/strategies", r.handleAddStrategy)
	group.PATCH("/strategies/:id", r.handleUpdateStrategy)
	group.POST("/strategies/:id/enable", r.handleToggle(true))
	group.POST("/strategies/:id/disable", r.handleToggle(false))
	group.DELETE("/strategies/:id", r.handleRemoveStrategy)

	group.GET("/metrics", r.handleMetrics)
	group.GET("/metrics/chart", r.handleMetricsChart)
	group.GET("/history", r.handleHistory)
	group.GET("/config", r.handleGetConfig)
	group.PATCH("/config", r.handleUpdateConfig)
	group.POST("/reset", r.handleReset)
	group.POST("/optimize", r.handleOptimize)
	group.GET("/decisions/log", r.handleDecisionLog)
}

type decideRequest struct {
	Context     decision.Context  `json:"context"`
	Options     []decision.Option `json:"options"`
	StrategyID  string            `json:"strategy_id"`
	TimeLimitMS int64             `json:"time_limit_ms"`
}

// bindDecide 先用 gjson 校验结构，再解码。
func bindDecide(c *gin.Context) (decideRequest, bool) {
	var req decideRequest
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return req, false
	}
	if err := validateDecideBody(string(body)); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return req, false
	}
	if req.TimeLimitMS > 0 {
		if req.Context.Constraints == nil {
			req.Context.Constraints = &decision.Constraints{}
		}
		req.Context.Constraints.TimeLimit = time.Duration(req.TimeLimitMS) * time.Millisecond
	}
	if req.Context.Timestamp.IsZero() {
		req.Context.Timestamp = time.Now()
	}
	return req, true
}

func (r *Router) handleDecide(c *gin.Context) {
	req, ok := bindDecide(c)
	if !ok {
		return
	}
	res, err := r.engine.Decide(c.Request.Context(), req.Context, req.Options, strings.TrimSpace(req.StrategyID))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleCompare(c *gin.Context) {
	req, ok := bindDecide(c)
	if !ok {
		return
	}
	results, err := r.engine.Compare(c.Request.Context(), req.Context, req.Options)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (r *Router) handleListStrategies(c *gin.Context) {
	list := r.engine.Strategies()
	c.JSON(http.StatusOK, gin.H{"strategies": list, "count": len(list)})
}

func (r *Router) handleActiveStrategies(c *gin.Context) {
	list := r.engine.ActiveStrategies()
	c.JSON(http.StatusOK, gin.H{"strategies": list, "count": len(list)})
}

func (r *Router) handleGetStrategy(c *gin.Context) {
	st, err := r.engine.GetStrategy(c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleAddStrategy(c *gin.Context) {
	var st decision.Strategy
	if err := c.ShouldBindJSON(&st); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	added, err := r.engine.AddStrategy(st)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (r *Router) handleUpdateStrategy(c *gin.Context) {
	var patch manager.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	st, err := r.engine.UpdateStrategy(c.Param("id"), patch)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleToggle(on bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			st  decision.Strategy
			err error
		)
		if on {
			st, err = r.engine.EnableStrategy(c.Param("id"))
		} else {
			st, err = r.engine.DisableStrategy(c.Param("id"))
		}
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func (r *Router) handleRemoveStrategy(c *gin.Context) {
	if err := r.engine.RemoveStrategy(c.Param("id")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type metricsView struct {
	decision.Metrics
	AverageDecisionMS float64 `json:"average_decision_ms"`
}

func (r *Router) handleMetrics(c *gin.Context) {
	m := r.engine.Metrics()
	c.JSON(http.StatusOK, metricsView{
		Metrics:           m,
		AverageDecisionMS: float64(m.AverageDecisionTime) / float64(time.Millisecond),
	})
}

func (r *Router) handleMetricsChart(c *gin.Context) {
	page, err := visual.RenderMetrics(r.engine.Metrics(), r.engine.Strategies())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (r *Router) handleHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	entries := r.engine.History(limit)
	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}

type configView struct {
	SelectionMethod      string          `json:"selection_method"`
	DefaultStrategy      string          `json:"default_strategy"`
	MaxStrategies        int             `json:"max_strategies"`
	EnableLearning       bool            `json:"enable_learning"`
	LearningRate         float64         `json:"learning_rate"`
	EnableOptimization   bool            `json:"enable_optimization"`
	OptimizationInterval string          `json:"optimization_interval"`
	MinSamples           int             `json:"min_samples"`
	Window               int             `json:"window"`
	HistoryLimit         int             `json:"history_limit"`
	RandomSeed           uint64          `json:"random_seed"`
	Strategies           map[string]bool `json:"strategies"`
}

func viewOf(s manager.Settings) configView {
	v := configView{
		SelectionMethod:      s.SelectionMethod,
		DefaultStrategy:      s.DefaultStrategy,
		MaxStrategies:        s.MaxStrategies,
		EnableLearning:       s.EnableLearning,
		LearningRate:         s.LearningRate,
		EnableOptimization:   s.EnableOptimization,
		OptimizationInterval: s.OptimizationInterval.String(),
		MinSamples:           s.MinSamples,
		Window:               s.Window,
		HistoryLimit:         s.HistoryLimit,
		RandomSeed:           s.RandomSeed,
		Strategies:           make(map[string]bool, len(s.Enabled)),
	}
	for typ, on := range s.Enabled {
		v.Strategies[string(typ)] = on
	}
	return v
}

type configPatch struct {
	SelectionMethod      *string         `json:"selection_method"`
	DefaultStrategy      *string         `json:"default_strategy"`
	MaxStrategies        *int            `json:"max_strategies"`
	EnableLearning       *bool           `json:"enable_learning"`
	LearningRate         *float64        `json:"learning_rate"`
	EnableOptimization   *bool           `json:"enable_optimization"`
	OptimizationInterval *string         `json:"optimization_interval"`
	MinSamples           *int            `json:"min_samples"`
	Window               *int            `json:"window"`
	HistoryLimit         *int            `json:"history_limit"`
	RandomSeed           *uint64         `json:"random_seed"`
	Strategies           map[string]bool `json:"strategies"`
}

func (p configPatch) apply(s *manager.Settings, interval time.Duration) {
	if p.SelectionMethod != nil {
		s.SelectionMethod = strings.TrimSpace(*p.SelectionMethod)
	}
	if p.DefaultStrategy != nil {
		s.DefaultStrategy = strings.TrimSpace(*p.DefaultStrategy)
	}
	if p.MaxStrategies != nil {
		s.MaxStrategies = *p.MaxStrategies
	}
	if p.EnableLearning != nil {
		s.EnableLearning = *p.EnableLearning
	}
	if p.LearningRate != nil {
		s.LearningRate = *p.LearningRate
	}
	if p.EnableOptimization != nil {
		s.EnableOptimization = *p.EnableOptimization
	}
	if p.OptimizationInterval != nil {
		s.OptimizationInterval = interval
	}
	if p.MinSamples != nil {
		s.MinSamples = *p.MinSamples
	}
	if p.Window != nil {
		s.Window = *p.Window
	}
	if p.HistoryLimit != nil {
		s.HistoryLimit = *p.HistoryLimit
	}
	if p.RandomSeed != nil {
		s.RandomSeed = *p.RandomSeed
	}
	for typ, on := range p.Strategies {
		if s.Enabled == nil {
			s.Enabled = make(map[decision.StrategyType]bool)
		}
		s.Enabled[decision.StrategyType(typ)] = on
	}
}

func (r *Router) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(r.engine.Config()))
}

func (r *Router) handleUpdateConfig(c *gin.Context) {
	var patch configPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var interval time.Duration
	if patch.OptimizationInterval != nil {
		d, ok := scheduler.ParseIntervalDuration(*patch.OptimizationInterval)
		if !ok {
			writeError(c, http.StatusBadRequest, errors.New("invalid optimization_interval "+*patch.OptimizationInterval))
			return
		}
		interval = d
	}
	updated, err := r.engine.UpdateConfig(func(s *manager.Settings) { patch.apply(s, interval) })
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(updated))
}

func (r *Router) handleReset(c *gin.Context) {
	r.engine.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (r *Router) handleOptimize(c *gin.Context) {
	changed, err := r.engine.Optimize(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"optimized": changed, "count": len(changed)})
}

func (r *Router) handleDecisionLog(c *gin.Context) {
	if r.logs == nil {
		writeError(c, http.StatusServiceUnavailable, errors.New("decision log is not configured"))
		return
	}
	limit, ok := queryInt(c, "limit", defaultLogLimit)
	if !ok {
		return
	}
	if limit <= 0 || limit > maxLogLimit {
		limit = defaultLogLimit
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	records, err := r.logs.List(c.Request.Context(), store.DecisionQuery{
		StrategyID: strings.TrimSpace(c.Query("strategy")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(c, http.StatusBadRequest, errors.New(key+" 必须是非负整数"))
		return 0, false
	}
	return v, true
}

// statusFor 把错误类别映射成 HTTP 状态码。
func statusFor(kind decision.ErrorKind) int {
	switch kind {
	case decision.KindValidation:
		return http.StatusBadRequest
	case decision.KindNotFound:
		return http.StatusNotFound
	case decision.KindConfiguration:
		return http.StatusConflict
	case decision.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(c *gin.Context, err error) {
	kind := decision.KindOf(err)
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": kind})
}

func writeError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
