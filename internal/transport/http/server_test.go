package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arbiter/internal/decision"
	"arbiter/internal/manager"
	"arbiter/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const decideBody = `{
  "options": [
    {"id": "cache", "name": "Enable cache", "confidence": 0.9, "risk_level": "low",
     "expected_benefit": 0.7, "expected_cost": 0.2,
     "impact": {"performance": 0.8, "user_experience": 0.7, "resource_usage": 0.3, "cost": 0.2, "reliability": 0.8}},
    {"id": "noop", "name": "Do nothing", "confidence": 0.6, "risk_level": "high",
     "expected_benefit": 0.1, "expected_cost": 0.0,
     "impact": {"performance": 0.3, "user_experience": 0.3, "reliability": 0.5}}
  ]
}`

type mockLog struct {
	mock.Mock
}

func (m *mockLog) Insert(ctx context.Context, rec store.DecisionRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLog) List(ctx context.Context, q store.DecisionQuery) ([]store.DecisionRecord, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]store.DecisionRecord), args.Error(1)
}

func (m *mockLog) Close() error { return m.Called().Error(0) }

func newTestServer(t *testing.T, logs store.DecisionLog) (*Server, *manager.Manager) {
	t.Helper()
	cfg := manager.DefaultSettings()
	cfg.EnableOptimization = false
	cfg.RandomSeed = 7
	cfg.SelectionMethod = "manual"
	m, err := manager.New(cfg)
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{Engine: m, Logs: logs})
	require.NoError(t, err)
	return srv, m
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ":9991", srv.Addr())
}

func TestDecideEndpoint(t *testing.T) {
	srv, m := newTestServer(t, nil)
	rec := do(t, srv, http.MethodPost, "/api/decide", decideBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res decision.Result
	decodeJSON(t, rec, &res)
	assert.Equal(t, "multi-objective", res.StrategyID)
	assert.Contains(t, []string{"cache", "noop"}, res.Selected.ID)
	assert.Equal(t, 2, res.OptionCount)
	assert.Equal(t, int64(1), m.Metrics().TotalDecisions)
}

func TestDecideExplicitStrategy(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body := strings.Replace(decideBody, `"options"`, `"strategy_id": "risk-based", "options"`, 1)
	rec := do(t, srv, http.MethodPost, "/api/decide", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res decision.Result
	decodeJSON(t, rec, &res)
	assert.Equal(t, "risk-based", res.StrategyID)
}

func TestDecideErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"not json", "{oops", http.StatusBadRequest},
		{"not object", "[]", http.StatusBadRequest},
		{"missing options", `{"context": {}}`, http.StatusBadRequest},
		{"option not object", `{"options": [1]}`, http.StatusBadRequest},
		{"missing id", `{"options": [{"name": "x"}]}`, http.StatusBadRequest},
		{"duplicate id", `{"options": [{"id": "a"}, {"id": "a"}]}`, http.StatusBadRequest},
		{"bad strategy id", `{"strategy_id": 3, "options": [{"id": "a"}]}`, http.StatusBadRequest},
		{"negative time limit", `{"time_limit_ms": -1, "options": [{"id": "a"}]}`, http.StatusBadRequest},
		{"empty options", `{"options": []}`, http.StatusBadRequest},
		{"unknown strategy", `{"strategy_id": "ghost", "options": [{"id": "a"}]}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/decide", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			var body map[string]any
			decodeJSON(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv, m := newTestServer(t, nil)
	rec := do(t, srv, http.MethodPost, "/api/compare", decideBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Results []decision.Result `json:"results"`
		Count   int               `json:"count"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, 7, body.Count)
	assert.Equal(t, "risk-based", body.Results[0].StrategyID)
	assert.Zero(t, m.Metrics().TotalDecisions)
}

func TestStrategyLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &list)
	assert.Equal(t, 7, list.Count)

	rec = do(t, srv, http.MethodPost, "/api/strategies",
		`{"id": "cautious", "name": "Cautious", "type": "risk-based", "enabled": true, "accuracy": 0.8}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/strategies", `{"id": "cautious", "type": "risk-based"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/strategies/cautious", `{"priority": 9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st decision.Strategy
	decodeJSON(t, rec, &st)
	assert.Equal(t, 9, st.Priority)

	rec = do(t, srv, http.MethodPost, "/api/strategies/cautious/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &st)
	assert.False(t, st.Enabled)

	rec = do(t, srv, http.MethodGet, "/api/strategies/active", "")
	decodeJSON(t, rec, &list)
	assert.Equal(t, 7, list.Count)

	rec = do(t, srv, http.MethodPost, "/api/strategies/cautious/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/strategies/cautious", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &st)
	assert.True(t, st.Enabled)

	rec = do(t, srv, http.MethodDelete, "/api/strategies/cautious", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/strategies/cautious", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/strategies/cautious", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHistoryAndChart(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/decide", decideBody).Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics metricsView
	decodeJSON(t, rec, &metrics)
	assert.Equal(t, int64(3), metrics.TotalDecisions)
	assert.Equal(t, 1.0, metrics.SuccessRate)
	assert.Equal(t, int64(3), metrics.StrategyUsage["multi-objective"])

	rec = do(t, srv, http.MethodGet, "/api/history?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &hist)
	assert.Equal(t, 2, hist.Count)

	rec = do(t, srv, http.MethodGet, "/api/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/metrics/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestConfigEndpoints(t *testing.T) {
	srv, m := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view configView
	decodeJSON(t, rec, &view)
	assert.Equal(t, "multi-objective", view.DefaultStrategy)
	assert.Equal(t, "1h0m0s", view.OptimizationInterval)
	assert.True(t, view.Strategies["heuristic"])

	rec = do(t, srv, http.MethodPatch, "/api/config",
		`{"selection_method": "accuracy", "learning_rate": 0.2, "optimization_interval": "30m", "strategies": {"genetic": false}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPatch, "/api/config",
		`{"selection_method": "accuracy", "learning_rate": 0.2, "optimization_interval": "30m"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeJSON(t, rec, &view)
	assert.Equal(t, "accuracy", view.SelectionMethod)
	assert.Equal(t, "30m0s", view.OptimizationInterval)
	assert.Equal(t, 0.2, m.Config().LearningRate)

	rec = do(t, srv, http.MethodPatch, "/api/config", `{"learning_rate": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0.2, m.Config().LearningRate)

	rec = do(t, srv, http.MethodPatch, "/api/config", `{"strategies": {"heuristic": false}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeJSON(t, rec, &view)
	assert.False(t, view.Strategies["heuristic"])
	st, err := m.GetStrategy("heuristic")
	require.NoError(t, err)
	assert.False(t, st.Enabled)

	rec = do(t, srv, http.MethodPatch, "/api/config", `{"optimization_interval": "soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetAndOptimize(t *testing.T) {
	srv, m := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/decide", decideBody).Code)
	require.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/strategies/heuristic", "").Code)

	rec := do(t, srv, http.MethodPost, "/api/optimize", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, m.Metrics().TotalDecisions)
	assert.Len(t, m.Strategies(), 7)
}

func TestDecisionLogEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/decisions/log", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	logs := &mockLog{}
	logs.On("List", mock.Anything, store.DecisionQuery{StrategyID: "heuristic", Limit: 5}).
		Return([]store.DecisionRecord{{ID: 1, StrategyID: "heuristic", SelectedID: "cache"}}, nil).Once()
	logs.On("List", mock.Anything, store.DecisionQuery{Limit: defaultLogLimit}).
		Return([]store.DecisionRecord{}, nil).Once()
	srv, _ = newTestServer(t, logs)

	rec = do(t, srv, http.MethodGet, "/api/decisions/log?limit=5&strategy=heuristic", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Records []store.DecisionRecord `json:"records"`
		Count   int                    `json:"count"`
	}
	decodeJSON(t, rec, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "cache", body.Records[0].SelectedID)

	rec = do(t, srv, http.MethodGet, "/api/decisions/log?limit=9999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	logs.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(decision.KindValidation))
	assert.Equal(t, http.StatusNotFound, statusFor(decision.KindNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(decision.KindConfiguration))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(decision.KindTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(decision.KindInternal))
}
