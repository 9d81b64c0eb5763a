package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
	"arbiter/internal/store"

	_ "modernc.org/sqlite"
)

const defaultQueueSize = 256

// DecisionLogStore 管理决策审计日志，方便后续排查/可视化。
// 作为 decision.Observer 使用时，事件先入队，由 Run 异步落库。
type DecisionLogStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string

	queue   chan store.DecisionRecord
	dropped atomic.Int64
}

var _ store.DecisionLog = (*DecisionLogStore)(nil)

// NewDecisionLogStore 初始化 SQLite 存储。
func NewDecisionLogStore(path string) (*DecisionLogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureDecisionLogSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DecisionLogStore{
		db:    db,
		path:  path,
		queue: make(chan store.DecisionRecord, defaultQueueSize),
	}, nil
}

func ensureDecisionLogSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decision_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT,
			ts INTEGER NOT NULL,
			strategy_id TEXT,
			strategy_type TEXT,
			selected_id TEXT,
			confidence REAL,
			utility REAL,
			risk_score REAL,
			duration_ms INTEGER,
			options INTEGER,
			reasoning_json TEXT,
			error TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decision_logs_strategy_ts_id ON decision_logs(strategy_id, ts DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_decision_logs_trace ON decision_logs(trace_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("decision log schema: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接。
func (s *DecisionLogStore) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (s *DecisionLogStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 未初始化")
	}
	return s.db, nil
}

// Insert 写入一条审计记录，返回自增 id。
func (s *DecisionLogStore) Insert(ctx context.Context, rec store.DecisionRecord) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	reasoning := ""
	if len(rec.Reasoning) > 0 {
		if b, err := json.Marshal(rec.Reasoning); err == nil {
			reasoning = string(b)
		}
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO decision_logs
			(trace_id, ts, strategy_id, strategy_type, selected_id, confidence, utility, risk_score,
			 duration_ms, options, reasoning_json, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID,
		ts.UnixMilli(),
		rec.StrategyID,
		rec.StrategyType,
		rec.SelectedID,
		rec.Confidence,
		rec.Utility,
		rec.RiskScore,
		rec.DurationMS,
		rec.Options,
		reasoning,
		rec.Error,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List 按时间倒序返回审计记录。
func (s *DecisionLogStore) List(ctx context.Context, q store.DecisionQuery) ([]store.DecisionRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, trace_id, ts, strategy_id, strategy_type, selected_id, confidence, utility,
		risk_score, duration_ms, options, reasoning_json, error
		FROM decision_logs`)
	if id := strings.TrimSpace(q.StrategyID); id != "" {
		sb.WriteString(" WHERE strategy_id = ?")
		args = append(args, id)
	}
	sb.WriteString(" ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []store.DecisionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanRecord(rows *sql.Rows) (store.DecisionRecord, error) {
	var (
		rec                                   store.DecisionRecord
		traceID, stType, selected, reasonJSON sql.NullString
		errText                               sql.NullString
		ts                                    int64
	)
	if err := rows.Scan(&rec.ID, &traceID, &ts, &rec.StrategyID, &stType, &selected,
		&rec.Confidence, &rec.Utility, &rec.RiskScore, &rec.DurationMS, &rec.Options,
		&reasonJSON, &errText); err != nil {
		return store.DecisionRecord{}, err
	}
	rec.TraceID = traceID.String
	rec.Timestamp = time.UnixMilli(ts)
	rec.StrategyType = stType.String
	rec.SelectedID = selected.String
	rec.Error = errText.String
	if reasonJSON.String != "" {
		_ = json.Unmarshal([]byte(reasonJSON.String), &rec.Reasoning)
	}
	return rec, nil
}

// OnEvent 把 decision-completed / decision-failed 事件转成审计记录入队。
// 队列满时丢弃并计数，不阻塞决策路径。
func (s *DecisionLogStore) OnEvent(evt decision.Event) {
	rec, ok := recordFromEvent(evt)
	if !ok {
		return
	}
	select {
	case s.queue <- rec:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			logger.Warnf("decision log queue full, dropped=%d", n)
		}
	}
}

// Dropped 返回因队列满被丢弃的记录数。
func (s *DecisionLogStore) Dropped() int64 { return s.dropped.Load() }

// Run 持续把队列写入数据库，ctx 结束后写完剩余记录再返回。
func (s *DecisionLogStore) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-s.queue:
			s.write(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-s.queue:
					s.write(rec)
				default:
					return nil
				}
			}
		}
	}
}

func (s *DecisionLogStore) write(rec store.DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Insert(ctx, rec); err != nil {
		logger.Warnf("decision log insert failed trace=%s: %v", rec.TraceID, err)
	}
}

func recordFromEvent(evt decision.Event) (store.DecisionRecord, bool) {
	switch evt.Type {
	case decision.EventDecisionCompleted:
		res, ok := evt.Payload.(*decision.Result)
		if !ok || res == nil {
			return store.DecisionRecord{}, false
		}
		return store.DecisionRecord{
			TraceID:      evt.TraceID,
			Timestamp:    res.DecidedAt,
			StrategyID:   res.StrategyID,
			StrategyType: string(res.StrategyType),
			SelectedID:   res.Selected.ID,
			Confidence:   res.Confidence,
			Utility:      res.Metrics.Utility,
			RiskScore:    res.Metrics.RiskScore,
			DurationMS:   res.Duration.Milliseconds(),
			Options:      res.OptionCount,
			Reasoning:    append([]string(nil), res.Reasoning...),
		}, true
	case decision.EventDecisionFailed:
		p, ok := evt.Payload.(decision.FailurePayload)
		if !ok {
			return store.DecisionRecord{}, false
		}
		rec := store.DecisionRecord{
			TraceID:    evt.TraceID,
			Timestamp:  evt.At,
			StrategyID: p.StrategyID,
			Options:    p.Options,
		}
		if p.Err != nil {
			rec.Error = p.Err.Error()
			var de *decision.Error
			if errors.As(p.Err, &de) && rec.StrategyID == "" {
				rec.StrategyID = de.StrategyID
			}
		}
		return rec, true
	default:
		return store.DecisionRecord{}, false
	}
}
