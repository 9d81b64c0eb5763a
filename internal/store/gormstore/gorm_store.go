package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arbiter/internal/decision"
	"arbiter/internal/store"
	storemodel "arbiter/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type strategyModel = storemodel.StrategyModel

// GormStore implements the catalogue store using Gorm + SQLite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.CatalogStore = (*GormStore)(nil)

// NewGormStore opens (or creates) the database at path and migrates it.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 策略库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&strategyModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadStrategies returns the stored catalogue ordered by position.
func (s *GormStore) LoadStrategies(ctx context.Context) ([]decision.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	var rows []strategyModel
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]decision.Strategy, 0, len(rows))
	for _, row := range rows {
		st, err := fromModel(row)
		if err != nil {
			return nil, fmt.Errorf("decode strategy %s: %w", row.ID, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// SaveStrategies upserts list and removes rows that are no longer present,
// all in one transaction.
func (s *GormStore) SaveStrategies(ctx context.Context, list []decision.Strategy) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	now := s.now()
	rows := make([]strategyModel, 0, len(list))
	ids := make([]string, 0, len(list))
	for i, st := range list {
		row, err := toModel(st, i, now)
		if err != nil {
			return fmt.Errorf("encode strategy %s: %w", st.ID, err)
		}
		rows = append(rows, row)
		ids = append(ids, st.ID)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&strategyModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&rows).Error
	})
}

func toModel(st decision.Strategy, pos int, now time.Time) (strategyModel, error) {
	params, err := json.Marshal(st.Parameters)
	if err != nil {
		return strategyModel{}, err
	}
	weights, err := json.Marshal(st.Weights)
	if err != nil {
		return strategyModel{}, err
	}
	row := strategyModel{
		ID:            st.ID,
		Position:      pos,
		Name:          st.Name,
		Description:   st.Description,
		Type:          string(st.Type),
		ParamsJSON:    datatypes.JSON(params),
		WeightsJSON:   datatypes.JSON(weights),
		Enabled:       st.Enabled,
		Priority:      st.Priority,
		Accuracy:      st.Accuracy,
		UsageCount:    st.UsageCount,
		UpdatedAtUnix: now.UnixMilli(),
	}
	if !st.LastUsedAt.IsZero() {
		ts := st.LastUsedAt.UnixMilli()
		row.LastUsedUnix = &ts
	}
	return row, nil
}

func fromModel(row strategyModel) (decision.Strategy, error) {
	st := decision.Strategy{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Type:        decision.StrategyType(row.Type),
		Enabled:     row.Enabled,
		Priority:    row.Priority,
		Accuracy:    row.Accuracy,
		UsageCount:  row.UsageCount,
	}
	if len(row.ParamsJSON) > 0 {
		if err := json.Unmarshal(row.ParamsJSON, &st.Parameters); err != nil {
			return decision.Strategy{}, err
		}
	}
	if len(row.WeightsJSON) > 0 {
		if err := json.Unmarshal(row.WeightsJSON, &st.Weights); err != nil {
			return decision.Strategy{}, err
		}
	}
	if row.LastUsedUnix != nil {
		st.LastUsedAt = time.UnixMilli(*row.LastUsedUnix)
	}
	return st, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
