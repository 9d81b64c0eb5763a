package model

import (
	"gorm.io/datatypes"
)

// StrategyModel 是 strategies 表的一行。参数与权重以 JSON 文本保存。
type StrategyModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Position      int            `gorm:"column:position;index"`
	Name          string         `gorm:"column:name"`
	Description   string         `gorm:"column:description"`
	Type          string         `gorm:"column:type"`
	ParamsJSON    datatypes.JSON `gorm:"column:params_json;type:TEXT"`
	WeightsJSON   datatypes.JSON `gorm:"column:weights_json;type:TEXT"`
	Enabled       bool           `gorm:"column:enabled"`
	Priority      int            `gorm:"column:priority"`
	Accuracy      float64        `gorm:"column:accuracy"`
	UsageCount    int64          `gorm:"column:usage_count"`
	LastUsedUnix  *int64         `gorm:"column:last_used_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (StrategyModel) TableName() string { return "strategies" }
