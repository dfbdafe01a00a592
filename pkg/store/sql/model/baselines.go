package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// Baseline mapped from table <baselines>.
type Baseline struct {
	ID        string    `gorm:"column:id;primaryKey"`
	ModelID   string    `gorm:"column:model_id;index"`
	Metric    string    `gorm:"column:metric;not null"`
	Threshold float64   `gorm:"column:threshold"`
	Operator  string    `gorm:"column:operator"`
	Severity  string    `gorm:"column:severity"`
	Active    bool      `gorm:"column:active"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Baseline) TableName() string {
	return "baselines"
}

func (b Baseline) ToEntity() *entities.Baseline {
	return &entities.Baseline{
		ID:        b.ID,
		ModelID:   b.ModelID,
		Metric:    b.Metric,
		Threshold: b.Threshold,
		Operator:  entities.BaselineOperator(b.Operator),
		Severity:  entities.AlertSeverity(b.Severity),
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
	}
}

func NewBaselineFromEntity(baseline *entities.Baseline) Baseline {
	return Baseline{
		ID:        baseline.ID,
		ModelID:   baseline.ModelID,
		Metric:    baseline.Metric,
		Threshold: baseline.Threshold,
		Operator:  string(baseline.Operator),
		Severity:  string(baseline.Severity),
		Active:    baseline.Active,
		CreatedAt: baseline.CreatedAt,
	}
}
