package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// DriftReport mapped from table <drift_reports>. One row per model; a
// fresh report overwrites the previous one.
type DriftReport struct {
	ModelID         string    `gorm:"column:model_id;primaryKey"`
	ComputedAt      time.Time `gorm:"column:computed_at"`
	OverallStatus   string    `gorm:"column:overall_status"`
	Features        string    `gorm:"column:features"`
	DriftedFeatures int       `gorm:"column:drifted_features"`
}

func (DriftReport) TableName() string {
	return "drift_reports"
}

func (r DriftReport) ToEntity() *entities.DriftReport {
	return &entities.DriftReport{
		ModelID:         r.ModelID,
		ComputedAt:      r.ComputedAt,
		OverallStatus:   entities.HealthStatus(r.OverallStatus),
		Features:        unmarshalJSON[map[string]entities.FeatureDrift](r.Features),
		DriftedFeatures: r.DriftedFeatures,
	}
}

func NewDriftReportFromEntity(report *entities.DriftReport) DriftReport {
	return DriftReport{
		ModelID:         report.ModelID,
		ComputedAt:      report.ComputedAt,
		OverallStatus:   string(report.OverallStatus),
		Features:        marshalJSON(report.Features),
		DriftedFeatures: report.DriftedFeatures,
	}
}

// BiasReport mapped from table <bias_reports>. Same one-row-per-model
// convention as drift reports.
type BiasReport struct {
	ModelID       string    `gorm:"column:model_id;primaryKey"`
	ComputedAt    time.Time `gorm:"column:computed_at"`
	OverallStatus string    `gorm:"column:overall_status"`
	Attributes    string    `gorm:"column:attributes"`
}

func (BiasReport) TableName() string {
	return "bias_reports"
}

func (r BiasReport) ToEntity() *entities.BiasReport {
	return &entities.BiasReport{
		ModelID:       r.ModelID,
		ComputedAt:    r.ComputedAt,
		OverallStatus: entities.HealthStatus(r.OverallStatus),
		Attributes:    unmarshalJSON[map[string]entities.AttributeBias](r.Attributes),
	}
}

func NewBiasReportFromEntity(report *entities.BiasReport) BiasReport {
	return BiasReport{
		ModelID:       report.ModelID,
		ComputedAt:    report.ComputedAt,
		OverallStatus: string(report.OverallStatus),
		Attributes:    marshalJSON(report.Attributes),
	}
}
