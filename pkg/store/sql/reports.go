package sql

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

func (s *Store) SaveDriftReport(report *entities.DriftReport) error {
	row := model.NewDriftReportFromEntity(report)
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save drift report for model %q: %w", report.ModelID, err)
	}
	return nil
}

func (s *Store) GetDriftReport(modelID string) (*entities.DriftReport, error) {
	var row model.DriftReport
	if err := s.db.Where("model_id = ?", modelID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get drift report for model %q: %w", modelID, err)
	}
	return row.ToEntity(), nil
}

func (s *Store) SaveBiasReport(report *entities.BiasReport) error {
	row := model.NewBiasReportFromEntity(report)
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save bias report for model %q: %w", report.ModelID, err)
	}
	return nil
}

func (s *Store) GetBiasReport(modelID string) (*entities.BiasReport, error) {
	var row model.BiasReport
	if err := s.db.Where("model_id = ?", modelID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get bias report for model %q: %w", modelID, err)
	}
	return row.ToEntity(), nil
}
