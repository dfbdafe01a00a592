package sql

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

// ReplaceBaselines swaps the model's whole baseline set in one
// transaction.
func (s *Store) ReplaceBaselines(modelID string, baselines []*entities.Baseline) error {
	rows := make([]model.Baseline, len(baselines))
	for i, baseline := range baselines {
		rows[i] = model.NewBaselineFromEntity(baseline)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("model_id = ?", modelID).Delete(&model.Baseline{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	}); err != nil {
		return fmt.Errorf("failed to replace baselines for model %q: %w", modelID, err)
	}
	return nil
}

func (s *Store) GetBaselines(modelID string) ([]*entities.Baseline, error) {
	var rows []model.Baseline
	if err := s.db.Where("model_id = ?", modelID).Order("metric asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get baselines for model %q: %w", modelID, err)
	}

	baselines := make([]*entities.Baseline, len(rows))
	for i, row := range rows {
		baselines[i] = row.ToEntity()
	}
	return baselines, nil
}
