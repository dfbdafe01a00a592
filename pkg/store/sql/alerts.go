package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

func (s *Store) CreateAlert(alert *entities.Alert) error {
	row := model.NewAlertFromEntity(alert)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create alert %q: %w", alert.ID, err)
	}
	return nil
}

func (s *Store) GetAlert(id string) (*entities.Alert, error) {
	var row model.Alert
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get alert %q: %w", id, err)
	}
	return row.ToEntity(), nil
}

func (s *Store) UpdateAlert(alert *entities.Alert) error {
	row := model.NewAlertFromEntity(alert)
	result := s.db.Model(&model.Alert{}).Where("id = ?", alert.ID).
		Select("*").Omit("id", "created_at").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update alert %q: %w", alert.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert %q not found", alert.ID)
	}
	return nil
}

func (s *Store) ListAlerts(filter store.AlertFilter) ([]*entities.Alert, error) {
	query := s.db.Model(&model.Alert{}).Order("created_at desc")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}
	if filter.ModelID != "" {
		query = query.Where("model_id = ?", filter.ModelID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Alert
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]*entities.Alert, len(rows))
	for i, row := range rows {
		alerts[i] = row.ToEntity()
	}
	return alerts, nil
}

func (s *Store) FindActiveDuplicate(
	modelID string,
	alertType entities.AlertType,
	title string,
	since time.Time,
) (*entities.Alert, error) {
	var row model.Alert
	err := s.db.
		Where("model_id = ?", modelID).
		Where("alert_type = ?", string(alertType)).
		Where("title = ?", title).
		Where("status = ?", string(entities.AlertStatusActive)).
		Where("created_at >= ?", since).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up duplicate alert: %w", err)
	}
	return row.ToEntity(), nil
}
