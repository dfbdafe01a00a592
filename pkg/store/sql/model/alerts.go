package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// Alert mapped from table <alerts>.
type Alert struct {
	ID             string     `gorm:"column:id;primaryKey"`
	ModelID        string     `gorm:"column:model_id;index"`
	AlertType      string     `gorm:"column:alert_type;index"`
	Severity       string     `gorm:"column:severity;index"`
	Status         string     `gorm:"column:status;index"`
	Title          string     `gorm:"column:title;not null"`
	Message        string     `gorm:"column:message"`
	Details        string     `gorm:"column:details"`
	CreatedAt      time.Time  `gorm:"column:created_at;index"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at"`
	AcknowledgedBy string     `gorm:"column:acknowledged_by"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at"`
	ResolutionNote string     `gorm:"column:resolution_note"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (a Alert) ToEntity() *entities.Alert {
	return &entities.Alert{
		ID:             a.ID,
		ModelID:        a.ModelID,
		Type:           entities.AlertType(a.AlertType),
		Severity:       entities.AlertSeverity(a.Severity),
		Status:         entities.AlertStatus(a.Status),
		Title:          a.Title,
		Message:        a.Message,
		Details:        unmarshalJSON[map[string]any](a.Details),
		CreatedAt:      a.CreatedAt,
		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
		ResolvedAt:     a.ResolvedAt,
		ResolutionNote: a.ResolutionNote,
	}
}

func NewAlertFromEntity(alert *entities.Alert) Alert {
	return Alert{
		ID:             alert.ID,
		ModelID:        alert.ModelID,
		AlertType:      string(alert.Type),
		Severity:       string(alert.Severity),
		Status:         string(alert.Status),
		Title:          alert.Title,
		Message:        alert.Message,
		Details:        marshalJSON(alert.Details),
		CreatedAt:      alert.CreatedAt,
		AcknowledgedAt: alert.AcknowledgedAt,
		AcknowledgedBy: alert.AcknowledgedBy,
		ResolvedAt:     alert.ResolvedAt,
		ResolutionNote: alert.ResolutionNote,
	}
}
