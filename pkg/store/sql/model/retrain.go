package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// RetrainJob mapped from table <retrain_jobs>.
type RetrainJob struct {
	ID          string     `gorm:"column:id;primaryKey"`
	ModelID     string     `gorm:"column:model_id;index"`
	Reason      string     `gorm:"column:reason"`
	Status      string     `gorm:"column:status;index"`
	Config      string     `gorm:"column:config"`
	StartedAt   time.Time  `gorm:"column:started_at;index"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CurrentStep string     `gorm:"column:current_step"`
	Progress    float64    `gorm:"column:progress"`
	Metrics     string     `gorm:"column:metrics"`
	NewModelID  string     `gorm:"column:new_model_id"`
	Comparison  string     `gorm:"column:comparison_result"`
	Error       string     `gorm:"column:error"`
}

func (RetrainJob) TableName() string {
	return "retrain_jobs"
}

func (j RetrainJob) ToEntity() *entities.RetrainJob {
	job := &entities.RetrainJob{
		ID:          j.ID,
		ModelID:     j.ModelID,
		Reason:      entities.RetrainReason(j.Reason),
		Status:      entities.RetrainStatus(j.Status),
		Config:      unmarshalJSON[entities.RetrainConfig](j.Config),
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CurrentStep: j.CurrentStep,
		Progress:    j.Progress,
		Metrics:     unmarshalJSON[map[string]float64](j.Metrics),
		NewModelID:  j.NewModelID,
		Error:       j.Error,
	}
	if j.Comparison != "" {
		comparison := unmarshalJSON[entities.ComparisonResult](j.Comparison)
		job.Comparison = &comparison
	}
	return job
}

func NewRetrainJobFromEntity(job *entities.RetrainJob) RetrainJob {
	row := RetrainJob{
		ID:          job.ID,
		ModelID:     job.ModelID,
		Reason:      string(job.Reason),
		Status:      string(job.Status),
		Config:      marshalJSON(job.Config),
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		CurrentStep: job.CurrentStep,
		Progress:    job.Progress,
		Metrics:     marshalJSON(job.Metrics),
		NewModelID:  job.NewModelID,
		Error:       job.Error,
	}
	if job.Comparison != nil {
		row.Comparison = marshalJSON(job.Comparison)
	}
	return row
}
