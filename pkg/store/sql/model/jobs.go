package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// MonitoringJob mapped from table <monitoring_jobs>.
type MonitoringJob struct {
	ID        string     `gorm:"column:id;primaryKey"`
	JobType   string     `gorm:"column:job_type;not null;index"`
	Schedule  string     `gorm:"column:schedule;not null"`
	ModelID   string     `gorm:"column:model_id;index"`
	Enabled   bool       `gorm:"column:enabled"`
	LastRun   *time.Time `gorm:"column:last_run"`
	NextRun   time.Time  `gorm:"column:next_run"`
	Status    string     `gorm:"column:status"`
	Config    string     `gorm:"column:config"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (MonitoringJob) TableName() string {
	return "monitoring_jobs"
}

func (j MonitoringJob) ToEntity() *entities.MonitoringJob {
	return &entities.MonitoringJob{
		ID:        j.ID,
		Kind:      entities.JobKind(j.JobType),
		Schedule:  j.Schedule,
		ModelID:   j.ModelID,
		Enabled:   j.Enabled,
		LastRun:   j.LastRun,
		NextRun:   j.NextRun,
		Status:    entities.JobStatus(j.Status),
		Config:    unmarshalJSON[map[string]any](j.Config),
		CreatedAt: j.CreatedAt,
	}
}

func NewMonitoringJobFromEntity(job *entities.MonitoringJob) MonitoringJob {
	return MonitoringJob{
		ID:        job.ID,
		JobType:   string(job.Kind),
		Schedule:  job.Schedule,
		ModelID:   job.ModelID,
		Enabled:   job.Enabled,
		LastRun:   job.LastRun,
		NextRun:   job.NextRun,
		Status:    string(job.Status),
		Config:    marshalJSON(job.Config),
		CreatedAt: job.CreatedAt,
	}
}

// JobRun mapped from table <job_runs>. Rows outlive their job on purpose:
// run history is the audit trail.
type JobRun struct {
	ID          string     `gorm:"column:id;primaryKey"`
	JobID       string     `gorm:"column:job_id;index"`
	JobType     string     `gorm:"column:job_type"`
	StartedAt   time.Time  `gorm:"column:started_at;index"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	Status      string     `gorm:"column:status"`
	Result      string     `gorm:"column:result"`
	Error       string     `gorm:"column:error"`
}

func (JobRun) TableName() string {
	return "job_runs"
}

func (r JobRun) ToEntity() *entities.JobRun {
	return &entities.JobRun{
		ID:          r.ID,
		JobID:       r.JobID,
		Kind:        entities.JobKind(r.JobType),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Status:      entities.JobStatus(r.Status),
		Result:      unmarshalJSON[map[string]any](r.Result),
		Error:       r.Error,
	}
}

func NewJobRunFromEntity(run *entities.JobRun) JobRun {
	return JobRun{
		ID:          run.ID,
		JobID:       run.JobID,
		JobType:     string(run.Kind),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Status:      string(run.Status),
		Result:      marshalJSON(run.Result),
		Error:       run.Error,
	}
}
