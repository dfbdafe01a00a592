package sql

import (
	"fmt"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

func (s *Store) CreateJob(job *entities.MonitoringJob) error {
	row := model.NewMonitoringJobFromEntity(job)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create job %q: %w", job.ID, err)
	}
	return nil
}

func (s *Store) GetJob(id string) (*entities.MonitoringJob, error) {
	var row model.MonitoringJob
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get job %q: %w", id, err)
	}
	return row.ToEntity(), nil
}

func (s *Store) UpdateJob(job *entities.MonitoringJob) error {
	row := model.NewMonitoringJobFromEntity(job)
	result := s.db.Model(&model.MonitoringJob{}).Where("id = ?", job.ID).
		Select("*").Omit("id", "created_at").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update job %q: %w", job.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %q not found", job.ID)
	}
	return nil
}

func (s *Store) DeleteJob(id string) error {
	// Run history is intentionally left behind.
	result := s.db.Where("id = ?", id).Delete(&model.MonitoringJob{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete job %q: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %q not found", id)
	}
	return nil
}

func (s *Store) ListJobs(kind entities.JobKind, modelID string) ([]*entities.MonitoringJob, error) {
	query := s.db.Model(&model.MonitoringJob{}).Order("created_at asc")
	if kind != "" {
		query = query.Where("job_type = ?", string(kind))
	}
	if modelID != "" {
		query = query.Where("model_id = ?", modelID)
	}

	var rows []model.MonitoringJob
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*entities.MonitoringJob, len(rows))
	for i, row := range rows {
		jobs[i] = row.ToEntity()
	}
	return jobs, nil
}

func (s *Store) CreateRun(run *entities.JobRun) error {
	row := model.NewJobRunFromEntity(run)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create job run %q: %w", run.ID, err)
	}
	return nil
}

func (s *Store) UpdateRun(run *entities.JobRun) error {
	row := model.NewJobRunFromEntity(run)
	result := s.db.Model(&model.JobRun{}).Where("id = ?", run.ID).
		Select("*").Omit("id").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update job run %q: %w", run.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job run %q not found", run.ID)
	}
	return nil
}

func (s *Store) ListRuns(jobID string, limit int) ([]*entities.JobRun, error) {
	query := s.db.Model(&model.JobRun{}).Order("started_at desc")
	if jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.JobRun
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}

	runs := make([]*entities.JobRun, len(rows))
	for i, row := range rows {
		runs[i] = row.ToEntity()
	}
	return runs, nil
}
