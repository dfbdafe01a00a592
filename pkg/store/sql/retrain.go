package sql

import (
	"fmt"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

func (s *Store) CreateRetrainJob(job *entities.RetrainJob) error {
	row := model.NewRetrainJobFromEntity(job)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create retrain job %q: %w", job.ID, err)
	}
	return nil
}

func (s *Store) GetRetrainJob(id string) (*entities.RetrainJob, error) {
	var row model.RetrainJob
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get retrain job %q: %w", id, err)
	}
	return row.ToEntity(), nil
}

func (s *Store) UpdateRetrainJob(job *entities.RetrainJob) error {
	row := model.NewRetrainJobFromEntity(job)
	result := s.db.Model(&model.RetrainJob{}).Where("id = ?", job.ID).
		Select("*").Omit("id", "started_at").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update retrain job %q: %w", job.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("retrain job %q not found", job.ID)
	}
	return nil
}

func (s *Store) ListRetrainJobs(
	modelID string,
	status entities.RetrainStatus,
	limit int,
) ([]*entities.RetrainJob, error) {
	query := s.db.Model(&model.RetrainJob{}).Order("started_at desc")
	if modelID != "" {
		query = query.Where("model_id = ?", modelID)
	}
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.RetrainJob
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list retrain jobs: %w", err)
	}

	jobs := make([]*entities.RetrainJob, len(rows))
	for i, row := range rows {
		jobs[i] = row.ToEntity()
	}
	return jobs, nil
}
