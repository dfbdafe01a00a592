package sql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

func (s *Store) CreateABTest(test *entities.ABTest) error {
	row := model.NewABTestFromEntity(test)
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create ab test %q: %w", test.ID, err)
	}
	return nil
}

func (s *Store) GetABTest(id string) (*entities.ABTest, error) {
	var row model.ABTest
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get ab test %q: %w", id, err)
	}
	return row.ToEntity(), nil
}

func (s *Store) UpdateABTest(test *entities.ABTest) error {
	row := model.NewABTestFromEntity(test)
	result := s.db.Model(&model.ABTest{}).Where("id = ?", test.ID).
		Select("*").Omit("id", "created_at").Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update ab test %q: %w", test.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ab test %q not found", test.ID)
	}
	return nil
}

func (s *Store) ListABTests(status entities.ABTestStatus, limit int) ([]*entities.ABTest, error) {
	query := s.db.Model(&model.ABTest{}).Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ABTest
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ab tests: %w", err)
	}

	tests := make([]*entities.ABTest, len(rows))
	for i, row := range rows {
		tests[i] = row.ToEntity()
	}
	return tests, nil
}

func (s *Store) FindRunning() (*entities.ABTest, error) {
	var row model.ABTest
	err := s.db.
		Where("status IN ?", []string{
			string(entities.ABTestRunning),
			string(entities.ABTestPaused),
		}).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up running ab test: %w", err)
	}
	return row.ToEntity(), nil
}
