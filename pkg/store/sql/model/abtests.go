package model

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// ABTest mapped from table <ab_tests>.
type ABTest struct {
	ID                string     `gorm:"column:id;primaryKey"`
	Name              string     `gorm:"column:name;not null"`
	ChampionModelID   string     `gorm:"column:champion_model_id"`
	ChallengerModelID string     `gorm:"column:challenger_model_id"`
	Config            string     `gorm:"column:config"`
	Status            string     `gorm:"column:status;index"`
	Result            string     `gorm:"column:result"`
	CreatedAt         time.Time  `gorm:"column:created_at;index"`
	StartedAt         *time.Time `gorm:"column:started_at"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	Champion          string     `gorm:"column:champion_stats"`
	Challenger        string     `gorm:"column:challenger_stats"`
	ChampionMetrics   string     `gorm:"column:champion_metrics"`
	ChallengerMetrics string     `gorm:"column:challenger_metrics"`
	Analysis          string     `gorm:"column:statistical_analysis"`
}

func (ABTest) TableName() string {
	return "ab_tests"
}

func (t ABTest) ToEntity() *entities.ABTest {
	test := &entities.ABTest{
		ID:                t.ID,
		Name:              t.Name,
		ChampionModelID:   t.ChampionModelID,
		ChallengerModelID: t.ChallengerModelID,
		Config:            unmarshalJSON[entities.ABTestConfig](t.Config),
		Status:            entities.ABTestStatus(t.Status),
		Result:            entities.ABTestResult(t.Result),
		CreatedAt:         t.CreatedAt,
		StartedAt:         t.StartedAt,
		EndedAt:           t.EndedAt,
		Champion:          unmarshalJSON[entities.ArmStats](t.Champion),
		Challenger:        unmarshalJSON[entities.ArmStats](t.Challenger),
		ChampionMetrics:   unmarshalJSON[map[string]float64](t.ChampionMetrics),
		ChallengerMetrics: unmarshalJSON[map[string]float64](t.ChallengerMetrics),
	}
	if t.Analysis != "" {
		analysis := unmarshalJSON[entities.StatisticalAnalysis](t.Analysis)
		test.Analysis = &analysis
	}
	return test
}

func NewABTestFromEntity(test *entities.ABTest) ABTest {
	row := ABTest{
		ID:                test.ID,
		Name:              test.Name,
		ChampionModelID:   test.ChampionModelID,
		ChallengerModelID: test.ChallengerModelID,
		Config:            marshalJSON(test.Config),
		Status:            string(test.Status),
		Result:            string(test.Result),
		CreatedAt:         test.CreatedAt,
		StartedAt:         test.StartedAt,
		EndedAt:           test.EndedAt,
		Champion:          marshalJSON(test.Champion),
		Challenger:        marshalJSON(test.Challenger),
		ChampionMetrics:   marshalJSON(test.ChampionMetrics),
		ChallengerMetrics: marshalJSON(test.ChallengerMetrics),
	}
	if test.Analysis != nil {
		row.Analysis = marshalJSON(test.Analysis)
	}
	return row
}
