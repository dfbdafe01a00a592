package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/entities"
)

func TestJobConfigIsNotSharedWithCaller(t *testing.T) {
	s := NewStore()

	job := &entities.MonitoringJob{
		ID:     "j1",
		Kind:   entities.JobKindDriftCheck,
		Config: map[string]any{"window": 100},
	}
	require.NoError(t, s.CreateJob(job))

	// The caller keeps mutating its own copy after handing it over.
	job.Config["window"] = 7

	got, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, 100, got.Config["window"])

	// Mutating a returned copy must not reach stored state either.
	got.Config["window"] = 1
	again, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, 100, again.Config["window"])
}

func TestABTestMetricsAndAnalysisAreNotShared(t *testing.T) {
	s := NewStore()

	test := &entities.ABTest{
		ID:                "t1",
		ChallengerMetrics: map[string]float64{"f1": 0.8},
		Analysis:          &entities.StatisticalAnalysis{Recommendation: "CONTINUE_TEST"},
	}
	require.NoError(t, s.CreateABTest(test))

	got, err := s.GetABTest("t1")
	require.NoError(t, err)
	got.ChallengerMetrics["f1"] = 0.1
	got.Analysis.Recommendation = "PROMOTE_CHALLENGER"

	stored, err := s.GetABTest("t1")
	require.NoError(t, err)
	require.InDelta(t, 0.8, stored.ChallengerMetrics["f1"], 1e-9)
	require.Equal(t, "CONTINUE_TEST", stored.Analysis.Recommendation)
}

func TestBiasReportGroupRatesAreNotShared(t *testing.T) {
	s := NewStore()

	report := &entities.BiasReport{
		ModelID: "fraud-v3",
		Attributes: map[string]entities.AttributeBias{
			"region": {GroupRates: map[string]float64{"domestic": 0.4}},
		},
	}
	require.NoError(t, s.SaveBiasReport(report))

	got, err := s.GetBiasReport("fraud-v3")
	require.NoError(t, err)
	got.Attributes["region"].GroupRates["domestic"] = 0.9

	stored, err := s.GetBiasReport("fraud-v3")
	require.NoError(t, err)
	require.InDelta(t, 0.4, stored.Attributes["region"].GroupRates["domestic"], 1e-9)
}
