package abtest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *registry.InMemory) {
	t.Helper()
	st := memory.NewStore()
	reg := registry.NewInMemory()
	require.NoError(t, reg.Register(&registry.Model{ID: "champ", Name: "fraud", Stage: registry.StageProduction}))
	require.NoError(t, reg.Register(&registry.Model{ID: "chall", Name: "fraud", Stage: registry.StageStaging}))

	service, err := NewService(st, reg)
	require.NoError(t, err)
	service.rand = rand.New(rand.NewSource(7))
	return service, st, reg
}

func startedTest(t *testing.T, service *Service, cfg *entities.ABTestConfig) *entities.ABTest {
	t.Helper()
	test, cErr := service.Create("fraud challenger rollout", "champ", "chall", cfg)
	require.Nil(t, cErr)
	test, cErr = service.Start(test.ID)
	require.Nil(t, cErr)
	return test
}

func TestCreateAppliesDefaultsAndValidates(t *testing.T) {
	service, _, _ := newTestService(t)

	test, cErr := service.Create("rollout", "champ", "chall", nil)
	require.Nil(t, cErr)
	require.Equal(t, entities.ABTestDraft, test.Status)
	require.Equal(t, entities.ABResultPending, test.Result)
	require.Equal(t, 10.0, test.Config.TrafficPercent)
	require.Equal(t, 1000, test.Config.MinSamples)

	_, cErr = service.Create("", "champ", "chall", nil)
	require.NotNil(t, cErr)

	_, cErr = service.Create("rollout", "champ", "champ", nil)
	require.NotNil(t, cErr)

	bad := entities.DefaultABTestConfig()
	bad.TrafficPercent = 120
	_, cErr = service.Create("rollout", "champ", "chall", &bad)
	require.NotNil(t, cErr)
}

func TestOnlyOneActiveTest(t *testing.T) {
	service, _, _ := newTestService(t)
	startedTest(t, service, nil)

	second, cErr := service.Create("second rollout", "champ", "chall", nil)
	require.Nil(t, cErr)
	_, cErr = service.Start(second.ID)
	require.NotNil(t, cErr)
	require.Equal(t, 409, cErr.StatusCode())
}

func TestActiveSlotRecoveredAfterRestart(t *testing.T) {
	service, st, reg := newTestService(t)
	running := startedTest(t, service, nil)

	restarted, err := NewService(st, reg)
	require.NoError(t, err)

	active, cErr := restarted.GetActive()
	require.Nil(t, cErr)
	require.Equal(t, running.ID, active.ID)

	second, cErr := restarted.Create("second rollout", "champ", "chall", nil)
	require.Nil(t, cErr)
	_, cErr = restarted.Start(second.ID)
	require.NotNil(t, cErr)
}

func TestRouteRequestSplitsTraffic(t *testing.T) {
	service, _, _ := newTestService(t)
	cfg := entities.DefaultABTestConfig()
	cfg.TrafficPercent = 20
	test := startedTest(t, service, &cfg)

	const n = 2000
	challenger := 0
	for i := 0; i < n; i++ {
		_, modelID, arm, cErr := service.RouteRequest()
		require.Nil(t, cErr)
		if arm == ArmChallenger {
			challenger++
			require.Equal(t, "chall", modelID)
		} else {
			require.Equal(t, "champ", modelID)
		}
	}

	fraction := float64(challenger) / n
	require.InDelta(t, 0.20, fraction, 0.04)

	test, cErr := service.Get(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, n, test.Champion.Samples+test.Challenger.Samples)
}

func TestRouteRequestWithoutActiveTest(t *testing.T) {
	service, _, _ := newTestService(t)
	_, _, _, cErr := service.RouteRequest()
	require.NotNil(t, cErr)
	require.Equal(t, 404, cErr.StatusCode())
}

func TestRecordPredictionAggregatesMetrics(t *testing.T) {
	service, _, _ := newTestService(t)
	test := startedTest(t, service, nil)

	positive, negative := 1, 0
	// 3 true positives, 1 false positive, 1 false negative.
	require.Nil(t, service.RecordPrediction(test.ID, ArmChallenger, 1, &positive, 12))
	require.Nil(t, service.RecordPrediction(test.ID, ArmChallenger, 1, &positive, 8))
	require.Nil(t, service.RecordPrediction(test.ID, ArmChallenger, 1, &positive, 10))
	require.Nil(t, service.RecordPrediction(test.ID, ArmChallenger, 1, &negative, 9))
	require.Nil(t, service.RecordPrediction(test.ID, ArmChallenger, 0, &positive, 11))

	test, cErr := service.Get(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, 3, test.Challenger.TruePositives)
	require.Equal(t, 1, test.Challenger.FalsePositives)
	require.Equal(t, 1, test.Challenger.FalseNegatives)
	require.InDelta(t, 0.75, test.ChallengerMetrics["precision"], 1e-9)
	require.InDelta(t, 0.75, test.ChallengerMetrics["recall"], 1e-9)
	require.InDelta(t, 0.75, test.ChallengerMetrics["f1"], 1e-9)
}

func TestRecordPredictionRejectedAfterConclude(t *testing.T) {
	service, _, _ := newTestService(t)
	test := startedTest(t, service, nil)

	_, cErr := service.Conclude(test.ID)
	require.Nil(t, cErr)

	cErr = service.RecordPrediction(test.ID, ArmChampion, 1, nil, 5)
	require.NotNil(t, cErr)
}

// seedArms writes counters straight into the store so evaluation paths
// can be exercised without thousands of routed requests.
func seedArms(t *testing.T, st *memory.Store, test *entities.ABTest, championF1, challengerF1 float64, samples int) {
	t.Helper()
	stored, err := st.GetABTest(test.ID)
	require.NoError(t, err)
	stored.Champion.Samples = samples
	stored.Challenger.Samples = samples
	stored.ChampionMetrics = map[string]float64{"f1": championF1}
	stored.ChallengerMetrics = map[string]float64{"f1": challengerF1}
	require.NoError(t, st.UpdateABTest(stored))
}

func TestEvaluateUnderMinSamplesContinues(t *testing.T) {
	service, st, _ := newTestService(t)
	test := startedTest(t, service, nil)
	seedArms(t, st, test, 0.85, 0.87, 100)

	analysis, cErr := service.Evaluate(test.ID)
	require.Nil(t, cErr)
	require.False(t, analysis.IsSignificant)
	require.Equal(t, entities.ABResultPending, analysis.Result)
	require.Equal(t, "CONTINUE_TEST", analysis.Recommendation)
}

func TestEvaluateChallengerWins(t *testing.T) {
	service, st, _ := newTestService(t)
	test := startedTest(t, service, nil)
	seedArms(t, st, test, 0.85, 0.88, 600)

	analysis, cErr := service.Evaluate(test.ID)
	require.Nil(t, cErr)
	require.True(t, analysis.IsSignificant)
	require.Equal(t, entities.ABResultChallengerWins, analysis.Result)
	require.Equal(t, "PROMOTE_CHALLENGER", analysis.Recommendation)
	require.Greater(t, analysis.DifferencePct, 1.0)

	stored, cErr := service.Get(test.ID)
	require.Nil(t, cErr)
	require.NotNil(t, stored.Analysis)
}

func TestEvaluateWithUnreportedChampionMetric(t *testing.T) {
	service, st, _ := newTestService(t)
	test := startedTest(t, service, nil)

	// Only the challenger has reported the primary metric so far; a large
	// advantage must still be able to reach significance.
	stored, err := st.GetABTest(test.ID)
	require.NoError(t, err)
	stored.Champion.Samples = 600
	stored.Challenger.Samples = 600
	stored.ChallengerMetrics = map[string]float64{"f1": 0.88}
	require.NoError(t, st.UpdateABTest(stored))

	analysis, cErr := service.Evaluate(test.ID)
	require.Nil(t, cErr)
	require.True(t, analysis.IsSignificant)
	require.Equal(t, entities.ABResultChallengerWins, analysis.Result)
	require.InDelta(t, 88.0, analysis.DifferencePct, 1e-9)
}

func TestEvaluateSmallDifferenceIsNotSignificant(t *testing.T) {
	service, st, _ := newTestService(t)
	test := startedTest(t, service, nil)
	seedArms(t, st, test, 0.850, 0.853, 600)

	analysis, cErr := service.Evaluate(test.ID)
	require.Nil(t, cErr)
	require.False(t, analysis.IsSignificant)
	require.Equal(t, entities.ABResultNoSignificance, analysis.Result)
	require.Equal(t, "KEEP_CHAMPION", analysis.Recommendation)
}

func TestEvaluateRollbackOnPerformanceDrop(t *testing.T) {
	service, st, _ := newTestService(t)
	test := startedTest(t, service, nil)
	seedArms(t, st, test, 0.85, 0.70, 100)

	analysis, cErr := service.Evaluate(test.ID)
	require.Nil(t, cErr)
	require.True(t, analysis.IsSignificant)
	require.Equal(t, entities.ABResultChampionWins, analysis.Result)
	require.Equal(t, "ROLLBACK_CHALLENGER", analysis.Recommendation)
}

func TestConcludePromotesWinningChallenger(t *testing.T) {
	service, st, reg := newTestService(t)
	cfg := entities.DefaultABTestConfig()
	cfg.AutoPromoteOnWin = true
	test := startedTest(t, service, &cfg)
	seedArms(t, st, test, 0.85, 0.89, 600)

	concluded, cErr := service.Conclude(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.ABTestCompleted, concluded.Status)
	require.Equal(t, entities.ABResultChallengerWins, concluded.Result)
	require.NotNil(t, concluded.EndedAt)

	production, err := reg.ProductionModel("fraud")
	require.NoError(t, err)
	require.Equal(t, "chall", production.ID)

	// The slot is free again.
	next, cErr := service.Create("next rollout", "champ", "chall", nil)
	require.Nil(t, cErr)
	_, cErr = service.Start(next.ID)
	require.Nil(t, cErr)
}

func TestAbortFreesSlot(t *testing.T) {
	service, _, _ := newTestService(t)
	test := startedTest(t, service, nil)

	aborted, cErr := service.Abort(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.ABTestAborted, aborted.Status)

	active, cErr := service.GetActive()
	require.Nil(t, cErr)
	require.Nil(t, active)

	_, cErr = service.Abort(test.ID)
	require.NotNil(t, cErr)
}

func TestPauseAndResume(t *testing.T) {
	service, _, _ := newTestService(t)
	test := startedTest(t, service, nil)

	paused, cErr := service.Pause(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.ABTestPaused, paused.Status)

	// Routing refuses while paused, the slot stays held.
	_, _, _, cErr = service.RouteRequest()
	require.NotNil(t, cErr)

	resumed, cErr := service.Resume(test.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.ABTestRunning, resumed.Status)

	_, _, _, cErr = service.RouteRequest()
	require.Nil(t, cErr)
}
