// Package abtest runs champion/challenger comparisons: traffic routing,
// per-arm outcome aggregation and the promote-or-keep evaluation.
package abtest

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/utils"
)

// Arm identifies which side of the test served a request.
type Arm string

const (
	ArmChampion   Arm = "champion"
	ArmChallenger Arm = "challenger"
)

const (
	// A verdict needs at least this many challenger samples and this much
	// absolute primary-metric difference, in percentage points.
	minChallengerSamples = 500
	minDifferencePct     = 1.0
)

// Service owns the A/B lifecycle. At most one test is RUNNING or PAUSED
// at a time; the mutex guards the active slot and counter updates.
type Service struct {
	mu       sync.Mutex
	store    store.ABTestStore
	registry registry.Registry
	rand     *rand.Rand
	activeID string
}

// NewService recovers the active slot from the store so a restart does
// not allow a second concurrent test.
func NewService(s store.ABTestStore, reg registry.Registry) (*Service, error) {
	service := &Service{
		store:    s,
		registry: reg,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	running, err := s.FindRunning()
	if err != nil {
		return nil, err
	}
	if running != nil {
		service.activeID = running.ID
	}
	return service, nil
}

// Create records a new test in DRAFT.
func (s *Service) Create(
	name, championID, challengerID string,
	cfg *entities.ABTestConfig,
) (*entities.ABTest, *contract.Error) {
	if name == "" || championID == "" || challengerID == "" {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue, "name, champion_model_id and challenger_model_id are required",
		)
	}
	if championID == challengerID {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue, "champion and challenger must be different models",
		)
	}

	config := entities.DefaultABTestConfig()
	if cfg != nil {
		config = *cfg
	}
	if config.TrafficPercent <= 0 || config.TrafficPercent >= 100 {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			"challenger_traffic_percent must be inside (0, 100), got %.1f", config.TrafficPercent,
		)
	}
	if config.MinSamples <= 0 {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "min_samples must be positive")
	}

	test := &entities.ABTest{
		ID:                uuid.NewString(),
		Name:              name,
		ChampionModelID:   championID,
		ChallengerModelID: challengerID,
		Config:            config,
		Status:            entities.ABTestDraft,
		Result:            entities.ABResultPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store ab test")
	}
	return test, nil
}

// Start moves a DRAFT test to RUNNING. Only one test may run at a time.
func (s *Service) Start(id string) (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" && s.activeID != id {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is already active; conclude or abort it first", s.activeID,
		)
	}

	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	if test.Status != entities.ABTestDraft {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is %s, only DRAFT tests can start", id, test.Status,
		)
	}

	test.Status = entities.ABTestRunning
	test.StartedAt = utils.PtrTo(time.Now().UTC())
	if err := s.store.UpdateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	s.activeID = test.ID

	logrus.WithFields(logrus.Fields{
		"test_id":    test.ID,
		"champion":   test.ChampionModelID,
		"challenger": test.ChallengerModelID,
		"traffic":    test.Config.TrafficPercent,
	}).Info("ab test started")
	return test, nil
}

// RouteRequest assigns an incoming scoring request to an arm of the
// active test and returns the model that should serve it.
func (s *Service) RouteRequest() (testID, modelID string, arm Arm, cErr *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.activeRunning()
	if err != nil {
		return "", "", "", err
	}

	arm = ArmChampion
	modelID = test.ChampionModelID
	if s.rand.Float64()*100 < test.Config.TrafficPercent {
		arm = ArmChallenger
		modelID = test.ChallengerModelID
	}

	if arm == ArmChampion {
		test.Champion.Samples++
	} else {
		test.Challenger.Samples++
	}
	if err := s.store.UpdateABTest(test); err != nil {
		return "", "", "", contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	return test.ID, modelID, arm, nil
}

// RecordPrediction folds one served prediction into the arm's aggregates.
// actual is nil until the transaction's true label arrives.
func (s *Service) RecordPrediction(testID string, arm Arm, predicted int, actual *int, latencyMs float64) *contract.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.store.GetABTest(testID)
	if err != nil {
		return contract.NewNotFound("ab test %q not found", testID)
	}
	if test.Status != entities.ABTestRunning && test.Status != entities.ABTestPaused {
		return contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is %s and no longer accepts predictions", testID, test.Status,
		)
	}

	stats := &test.Champion
	if arm == ArmChallenger {
		stats = &test.Challenger
	}

	if predicted == 1 {
		stats.Positives++
	}
	stats.TotalLatency += latencyMs
	if actual != nil {
		stats.Labeled++
		if predicted == *actual {
			stats.Correct++
		}
		switch {
		case predicted == 1 && *actual == 1:
			stats.TruePositives++
		case predicted == 1 && *actual == 0:
			stats.FalsePositives++
		case predicted == 0 && *actual == 1:
			stats.FalseNegatives++
		}
	}

	test.ChampionMetrics = armMetrics(test.Champion)
	test.ChallengerMetrics = armMetrics(test.Challenger)
	if err := s.store.UpdateABTest(test); err != nil {
		return contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	return nil
}

// armMetrics derives the comparable metrics from an arm's aggregates.
func armMetrics(stats entities.ArmStats) map[string]float64 {
	metrics := map[string]float64{}
	if stats.Samples > 0 {
		metrics["positive_rate"] = float64(stats.Positives) / float64(stats.Samples)
		metrics["avg_latency_ms"] = stats.TotalLatency / float64(stats.Samples)
	}
	if stats.Labeled > 0 {
		metrics["accuracy"] = float64(stats.Correct) / float64(stats.Labeled)
	}

	precision, recall := 0.0, 0.0
	if stats.TruePositives+stats.FalsePositives > 0 {
		precision = float64(stats.TruePositives) / float64(stats.TruePositives+stats.FalsePositives)
		metrics["precision"] = precision
	}
	if stats.TruePositives+stats.FalseNegatives > 0 {
		recall = float64(stats.TruePositives) / float64(stats.TruePositives+stats.FalseNegatives)
		metrics["recall"] = recall
	}
	if precision+recall > 0 {
		metrics["f1"] = 2 * precision * recall / (precision + recall)
	}
	return metrics
}

// Evaluate computes the current statistical snapshot and stores it on the
// test. Under min_samples the verdict stays PENDING with a CONTINUE_TEST
// recommendation.
func (s *Service) Evaluate(id string) (*entities.StatisticalAnalysis, *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked(id)
}

func (s *Service) evaluateLocked(id string) (*entities.StatisticalAnalysis, *contract.Error) {
	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}

	analysis := analyze(test)
	test.Analysis = analysis
	if err := s.store.UpdateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	return analysis, nil
}

// analyze applies the decision heuristics: a challenger needs at least
// 500 samples and a relative difference beyond 1% on the primary metric
// to count as significant. A drop beyond the rollback threshold is always
// acted on.
func analyze(test *entities.ABTest) *entities.StatisticalAnalysis {
	primary := test.Config.PrimaryMetric
	analysis := &entities.StatisticalAnalysis{
		PrimaryMetric:   primary,
		ChampionValue:   test.ChampionMetrics[primary],
		ChallengerValue: test.ChallengerMetrics[primary],
		Result:          entities.ABResultPending,
		Recommendation:  "CONTINUE_TEST",
	}
	analysis.Difference = analysis.ChallengerValue - analysis.ChampionValue
	if analysis.ChampionValue != 0 {
		analysis.DifferencePct = analysis.Difference / analysis.ChampionValue * 100
	} else {
		// A zero champion value cannot anchor a relative difference; the
		// metrics are rates in [0, 1], so the absolute difference in
		// percentage points keeps the significance gate reachable.
		analysis.DifferencePct = analysis.Difference * 100
	}

	// Rollback only fires once the challenger actually reports the metric;
	// an unlabeled arm reads as zero and must not look like a collapse.
	_, challengerReported := test.ChallengerMetrics[primary]
	drop := analysis.ChampionValue - analysis.ChallengerValue
	if test.Config.RollbackOnDrop && challengerReported && drop > test.Config.PerformanceDropThreshold {
		analysis.IsSignificant = true
		analysis.Confidence = 0.95
		analysis.Result = entities.ABResultChampionWins
		analysis.Recommendation = "ROLLBACK_CHALLENGER"
		return analysis
	}

	total := test.Champion.Samples + test.Challenger.Samples
	if total < test.Config.MinSamples {
		analysis.Confidence = 0.5 * float64(total) / float64(test.Config.MinSamples)
		return analysis
	}

	analysis.IsSignificant = test.Challenger.Samples >= minChallengerSamples &&
		math.Abs(analysis.DifferencePct) > minDifferencePct

	if !analysis.IsSignificant {
		analysis.Confidence = 0.5
		analysis.Result = entities.ABResultNoSignificance
		analysis.Recommendation = "KEEP_CHAMPION"
		return analysis
	}

	analysis.Confidence = 0.95
	if analysis.Difference > 0 {
		analysis.Result = entities.ABResultChallengerWins
		analysis.Recommendation = "PROMOTE_CHALLENGER"
	} else {
		analysis.Result = entities.ABResultChampionWins
		analysis.Recommendation = "KEEP_CHAMPION"
	}
	return analysis
}

// Conclude finalizes a RUNNING or PAUSED test with a last evaluation and
// frees the active slot. A challenger win with auto_promote_on_win set
// promotes the challenger in the registry.
func (s *Service) Conclude(id string) (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	if test.Status != entities.ABTestRunning && test.Status != entities.ABTestPaused {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is %s and cannot be concluded", id, test.Status,
		)
	}

	analysis := analyze(test)
	if analysis.Result == entities.ABResultPending {
		analysis.Result = entities.ABResultNoSignificance
		analysis.Recommendation = "KEEP_CHAMPION"
	}

	test.Status = entities.ABTestCompleted
	test.Result = analysis.Result
	test.Analysis = analysis
	test.EndedAt = utils.PtrTo(time.Now().UTC())
	if err := s.store.UpdateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	if s.activeID == id {
		s.activeID = ""
	}

	if test.Result == entities.ABResultChallengerWins && test.Config.AutoPromoteOnWin && s.registry != nil {
		if err := s.registry.Promote(test.ChallengerModelID); err != nil {
			logrus.WithError(err).WithField("test_id", id).Error("challenger promotion failed")
		}
	}

	logrus.WithFields(logrus.Fields{"test_id": id, "result": test.Result}).Info("ab test concluded")
	return test, nil
}

// Abort stops a test from any non-terminal state without a verdict.
func (s *Service) Abort(id string) (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	if test.Status == entities.ABTestCompleted || test.Status == entities.ABTestAborted {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is already finished", id,
		)
	}

	test.Status = entities.ABTestAborted
	test.EndedAt = utils.PtrTo(time.Now().UTC())
	if err := s.store.UpdateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	if s.activeID == id {
		s.activeID = ""
	}
	return test, nil
}

// Pause suspends routing; the test keeps the active slot.
func (s *Service) Pause(id string) (*entities.ABTest, *contract.Error) {
	return s.transition(id, entities.ABTestRunning, entities.ABTestPaused)
}

// Resume restarts routing for a paused test.
func (s *Service) Resume(id string) (*entities.ABTest, *contract.Error) {
	return s.transition(id, entities.ABTestPaused, entities.ABTestRunning)
}

func (s *Service) transition(id string, from, to entities.ABTestStatus) (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	if test.Status != from {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is %s, expected %s", id, test.Status, from,
		)
	}
	test.Status = to
	if err := s.store.UpdateABTest(test); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update ab test")
	}
	return test, nil
}

func (s *Service) Get(id string) (*entities.ABTest, *contract.Error) {
	test, err := s.store.GetABTest(id)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	return test, nil
}

func (s *Service) List(status entities.ABTestStatus, limit int) ([]*entities.ABTest, *contract.Error) {
	tests, err := s.store.ListABTests(status, limit)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list ab tests")
	}
	return tests, nil
}

// GetActive returns the test currently holding the slot, or nil.
func (s *Service) GetActive() (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()
	if id == "" {
		return nil, nil
	}
	return s.Get(id)
}

// ConcludeExpired closes the active test once it outlives its configured
// duration. The cleanup job calls this periodically.
func (s *Service) ConcludeExpired() (*entities.ABTest, *contract.Error) {
	s.mu.Lock()
	test, err := s.activeRunning()
	s.mu.Unlock()
	if err != nil || test.StartedAt == nil || test.Config.MaxDurationHours <= 0 {
		return nil, nil
	}

	deadline := test.StartedAt.Add(time.Duration(test.Config.MaxDurationHours) * time.Hour)
	if time.Now().UTC().Before(deadline) {
		return nil, nil
	}
	logrus.WithField("test_id", test.ID).Info("ab test exceeded max duration, concluding")
	return s.Conclude(test.ID)
}

// activeRunning loads the active test; callers hold the mutex.
func (s *Service) activeRunning() (*entities.ABTest, *contract.Error) {
	if s.activeID == "" {
		return nil, contract.NewNotFound("no active ab test")
	}
	test, err := s.store.GetABTest(s.activeID)
	if err != nil {
		return nil, contract.NewNotFound("ab test %q not found", s.activeID)
	}
	if test.Status != entities.ABTestRunning {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "ab test %q is %s, not RUNNING", test.ID, test.Status,
		)
	}
	return test, nil
}
