package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/alert"
	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/fairness"
	"github.com/modelguard/modelguard/pkg/monitor"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/retrain"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/store/memory"
)

// fakeProvider serves controllable windows to the handlers.
type fakeProvider struct {
	reference  map[string][]float64
	current    map[string][]float64
	predicted  []int
	truth      []int
	attributes map[string][]string
	metrics    map[string]float64
}

func (f *fakeProvider) FeatureWindows(context.Context, string) (map[string][]float64, map[string][]float64, error) {
	return f.reference, f.current, nil
}

func (f *fakeProvider) PredictionWindow(context.Context, string) ([]int, []int, map[string][]string, error) {
	return f.predicted, f.truth, f.attributes, nil
}

func (f *fakeProvider) CurrentMetrics(context.Context, string) (map[string]float64, error) {
	return f.metrics, nil
}

type trainerStub struct{}

func (trainerStub) Train(_ context.Context, _ *registry.Dataset, cfg entities.RetrainConfig) (*registry.Model, error) {
	return &registry.Model{ID: "candidate", Algorithm: cfg.Algorithm, Metrics: map[string]float64{"f1": 0.9}}, nil
}

func (trainerStub) Validate(_ context.Context, model *registry.Model, _ *registry.Dataset) (map[string]float64, error) {
	return model.Metrics, nil
}

type sourceStub struct{}

func (sourceStub) TrainingData(context.Context, string, int) (*registry.Dataset, error) {
	return &registry.Dataset{Size: 10}, nil
}

func newHandlers(t *testing.T, provider *fakeProvider) (*Handlers, *memory.Store, *alert.Service) {
	t.Helper()
	st := memory.NewStore()
	cfg := config.Default()

	reg := registry.NewInMemory()
	require.NoError(t, reg.Register(&registry.Model{
		ID:      "fraud-v3",
		Name:    "fraud-v3",
		Stage:   registry.StageProduction,
		Metrics: map[string]float64{"f1": 0.85},
	}))

	alerts := alert.NewService(st, nil, cfg.AlertDedupWindow.Duration)
	handlers := &Handlers{
		Provider:  provider,
		Drift:     monitor.NewDriftMonitor(cfg.Drift),
		Fairness:  fairness.NewAnalyzer(cfg.Fairness),
		Baselines: monitor.NewBaselineEvaluator(st),
		Alerts:    alerts,
		Pipeline:  retrain.NewPipeline(st, sourceStub{}, trainerStub{}, reg),
		Reports:   st,
		Retrains:  st,
	}
	return handlers, st, alerts
}

func normal(rng *rand.Rand, n int, mean float64) []float64 {
	sample := make([]float64, n)
	for i := range sample {
		sample[i] = rng.NormFloat64() + mean
	}
	return sample
}

func healthyMetrics() map[string]float64 {
	return map[string]float64{
		"precision":           0.90,
		"recall":              0.86,
		"f1":                  0.88,
		"auc":                 0.94,
		"false_positive_rate": 0.05,
	}
}

func TestDriftCheckSavesReportAndAlerts(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	provider := &fakeProvider{
		reference: map[string][]float64{
			"amount": normal(rng, 1500, 0),
			"age":    normal(rng, 1500, 40),
		},
		current: map[string][]float64{
			"amount": normal(rng, 1500, 3), // severe shift
			"age":    normal(rng, 1500, 40),
		},
		metrics: healthyMetrics(),
	}
	handlers, st, alerts := newHandlers(t, provider)

	job := &entities.MonitoringJob{ID: "j1", Kind: entities.JobKindDriftCheck, ModelID: "fraud-v3"}
	result, err := handlers.DriftCheck(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, entities.StatusCritical, result["overall_status"])
	require.Equal(t, 1, result["drifted_features"])

	report, err := st.GetDriftReport("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, entities.StatusCritical, report.OverallStatus)

	active, cErr := alerts.List(store.AlertFilter{Status: entities.AlertStatusActive})
	require.Nil(t, cErr)
	require.Len(t, active, 1)
	require.Equal(t, entities.AlertTypeDrift, active[0].Type)

	// Critical drift with healthy performance still triggers retraining.
	waitForRetrainJobs(t, st, "fraud-v3", 1)
	jobs, err := st.ListRetrainJobs("fraud-v3", "", 0)
	require.NoError(t, err)
	require.Equal(t, entities.ReasonDriftDetected, jobs[0].Reason)
}

func TestDriftCheckHealthyWindowsStayQuiet(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	provider := &fakeProvider{
		reference: map[string][]float64{"amount": normal(rng, 1500, 0)},
		current:   map[string][]float64{"amount": normal(rng, 1500, 0)},
		metrics:   healthyMetrics(),
	}
	handlers, st, alerts := newHandlers(t, provider)

	job := &entities.MonitoringJob{ID: "j1", Kind: entities.JobKindDriftCheck, ModelID: "fraud-v3"}
	result, err := handlers.DriftCheck(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, entities.StatusOK, result["overall_status"])

	active, cErr := alerts.List(store.AlertFilter{Status: entities.AlertStatusActive})
	require.Nil(t, cErr)
	require.Empty(t, active)

	jobs, err := st.ListRetrainJobs("fraud-v3", "", 0)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestBiasCheckAlertsOnSkewedAttribute(t *testing.T) {
	predicted := make([]int, 0, 400)
	groups := make([]string, 0, 400)
	for i := 0; i < 200; i++ {
		p := 0
		if i < 160 {
			p = 1 // group A selected at 80%
		}
		predicted = append(predicted, p)
		groups = append(groups, "A")
	}
	for i := 0; i < 200; i++ {
		p := 0
		if i < 40 {
			p = 1 // group B selected at 20%
		}
		predicted = append(predicted, p)
		groups = append(groups, "B")
	}

	provider := &fakeProvider{
		predicted:  predicted,
		attributes: map[string][]string{"age_group": groups},
		metrics:    healthyMetrics(),
	}
	handlers, st, alerts := newHandlers(t, provider)

	job := &entities.MonitoringJob{ID: "j2", Kind: entities.JobKindBiasCheck, ModelID: "fraud-v3"}
	result, err := handlers.BiasCheck(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, entities.StatusCritical, result["overall_status"])

	report, err := st.GetBiasReport("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, entities.StatusCritical, report.Attributes["age_group"].Status)

	active, cErr := alerts.List(store.AlertFilter{Status: entities.AlertStatusActive})
	require.Nil(t, cErr)
	require.Len(t, active, 1)
	require.Equal(t, entities.AlertTypeBias, active[0].Type)

	waitForRetrainJobs(t, st, "fraud-v3", 1)
	jobs, err := st.ListRetrainJobs("fraud-v3", "", 0)
	require.NoError(t, err)
	require.Equal(t, entities.ReasonBiasDetected, jobs[0].Reason)
}

func TestPerformanceCheckAlertsOnFailedBaselines(t *testing.T) {
	provider := &fakeProvider{
		metrics: map[string]float64{
			"precision":           0.90,
			"recall":              0.60, // under the 0.80 critical default
			"f1":                  0.88,
			"auc":                 0.94,
			"false_positive_rate": 0.05,
		},
	}
	handlers, st, alerts := newHandlers(t, provider)

	job := &entities.MonitoringJob{ID: "j3", Kind: entities.JobKindPerformanceCheck, ModelID: "fraud-v3"}
	result, err := handlers.PerformanceCheck(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, entities.StatusCritical, result["status"])
	require.Equal(t, 1, result["failed_checks"])

	active, cErr := alerts.List(store.AlertFilter{Status: entities.AlertStatusActive})
	require.Nil(t, cErr)
	require.Len(t, active, 1)
	require.Equal(t, entities.AlertTypePerformance, active[0].Type)
	require.Equal(t, entities.SeverityCritical, active[0].Severity)

	waitForRetrainJobs(t, st, "fraud-v3", 1)
	jobs, err := st.ListRetrainJobs("fraud-v3", "", 0)
	require.NoError(t, err)
	require.Equal(t, entities.ReasonPerformanceDegradation, jobs[0].Reason)
}

func TestScheduledRetrainSkipsWhenOneIsRunning(t *testing.T) {
	provider := &fakeProvider{metrics: healthyMetrics()}
	handlers, st, _ := newHandlers(t, provider)

	// Seed an in-flight retraining job.
	require.NoError(t, st.CreateRetrainJob(&entities.RetrainJob{
		ID:      "in-flight",
		ModelID: "fraud-v3",
		Status:  entities.RetrainTraining,
	}))

	job := &entities.MonitoringJob{ID: "j4", Kind: entities.JobKindModelRetrain, ModelID: "fraud-v3"}
	result, err := handlers.ScheduledRetrain(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, "retraining already in progress", result["skipped"])
}

// waitForRetrainJobs polls for asynchronously triggered retrain jobs.
func waitForRetrainJobs(t *testing.T, st *memory.Store, modelID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		jobs, err := st.ListRetrainJobs(modelID, "", 0)
		require.NoError(t, err)
		if len(jobs) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d retrain jobs for %s", want, modelID)
}
