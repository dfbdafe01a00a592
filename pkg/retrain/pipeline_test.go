package retrain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/store/memory"
)

type fakeSource struct {
	err error
}

func (f *fakeSource) TrainingData(_ context.Context, _ string, _ int) (*registry.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.Dataset{Size: 100}, nil
}

type fakeTrainer struct {
	metrics     map[string]float64
	trainErr    error
	validateErr error
}

func (f *fakeTrainer) Train(_ context.Context, _ *registry.Dataset, cfg entities.RetrainConfig) (*registry.Model, error) {
	if f.trainErr != nil {
		return nil, f.trainErr
	}
	return &registry.Model{ID: "candidate-1", Algorithm: cfg.Algorithm, Metrics: f.metrics}, nil
}

func (f *fakeTrainer) Validate(_ context.Context, model *registry.Model, _ *registry.Dataset) (map[string]float64, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return model.Metrics, nil
}

func testPipeline(t *testing.T, trainer *fakeTrainer, source *fakeSource) (*Pipeline, *registry.InMemory) {
	t.Helper()
	reg := registry.NewInMemory()
	require.NoError(t, reg.Register(&registry.Model{
		ID:      "fraud-v3",
		Name:    "fraud-v3",
		Stage:   registry.StageProduction,
		Metrics: map[string]float64{"f1": 0.80, "precision": 0.85},
	}))
	return NewPipeline(memory.NewStore(), source, trainer, reg), reg
}

func TestTriggerAppliesDefaults(t *testing.T) {
	pipeline, _ := testPipeline(t, &fakeTrainer{}, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonManual, nil)
	require.Nil(t, cErr)
	require.Equal(t, entities.RetrainPending, job.Status)
	require.Equal(t, "xgboost", job.Config.Algorithm)
	require.Equal(t, "f1", job.Config.PrimaryMetric)
	require.Zero(t, job.Progress)
}

func TestTriggerRejectsBadInput(t *testing.T) {
	pipeline, _ := testPipeline(t, &fakeTrainer{}, &fakeSource{})

	_, cErr := pipeline.Trigger("", entities.ReasonManual, nil)
	require.NotNil(t, cErr)

	_, cErr = pipeline.Trigger("fraud-v3", "BOREDOM", nil)
	require.NotNil(t, cErr)
}

func TestRunCompletesAndAutoPromotes(t *testing.T) {
	trainer := &fakeTrainer{metrics: map[string]float64{"f1": 0.86, "precision": 0.88}}
	pipeline, reg := testPipeline(t, trainer, &fakeSource{})

	cfg := entities.DefaultRetrainConfig()
	cfg.AutoPromote = true
	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonDriftDetected, &cfg)
	require.Nil(t, cErr)

	require.NoError(t, pipeline.Run(context.Background(), job.ID))

	job, cErr = pipeline.Get(job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.RetrainCompleted, job.Status)
	require.Equal(t, 1.0, job.Progress)
	require.Equal(t, "candidate-1", job.NewModelID)
	require.NotNil(t, job.CompletedAt)
	require.True(t, job.Comparison.PassesThreshold)
	require.InDelta(t, 0.06, job.Comparison.Improvement["f1"], 1e-9)

	production, err := reg.ProductionModel("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, "candidate-1", production.ID)
}

func TestRunRejectsCandidateBelowThreshold(t *testing.T) {
	trainer := &fakeTrainer{metrics: map[string]float64{"f1": 0.803, "precision": 0.85}}
	pipeline, reg := testPipeline(t, trainer, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonScheduled, nil)
	require.Nil(t, cErr)
	require.NoError(t, pipeline.Run(context.Background(), job.ID))

	job, cErr = pipeline.Get(job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.RetrainRejected, job.Status)
	require.Empty(t, job.NewModelID)
	require.False(t, job.Comparison.PassesThreshold)
	require.True(t, job.Comparison.IsBetter)

	// The incumbent keeps production.
	production, err := reg.ProductionModel("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, "fraud-v3", production.ID)
}

func TestRunFailsOnTrainerError(t *testing.T) {
	trainer := &fakeTrainer{trainErr: errors.New("gpu quota exhausted")}
	pipeline, _ := testPipeline(t, trainer, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonManual, nil)
	require.Nil(t, cErr)
	require.Error(t, pipeline.Run(context.Background(), job.ID))

	job, cErr = pipeline.Get(job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.RetrainFailed, job.Status)
	require.Contains(t, job.Error, "gpu quota exhausted")
	require.NotNil(t, job.CompletedAt)
}

func TestRunFailsOnDataSourceError(t *testing.T) {
	pipeline, _ := testPipeline(t, &fakeTrainer{}, &fakeSource{err: errors.New("feature store offline")})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonNewData, nil)
	require.Nil(t, cErr)
	require.Error(t, pipeline.Run(context.Background(), job.ID))

	job, _ = pipeline.Get(job.ID)
	require.Equal(t, entities.RetrainFailed, job.Status)
}

func TestRunRequiresPendingJob(t *testing.T) {
	trainer := &fakeTrainer{metrics: map[string]float64{"f1": 0.86}}
	pipeline, _ := testPipeline(t, trainer, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonManual, nil)
	require.Nil(t, cErr)
	require.NoError(t, pipeline.Run(context.Background(), job.ID))
	require.Error(t, pipeline.Run(context.Background(), job.ID))
}

func TestManualPromotionFlow(t *testing.T) {
	trainer := &fakeTrainer{metrics: map[string]float64{"f1": 0.86}}
	pipeline, reg := testPipeline(t, trainer, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonManual, nil)
	require.Nil(t, cErr)
	require.NoError(t, pipeline.Run(context.Background(), job.ID))

	job, _ = pipeline.Get(job.ID)
	require.Equal(t, entities.RetrainCompleted, job.Status)
	require.Equal(t, "Awaiting promotion approval", job.CurrentStep)

	// Candidate is registered but not yet serving.
	production, err := reg.ProductionModel("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, "fraud-v3", production.ID)

	job, cErr = pipeline.Promote(job.ID)
	require.Nil(t, cErr)
	require.Equal(t, "Promoted to production", job.CurrentStep)

	production, err = reg.ProductionModel("fraud-v3")
	require.NoError(t, err)
	require.Equal(t, "candidate-1", production.ID)
}

func TestPromoteWithoutCandidateConflicts(t *testing.T) {
	trainer := &fakeTrainer{metrics: map[string]float64{"f1": 0.801}}
	pipeline, _ := testPipeline(t, trainer, &fakeSource{})

	job, cErr := pipeline.Trigger("fraud-v3", entities.ReasonManual, nil)
	require.Nil(t, cErr)
	require.NoError(t, pipeline.Run(context.Background(), job.ID))

	_, cErr = pipeline.Promote(job.ID)
	require.NotNil(t, cErr)
}

func TestShouldRetrainPriority(t *testing.T) {
	scenarios := []struct {
		name                     string
		drift, performance, bias entities.HealthStatus
		want                     bool
		reason                   entities.RetrainReason
	}{
		{name: "all ok", drift: entities.StatusOK, performance: entities.StatusOK, bias: entities.StatusOK, want: false},
		{name: "bias critical wins", drift: entities.StatusCritical, performance: entities.StatusCritical, bias: entities.StatusCritical, want: true, reason: entities.ReasonBiasDetected},
		{name: "performance critical over drift", drift: entities.StatusCritical, performance: entities.StatusCritical, bias: entities.StatusOK, want: true, reason: entities.ReasonPerformanceDegradation},
		{name: "drift critical alone", drift: entities.StatusCritical, performance: entities.StatusOK, bias: entities.StatusWarning, want: true, reason: entities.ReasonDriftDetected},
		{name: "paired warnings trigger", drift: entities.StatusWarning, performance: entities.StatusWarning, bias: entities.StatusOK, want: true, reason: entities.ReasonDriftDetected},
		{name: "single warning does not", drift: entities.StatusWarning, performance: entities.StatusOK, bias: entities.StatusOK, want: false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			got, reason := ShouldRetrain(scenario.drift, scenario.performance, scenario.bias)
			require.Equal(t, scenario.want, got)
			require.Equal(t, scenario.reason, reason)
		})
	}
}
