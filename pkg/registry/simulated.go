package registry

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/modelguard/modelguard/pkg/entities"
)

// SimulatedDataSource synthesizes labeled transaction windows so the
// retraining pipeline can run end to end without a feature store.
type SimulatedDataSource struct {
	Rand *rand.Rand
}

func NewSimulatedDataSource(seed int64) *SimulatedDataSource {
	return &SimulatedDataSource{Rand: rand.New(rand.NewSource(seed))}
}

var _ DataSource = (*SimulatedDataSource)(nil)

func (s *SimulatedDataSource) TrainingData(ctx context.Context, modelName string, windowDays int) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Roughly a thousand labeled transactions per lookback day.
	size := windowDays * 1000
	if size < 1000 {
		size = 1000
	}

	dataset := &Dataset{
		Features: map[string][]float64{
			"amount":        make([]float64, size),
			"velocity_24h":  make([]float64, size),
			"merchant_risk": make([]float64, size),
		},
		Labels: make([]int, size),
		Size:   size,
	}
	for i := 0; i < size; i++ {
		dataset.Features["amount"][i] = s.Rand.ExpFloat64() * 120
		dataset.Features["velocity_24h"][i] = s.Rand.NormFloat64()*2 + 4
		dataset.Features["merchant_risk"][i] = s.Rand.Float64()
		if s.Rand.Float64() < 0.02 {
			dataset.Labels[i] = 1
		}
	}
	return dataset, nil
}

// SimulatedTrainer stands in for the training backend: candidates come
// back with plausible fraud metrics jittered around a fixed base.
type SimulatedTrainer struct {
	Rand *rand.Rand
}

func NewSimulatedTrainer(seed int64) *SimulatedTrainer {
	return &SimulatedTrainer{Rand: rand.New(rand.NewSource(seed))}
}

var _ Trainer = (*SimulatedTrainer)(nil)

func (s *SimulatedTrainer) Train(ctx context.Context, dataset *Dataset, cfg entities.RetrainConfig) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Model{
		ID:        uuid.NewString(),
		Algorithm: cfg.Algorithm,
		Stage:     StageStaging,
		Metrics:   s.syntheticMetrics(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *SimulatedTrainer) Validate(ctx context.Context, model *Model, dataset *Dataset) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Validation re-measures with a little noise around the training run.
	metrics := make(map[string]float64, len(model.Metrics))
	for name, value := range model.Metrics {
		metrics[name] = clamp01(value + s.Rand.NormFloat64()*0.005)
	}
	return metrics, nil
}

func (s *SimulatedTrainer) syntheticMetrics() map[string]float64 {
	jitter := func(base float64) float64 {
		return clamp01(base + s.Rand.NormFloat64()*0.015)
	}
	return map[string]float64{
		"precision": jitter(0.88),
		"recall":    jitter(0.84),
		"f1":        jitter(0.86),
		"auc":       jitter(0.93),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
