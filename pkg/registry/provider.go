package registry

import (
	"context"
	"math/rand"
)

// SimulatedProvider synthesizes the monitoring windows the scheduled
// health checks consume. Production deployments replace this with a
// provider backed by the inference log.
type SimulatedProvider struct {
	Rand     *rand.Rand
	Registry Registry
}

func NewSimulatedProvider(seed int64, reg Registry) *SimulatedProvider {
	return &SimulatedProvider{Rand: rand.New(rand.NewSource(seed)), Registry: reg}
}

// FeatureWindows returns a reference window and a current window drawn
// from the same distributions, so a healthy deployment stays quiet.
func (p *SimulatedProvider) FeatureWindows(ctx context.Context, modelID string) (map[string][]float64, map[string][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return p.window(2000), p.window(1000), nil
}

func (p *SimulatedProvider) window(size int) map[string][]float64 {
	features := map[string][]float64{
		"amount":        make([]float64, size),
		"velocity_24h":  make([]float64, size),
		"merchant_risk": make([]float64, size),
	}
	for i := 0; i < size; i++ {
		features["amount"][i] = p.Rand.ExpFloat64() * 120
		features["velocity_24h"][i] = p.Rand.NormFloat64()*2 + 4
		features["merchant_risk"][i] = p.Rand.Float64()
	}
	return features
}

// PredictionWindow returns recent scored transactions with labels and
// the protected attributes the fairness analyzer groups on.
func (p *SimulatedProvider) PredictionWindow(ctx context.Context, modelID string) ([]int, []int, map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	const size = 1000
	regions := []string{"domestic", "international"}
	ageBands := []string{"18-30", "31-50", "51+"}

	predicted := make([]int, size)
	truth := make([]int, size)
	attributes := map[string][]string{
		"region":   make([]string, size),
		"age_band": make([]string, size),
	}
	for i := 0; i < size; i++ {
		if p.Rand.Float64() < 0.03 {
			predicted[i] = 1
		}
		if p.Rand.Float64() < 0.02 {
			truth[i] = 1
		}
		attributes["region"][i] = regions[p.Rand.Intn(len(regions))]
		attributes["age_band"][i] = ageBands[p.Rand.Intn(len(ageBands))]
	}
	return predicted, truth, attributes, nil
}

// CurrentMetrics reports the production model's registered metrics, or
// the model's own when it is not in production yet.
func (p *SimulatedProvider) CurrentMetrics(ctx context.Context, modelID string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, err := p.Registry.GetModel(modelID)
	if err != nil {
		return nil, err
	}
	if production, err := p.Registry.ProductionModel(model.Name); err == nil {
		model = production
	}

	metrics := make(map[string]float64, len(model.Metrics))
	for name, value := range model.Metrics {
		metrics[name] = value
	}
	return metrics, nil
}
