// Package registry abstracts the model registry, training backend and
// feature store the health pipeline talks to. The in-memory
// implementations back tests and the memory:// development mode; a real
// deployment plugs in its MLOps platform behind the same interfaces.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modelguard/modelguard/pkg/entities"
)

// ModelStage is the registry lifecycle stage of a model version.
type ModelStage string

const (
	StageStaging    ModelStage = "STAGING"
	StageProduction ModelStage = "PRODUCTION"
	StageArchived   ModelStage = "ARCHIVED"
)

// Model is one registered model version.
type Model struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Version   int                `json:"version"`
	Stage     ModelStage         `json:"stage"`
	Algorithm string             `json:"algorithm"`
	Metrics   map[string]float64 `json:"metrics"`
	CreatedAt time.Time          `json:"created_at"`
}

// Registry is the model registry surface the pipeline needs: resolve the
// production version, register candidates and move versions between
// stages. Promote archives the previous production version of the same
// name.
type Registry interface {
	GetModel(id string) (*Model, error)
	ProductionModel(name string) (*Model, error)
	Register(model *Model) error
	Promote(id string) error
	Archive(id string) error
}

// Dataset is a training or validation slice pulled from the feature store.
type Dataset struct {
	Features map[string][]float64
	Labels   []int
	Size     int
}

// DataSource provides labeled training data for a model over a lookback
// window.
type DataSource interface {
	TrainingData(ctx context.Context, modelName string, windowDays int) (*Dataset, error)
}

// Trainer runs a training job and validates candidates on held-out data.
type Trainer interface {
	Train(ctx context.Context, dataset *Dataset, cfg entities.RetrainConfig) (*Model, error)
	Validate(ctx context.Context, model *Model, dataset *Dataset) (map[string]float64, error)
}

// InMemory is a mutex-guarded Registry for tests and local runs.
type InMemory struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewInMemory() *InMemory {
	return &InMemory{models: make(map[string]*Model)}
}

var _ Registry = (*InMemory)(nil)

func (r *InMemory) GetModel(id string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model %q not found", id)
	}
	clone := *model
	return &clone, nil
}

func (r *InMemory) ProductionModel(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, model := range r.models {
		if model.Name == name && model.Stage == StageProduction {
			clone := *model
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("no production model named %q", name)
}

func (r *InMemory) Register(model *Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if model.Stage == "" {
		model.Stage = StageStaging
	}
	if _, ok := r.models[model.ID]; ok {
		return fmt.Errorf("model %q already registered", model.ID)
	}
	clone := *model
	r.models[model.ID] = &clone
	return nil
}

func (r *InMemory) Promote(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate, ok := r.models[id]
	if !ok {
		return fmt.Errorf("model %q not found", id)
	}
	for _, model := range r.models {
		if model.Name == candidate.Name && model.Stage == StageProduction && model.ID != id {
			model.Stage = StageArchived
		}
	}
	candidate.Stage = StageProduction
	return nil
}

func (r *InMemory) Archive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	model, ok := r.models[id]
	if !ok {
		return fmt.Errorf("model %q not found", id)
	}
	model.Stage = StageArchived
	return nil
}
