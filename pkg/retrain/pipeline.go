// Package retrain drives the retraining pipeline: data preparation,
// training, validation, comparison against the incumbent and the
// promote-or-reject decision.
package retrain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/registry"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/utils"
)

// Pipeline executes retraining jobs against the training backend and
// model registry.
type Pipeline struct {
	store    store.RetrainStore
	source   registry.DataSource
	trainer  registry.Trainer
	registry registry.Registry
}

func NewPipeline(
	s store.RetrainStore,
	source registry.DataSource,
	trainer registry.Trainer,
	reg registry.Registry,
) *Pipeline {
	return &Pipeline{store: s, source: source, trainer: trainer, registry: reg}
}

// Trigger records a new retraining job in PENDING. The caller decides
// when to Run it; the HTTP layer and the scheduler both run jobs on their
// own goroutines.
func (p *Pipeline) Trigger(
	modelID string,
	reason entities.RetrainReason,
	cfg *entities.RetrainConfig,
) (*entities.RetrainJob, *contract.Error) {
	if modelID == "" {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "model_id is required")
	}
	if !reason.Valid() {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "invalid retrain reason %q", reason)
	}

	config := entities.DefaultRetrainConfig()
	if cfg != nil {
		config = *cfg
	}

	job := &entities.RetrainJob{
		ID:          uuid.NewString(),
		ModelID:     modelID,
		Reason:      reason,
		Status:      entities.RetrainPending,
		Config:      config,
		StartedAt:   time.Now().UTC(),
		CurrentStep: "Queued",
	}
	if err := p.store.CreateRetrainJob(job); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store retrain job")
	}

	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"model_id": modelID,
		"reason":   reason,
	}).Info("retraining triggered")
	return job, nil
}

// Run executes the pipeline for a PENDING job. Stage failures finalize
// the job as FAILED; a candidate under the improvement threshold
// finalizes it as REJECTED.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.store.GetRetrainJob(jobID)
	if err != nil {
		return err
	}
	if job.Status != entities.RetrainPending {
		return contract.NewError(
			contract.ErrorCodeResourceConflict, "retrain job %q is %s, expected PENDING", jobID, job.Status,
		)
	}

	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "model_id": job.ModelID})

	if err := p.advance(job, entities.RetrainDataPreparation, 0.2, "Preparing training data"); err != nil {
		return err
	}
	dataset, err := p.source.TrainingData(ctx, job.ModelID, job.Config.DataWindowDays)
	if err != nil {
		return p.fail(job, log, err)
	}

	if err := p.advance(job, entities.RetrainTraining, 0.4, "Training candidate model"); err != nil {
		return err
	}
	candidate, err := p.trainer.Train(ctx, dataset, job.Config)
	if err != nil {
		return p.fail(job, log, err)
	}

	if err := p.advance(job, entities.RetrainValidation, 0.6, "Validating candidate"); err != nil {
		return err
	}
	metrics, err := p.trainer.Validate(ctx, candidate, dataset)
	if err != nil {
		return p.fail(job, log, err)
	}
	job.Metrics = metrics
	candidate.Metrics = metrics

	if err := p.advance(job, entities.RetrainComparison, 0.8, "Comparing against incumbent"); err != nil {
		return err
	}
	incumbent, err := p.registry.GetModel(job.ModelID)
	if err != nil {
		return p.fail(job, log, err)
	}
	job.Comparison = compare(incumbent.Metrics, metrics, job.Config)

	return p.decide(job, log, candidate)
}

// compare builds the COMPARISON verdict from the incumbent's and the
// candidate's metric maps.
func compare(current, candidate map[string]float64, cfg entities.RetrainConfig) *entities.ComparisonResult {
	improvement := make(map[string]float64, len(candidate))
	for name, value := range candidate {
		improvement[name] = value - current[name]
	}

	primaryGain := candidate[cfg.PrimaryMetric] - current[cfg.PrimaryMetric]
	return &entities.ComparisonResult{
		CurrentMetrics:   current,
		CandidateMetrics: candidate,
		Improvement:      improvement,
		IsBetter:         primaryGain > 0,
		PassesThreshold:  primaryGain >= cfg.MinImprovementThreshold,
	}
}

func (p *Pipeline) decide(job *entities.RetrainJob, log *logrus.Entry, candidate *registry.Model) error {
	job.CompletedAt = utils.PtrTo(time.Now().UTC())
	job.Progress = 1.0

	if !job.Comparison.PassesThreshold {
		job.Status = entities.RetrainRejected
		job.CurrentStep = "Candidate below improvement threshold"
		log.WithField("primary_metric", job.Config.PrimaryMetric).Info("retraining rejected candidate")
		return p.store.UpdateRetrainJob(job)
	}

	candidate.Name = job.ModelID
	if err := p.registry.Register(candidate); err != nil {
		return p.fail(job, log, err)
	}
	job.NewModelID = candidate.ID
	job.Status = entities.RetrainCompleted

	if job.Config.AutoPromote {
		if err := p.registry.Promote(candidate.ID); err != nil {
			return p.fail(job, log, err)
		}
		job.CurrentStep = "Promoted to production"
	} else {
		job.CurrentStep = "Awaiting promotion approval"
	}

	log.WithField("new_model_id", candidate.ID).Info("retraining completed")
	return p.store.UpdateRetrainJob(job)
}

func (p *Pipeline) advance(job *entities.RetrainJob, status entities.RetrainStatus, progress float64, step string) error {
	job.Status = status
	job.Progress = progress
	job.CurrentStep = step
	return p.store.UpdateRetrainJob(job)
}

func (p *Pipeline) fail(job *entities.RetrainJob, log *logrus.Entry, cause error) error {
	job.Status = entities.RetrainFailed
	job.CompletedAt = utils.PtrTo(time.Now().UTC())
	job.Error = cause.Error()
	log.WithError(cause).Error("retraining failed")
	if err := p.store.UpdateRetrainJob(job); err != nil {
		return err
	}
	return cause
}

// Promote pushes a completed job's candidate to production. Used when
// auto_promote was off and an operator signs off.
func (p *Pipeline) Promote(jobID string) (*entities.RetrainJob, *contract.Error) {
	job, err := p.store.GetRetrainJob(jobID)
	if err != nil {
		return nil, contract.NewNotFound("retrain job %q not found", jobID)
	}
	if job.Status != entities.RetrainCompleted || job.NewModelID == "" {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "retrain job %q has no promotable candidate", jobID,
		)
	}

	if err := p.registry.Promote(job.NewModelID); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "promotion failed")
	}
	job.CurrentStep = "Promoted to production"
	if err := p.store.UpdateRetrainJob(job); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update retrain job")
	}
	return job, nil
}

func (p *Pipeline) Get(jobID string) (*entities.RetrainJob, *contract.Error) {
	job, err := p.store.GetRetrainJob(jobID)
	if err != nil {
		return nil, contract.NewNotFound("retrain job %q not found", jobID)
	}
	return job, nil
}

func (p *Pipeline) List(modelID string, status entities.RetrainStatus, limit int) ([]*entities.RetrainJob, *contract.Error) {
	jobs, err := p.store.ListRetrainJobs(modelID, status, limit)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list retrain jobs")
	}
	return jobs, nil
}

// ShouldRetrain applies the retraining policy to the model's current
// health verdicts. Bias outranks performance outranks drift; paired
// warnings on drift and performance also trigger.
func ShouldRetrain(drift, performance, bias entities.HealthStatus) (bool, entities.RetrainReason) {
	switch {
	case bias == entities.StatusCritical:
		return true, entities.ReasonBiasDetected
	case performance == entities.StatusCritical:
		return true, entities.ReasonPerformanceDegradation
	case drift == entities.StatusCritical:
		return true, entities.ReasonDriftDetected
	case drift == entities.StatusWarning && performance == entities.StatusWarning:
		return true, entities.ReasonDriftDetected
	default:
		return false, ""
	}
}
