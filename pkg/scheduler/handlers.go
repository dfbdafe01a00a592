package scheduler

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/abtest"
	"github.com/modelguard/modelguard/pkg/alert"
	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/fairness"
	"github.com/modelguard/modelguard/pkg/monitor"
	"github.com/modelguard/modelguard/pkg/retrain"
	"github.com/modelguard/modelguard/pkg/store"
)

// DataProvider hands the handlers the feature and prediction windows
// they score. Production wires this to the inference log; tests and the
// memory mode use synthetic windows.
type DataProvider interface {
	// FeatureWindows returns the reference and current numeric feature
	// windows for a model.
	FeatureWindows(ctx context.Context, modelID string) (reference, current map[string][]float64, err error)
	// PredictionWindow returns recent predictions with their ground-truth
	// labels (nil when unlabeled) and protected attribute values.
	PredictionWindow(ctx context.Context, modelID string) (predicted, truth []int, attributes map[string][]string, err error)
	// CurrentMetrics returns the model's latest performance metrics.
	CurrentMetrics(ctx context.Context, modelID string) (map[string]float64, error)
}

// Handlers wires the health checks into scheduler jobs.
type Handlers struct {
	Provider  DataProvider
	Drift     *monitor.DriftMonitor
	Fairness  *fairness.Analyzer
	Baselines *monitor.BaselineEvaluator
	Alerts    *alert.Service
	Pipeline  *retrain.Pipeline
	ABTests   *abtest.Service
	Reports   store.ReportStore
	Retrains  store.RetrainStore
}

// Register binds every handler to its job kind.
func (h *Handlers) Register(s *Scheduler) {
	s.Register(entities.JobKindDriftCheck, h.DriftCheck)
	s.Register(entities.JobKindBiasCheck, h.BiasCheck)
	s.Register(entities.JobKindPerformanceCheck, h.PerformanceCheck)
	s.Register(entities.JobKindModelRetrain, h.ScheduledRetrain)
	s.Register(entities.JobKindDataCleanup, h.DataCleanup)
}

// DriftCheck scores the model's current feature windows, persists the
// report, alerts on every drifted feature and reconsiders retraining.
func (h *Handlers) DriftCheck(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error) {
	reference, current, err := h.Provider.FeatureWindows(ctx, job.ModelID)
	if err != nil {
		return nil, err
	}

	previous, _ := h.Reports.GetDriftReport(job.ModelID)
	report, findings := h.Drift.Check(job.ModelID, reference, current, previous)
	if err := h.Reports.SaveDriftReport(report); err != nil {
		return nil, err
	}

	for _, finding := range findings {
		if _, cErr := h.Alerts.CreateDriftAlert(job.ModelID, finding); cErr != nil {
			logrus.WithError(cErr).WithField("feature", finding.Feature).Error("drift alert failed")
		}
	}

	h.maybeRetrain(ctx, job.ModelID)
	return monitor.Summary(report), nil
}

// BiasCheck runs the fairness analyzer over the latest prediction window
// and alerts per flagged attribute.
func (h *Handlers) BiasCheck(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error) {
	predicted, truth, attributes, err := h.Provider.PredictionWindow(ctx, job.ModelID)
	if err != nil {
		return nil, err
	}

	results, overall, cErr := h.Fairness.AnalyzeAll(predicted, truth, attributes)
	if cErr != nil {
		return nil, cErr
	}
	report := fairness.ToReport(job.ModelID, results, overall)
	if err := h.Reports.SaveBiasReport(report); err != nil {
		return nil, err
	}

	for attr, metrics := range results {
		if metrics.Status == entities.StatusOK {
			continue
		}
		_, cErr := h.Alerts.CreateBiasAlert(
			job.ModelID, attr, metrics.DemographicParityDiff, metrics.DisparateImpact, metrics.Status,
		)
		if cErr != nil {
			logrus.WithError(cErr).WithField("attribute", attr).Error("bias alert failed")
		}
	}

	h.maybeRetrain(ctx, job.ModelID)
	return map[string]any{
		"model_id":           job.ModelID,
		"overall_status":     overall,
		"attributes_checked": len(results),
	}, nil
}

// PerformanceCheck evaluates current metrics against the model's
// baselines and alerts per failed check.
func (h *Handlers) PerformanceCheck(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error) {
	metrics, err := h.Provider.CurrentMetrics(ctx, job.ModelID)
	if err != nil {
		return nil, err
	}

	checks, status, cErr := h.Baselines.Evaluate(job.ModelID, metrics)
	if cErr != nil {
		return nil, cErr
	}

	failed := 0
	for _, check := range checks {
		if check.Passed {
			continue
		}
		failed++
		if _, aErr := h.Alerts.CreatePerformanceAlert(
			job.ModelID, check.Metric, check.CurrentValue, check.Threshold,
		); aErr != nil {
			logrus.WithError(aErr).WithField("metric", check.Metric).Error("performance alert failed")
		}
	}

	h.maybeRetrain(ctx, job.ModelID)
	return map[string]any{
		"model_id":      job.ModelID,
		"status":        status,
		"checks":        len(checks),
		"failed_checks": failed,
	}, nil
}

// ScheduledRetrain triggers a routine retraining run.
func (h *Handlers) ScheduledRetrain(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error) {
	retrainJob, cErr := h.trigger(ctx, job.ModelID, entities.ReasonScheduled)
	if cErr != nil {
		return nil, cErr
	}
	if retrainJob == nil {
		return map[string]any{"skipped": "retraining already in progress"}, nil
	}
	return map[string]any{"retrain_job_id": retrainJob.ID}, nil
}

// DataCleanup closes out overdue experiments. Retention policies for run
// history and resolved alerts belong here too; the stores keep
// everything until they land.
func (h *Handlers) DataCleanup(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error) {
	result := map[string]any{"cleaned": 0}
	if h.ABTests == nil {
		return result, nil
	}

	concluded, cErr := h.ABTests.ConcludeExpired()
	if cErr != nil {
		return nil, cErr
	}
	if concluded != nil {
		result["concluded_ab_test"] = concluded.ID
	}
	return result, nil
}

// maybeRetrain re-reads the model's health verdicts and triggers the
// pipeline when the retraining policy says so.
func (h *Handlers) maybeRetrain(ctx context.Context, modelID string) {
	driftStatus := entities.StatusOK
	if report, err := h.Reports.GetDriftReport(modelID); err == nil {
		driftStatus = report.OverallStatus
	}

	biasStatus := entities.StatusOK
	if report, err := h.Reports.GetBiasReport(modelID); err == nil {
		biasStatus = report.OverallStatus
	}

	perfStatus := entities.StatusOK
	if metrics, err := h.Provider.CurrentMetrics(ctx, modelID); err == nil {
		if _, status, cErr := h.Baselines.Evaluate(modelID, metrics); cErr == nil {
			perfStatus = status
		}
	}

	should, reason := retrain.ShouldRetrain(driftStatus, perfStatus, biasStatus)
	if !should {
		return
	}
	if _, cErr := h.trigger(ctx, modelID, reason); cErr != nil {
		logrus.WithError(cErr).WithField("model_id", modelID).Error("automatic retraining failed to trigger")
	}
}

// trigger starts a retraining run unless one is already in flight for
// the model. Returns (nil, nil) when skipped.
func (h *Handlers) trigger(
	ctx context.Context,
	modelID string,
	reason entities.RetrainReason,
) (*entities.RetrainJob, *contract.Error) {
	existing, err := h.Retrains.ListRetrainJobs(modelID, "", 0)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list retrain jobs")
	}
	for _, job := range existing {
		if !job.Status.Terminal() {
			return nil, nil
		}
	}

	job, cErr := h.Pipeline.Trigger(modelID, reason, nil)
	if cErr != nil {
		return nil, cErr
	}
	go func() {
		if err := h.Pipeline.Run(ctx, job.ID); err != nil {
			logrus.WithError(err).WithField("job_id", job.ID).Error("retraining run failed")
		}
	}()
	return job, nil
}
