package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store"
)

// equality tolerance for the eq operator
const eqTolerance = 1e-4

// BaselineEvaluator manages metric thresholds per model and scores the
// model's current metrics against them.
type BaselineEvaluator struct {
	store store.BaselineStore
}

func NewBaselineEvaluator(s store.BaselineStore) *BaselineEvaluator {
	return &BaselineEvaluator{store: s}
}

// SetBaselines validates and atomically replaces the model's baseline set.
func (e *BaselineEvaluator) SetBaselines(modelID string, baselines []*entities.Baseline) *contract.Error {
	now := time.Now().UTC()
	for _, b := range baselines {
		if b.Metric == "" {
			return contract.NewError(contract.ErrorCodeInvalidParameterValue, "baseline metric name is required")
		}
		if !b.Operator.Valid() {
			return contract.NewError(
				contract.ErrorCodeInvalidParameterValue, "invalid baseline operator %q", b.Operator,
			)
		}
		b.ID = uuid.NewString()
		b.ModelID = modelID
		b.CreatedAt = now
		if b.Severity == "" {
			b.Severity = entities.SeverityWarning
		}
	}
	if err := e.store.ReplaceBaselines(modelID, baselines); err != nil {
		return contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store baselines")
	}
	return nil
}

// Baselines returns the model's configured thresholds, falling back to the
// fraud defaults when none are configured.
func (e *BaselineEvaluator) Baselines(modelID string) ([]*entities.Baseline, *contract.Error) {
	baselines, err := e.store.GetBaselines(modelID)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to load baselines")
	}
	if len(baselines) == 0 {
		return DefaultBaselines(modelID), nil
	}
	return baselines, nil
}

// Evaluate scores metrics against every active baseline. A metric missing
// from the map fails its check; the aggregate status is the worst failed
// check's severity.
func (e *BaselineEvaluator) Evaluate(
	modelID string,
	metrics map[string]float64,
) ([]entities.BaselineCheck, entities.HealthStatus, *contract.Error) {
	baselines, cErr := e.Baselines(modelID)
	if cErr != nil {
		return nil, entities.StatusOK, cErr
	}

	checks := make([]entities.BaselineCheck, 0, len(baselines))
	status := entities.StatusOK

	for _, b := range baselines {
		if !b.Active {
			continue
		}

		check := entities.BaselineCheck{
			Metric:    b.Metric,
			Threshold: b.Threshold,
			Operator:  b.Operator,
			Severity:  b.Severity,
		}

		value, reported := metrics[b.Metric]
		if !reported {
			check.Passed = false
			check.Message = fmt.Sprintf("metric %q was not reported", b.Metric)
		} else {
			check.CurrentValue = value
			check.Passed = compare(b.Operator, value, b.Threshold)
			if !check.Passed {
				check.Message = fmt.Sprintf(
					"%s is %.4f, expected %s %.4f", b.Metric, value, b.Operator, b.Threshold,
				)
			}
		}

		if !check.Passed {
			status = status.Worse(severityStatus(b.Severity))
		}
		checks = append(checks, check)
	}

	return checks, status, nil
}

func compare(op entities.BaselineOperator, value, threshold float64) bool {
	switch op {
	case entities.OpGTE:
		return value >= threshold
	case entities.OpLTE:
		return value <= threshold
	case entities.OpGT:
		return value > threshold
	case entities.OpLT:
		return value < threshold
	case entities.OpEQ:
		return math.Abs(value-threshold) < eqTolerance
	default:
		return false
	}
}

func severityStatus(severity entities.AlertSeverity) entities.HealthStatus {
	switch severity {
	case entities.SeverityCritical:
		return entities.StatusCritical
	case entities.SeverityWarning:
		return entities.StatusWarning
	default:
		return entities.StatusOK
	}
}

// DefaultBaselines are the thresholds applied to fraud models that have
// not been given an explicit set.
func DefaultBaselines(modelID string) []*entities.Baseline {
	now := time.Now().UTC()
	defaults := []struct {
		metric    string
		threshold float64
		operator  entities.BaselineOperator
		severity  entities.AlertSeverity
	}{
		{"precision", 0.85, entities.OpGTE, entities.SeverityWarning},
		{"recall", 0.80, entities.OpGTE, entities.SeverityCritical},
		{"f1", 0.82, entities.OpGTE, entities.SeverityWarning},
		{"auc", 0.90, entities.OpGTE, entities.SeverityWarning},
		{"false_positive_rate", 0.10, entities.OpLTE, entities.SeverityWarning},
	}

	baselines := make([]*entities.Baseline, len(defaults))
	for i, d := range defaults {
		baselines[i] = &entities.Baseline{
			ID:        uuid.NewString(),
			ModelID:   modelID,
			Metric:    d.metric,
			Threshold: d.threshold,
			Operator:  d.operator,
			Severity:  d.severity,
			Active:    true,
			CreatedAt: now,
		}
	}
	return baselines
}
