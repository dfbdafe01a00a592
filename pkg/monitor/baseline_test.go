package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/memory"
)

func newEvaluator() *BaselineEvaluator {
	return NewBaselineEvaluator(memory.NewStore())
}

func TestEvaluateFailedCheckNamesMetricValueOperatorThreshold(t *testing.T) {
	evaluator := newEvaluator()
	cErr := evaluator.SetBaselines("fraud-v3", []*entities.Baseline{
		{Metric: "f1", Threshold: 0.82, Operator: entities.OpGTE, Severity: entities.SeverityWarning, Active: true},
	})
	require.Nil(t, cErr)

	checks, status, cErr := evaluator.Evaluate("fraud-v3", map[string]float64{"f1": 0.80})
	require.Nil(t, cErr)
	require.Len(t, checks, 1)

	check := checks[0]
	require.False(t, check.Passed)
	require.Equal(t, "f1 is 0.8000, expected gte 0.8200", check.Message)
	require.Equal(t, entities.StatusWarning, status)
}

func TestEvaluateOperators(t *testing.T) {
	scenarios := []struct {
		name      string
		operator  entities.BaselineOperator
		threshold float64
		value     float64
		passed    bool
	}{
		{name: "gte at threshold passes", operator: entities.OpGTE, threshold: 0.8, value: 0.8, passed: true},
		{name: "gte below fails", operator: entities.OpGTE, threshold: 0.8, value: 0.79, passed: false},
		{name: "lte above fails", operator: entities.OpLTE, threshold: 0.1, value: 0.12, passed: false},
		{name: "gt at threshold fails", operator: entities.OpGT, threshold: 0.8, value: 0.8, passed: false},
		{name: "lt below passes", operator: entities.OpLT, threshold: 0.1, value: 0.05, passed: true},
		{name: "eq within tolerance passes", operator: entities.OpEQ, threshold: 0.5, value: 0.50005, passed: true},
		{name: "eq outside tolerance fails", operator: entities.OpEQ, threshold: 0.5, value: 0.501, passed: false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			evaluator := newEvaluator()
			cErr := evaluator.SetBaselines("m", []*entities.Baseline{
				{Metric: "x", Threshold: scenario.threshold, Operator: scenario.operator, Active: true},
			})
			require.Nil(t, cErr)

			checks, _, cErr := evaluator.Evaluate("m", map[string]float64{"x": scenario.value})
			require.Nil(t, cErr)
			require.Len(t, checks, 1)
			require.Equal(t, scenario.passed, checks[0].Passed)
		})
	}
}

func TestEvaluateMissingMetricFails(t *testing.T) {
	evaluator := newEvaluator()
	cErr := evaluator.SetBaselines("fraud-v3", []*entities.Baseline{
		{Metric: "recall", Threshold: 0.80, Operator: entities.OpGTE, Severity: entities.SeverityCritical, Active: true},
	})
	require.Nil(t, cErr)

	checks, status, cErr := evaluator.Evaluate("fraud-v3", map[string]float64{"precision": 0.9})
	require.Nil(t, cErr)
	require.Len(t, checks, 1)
	require.False(t, checks[0].Passed)
	require.Contains(t, checks[0].Message, "recall")
	require.Equal(t, entities.StatusCritical, status)
}

func TestEvaluateSkipsInactiveBaselines(t *testing.T) {
	evaluator := newEvaluator()
	cErr := evaluator.SetBaselines("fraud-v3", []*entities.Baseline{
		{Metric: "f1", Threshold: 0.82, Operator: entities.OpGTE, Active: false},
		{Metric: "auc", Threshold: 0.90, Operator: entities.OpGTE, Active: true},
	})
	require.Nil(t, cErr)

	checks, status, cErr := evaluator.Evaluate("fraud-v3", map[string]float64{"f1": 0.5, "auc": 0.95})
	require.Nil(t, cErr)
	require.Len(t, checks, 1)
	require.Equal(t, "auc", checks[0].Metric)
	require.Equal(t, entities.StatusOK, status)
}

func TestEvaluateFallsBackToDefaultBaselines(t *testing.T) {
	evaluator := newEvaluator()

	checks, status, cErr := evaluator.Evaluate("unconfigured", map[string]float64{
		"precision":           0.90,
		"recall":              0.85,
		"f1":                  0.87,
		"auc":                 0.94,
		"false_positive_rate": 0.04,
	})
	require.Nil(t, cErr)
	require.Len(t, checks, 5)
	require.Equal(t, entities.StatusOK, status)

	// A recall collapse trips the critical default.
	_, status, cErr = evaluator.Evaluate("unconfigured", map[string]float64{
		"precision":           0.90,
		"recall":              0.60,
		"f1":                  0.87,
		"auc":                 0.94,
		"false_positive_rate": 0.04,
	})
	require.Nil(t, cErr)
	require.Equal(t, entities.StatusCritical, status)
}

func TestSetBaselinesValidation(t *testing.T) {
	evaluator := newEvaluator()

	cErr := evaluator.SetBaselines("m", []*entities.Baseline{
		{Metric: "", Threshold: 0.5, Operator: entities.OpGTE},
	})
	require.NotNil(t, cErr)

	cErr = evaluator.SetBaselines("m", []*entities.Baseline{
		{Metric: "f1", Threshold: 0.5, Operator: "between"},
	})
	require.NotNil(t, cErr)
}

func TestSetBaselinesReplacesWholeSet(t *testing.T) {
	evaluator := newEvaluator()

	cErr := evaluator.SetBaselines("m", []*entities.Baseline{
		{Metric: "f1", Threshold: 0.8, Operator: entities.OpGTE, Active: true},
		{Metric: "auc", Threshold: 0.9, Operator: entities.OpGTE, Active: true},
	})
	require.Nil(t, cErr)

	cErr = evaluator.SetBaselines("m", []*entities.Baseline{
		{Metric: "precision", Threshold: 0.85, Operator: entities.OpGTE, Active: true},
	})
	require.Nil(t, cErr)

	baselines, cErr := evaluator.Baselines("m")
	require.Nil(t, cErr)
	require.Len(t, baselines, 1)
	require.Equal(t, "precision", baselines[0].Metric)
	require.Equal(t, "m", baselines[0].ModelID)
	require.NotEmpty(t, baselines[0].ID)
}
