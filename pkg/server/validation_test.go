package server

import (
	"testing"
)

type jobKindField struct {
	Value string `validate:"jobkind"`
}

type alertSeverityField struct {
	Value string `validate:"alertseverity"`
}

type retrainReasonField struct {
	Value string `validate:"retrainreason"`
}

type baselineOperatorField struct {
	Value string `validate:"baselineop"`
}

type validationScenario struct {
	name          string
	input         any
	shouldTrigger bool
}

func runScenarios(t *testing.T, scenarios []validationScenario) {
	t.Helper()

	validate := NewValidator()

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			errs := validate.Struct(scenario.input)

			if scenario.shouldTrigger && errs == nil {
				t.Errorf("Expected validation error, got nil")
			}

			if !scenario.shouldTrigger && errs != nil {
				t.Errorf("Expected no validation error, got %v", errs)
			}
		})
	}
}

func TestJobKindValidation(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "drift check",
			input:         jobKindField{Value: "DRIFT_CHECK"},
			shouldTrigger: false,
		},
		{
			name:          "model retrain",
			input:         jobKindField{Value: "MODEL_RETRAIN"},
			shouldTrigger: false,
		},
		{
			name:          "lowercase rejected",
			input:         jobKindField{Value: "drift_check"},
			shouldTrigger: true,
		},
		{
			name:          "empty",
			input:         jobKindField{Value: ""},
			shouldTrigger: true,
		},
	}

	runScenarios(t, scenarios)
}

func TestAlertSeverityValidation(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "critical",
			input:         alertSeverityField{Value: "CRITICAL"},
			shouldTrigger: false,
		},
		{
			name:          "lowercase rejected",
			input:         alertSeverityField{Value: "critical"},
			shouldTrigger: true,
		},
	}

	runScenarios(t, scenarios)
}

func TestRetrainReasonValidation(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "drift detected",
			input:         retrainReasonField{Value: "DRIFT_DETECTED"},
			shouldTrigger: false,
		},
		{
			name:          "manual",
			input:         retrainReasonField{Value: "MANUAL"},
			shouldTrigger: false,
		},
		{
			name:          "unknown reason",
			input:         retrainReasonField{Value: "VIBES"},
			shouldTrigger: true,
		},
	}

	runScenarios(t, scenarios)
}

func TestBaselineOperatorValidation(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "gte",
			input:         baselineOperatorField{Value: "gte"},
			shouldTrigger: false,
		},
		{
			name:          "eq",
			input:         baselineOperatorField{Value: "eq"},
			shouldTrigger: false,
		},
		{
			name:          "unsupported operator",
			input:         baselineOperatorField{Value: "between"},
			shouldTrigger: true,
		},
	}

	runScenarios(t, scenarios)
}
