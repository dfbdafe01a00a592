// Package alert manages the operator-facing alert pipeline: creation
// with deduplication, lifecycle transitions and notification fan-out.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/monitor"
	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/utils"
)

// Notifier delivers a freshly created alert to an external channel.
type Notifier interface {
	Notify(alert *entities.Alert)
}

// LogNotifier writes alerts to the structured log. Critical alerts are
// escalated to the error level so log-based paging picks them up.
type LogNotifier struct{}

func (LogNotifier) Notify(alert *entities.Alert) {
	entry := logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"model_id": alert.ModelID,
		"type":     alert.Type,
		"severity": alert.Severity,
	})
	if alert.Severity == entities.SeverityCritical {
		entry.Errorf("ALERT: %s", alert.Title)
		return
	}
	entry.Warnf("alert: %s", alert.Title)
}

// Service owns the alert lifecycle. The mutex serializes creation so two
// concurrent identical findings cannot both pass the duplicate check.
type Service struct {
	mu          sync.Mutex
	store       store.AlertStore
	notifier    Notifier
	dedupWindow time.Duration
}

func NewService(s store.AlertStore, notifier Notifier, dedupWindow time.Duration) *Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Service{store: s, notifier: notifier, dedupWindow: dedupWindow}
}

// CreateParams is the input for a new alert.
type CreateParams struct {
	ModelID  string
	Type     entities.AlertType
	Severity entities.AlertSeverity
	Title    string
	Message  string
	Details  map[string]any
}

// Create records a new alert unless an equivalent one is already active.
// An ACTIVE alert with the same model, type and title inside the dedup
// window is returned as-is, its created_at untouched.
func (s *Service) Create(params CreateParams) (*entities.Alert, *contract.Error) {
	if !params.Type.Valid() {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "invalid alert type %q", params.Type)
	}
	if !params.Severity.Valid() {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "invalid alert severity %q", params.Severity)
	}
	if params.Title == "" {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "alert title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, err := s.store.FindActiveDuplicate(params.ModelID, params.Type, params.Title, now.Add(-s.dedupWindow))
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "duplicate lookup failed")
	}
	if existing != nil {
		return existing, nil
	}

	alert := &entities.Alert{
		ID:        uuid.NewString(),
		ModelID:   params.ModelID,
		Type:      params.Type,
		Severity:  params.Severity,
		Status:    entities.AlertStatusActive,
		Title:     params.Title,
		Message:   params.Message,
		Details:   params.Details,
		CreatedAt: now,
	}
	if err := s.store.CreateAlert(alert); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store alert")
	}

	s.notifier.Notify(alert)
	return alert, nil
}

// Acknowledge moves an ACTIVE alert to ACKNOWLEDGED. A missing alert
// yields (nil, nil); acknowledging twice is a conflict.
func (s *Service) Acknowledge(id, by string) (*entities.Alert, *contract.Error) {
	alert, err := s.store.GetAlert(id)
	if err != nil {
		return nil, nil
	}
	if alert.Status != entities.AlertStatusActive {
		return nil, contract.NewError(
			contract.ErrorCodeResourceConflict, "alert %q is %s, only ACTIVE alerts can be acknowledged", id, alert.Status,
		)
	}

	alert.Status = entities.AlertStatusAcknowledged
	alert.AcknowledgedAt = utils.PtrTo(time.Now().UTC())
	alert.AcknowledgedBy = by
	if err := s.store.UpdateAlert(alert); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update alert")
	}
	return alert, nil
}

// Resolve closes an alert from either ACTIVE or ACKNOWLEDGED.
func (s *Service) Resolve(id, note string) (*entities.Alert, *contract.Error) {
	alert, err := s.store.GetAlert(id)
	if err != nil {
		return nil, nil
	}
	if alert.Status == entities.AlertStatusResolved {
		return nil, contract.NewError(contract.ErrorCodeResourceConflict, "alert %q is already resolved", id)
	}

	alert.Status = entities.AlertStatusResolved
	alert.ResolvedAt = utils.PtrTo(time.Now().UTC())
	alert.ResolutionNote = note
	if err := s.store.UpdateAlert(alert); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update alert")
	}
	return alert, nil
}

func (s *Service) Get(id string) (*entities.Alert, *contract.Error) {
	alert, err := s.store.GetAlert(id)
	if err != nil {
		return nil, contract.NewNotFound("alert %q not found", id)
	}
	return alert, nil
}

func (s *Service) List(filter store.AlertFilter) ([]*entities.Alert, *contract.Error) {
	alerts, err := s.store.ListAlerts(filter)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list alerts")
	}
	return alerts, nil
}

// Summary aggregates alert counts by status, severity and type.
func (s *Service) Summary() (*entities.AlertSummary, *contract.Error) {
	alerts, err := s.store.ListAlerts(store.AlertFilter{})
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list alerts")
	}

	summary := &entities.AlertSummary{
		Total:      len(alerts),
		ByStatus:   make(map[string]int),
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, alert := range alerts {
		summary.ByStatus[string(alert.Status)]++
		summary.BySeverity[string(alert.Severity)]++
		summary.ByType[string(alert.Type)]++
	}
	return summary, nil
}

// CreateDriftAlert raises an alert for one drifted feature. Severity
// follows the finding's status.
func (s *Service) CreateDriftAlert(modelID string, finding monitor.Finding) (*entities.Alert, *contract.Error) {
	severity := entities.SeverityWarning
	if finding.Status == entities.StatusCritical {
		severity = entities.SeverityCritical
	}
	return s.Create(CreateParams{
		ModelID:  modelID,
		Type:     entities.AlertTypeDrift,
		Severity: severity,
		Title:    fmt.Sprintf("Data drift detected: %s", finding.Feature),
		Message:  monitor.DriftAlertMessage(finding),
		Details: map[string]any{
			"feature":      finding.Feature,
			"psi":          finding.PSI,
			"ks_statistic": finding.KSStatistic,
			"ks_p_value":   finding.KSPValue,
		},
	})
}

// CreatePerformanceAlert raises an alert for a metric that fell under its
// baseline. A relative drop beyond 10% is critical.
func (s *Service) CreatePerformanceAlert(modelID, metric string, current, baseline float64) (*entities.Alert, *contract.Error) {
	drop := 0.0
	if baseline != 0 {
		drop = (baseline - current) / baseline
	}
	severity := entities.SeverityWarning
	if drop > 0.10 {
		severity = entities.SeverityCritical
	}
	return s.Create(CreateParams{
		ModelID:  modelID,
		Type:     entities.AlertTypePerformance,
		Severity: severity,
		Title:    fmt.Sprintf("Performance degradation: %s", metric),
		Message: fmt.Sprintf(
			"%s dropped to %.4f against a baseline of %.4f (%.1f%% drop)", metric, current, baseline, drop*100,
		),
		Details: map[string]any{
			"metric":   metric,
			"current":  current,
			"baseline": baseline,
			"drop_pct": drop * 100,
		},
	})
}

// CreateBiasAlert raises an alert for a protected attribute whose
// fairness verdict left the OK band.
func (s *Service) CreateBiasAlert(
	modelID, attribute string,
	parityDiff, disparateImpact float64,
	status entities.HealthStatus,
) (*entities.Alert, *contract.Error) {
	severity := entities.SeverityWarning
	if status == entities.StatusCritical {
		severity = entities.SeverityCritical
	}
	return s.Create(CreateParams{
		ModelID:  modelID,
		Type:     entities.AlertTypeBias,
		Severity: severity,
		Title:    fmt.Sprintf("Bias detected: %s", attribute),
		Message: fmt.Sprintf(
			"attribute %q shows demographic parity difference %.4f and disparate impact %.4f",
			attribute, parityDiff, disparateImpact,
		),
		Details: map[string]any{
			"attribute":         attribute,
			"parity_difference": parityDiff,
			"disparate_impact":  disparateImpact,
		},
	})
}
