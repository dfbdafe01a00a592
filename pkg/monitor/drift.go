// Package monitor evaluates model health: feature drift against a
// reference window and metric baselines against current performance.
package monitor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/stats"
)

// Finding is one feature that warrants operator attention; the alert
// pipeline turns findings into alerts.
type Finding struct {
	Feature     string
	PSI         float64
	KSStatistic float64
	KSPValue    float64
	Status      entities.HealthStatus
}

// DriftMonitor scores current feature distributions against their
// reference windows. Thresholds may be retuned at runtime, so reads go
// through Thresholds.
type DriftMonitor struct {
	mu         sync.RWMutex
	thresholds config.DriftThresholds
}

func NewDriftMonitor(thresholds config.DriftThresholds) *DriftMonitor {
	return &DriftMonitor{thresholds: thresholds}
}

// Thresholds returns the decision points currently in effect.
func (m *DriftMonitor) Thresholds() config.DriftThresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// SetThresholds replaces the decision points for subsequent checks.
func (m *DriftMonitor) SetThresholds(t config.DriftThresholds) *contract.Error {
	if t.Bins < 2 {
		return contract.NewError(contract.ErrorCodeInvalidParameterValue, "bins must be at least 2, got %d", t.Bins)
	}
	if t.PSIWarning <= 0 || t.PSICritical <= t.PSIWarning {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			"psi thresholds must satisfy 0 < warning < critical, got %.3f and %.3f", t.PSIWarning, t.PSICritical,
		)
	}
	if t.KSAlpha <= 0 || t.KSAlpha >= 1 {
		return contract.NewError(contract.ErrorCodeInvalidParameterValue, "ks_alpha must be inside (0, 1), got %.3f", t.KSAlpha)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
	return nil
}

// EvaluateFeature computes PSI and the two-sample KS test for one numeric
// feature. previous, when non-nil, is the feature's verdict from the prior
// report and drives the trend label.
func (m *DriftMonitor) EvaluateFeature(reference, current []float64, previous *entities.FeatureDrift) entities.FeatureDrift {
	drift := entities.FeatureDrift{
		RefMean:  stats.Mean(reference),
		RefStd:   stats.Std(reference),
		CurMean:  stats.Mean(current),
		CurStd:   stats.Std(current),
		RefCount: len(reference),
		CurCount: len(current),
	}

	thresholds := m.Thresholds()
	drift.PSI = stats.PSI(reference, current, thresholds.Bins)
	drift.KSStatistic, drift.KSPValue = stats.KolmogorovSmirnov(reference, current)
	drift.Status = featureStatus(drift, thresholds)
	drift.Trend = trend(drift.PSI, previous)

	return drift
}

// featureStatus applies the PSI severity bands, with the KS test as a
// second trigger: a significant KS result with a non-trivial statistic is
// at least a warning even when PSI stays under its band.
func featureStatus(drift entities.FeatureDrift, thresholds config.DriftThresholds) entities.HealthStatus {
	status := entities.StatusOK
	switch {
	case drift.PSI > thresholds.PSICritical:
		status = entities.StatusCritical
	case drift.PSI > thresholds.PSIWarning:
		status = entities.StatusWarning
	}
	if drift.KSPValue < thresholds.KSAlpha && drift.KSStatistic > 0.1 {
		status = status.Worse(entities.StatusWarning)
	}
	return status
}

func trend(psi float64, previous *entities.FeatureDrift) string {
	if previous == nil {
		return "NEW"
	}
	switch delta := psi - previous.PSI; {
	case delta > 0.02:
		return "DEGRADING"
	case delta < -0.02:
		return "IMPROVING"
	default:
		return "STABLE"
	}
}

// Check evaluates every feature present in both windows and produces the
// model's drift report plus the findings that need alerts. previous may be
// nil on the first check for a model.
func (m *DriftMonitor) Check(
	modelID string,
	reference, current map[string][]float64,
	previous *entities.DriftReport,
) (*entities.DriftReport, []Finding) {
	report := &entities.DriftReport{
		ModelID:       modelID,
		ComputedAt:    time.Now().UTC(),
		OverallStatus: entities.StatusOK,
		Features:      make(map[string]entities.FeatureDrift, len(reference)),
	}

	var findings []Finding
	for feature, refSample := range reference {
		curSample, ok := current[feature]
		if !ok {
			continue
		}

		var prior *entities.FeatureDrift
		if previous != nil {
			if p, ok := previous.Features[feature]; ok {
				prior = &p
			}
		}

		drift := m.EvaluateFeature(refSample, curSample, prior)
		report.Features[feature] = drift
		report.OverallStatus = report.OverallStatus.Worse(drift.Status)

		if drift.Status != entities.StatusOK {
			report.DriftedFeatures++
			findings = append(findings, Finding{
				Feature:     feature,
				PSI:         drift.PSI,
				KSStatistic: drift.KSStatistic,
				KSPValue:    drift.KSPValue,
				Status:      drift.Status,
			})
		}
	}

	return report, findings
}

// CategoricalDrift is the verdict for a categorical feature, scored with a
// chi-square homogeneity test plus PSI over the category proportions.
type CategoricalDrift struct {
	ChiSquare float64               `json:"chi_square"`
	PValue    float64               `json:"p_value"`
	PSI       float64               `json:"psi"`
	Status    entities.HealthStatus `json:"status"`
}

// EvaluateCategorical scores one categorical feature from its reference
// and current category counts.
func (m *DriftMonitor) EvaluateCategorical(reference, current map[string]int) CategoricalDrift {
	thresholds := m.Thresholds()
	drift := CategoricalDrift{Status: entities.StatusOK}
	drift.ChiSquare, drift.PValue = stats.ChiSquare(reference, current)
	drift.PSI = categoricalPSI(reference, current)

	switch {
	case drift.PSI > thresholds.PSICritical:
		drift.Status = entities.StatusCritical
	case drift.PSI > thresholds.PSIWarning || drift.PValue < thresholds.KSAlpha:
		drift.Status = entities.StatusWarning
	}
	return drift
}

// categoricalPSI applies the PSI formula to category proportions instead
// of histogram bins.
func categoricalPSI(reference, current map[string]int) float64 {
	refTotal, curTotal := 0, 0
	for _, c := range reference {
		refTotal += c
	}
	for _, c := range current {
		curTotal += c
	}
	if refTotal == 0 || curTotal == 0 {
		return 0
	}

	categories := make(map[string]struct{}, len(reference))
	for c := range reference {
		categories[c] = struct{}{}
	}
	for c := range current {
		categories[c] = struct{}{}
	}

	const epsilon = 1e-6
	psi := 0.0
	for c := range categories {
		refPct := float64(reference[c])/float64(refTotal) + epsilon
		curPct := float64(current[c])/float64(curTotal) + epsilon
		psi += (curPct - refPct) * math.Log(curPct/refPct)
	}
	return psi
}

// Summary condenses a drift report into the fields the dashboard shows.
func Summary(report *entities.DriftReport) map[string]any {
	worst := ""
	worstPSI := 0.0
	for feature, drift := range report.Features {
		if drift.PSI > worstPSI {
			worstPSI = drift.PSI
			worst = feature
		}
	}
	return map[string]any{
		"model_id":         report.ModelID,
		"overall_status":   report.OverallStatus,
		"features_checked": len(report.Features),
		"drifted_features": report.DriftedFeatures,
		"worst_feature":    worst,
		"worst_psi":        worstPSI,
		"computed_at":      report.ComputedAt.Format(time.RFC3339),
	}
}

// DriftAlertMessage renders the operator-facing message for a finding.
func DriftAlertMessage(finding Finding) string {
	return fmt.Sprintf(
		"feature %q drifted: PSI=%.4f, KS=%.4f (p=%.4f)",
		finding.Feature, finding.PSI, finding.KSStatistic, finding.KSPValue,
	)
}
