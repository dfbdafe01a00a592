// Package fairness computes bias metrics for model predictions across
// protected groups and hosts the pluggable mitigation strategies.
package fairness

import (
	"math"
	"time"

	"github.com/modelguard/modelguard/pkg/config"
	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
)

// GroupRates holds the per-group confusion rates for one protected group.
type GroupRates struct {
	SelectionRate     float64 `json:"selection_rate"`
	TruePositiveRate  float64 `json:"true_positive_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	FalseNegativeRate float64 `json:"false_negative_rate"`
	Accuracy          float64 `json:"accuracy"`
	Count             int     `json:"count"`
}

// Metrics is the full fairness picture for one protected attribute.
type Metrics struct {
	DemographicParityDiff  float64               `json:"demographic_parity_difference"`
	DemographicParityRatio float64               `json:"demographic_parity_ratio"`
	EqualizedOddsDiff      float64               `json:"equalized_odds_difference"`
	DisparateImpact        float64               `json:"disparate_impact"`
	AccuracyDiff           float64               `json:"accuracy_difference"`
	Groups                 map[string]GroupRates `json:"groups"`
	Status                 entities.HealthStatus `json:"status"`
}

// Analyzer derives fairness verdicts from predictions grouped by a
// protected attribute.
type Analyzer struct {
	thresholds config.FairnessThresholds
}

func NewAnalyzer(thresholds config.FairnessThresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// checkLengths rejects a window whose parallel slices disagree, which
// would otherwise index out of range below.
func checkLengths(predicted, truth []int, groups []string) *contract.Error {
	if len(groups) != len(predicted) {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			"groups has %d entries but predicted has %d", len(groups), len(predicted),
		)
	}
	if truth != nil && len(truth) != len(predicted) {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			"truth has %d entries but predicted has %d", len(truth), len(predicted),
		)
	}
	return nil
}

// Analyze computes per-group rates and the derived disparity metrics for
// one protected attribute. truth may be nil when ground-truth labels are
// not yet available; TPR/FPR/FNR are then reported as zero.
func (a *Analyzer) Analyze(predicted []int, truth []int, groups []string) (Metrics, *contract.Error) {
	if cErr := checkLengths(predicted, truth, groups); cErr != nil {
		return Metrics{}, cErr
	}

	byGroup := make(map[string]GroupRates)

	for _, g := range uniqueGroups(groups) {
		var selected, positives, negatives, tp, fp, fn, correct, total int

		for i, group := range groups {
			if group != g {
				continue
			}
			total++
			if predicted[i] == 1 {
				selected++
			}
			if truth == nil {
				continue
			}
			switch truth[i] {
			case 1:
				positives++
				if predicted[i] == 1 {
					tp++
				} else {
					fn++
				}
			case 0:
				negatives++
				if predicted[i] == 1 {
					fp++
				}
			}
			if predicted[i] == truth[i] {
				correct++
			}
		}

		rates := GroupRates{Count: total}
		if total > 0 {
			rates.SelectionRate = float64(selected) / float64(total)
		}
		if positives > 0 {
			rates.TruePositiveRate = float64(tp) / float64(positives)
			rates.FalseNegativeRate = float64(fn) / float64(positives)
		}
		if negatives > 0 {
			rates.FalsePositiveRate = float64(fp) / float64(negatives)
		}
		if truth != nil && total > 0 {
			rates.Accuracy = float64(correct) / float64(total)
		}
		byGroup[g] = rates
	}

	metrics := deriveMetrics(byGroup)
	metrics.Status = a.status(metrics)
	return metrics, nil
}

func deriveMetrics(byGroup map[string]GroupRates) Metrics {
	metrics := Metrics{
		Groups:                 byGroup,
		DemographicParityRatio: 1,
		DisparateImpact:        1,
	}
	if len(byGroup) == 0 {
		return metrics
	}

	minRate, maxRate := math.Inf(1), math.Inf(-1)
	minTPR, maxTPR := math.Inf(1), math.Inf(-1)
	minFPR, maxFPR := math.Inf(1), math.Inf(-1)
	minAcc, maxAcc := math.Inf(1), math.Inf(-1)

	for _, rates := range byGroup {
		minRate = math.Min(minRate, rates.SelectionRate)
		maxRate = math.Max(maxRate, rates.SelectionRate)
		minTPR = math.Min(minTPR, rates.TruePositiveRate)
		maxTPR = math.Max(maxTPR, rates.TruePositiveRate)
		minFPR = math.Min(minFPR, rates.FalsePositiveRate)
		maxFPR = math.Max(maxFPR, rates.FalsePositiveRate)
		minAcc = math.Min(minAcc, rates.Accuracy)
		maxAcc = math.Max(maxAcc, rates.Accuracy)
	}

	metrics.DemographicParityDiff = maxRate - minRate
	metrics.EqualizedOddsDiff = math.Max(maxTPR-minTPR, maxFPR-minFPR)
	metrics.AccuracyDiff = maxAcc - minAcc

	if maxRate > 0 {
		metrics.DemographicParityRatio = minRate / maxRate
		metrics.DisparateImpact = minRate / maxRate
	}

	return metrics
}

// status applies the 80% rule and parity thresholds: parity beyond twice
// the warning threshold or disparate impact more than 0.1 under the
// threshold is critical.
func (a *Analyzer) status(m Metrics) entities.HealthStatus {
	switch {
	case m.DemographicParityDiff > a.thresholds.DemographicParity*2 ||
		m.DisparateImpact < a.thresholds.DisparateImpact-0.1:
		return entities.StatusCritical
	case m.DemographicParityDiff > a.thresholds.DemographicParity ||
		m.DisparateImpact < a.thresholds.DisparateImpact:
		return entities.StatusWarning
	default:
		return entities.StatusOK
	}
}

// AnalyzeAll evaluates every protected attribute and returns the
// per-attribute verdicts plus the worst aggregate status.
func (a *Analyzer) AnalyzeAll(
	predicted []int,
	truth []int,
	attributes map[string][]string,
) (map[string]Metrics, entities.HealthStatus, *contract.Error) {
	results := make(map[string]Metrics, len(attributes))
	overall := entities.StatusOK

	for attr, groups := range attributes {
		metrics, cErr := a.Analyze(predicted, truth, groups)
		if cErr != nil {
			return nil, "", contract.NewError(
				contract.ErrorCodeInvalidParameterValue, "attribute %q: %s", attr, cErr.Message,
			)
		}
		results[attr] = metrics
		overall = overall.Worse(metrics.Status)
	}

	return results, overall, nil
}

// ToReport converts analyzer output into the persisted BiasReport shape.
func ToReport(modelID string, results map[string]Metrics, overall entities.HealthStatus) *entities.BiasReport {
	attributes := make(map[string]entities.AttributeBias, len(results))
	for attr, m := range results {
		rates := make(map[string]float64, len(m.Groups))
		for g, r := range m.Groups {
			rates[g] = r.SelectionRate
		}
		attributes[attr] = entities.AttributeBias{
			DemographicParityDiff: m.DemographicParityDiff,
			EqualizedOddsDiff:     m.EqualizedOddsDiff,
			DisparateImpact:       m.DisparateImpact,
			GroupRates:            rates,
			Status:                m.Status,
		}
	}
	return &entities.BiasReport{
		ModelID:       modelID,
		ComputedAt:    time.Now().UTC(),
		OverallStatus: overall,
		Attributes:    attributes,
	}
}

func uniqueGroups(groups []string) []string {
	seen := make(map[string]struct{}, 4)
	out := make([]string, 0, 4)
	for _, g := range groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
