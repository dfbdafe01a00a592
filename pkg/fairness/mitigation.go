package fairness

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/contract"
)

// Strategy selects the bias mitigation approach.
type Strategy string

const (
	// StrategyReweigh adjusts sample weights ahead of retraining
	// (pre-processing). Predictions are unchanged; the weights feed the
	// next training run.
	StrategyReweigh Strategy = "REWEIGH"
	// StrategyGroupThreshold re-derives decision thresholds per group so
	// selection rates equalize (post-processing).
	StrategyGroupThreshold Strategy = "GROUP_THRESHOLD"
	// StrategyConstrained stands for in-training constrained
	// optimization, which requires a trainer-side backend.
	StrategyConstrained Strategy = "CONSTRAINED"
)

// MitigationResult reports metrics before and after mitigation plus the
// signed improvement per disparity metric. A strategy without a usable
// backend returns the original metrics unchanged.
type MitigationResult struct {
	Strategy    Strategy           `json:"strategy"`
	Original    Metrics            `json:"original_metrics"`
	Mitigated   Metrics            `json:"mitigated_metrics"`
	Improvement map[string]float64 `json:"improvement"`
	Weights     []float64          `json:"weights,omitempty"`
	Thresholds  map[string]float64 `json:"thresholds,omitempty"`
}

// Mitigate applies the chosen strategy to scored predictions. scores are
// the model's probability outputs, predicted the thresholded labels that
// produced the original metrics.
func (a *Analyzer) Mitigate(
	strategy Strategy,
	scores []float64,
	predicted []int,
	truth []int,
	groups []string,
) (MitigationResult, *contract.Error) {
	original, cErr := a.Analyze(predicted, truth, groups)
	if cErr != nil {
		return MitigationResult{}, cErr
	}

	switch strategy {
	case StrategyReweigh:
		return a.reweigh(original, truth, groups), nil
	case StrategyGroupThreshold:
		return a.groupThreshold(original, scores, truth, groups), nil
	case StrategyConstrained:
		// In-training mitigation runs inside the trainer; without that
		// backend the contract is to hand back the input unchanged.
		logrus.Warn("constrained mitigation requires a trainer backend; returning original metrics")
		return unchanged(StrategyConstrained, original), nil
	default:
		return a.groupThreshold(original, scores, truth, groups), nil
	}
}

func unchanged(strategy Strategy, original Metrics) MitigationResult {
	return MitigationResult{
		Strategy:    strategy,
		Original:    original,
		Mitigated:   original,
		Improvement: map[string]float64{},
	}
}

// reweigh computes Kamiran-Calders sample weights w(g,y) = P(g)P(y)/P(g,y).
// The weights are returned for the next training pass; observed metrics do
// not change until the model is retrained with them.
func (a *Analyzer) reweigh(original Metrics, truth []int, groups []string) MitigationResult {
	if truth == nil || len(truth) != len(groups) || len(groups) == 0 {
		return unchanged(StrategyReweigh, original)
	}

	n := float64(len(groups))
	groupCount := make(map[string]float64)
	labelCount := make(map[int]float64)
	jointCount := make(map[string]map[int]float64)

	for i, g := range groups {
		groupCount[g]++
		labelCount[truth[i]]++
		if jointCount[g] == nil {
			jointCount[g] = make(map[int]float64)
		}
		jointCount[g][truth[i]]++
	}

	weights := make([]float64, len(groups))
	for i, g := range groups {
		joint := jointCount[g][truth[i]]
		if joint == 0 {
			weights[i] = 1
			continue
		}
		weights[i] = (groupCount[g] / n) * (labelCount[truth[i]] / n) / (joint / n)
	}

	result := unchanged(StrategyReweigh, original)
	result.Weights = weights
	return result
}

// groupThreshold picks a per-group score cutoff so every group selects at
// the overall selection rate, then recomputes metrics from the adjusted
// predictions.
func (a *Analyzer) groupThreshold(
	original Metrics,
	scores []float64,
	truth []int,
	groups []string,
) MitigationResult {
	if len(scores) != len(groups) || len(scores) == 0 {
		return unchanged(StrategyGroupThreshold, original)
	}

	targetRate := 0.0
	for _, rates := range original.Groups {
		targetRate += rates.SelectionRate * float64(rates.Count)
	}
	targetRate /= float64(len(groups))

	thresholds := make(map[string]float64)
	adjusted := make([]int, len(scores))

	for _, g := range uniqueGroups(groups) {
		groupScores := make([]float64, 0)
		for i, group := range groups {
			if group == g {
				groupScores = append(groupScores, scores[i])
			}
		}
		threshold := quantile(groupScores, 1-targetRate)
		thresholds[g] = threshold

		for i, group := range groups {
			if group != g {
				continue
			}
			if scores[i] >= threshold {
				adjusted[i] = 1
			}
		}
	}

	// adjusted matches groups by construction, so this cannot fail.
	mitigated, _ := a.Analyze(adjusted, truth, groups)

	return MitigationResult{
		Strategy:  StrategyGroupThreshold,
		Original:  original,
		Mitigated: mitigated,
		Improvement: map[string]float64{
			"demographic_parity_difference": original.DemographicParityDiff - mitigated.DemographicParityDiff,
			"equalized_odds_difference":     original.EqualizedOddsDiff - mitigated.EqualizedOddsDiff,
			"disparate_impact":              mitigated.DisparateImpact - original.DisparateImpact,
		},
		Thresholds: thresholds,
	}
}

func quantile(sample []float64, q float64) float64 {
	if len(sample) == 0 {
		return 0.5
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1] + 1e-9
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
