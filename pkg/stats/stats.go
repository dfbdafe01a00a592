// Package stats implements the statistical primitives behind drift
// detection: population stability index, the two-sample
// Kolmogorov-Smirnov test and the chi-square test for categorical
// distributions. All functions are pure and operate on raw samples.
package stats

import (
	"math"
	"sort"
)

// psiEpsilon keeps bucket proportions away from zero so the log term is
// always defined.
const psiEpsilon = 1e-6

// PSI computes the population stability index between a reference and a
// current sample, bucketed into bins equal-width intervals spanning the
// combined value range.
//
// PSI < 0.1 is stable, 0.1-0.25 moderate shift, > 0.25 severe drift.
func PSI(reference, current []float64, bins int) float64 {
	if len(reference) == 0 || len(current) == 0 {
		return 0
	}
	if bins < 2 {
		bins = 2
	}

	lo := math.Min(minOf(reference), minOf(current))
	hi := math.Max(maxOf(reference), maxOf(current))
	if lo == hi {
		// Degenerate range: both samples are constant and identical.
		return 0
	}

	refHist := histogram(reference, lo, hi, bins)
	curHist := histogram(current, lo, hi, bins)

	psi := 0.0
	for i := 0; i < bins; i++ {
		refPct := float64(refHist[i])/float64(len(reference)) + psiEpsilon
		curPct := float64(curHist[i])/float64(len(current)) + psiEpsilon
		psi += (curPct - refPct) * math.Log(curPct/refPct)
	}

	return psi
}

func histogram(sample []float64, lo, hi float64, bins int) []int {
	hist := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range sample {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		hist[idx]++
	}
	return hist
}

// KolmogorovSmirnov runs the two-sample KS test and returns the statistic
// D = max |F1(x) - F2(x)| together with its asymptotic p-value.
func KolmogorovSmirnov(a, b []float64) (statistic, pValue float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 1
	}

	s1 := make([]float64, len(a))
	s2 := make([]float64, len(b))
	copy(s1, a)
	copy(s2, b)
	sort.Float64s(s1)
	sort.Float64s(s2)

	n1, n2 := float64(len(s1)), float64(len(s2))

	i, j := 0, 0
	maxD := 0.0
	for i < len(s1) && j < len(s2) {
		d1, d2 := s1[i], s2[j]

		if diff := math.Abs(float64(i)/n1 - float64(j)/n2); diff > maxD {
			maxD = diff
		}

		switch {
		case d1 < d2:
			i++
		case d2 < d1:
			j++
		default:
			i++
			j++
		}
	}
	for i < len(s1) {
		if diff := math.Abs(float64(i)/n1 - 1.0); diff > maxD {
			maxD = diff
		}
		i++
	}
	for j < len(s2) {
		if diff := math.Abs(1.0 - float64(j)/n2); diff > maxD {
			maxD = diff
		}
		j++
	}

	ne := (n1 * n2) / (n1 + n2)
	lambda := math.Sqrt(ne) * maxD

	return maxD, ksPValue(lambda)
}

// ksPValue approximates P(D > x) with the first terms of the Kolmogorov
// distribution series: 2 * sum_{k>=1} (-1)^{k-1} exp(-2 k^2 x^2).
func ksPValue(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}

	sum := 0.0
	for k := 1; k <= 10; k++ {
		term := math.Exp(-2 * float64(k*k) * lambda * lambda)
		if k%2 == 0 {
			sum -= term
		} else {
			sum += term
		}
	}

	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ChiSquare runs the chi-square test of homogeneity on a 2xK contingency
// table built from reference and current category counts. Returns the
// statistic and its p-value at K-1 degrees of freedom.
func ChiSquare(refCounts, curCounts map[string]int) (statistic, pValue float64) {
	categories := make(map[string]struct{}, len(refCounts)+len(curCounts))
	for c := range refCounts {
		categories[c] = struct{}{}
	}
	for c := range curCounts {
		categories[c] = struct{}{}
	}
	if len(categories) < 2 {
		return 0, 1
	}

	refTotal, curTotal := 0, 0
	for _, n := range refCounts {
		refTotal += n
	}
	for _, n := range curCounts {
		curTotal += n
	}
	grand := refTotal + curTotal
	if refTotal == 0 || curTotal == 0 {
		return 0, 1
	}

	chi2 := 0.0
	for c := range categories {
		colTotal := refCounts[c] + curCounts[c]
		if colTotal == 0 {
			continue
		}
		expRef := float64(refTotal) * float64(colTotal) / float64(grand)
		expCur := float64(curTotal) * float64(colTotal) / float64(grand)
		chi2 += (float64(refCounts[c]) - expRef) * (float64(refCounts[c]) - expRef) / expRef
		chi2 += (float64(curCounts[c]) - expCur) * (float64(curCounts[c]) - expCur) / expCur
	}

	dof := float64(len(categories) - 1)
	return chi2, chiSquarePValue(chi2, dof)
}

// chiSquarePValue is P(X > chi2) for a chi-square distribution with dof
// degrees of freedom, via the regularized upper incomplete gamma function.
func chiSquarePValue(chi2, dof float64) float64 {
	if chi2 <= 0 || dof <= 0 {
		return 1
	}
	return gammaQ(dof/2, chi2/2)
}

// gammaQ computes the regularized upper incomplete gamma function Q(a, x)
// using the series expansion for x < a+1 and the continued fraction
// otherwise (Numerical Recipes 6.2).
func gammaQ(a, x float64) float64 {
	if x < 0 || a <= 0 {
		return 1
	}
	if x == 0 {
		return 1
	}
	if x < a+1 {
		return 1 - gammaSeriesP(a, x)
	}
	return gammaContinuedQ(a, x)
}

func gammaSeriesP(a, x float64) float64 {
	const maxIter = 200
	const eps = 3e-14

	ap := a
	sum := 1.0 / a
	del := sum
	for i := 0; i < maxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*eps {
			break
		}
	}
	lg, _ := math.Lgamma(a)
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

func gammaContinuedQ(a, x float64) float64 {
	const maxIter = 200
	const eps = 3e-14
	const tiny = 1e-300

	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= maxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	lg, _ := math.Lgamma(a)
	return math.Exp(-x+a*math.Log(x)-lg) * h
}

// Mean of a sample; zero for an empty slice.
func Mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range sample {
		sum += v
	}
	return sum / float64(len(sample))
}

// Std is the population standard deviation; zero for fewer than two values.
func Std(sample []float64) float64 {
	if len(sample) < 2 {
		return 0
	}
	mean := Mean(sample)
	sum := 0.0
	for _, v := range sample {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(sample)))
}

func minOf(sample []float64) float64 {
	m := sample[0]
	for _, v := range sample[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(sample []float64) float64 {
	m := sample[0]
	for _, v := range sample[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
