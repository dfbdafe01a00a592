package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func normalSample(rng *rand.Rand, n int, mean, std float64) []float64 {
	sample := make([]float64, n)
	for i := range sample {
		sample[i] = rng.NormFloat64()*std + mean
	}
	return sample
}

func TestPSIIdenticalSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sample := normalSample(rng, 2000, 0, 1)

	for _, bins := range []int{2, 5, 10, 50} {
		psi := PSI(sample, sample, bins)
		require.InDelta(t, 0, psi, 1e-9, "PSI of identical samples should be ~0 for bins=%d", bins)
	}
}

func TestPSIMonotoneUnderMeanShift(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	reference := normalSample(rng, 5000, 0, 1)

	prev := 0.0
	for _, shift := range []float64{0.0, 0.25, 0.5, 1.0, 2.0} {
		shifted := make([]float64, len(reference))
		for i, v := range reference {
			shifted[i] = v + shift
		}
		psi := PSI(reference, shifted, 10)
		require.GreaterOrEqual(t, psi+1e-9, prev,
			"PSI should not decrease as distributions move apart (shift=%.2f)", shift)
		prev = psi
	}

	require.Greater(t, prev, 0.25, "a two sigma mean shift should read as severe drift")
}

func TestPSIConstantSamples(t *testing.T) {
	sample := []float64{3, 3, 3, 3}
	require.Zero(t, PSI(sample, sample, 10))
}

type ksScenario struct {
	name       string
	a, b       []float64
	wantLargeP bool
}

func TestKolmogorovSmirnov(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	base := normalSample(rng, 1000, 0, 1)
	shifted := normalSample(rng, 1000, 3, 1)
	same := normalSample(rng, 1000, 0, 1)

	scenarios := []ksScenario{
		{name: "same distribution", a: base, b: same, wantLargeP: true},
		{name: "strongly shifted", a: base, b: shifted, wantLargeP: false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			stat, p := KolmogorovSmirnov(scenario.a, scenario.b)
			require.GreaterOrEqual(t, stat, 0.0)
			require.LessOrEqual(t, stat, 1.0)
			if scenario.wantLargeP {
				require.Greater(t, p, 0.05)
				require.Less(t, stat, 0.1)
			} else {
				require.Less(t, p, 0.01)
				require.Greater(t, stat, 0.5)
			}
		})
	}
}

func TestKolmogorovSmirnovEmptySample(t *testing.T) {
	stat, p := KolmogorovSmirnov(nil, []float64{1, 2, 3})
	require.Zero(t, stat)
	require.Equal(t, 1.0, p)
}

func TestChiSquareIdenticalCounts(t *testing.T) {
	counts := map[string]int{"A": 400, "B": 350, "C": 250}
	stat, p := ChiSquare(counts, counts)
	require.InDelta(t, 0, stat, 1e-9)
	require.Greater(t, p, 0.99)
}

func TestChiSquareShiftedCounts(t *testing.T) {
	ref := map[string]int{"A": 500, "B": 300, "C": 200}
	cur := map[string]int{"A": 200, "B": 300, "C": 500}
	stat, p := ChiSquare(ref, cur)
	require.Greater(t, stat, 10.0)
	require.Less(t, p, 0.001)
}

func TestChiSquareSingleCategory(t *testing.T) {
	_, p := ChiSquare(map[string]int{"A": 10}, map[string]int{"A": 12})
	require.Equal(t, 1.0, p)
}

func TestMeanAndStd(t *testing.T) {
	sample := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	require.InDelta(t, 5.0, Mean(sample), 1e-9)
	require.InDelta(t, 2.0, Std(sample), 1e-9)

	require.Zero(t, Mean(nil))
	require.Zero(t, Std([]float64{1}))
}

func TestChiSquarePValueAgainstKnownValues(t *testing.T) {
	// Critical values of the chi-square distribution: P(X > 3.841) = 0.05
	// at 1 dof, P(X > 5.991) = 0.05 at 2 dof.
	require.InDelta(t, 0.05, chiSquarePValue(3.841, 1), 1e-3)
	require.InDelta(t, 0.05, chiSquarePValue(5.991, 2), 1e-3)
	require.InDelta(t, 1.0, chiSquarePValue(0, 3), 1e-12)
}

func TestKSPValueBounds(t *testing.T) {
	require.Equal(t, 1.0, ksPValue(0))
	require.InDelta(t, 0.0, ksPValue(10), 1e-12)
	for _, lambda := range []float64{0.5, 1.0, 1.5} {
		p := ksPValue(lambda)
		require.True(t, p >= 0 && p <= 1, "p-value out of range for lambda=%f", lambda)
		require.False(t, math.IsNaN(p))
	}
}
