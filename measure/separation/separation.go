// Package separation scores separated signals against reference source
// images.
package separation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-bss/bss/permutation"
)

// Score describes how well one estimate reproduces its assigned source.
//
//nolint:revive
type Score struct {
	Estimate    int
	Source      int
	Correlation float64 // |Pearson correlation|
	SDR_dB      float64 // 10·log10(‖ref‖² / ‖est − ref‖²)
	Level_dB    float64 // RMS of the estimate
}

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Correlation returns the absolute Pearson correlation of est and ref, or 0
// when either is constant.
func Correlation(est, ref []float64) float64 {
	c := math.Abs(stat.Correlation(est, ref, nil))
	if math.IsNaN(c) {
		return 0
	}

	return c
}

// SDR returns the signal-to-distortion ratio of est against ref in dB.
// A perfect estimate yields +Inf.
func SDR(est, ref []float64) float64 {
	diff := make([]float64, len(ref))
	floats.SubTo(diff, est, ref)

	den := floats.Dot(diff, diff)
	if den == 0 {
		return math.Inf(1)
	}

	num := floats.Dot(ref, ref)
	if num == 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(num/den)
}

// Match assigns every estimate to a distinct reference so that the summed
// correlation is maximal, and scores each pair. estimates and refs must have
// the same count, at most [permutation.MaxSources].
func Match(estimates, refs [][]float64) []Score {
	n := len(estimates)
	if n == 0 || n != len(refs) || n > permutation.MaxSources {
		return nil
	}

	corr := make([][]float64, n)
	for e := range corr {
		corr[e] = make([]float64, n)
		for s := range corr[e] {
			corr[e][s] = Correlation(estimates[e], refs[s])
		}
	}

	var best []int
	bestSum := math.Inf(-1)
	for _, perm := range permutation.Permutations(n) {
		var sum float64
		for e, s := range perm {
			sum += corr[e][s]
		}
		if sum > bestSum {
			best, bestSum = perm, sum
		}
	}

	scores := make([]Score, n)
	for e, s := range best {
		est := estimates[e]
		rms := 0.0
		if len(est) > 0 {
			rms = math.Sqrt(floats.Dot(est, est) / float64(len(est)))
		}
		scores[e] = Score{
			Estimate:    e,
			Source:      s,
			Correlation: corr[e][s],
			SDR_dB:      SDR(est, refs[s]),
			Level_dB:    ampTodB(rms),
		}
	}

	return scores
}
