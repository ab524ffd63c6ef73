// Package permutation aligns the source order across frequency bins.
//
// Frequency-domain separation recovers the sources of every bin only up to
// an arbitrary ordering. [Solve] groups bins by the correlation of their
// normalized power patterns: bins are visited in ascending order of
// self-correlation, and each one takes the ordering that best matches the
// pattern accumulated so far. Every ordering is tried, so the cost grows as
// N!·I and the solver is meant for a handful of sources.
package permutation

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"gonum.org/v1/gonum/floats"
)

// MaxSources bounds the number of sources accepted by [Solve].
const MaxSources = 8

// DefaultEpsilon floors the per-frame norm of the power pattern.
const DefaultEpsilon = 1e-12

var (
	// ErrTooManySources is returned when exhaustive search is too expensive.
	ErrTooManySources = errors.New("permutation: too many sources")

	// ErrInvalidPermutation is returned when a permutation does not match
	// the data it is applied to.
	ErrInvalidPermutation = errors.New("permutation: invalid permutation")
)

// Permutations returns every ordering of 0..n-1 in lexicographic order.
func Permutations(n int) [][]int {
	cur := make([]int, n)
	for k := range cur {
		cur[k] = k
	}

	var out [][]int
	for {
		out = append(out, append([]int(nil), cur...))

		k := n - 2
		for k >= 0 && cur[k] >= cur[k+1] {
			k--
		}
		if k < 0 {
			return out
		}
		l := n - 1
		for cur[l] <= cur[k] {
			l--
		}
		cur[k], cur[l] = cur[l], cur[k]
		for a, b := k+1, n-1; a < b; a, b = a+1, b-1 {
			cur[a], cur[b] = cur[b], cur[a]
		}
	}
}

// Solve returns one permutation per bin for separated spectrograms y with
// shape (sources, bins, frames). Output source n of bin i is input source
// perms[i][n]. A nil floor uses max(x, DefaultEpsilon).
func Solve(y *tensor.Complex, f floor.Floor) ([][]int, error) {
	if len(y.Shape) != 3 {
		return nil, fmt.Errorf("%w: separated %v", tensor.ErrShapeMismatch, y.Shape)
	}
	nN, nI := y.Shape[0], y.Shape[1]
	if nN > MaxSources {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySources, nN, MaxSources)
	}
	if f == nil {
		f = floor.Max{Eps: DefaultEpsilon}
	}

	patterns := make([][][]float64, nI)
	correlation := make([]float64, nI)
	for i := range patterns {
		patterns[i], correlation[i] = pattern(y, i, f)
	}

	order := make([]int, nI)
	floats.Argsort(correlation, order)

	candidates := Permutations(nN)
	perms := make([][]int, nI)
	perms[order[0]] = candidates[0]

	criteria := make([][]float64, nN)
	for n := range criteria {
		criteria[n] = append([]float64(nil), patterns[order[0]][n]...)
	}

	for _, i := range order[1:] {
		best, bestScore := candidates[0], math.Inf(-1)
		for _, perm := range candidates {
			var score float64
			for n, src := range perm {
				score += floats.Dot(criteria[n], patterns[i][src])
			}
			if score > bestScore {
				best, bestScore = perm, score
			}
		}
		perms[i] = best
		for n, src := range best {
			floats.Add(criteria[n], patterns[i][src])
		}
	}
	return perms, nil
}

// pattern returns |y[:, i, :]| normalized over sources for every frame, and
// the sum of all entries of P·Pᵀ.
func pattern(y *tensor.Complex, i int, f floor.Floor) ([][]float64, float64) {
	nN, nJ := y.Shape[0], y.Shape[2]
	p := make([][]float64, nN)
	for n := range p {
		row := y.Row(n, i)
		p[n] = make([]float64, nJ)
		for j, v := range row {
			p[n][j] = math.Hypot(real(v), imag(v))
		}
	}

	var corr float64
	for j := 0; j < nJ; j++ {
		var ss float64
		for n := range p {
			ss += p[n][j] * p[n][j]
		}
		norm := f.Apply(math.Sqrt(ss))
		var col float64
		for n := range p {
			p[n][j] /= norm
			col += p[n][j]
		}
		corr += col * col
	}
	return p, corr
}

func checkPerms(perms [][]int, nBins, nSources int) error {
	if len(perms) != nBins {
		return fmt.Errorf("%w: %d permutations for %d bins", ErrInvalidPermutation, len(perms), nBins)
	}
	for i, perm := range perms {
		if len(perm) != nSources {
			return fmt.Errorf("%w: bin %d has length %d", ErrInvalidPermutation, i, len(perm))
		}
		seen := make([]bool, nSources)
		for _, src := range perm {
			if src < 0 || src >= nSources || seen[src] {
				return fmt.Errorf("%w: bin %d: %v", ErrInvalidPermutation, i, perm)
			}
			seen[src] = true
		}
	}
	return nil
}

// ApplyFilter reorders the rows of every W_i in place: W[i, n, :] becomes
// the former W[i, perms[i][n], :].
func ApplyFilter(w *tensor.Complex, perms [][]int) error {
	nI, nN, nM := w.Shape[0], w.Shape[1], w.Shape[2]
	if err := checkPerms(perms, nI, nN); err != nil {
		return err
	}

	buf := make([]complex128, nN*nM)
	for i, perm := range perms {
		block := w.Row(i)
		copy(buf, block)
		for n, src := range perm {
			copy(block[n*nM:(n+1)*nM], buf[src*nM:(src+1)*nM])
		}
	}
	return nil
}

// ApplyOutput reorders the sources of y in place per bin: y[n, i, :]
// becomes the former y[perms[i][n], i, :].
func ApplyOutput(y *tensor.Complex, perms [][]int) error {
	nN, nI, nJ := y.Shape[0], y.Shape[1], y.Shape[2]
	if err := checkPerms(perms, nI, nN); err != nil {
		return err
	}

	buf := make([]complex128, nN*nJ)
	for i, perm := range perms {
		for n := 0; n < nN; n++ {
			copy(buf[n*nJ:(n+1)*nJ], y.Row(n, i))
		}
		for n, src := range perm {
			copy(y.Row(n, i), buf[src*nJ:(src+1)*nJ])
		}
	}
	return nil
}
