package spatial

import (
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/stretchr/testify/require"
)

func randomComplex(rng *rand.Rand, shape ...int) *tensor.Complex {
	c := tensor.NewComplex(shape...)
	for x := range c.Data {
		c.Data[x] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return c
}

func randomWeights(rng *rand.Rand, shape ...int) *tensor.Real {
	r := tensor.NewReal(shape...)
	for x := range r.Data {
		r.Data[x] = 0.2 + rng.Float64()
	}
	return r
}

// weightedCross returns mean_j varphi_k·a_j·b_j* for bin i.
func weightedCross(phi []float64, a, b []complex128) complex128 {
	var s complex128
	for j := range a {
		s += complex(phi[j], 0) * a[j] * cmplx.Conj(b[j])
	}
	return s / complex(float64(len(a)), 0)
}

// bilinear returns aᴴ·U·b for row vectors stored as filter rows (a = conj(row)).
func bilinear(u []complex128, rowA, rowB []complex128) complex128 {
	n := len(rowA)
	var s complex128
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			s += rowA[p] * u[p*n+q] * cmplx.Conj(rowB[q])
		}
	}
	return s
}

func requireFiniteComplex(t *testing.T, data []complex128) {
	t.Helper()
	for i, v := range data {
		require.Falsef(t, cmplx.IsNaN(v) || cmplx.IsInf(v), "index %d: non-finite %v", i, v)
	}
}
