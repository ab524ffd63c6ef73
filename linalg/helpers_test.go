package linalg

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(rng *rand.Rand, r, c int) *mat.CDense {
	m := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, complex(rng.NormFloat64(), rng.NormFloat64()))
		}
	}
	return m
}

// randomHPD returns a well conditioned Hermitian positive definite matrix.
func randomHPD(rng *rand.Rand, n int) *mat.CDense {
	g := randomMatrix(rng, n, n)
	h := Mul(g, ConjTranspose(g))
	for i := 0; i < n; i++ {
		h.Set(i, i, h.At(i, i)+complex(float64(n), 0))
	}
	return h
}

// randomHermitian returns a Hermitian matrix that is not necessarily definite.
func randomHermitian(rng *rand.Rand, n int) *mat.CDense {
	g := randomMatrix(rng, n, n)
	h := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, (g.At(i, j)+cmplx.Conj(g.At(j, i)))/2)
		}
	}
	return h
}

func column(m mat.CMatrix, j int) []complex128 {
	r, _ := m.Dims()
	v := make([]complex128, r)
	for i := range v {
		v[i] = m.At(i, j)
	}
	return v
}

func mulVec(a mat.CMatrix, x []complex128) []complex128 {
	r, c := a.Dims()
	out := make([]complex128, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i] += a.At(i, j) * x[j]
		}
	}
	return out
}

func requireVecNear(t *testing.T, got, want []complex128, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range got {
		require.InDeltaf(t, 0, cmplx.Abs(got[i]-want[i]), tol, "index %d: got %v want %v", i, got[i], want[i])
	}
}

func requireMatNear(t *testing.T, got, want mat.CMatrix, tol float64) {
	t.Helper()
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i := 0; i < gr; i++ {
		for j := 0; j < gc; j++ {
			require.InDeltaf(t, 0, cmplx.Abs(got.At(i, j)-want.At(i, j)), tol,
				"(%d,%d): got %v want %v", i, j, got.At(i, j), want.At(i, j))
		}
	}
}

// quadForm returns the real part of xᴴ·A·x for a column vector x.
func quadForm(a mat.CMatrix, x []complex128) float64 {
	var s complex128
	for i := range x {
		var row complex128
		for j := range x {
			row += a.At(i, j) * x[j]
		}
		s += cmplx.Conj(x[i]) * row
	}
	return real(s)
}
