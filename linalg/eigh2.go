package linalg

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// GenEigh2 solves A·h = λ·B·h for 2×2 Hermitian a and positive definite b in
// closed form. Eigenvalues are ascending, eigenvectors are the columns of the
// returned matrix and satisfy hᴴ·B·h = 1. A b with NaN entries is rejected as
// not positive definite.
func GenEigh2(a, b mat.CMatrix) ([]float64, *mat.CDense, error) {
	if r, c := a.Dims(); r != 2 || c != 2 {
		return nil, nil, ErrDimensionMismatch
	}
	if r, c := b.Dims(); r != 2 || c != 2 {
		return nil, nil, ErrDimensionMismatch
	}
	a11, a12, a22 := real(a.At(0, 0)), a.At(0, 1), real(a.At(1, 1))
	b11, b12, b22 := real(b.At(0, 0)), b.At(0, 1), real(b.At(1, 1))

	detA := a11*a22 - sqAbs(a12)
	detB := b11*b22 - sqAbs(b12)
	if !(b11 > 0) || !(detB > 0) {
		return nil, nil, ErrNotPositiveDefinite
	}

	// det(A - λB) = detB·λ² - tr·λ + detA
	tr := a11*b22 + a22*b11 - 2*real(a12*cmplx.Conj(b12))
	disc := tr*tr - 4*detA*detB
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)
	degenerate := sq <= 1e-6*math.Abs(tr)
	if degenerate {
		sq = 0
	}
	vals := []float64{(tr - sq) / (2 * detB), (tr + sq) / (2 * detB)}
	scale := a11*a11 + a22*a22 + b11*b11 + b22*b22

	h := [2][2]complex128{}
	for k, lambda := range vals {
		m11 := complex(a11-lambda*b11, 0)
		m12 := a12 - complex(lambda, 0)*b12
		m22 := complex(a22-lambda*b22, 0)
		m21 := cmplx.Conj(m12)

		// Null vector of the 2×2 singular matrix, taken from its larger row.
		u := [2]complex128{m12, -m11}
		w := [2]complex128{m22, -m21}
		if sqAbs(w[0])+sqAbs(w[1]) > sqAbs(u[0])+sqAbs(u[1]) {
			u = w
		}
		if sqAbs(u[0])+sqAbs(u[1]) <= 1e-20*scale {
			// A is proportional to B: every vector is an eigenvector.
			u = [2]complex128{1, 0}
			if k == 1 {
				u = [2]complex128{0, 1}
			}
		}
		h[k] = u
	}

	// Degenerate eigenvalues: make the second vector B-orthogonal to the first.
	if degenerate {
		before := bForm2(b11, b12, b22, h[1])
		p := bForm(b11, b12, b22, h[0], h[1]) / complex(bForm2(b11, b12, b22, h[0]), 0)
		h[1][0] -= p * h[0][0]
		h[1][1] -= p * h[0][1]
		if bForm2(b11, b12, b22, h[1]) <= 1e-6*before {
			h[1] = [2]complex128{-cmplx.Conj(h[0][1]), cmplx.Conj(h[0][0])}
			p = bForm(b11, b12, b22, h[0], h[1]) / complex(bForm2(b11, b12, b22, h[0]), 0)
			h[1][0] -= p * h[0][0]
			h[1][1] -= p * h[0][1]
		}
	}

	z := mat.NewCDense(2, 2, nil)
	for k := 0; k < 2; k++ {
		norm := math.Sqrt(bForm2(b11, b12, b22, h[k]))
		z.Set(0, k, h[k][0]/complex(norm, 0))
		z.Set(1, k, h[k][1]/complex(norm, 0))
	}
	return vals, z, nil
}

// bForm returns xᴴ·B·y for the Hermitian B = [b11 b12; b12* b22].
func bForm(b11 float64, b12 complex128, b22 float64, x, y [2]complex128) complex128 {
	by0 := complex(b11, 0)*y[0] + b12*y[1]
	by1 := cmplx.Conj(b12)*y[0] + complex(b22, 0)*y[1]
	return cmplx.Conj(x[0])*by0 + cmplx.Conj(x[1])*by1
}

func bForm2(b11 float64, b12 complex128, b22 float64, x [2]complex128) float64 {
	return real(bForm(b11, b12, b22, x, x))
}

func sqAbs(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}
