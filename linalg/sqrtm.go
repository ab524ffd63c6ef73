package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sqrtm returns the principal square root of a Hermitian positive
// semidefinite matrix. Negative eigenvalues caused by rounding are clipped
// to zero.
func Sqrtm(a mat.CMatrix) (*mat.CDense, error) {
	vals, vecs, err := Eigh(a)
	if err != nil {
		return nil, err
	}
	root := make([]float64, len(vals))
	for i, v := range vals {
		root[i] = math.Sqrt(math.Max(v, 0))
	}
	return spectralFunc(vecs, root), nil
}

// invSqrtm returns a^(-1/2) for a Hermitian positive definite matrix.
func invSqrtm(a mat.CMatrix) (*mat.CDense, error) {
	vals, vecs, err := Eigh(a)
	if err != nil {
		return nil, err
	}
	if vals[0] <= 0 {
		return nil, ErrNotPositiveDefinite
	}
	f := make([]float64, len(vals))
	for i, v := range vals {
		f[i] = 1 / math.Sqrt(v)
	}
	return spectralFunc(vecs, f), nil
}

// GMeanMH returns the matrix geometric mean of two Hermitian positive
// definite matrices. The type selects which equation G solves:
//
//	EigenAZ  (1): G·A⁻¹·G = B
//	EigenABZ (2): G·A·G   = B
//	EigenBAZ (3): G·A⁻¹·G = B⁻¹
func GMeanMH(a, b mat.CMatrix, typ EigenType) (*mat.CDense, error) {
	var err error
	switch typ {
	case EigenAZ:
	case EigenABZ:
		if a, err = Inverse(a); err != nil {
			return nil, err
		}
	case EigenBAZ:
		if b, err = Inverse(b); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}

	// A # B = A^½ (A^-½ B A^-½)^½ A^½
	aHalf, err := Sqrtm(a)
	if err != nil {
		return nil, err
	}
	aInvHalf, err := invSqrtm(a)
	if err != nil {
		return nil, err
	}
	inner, err := Sqrtm(hermitize(Mul(Mul(aInvHalf, b), aInvHalf)))
	if err != nil {
		return nil, err
	}
	return Mul(Mul(aHalf, inner), aHalf), nil
}

// Cbrt returns the elementwise real cube root of x.
func Cbrt(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Cbrt(v)
	}
	return out
}

// hermitize returns (a + aᴴ)/2, removing rounding asymmetry.
func hermitize(a *mat.CDense) *mat.CDense {
	n, _ := a.Dims()
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := a.At(i, j)
			w := a.At(j, i)
			out.Set(i, j, (v+complex(real(w), -imag(w)))/2)
		}
	}
	return out
}
