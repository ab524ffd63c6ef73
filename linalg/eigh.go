package linalg

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// EigenType selects the generalized Hermitian eigenproblem solved by [GenEigh].
type EigenType int

const (
	// EigenAZ solves A·z = λ·B·z.
	EigenAZ EigenType = iota + 1
	// EigenABZ solves A·B·z = λ·z.
	EigenABZ
	// EigenBAZ solves B·A·z = λ·z.
	EigenBAZ
)

// Eigh returns the eigenvalues in ascending order and the orthonormal
// eigenvectors (as columns) of the Hermitian matrix a. Only the upper
// triangle of a is read.
func Eigh(a mat.CMatrix) ([]float64, *mat.CDense, error) {
	n, err := square(a)
	if err != nil {
		return nil, nil, err
	}

	var es mat.EigenSym
	if ok := es.Factorize(embedSym(a, n), true); !ok {
		return nil, nil, ErrEigenFailed
	}
	realVals := es.Values(nil)
	var realVecs mat.Dense
	es.VectorsTo(&realVecs)

	// Each complex eigenpair (λ, u+iv) appears twice in the embedding, as
	// [u; v] and [-v; u]. Walk the real eigenvectors in ascending order and
	// keep the ones that are new in the complex sense.
	vals := make([]float64, 0, n)
	vecs := make([][]complex128, 0, n)
	cand := make([]complex128, n)
	for k := 0; k < 2*n && len(vecs) < n; k++ {
		for i := 0; i < n; i++ {
			cand[i] = complex(realVecs.At(i, k), realVecs.At(i+n, k))
		}
		for _, q := range vecs {
			var proj complex128
			for i := range q {
				proj += cmplx.Conj(q[i]) * cand[i]
			}
			for i := range q {
				cand[i] -= proj * q[i]
			}
		}
		norm := vecNorm(cand)
		if norm < 0.5 {
			continue
		}
		v := make([]complex128, n)
		for i := range v {
			v[i] = cand[i] / complex(norm, 0)
		}
		vals = append(vals, realVals[k])
		vecs = append(vecs, v)
	}
	if len(vecs) != n {
		return nil, nil, ErrEigenFailed
	}

	z := mat.NewCDense(n, n, nil)
	for j, v := range vecs {
		for i := range v {
			z.Set(i, j, v[i])
		}
	}
	return vals, z, nil
}

// GenEigh solves the generalized Hermitian eigenproblem of the given type
// for the pencil (a, b), where b must be positive definite. Eigenvalues are
// ascending. For [EigenAZ] and [EigenABZ] the eigenvectors are normalized so
// that zᴴ·B·z = 1; for [EigenBAZ] so that zᴴ·B⁻¹·z = 1.
func GenEigh(a, b mat.CMatrix, typ EigenType) ([]float64, *mat.CDense, error) {
	n, err := square(a)
	if err != nil {
		return nil, nil, err
	}
	if m, err := square(b); err != nil {
		return nil, nil, err
	} else if m != n {
		return nil, nil, fmt.Errorf("%w: a is %dx%d, b is %dx%d", ErrDimensionMismatch, n, n, m, m)
	}

	bVals, bVecs, err := Eigh(b)
	if err != nil {
		return nil, nil, err
	}
	if bVals[0] <= 0 {
		return nil, nil, ErrNotPositiveDefinite
	}

	half := make([]float64, n)
	invHalf := make([]float64, n)
	for i, v := range bVals {
		half[i] = math.Sqrt(v)
		invHalf[i] = 1 / half[i]
	}
	bHalf := spectralFunc(bVecs, half)
	bInvHalf := spectralFunc(bVecs, invHalf)

	var c *mat.CDense
	switch typ {
	case EigenAZ:
		c = Mul(Mul(bInvHalf, a), bInvHalf)
	case EigenABZ, EigenBAZ:
		c = Mul(Mul(bHalf, a), bHalf)
	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}

	vals, y, err := Eigh(c)
	if err != nil {
		return nil, nil, err
	}

	if typ == EigenBAZ {
		return vals, Mul(bHalf, y), nil
	}
	return vals, Mul(bInvHalf, y), nil
}

// spectralFunc returns Q·diag(f)·Qᴴ.
func spectralFunc(q *mat.CDense, f []float64) *mat.CDense {
	n, _ := q.Dims()
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var s complex128
			for k := 0; k < n; k++ {
				s += q.At(i, k) * complex(f[k], 0) * cmplx.Conj(q.At(j, k))
			}
			out.Set(i, j, s)
		}
	}
	return out
}

func vecNorm(v []complex128) float64 {
	var s float64
	for _, x := range v {
		s += real(x)*real(x) + imag(x)*imag(x)
	}
	return math.Sqrt(s)
}
