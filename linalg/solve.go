package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve returns x such that a·x = b. b may hold several right-hand sides as
// columns. An exactly singular a yields [ErrSingular] and no result. A
// numerically singular a still returns x together with [ErrIllConditioned].
func Solve(a, b mat.CMatrix) (*mat.CDense, error) {
	n, err := square(a)
	if err != nil {
		return nil, err
	}
	br, bc := b.Dims()
	if br != n {
		return nil, fmt.Errorf("%w: a is %dx%d, b has %d rows", ErrDimensionMismatch, n, n, br)
	}

	var x mat.Dense
	if err := x.Solve(embed(a), stack(b)); err != nil {
		if err = conditionError(err); !errors.Is(err, ErrIllConditioned) {
			return nil, err
		}
		return unstack(&x, n, bc), err
	}
	return unstack(&x, n, bc), nil
}

// SolveVec solves a·x = b for a single right-hand side vector.
func SolveVec(a mat.CMatrix, b []complex128) ([]complex128, error) {
	x, err := Solve(a, mat.NewCDense(len(b), 1, append([]complex128(nil), b...)))
	if x == nil {
		return nil, err
	}
	out := make([]complex128, len(b))
	for i := range out {
		out[i] = x.At(i, 0)
	}
	return out, err
}

// Inverse returns a⁻¹ with the same error contract as [Solve].
func Inverse(a mat.CMatrix) (*mat.CDense, error) {
	n, err := square(a)
	if err != nil {
		return nil, err
	}

	var inv mat.Dense
	err = inv.Inverse(embed(a))
	if err != nil {
		if err = conditionError(err); !errors.Is(err, ErrIllConditioned) {
			return nil, err
		}
	}
	// The left column block of the inverse embedding holds [Re; Im].
	return unstack(inv.Slice(0, 2*n, 0, n), n, n), err
}

// conditionError classifies a gonum factorization error. gonum reports a
// finite [mat.Condition] when the result was computed anyway.
func conditionError(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		return fmt.Errorf("%w: condition number %.3g", ErrIllConditioned, float64(cond))
	}
	return fmt.Errorf("%w: %v", ErrSingular, err)
}

// LogAbsDet returns log|det a|. A singular matrix yields -Inf.
func LogAbsDet(a mat.CMatrix) (float64, error) {
	if _, err := square(a); err != nil {
		return 0, err
	}
	// det of the embedding is |det a|², never negative.
	logdet, sign := mat.LogDet(embed(a))
	if sign == 0 {
		return math.Inf(-1), nil
	}
	return logdet / 2, nil
}
