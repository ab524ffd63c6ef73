package linalg

import "errors"

var (
	// ErrNotSquare is returned when a square matrix is required.
	ErrNotSquare = errors.New("linalg: matrix is not square")
	// ErrDimensionMismatch is returned when operand shapes disagree.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")
	// ErrSingular is returned when a matrix cannot be inverted or solved.
	ErrSingular = errors.New("linalg: matrix is singular")
	// ErrIllConditioned accompanies a result computed from a matrix whose
	// condition number exceeds gonum's tolerance.
	ErrIllConditioned = errors.New("linalg: matrix is ill-conditioned")
	// ErrNotPositiveDefinite is returned when a positive definite matrix is required.
	ErrNotPositiveDefinite = errors.New("linalg: matrix is not positive definite")
	// ErrEigenFailed is returned when the eigensolver does not converge.
	ErrEigenFailed = errors.New("linalg: eigendecomposition did not converge")
	// ErrInvalidType is returned for an unknown generalized eigenproblem type.
	ErrInvalidType = errors.New("linalg: invalid eigenproblem type")
)
