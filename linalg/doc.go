// Package linalg provides the small complex linear-algebra kernels used by
// the separation algorithms: Hermitian eigendecomposition, generalized
// Hermitian eigenproblems, linear solves, inverses, log-determinants,
// matrix square roots and geometric means.
//
// The kernels are built on gonum. gonum's factorizations are real-valued, so
// every complex n×n matrix A = Ar + i·Ai is handled through its real
// embedding
//
//	⎡Ar  -Ai⎤
//	⎣Ai   Ar⎦
//
// which is symmetric when A is Hermitian, has determinant |det A|², and maps
// products and inverses of A onto products and inverses of the embedding.
// Matrices are exchanged as [mat.CMatrix] / [*mat.CDense].
//
// Matrix sizes in blind source separation are tiny (the number of
// microphones), so the kernels favor clarity over blocking or reuse of
// workspace. The 2×2 generalized eigensolver [GenEigh2] is closed form
// because it sits in the innermost loop of the pairwise updates.
package linalg
