// Package spatial implements the demixing updates of ILRMA-type separators.
//
// All updates are driven by per-point spatial weights varphi[n,i,j], the
// inverse of the (auxiliary) variance of source n at bin i and frame j.
//
// The iterative projection family keeps a demixing filter W with shape
// (bins, sources, channels) whose rows are w_inᴴ:
//
//   - [UpdateIP1] replaces one row at a time using the weighted covariance
//     U_in = mean_j varphi·x_ij·x_ijᴴ;
//   - [UpdateIP2] replaces two rows at a time from a 2×2 generalized
//     eigenproblem.
//
// The iterative source steering family updates the separated spectrogram Y
// directly with rank-1 ([UpdateISS1]) or rank-2 ([UpdateISS2]) corrections
// and keeps no filter.
//
// Only determined mixtures (sources = channels) are supported. Ill-conditioned
// systems keep their computed solution. Exactly singular systems are solved
// again with diagonal loading, and a pair whose eigenproblem stays indefinite
// keeps its rows. All of these are counted in [Report]. With [floor.Identity]
// singular systems fail instead.
package spatial
