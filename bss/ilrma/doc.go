// Package ilrma implements independent low-rank matrix analysis.
//
// A [Separator] estimates N source spectrograms from an M-channel mixture
// spectrogram (M = N) by alternating two updates per iteration:
//
//   - the source power model, a non-negative matrix factorization of the
//     source variances updated by majorization-minimization (package nmf);
//   - the spatial model, a per-bin demixing update by iterative projection
//     (IP1, IP2) or iterative source steering (ISS1, ISS2) (package spatial).
//
// The source distribution is one of the families of [nmf.Distribution]:
// Gaussian, Student's t or generalized Gaussian. After every iteration the
// sources can be normalized by power or by projection back, and after the
// last one the scale of a reference microphone is restored.
//
// Tensor axes follow package tensor: the mixture and the output are
// (channels or sources, bins, frames) and the demixing filter is
// (bins, sources, channels).
package ilrma
