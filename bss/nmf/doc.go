// Package nmf implements the low-rank source power model of ILRMA.
//
// Each source n is modelled by a non-negative factorization of its power
// spectrogram. Two layouts share one contract:
//
//   - per source: basis T (sources, bins, components) and activation
//     V (sources, components, frames), reconstruction TV[n,i,j] = Σ_k T[n,i,k]·V[n,k,j];
//   - partitioned: a pool of components shared by all sources, basis T
//     (bins, components), activation V (components, frames) and latent
//     weights Z (sources, components) whose columns sum to one,
//     reconstruction ZTV[n,i,j] = Σ_k Z[n,k]·T[i,k]·V[k,j].
//
// The source variance is R = TV^(2/p) for domain p in [1, 2]. [Model.Update]
// performs one majorization-minimization step of every factor,
//
//	θ ← θ · (Σ c·A/TV / Σ c/TV)^e
//
// where A is the distribution-specific normalized power returned by
// [Distribution.Aux], e is [Distribution.Exponent] and c the coefficient of θ
// in TV. The reconstruction is refreshed before each factor is updated.
package nmf
