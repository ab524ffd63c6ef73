package spatial

import (
	"fmt"
	"math/cmplx"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

func checkOutput(y *tensor.Complex, varphi *tensor.Real) error {
	if len(y.Shape) != 3 {
		return fmt.Errorf("%w: separated spectrogram has shape %v", tensor.ErrShapeMismatch, y.Shape)
	}
	if err := y.Check("separated spectrogram", y.Shape...); err != nil {
		return err
	}
	return varphi.Check("spatial weights", y.Shape...)
}

// UpdateISS1 applies one rank-1 source steering step per source to the
// separated spectrogram y (sources, bins, frames), in place and in order:
//
//	d_n' = mean_j(varphi_n'·y_n'·y_n*) / mean_j(varphi_n'·|y_n|²)   (n' ≠ n)
//	d_n  = 1 - 1/sqrt(mean_j(varphi_n·|y_n|²))
//	y_n' ← y_n' - d_n'·y_n
func UpdateISS1(y *tensor.Complex, varphi *tensor.Real, f floor.Floor) (Report, error) {
	var rep Report
	if err := checkOutput(y, varphi); err != nil {
		return rep, err
	}
	nN, nI, nJ := y.Shape[0], y.Shape[1], y.Shape[2]
	inv := 1 / float64(nJ)
	d := make([]complex128, nN)
	yn := make([]complex128, nJ)
	buf := make([]complex128, nJ)
	pow := make([]float64, nJ)

	for i := 0; i < nI; i++ {
		for n := 0; n < nN; n++ {
			copy(yn, y.Row(n, i))
			cmplxs.Abs(pow, yn)
			floats.Mul(pow, pow)
			for k := 0; k < nN; k++ {
				phi := varphi.Row(k, i)
				raw := floats.Dot(phi, pow) * inv
				den := f.Apply(raw)
				if den != raw {
					rep.Degenerate++
				}
				if k == n {
					d[k] = complex(1-1/floor.Sqrt(f, raw), 0)
					continue
				}
				d[k] = cmplxs.Dot(weighted(buf, phi, yn), y.Row(k, i)) * complex(inv/den, 0)
			}
			for k := 0; k < nN; k++ {
				cmplxs.AddScaled(y.Row(k, i), -d[k], yn)
			}
		}
	}
	return rep, nil
}

// UpdateISS2 applies pairwise source steering. For a pair (m, n) with
// y_mn = (y_m, y_n) and G_k = mean_j varphi_k·y_mn·y_mnᴴ:
//
//	y_k ← y_k - (G_k⁻¹·mean_j varphi_k·y_mn·y_k*)ᴴ·y_mn   (k ≠ m, n)
//	y_m ← h_mᴴ·y_mn,  y_n ← h_nᴴ·y_mn
//
// where h_m, h_n are the generalized eigenvectors of (G_m, G_n) as in
// [UpdateIP2]. A pair whose pencil stays indefinite keeps y_m and y_n.
func UpdateISS2(y *tensor.Complex, varphi *tensor.Real, pairs []Pair, f floor.Floor) (Report, error) {
	var rep Report
	if err := checkOutput(y, varphi); err != nil {
		return rep, err
	}
	nN, nI, nJ := y.Shape[0], y.Shape[1], y.Shape[2]
	for _, p := range pairs {
		if err := checkPair(p, nN); err != nil {
			return rep, err
		}
	}
	inv := complex(1/float64(nJ), 0)
	ym := make([]complex128, nJ)
	yn := make([]complex128, nJ)
	buf := make([]complex128, nJ)
	pow := make([]float64, nJ)

	for i := 0; i < nI; i++ {
		for _, p := range pairs {
			copy(ym, y.Row(p.M, i))
			copy(yn, y.Row(p.N, i))

			for k := 0; k < nN; k++ {
				if k == p.M || k == p.N {
					continue
				}
				yk, phi := y.Row(k, i), varphi.Row(k, i)
				g := pairGram(phi, ym, yn, buf, f)
				weighted(buf, phi, yk)
				rhs := []complex128{cmplxs.Dot(buf, ym) * inv, cmplxs.Dot(buf, yn) * inv}
				q, r, err := solveLoaded(g, rhs, f, loadedPair)
				rep.add(r)
				if err != nil {
					return rep, fmt.Errorf("spatial: ISS2 bin %d source %d: %w", i, k, err)
				}
				if q == nil {
					continue
				}
				cmplxs.AddScaled(yk, -cmplx.Conj(q[0]), ym)
				cmplxs.AddScaled(yk, -cmplx.Conj(q[1]), yn)
			}

			gm := pairGram(varphi.Row(p.M, i), ym, yn, buf, f)
			gn := pairGram(varphi.Row(p.N, i), ym, yn, buf, f)
			h, ok, r, err := pairEigenvectors(gm, gn, f)
			rep.add(r)
			if err != nil {
				return rep, fmt.Errorf("spatial: ISS2 bin %d pair (%d, %d): %w", i, p.M, p.N, err)
			}
			if !ok {
				continue
			}
			for k, row := range [2]int{p.M, p.N} {
				out := y.Row(row, i)
				combine(out, cmplx.Conj(h[k][0]), ym, cmplx.Conj(h[k][1]), yn)
				cmplxs.ScaleReal(1/floor.Sqrt(f, weightedPower(varphi.Row(row, i), out, pow)), out)
			}
		}
	}
	return rep, nil
}
