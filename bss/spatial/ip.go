package spatial

import (
	"fmt"
	"math/cmplx"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/linalg"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// Report summarizes the numerical health of one update.
type Report struct {
	// Degenerate counts the systems that were ill-conditioned, had to be
	// diagonally loaded or were skipped.
	Degenerate int
}

func (r *Report) add(o Report) { r.Degenerate += o.Degenerate }

func checkFilter(w, x *tensor.Complex, varphi *tensor.Real) error {
	if len(w.Shape) != 3 || len(x.Shape) != 3 {
		return fmt.Errorf("%w: filter %v, mixture %v", tensor.ErrShapeMismatch, w.Shape, x.Shape)
	}
	nI, nN, nM := w.Shape[0], w.Shape[1], w.Shape[2]
	if nN != nM {
		return fmt.Errorf("%w: %d sources, %d channels", ErrNotDetermined, nN, nM)
	}
	nJ := x.Shape[2]
	if err := w.Check("demixing filter", nI, nN, nM); err != nil {
		return err
	}
	if err := x.Check("mixture", nM, nI, nJ); err != nil {
		return err
	}
	return varphi.Check("spatial weights", nN, nI, nJ)
}

// UpdateIP1 updates every row of the demixing filter w in place, one source
// after the other:
//
//	U_in = mean_j varphi_nij·x_ij·x_ijᴴ
//	w_in ← (W_i·U_in)⁻¹·e_n
//	w_in ← w_in / sqrt(mean_j varphi_nij·|w_inᴴ·x_ij|²)
//
// The normalization is summed over frames so that it stays accurate when
// the weights span many orders of magnitude.
func UpdateIP1(w, x *tensor.Complex, varphi *tensor.Real, f floor.Floor) (Report, error) {
	var rep Report
	if err := checkFilter(w, x, varphi); err != nil {
		return rep, err
	}
	nI, nN, nJ := w.Shape[0], w.Shape[1], x.Shape[2]
	xRows := make([][]complex128, nN)
	e := make([]complex128, nN)
	u := make([]complex128, nN*nN)
	out := make([]complex128, nJ)
	pow := make([]float64, nJ)

	for i := 0; i < nI; i++ {
		binRows(xRows, x, i)
		wi := mat.NewCDense(nN, nN, w.Row(i))
		for n := 0; n < nN; n++ {
			phi := varphi.Row(n, i)
			covarianceInto(u, xRows, phi, out)
			wu := linalg.Mul(wi, mat.NewCDense(nN, nN, u))

			clear(e)
			e[n] = 1
			vec, r, err := solveLoaded(wu, e, f, loaded)
			rep.add(r)
			if err != nil {
				return rep, fmt.Errorf("spatial: IP1 bin %d source %d: %w", i, n, err)
			}
			if vec == nil {
				continue
			}

			for m, v := range vec {
				vec[m] = cmplx.Conj(v)
			}
			project(out, vec, xRows)
			cmplxs.ScaleReal(1/floor.Sqrt(f, weightedPower(phi, out, pow)), vec)
			copy(w.Row(i)[n*nN:(n+1)*nN], vec)
		}
	}
	return rep, nil
}

// UpdateIP2 updates the rows of w pairwise. For a pair (m, n) with z_j the
// outputs of rows m and n and G_k = mean_j varphi_k·z_j·z_jᴴ (k = m, n),
// G_m·h = λ·G_n·h is solved. The eigenvector of the smaller eigenvalue becomes
// the new row m, the other one the new row n:
//
//	row k ← h_kᴴ·W_mn / sqrt(mean_j varphi_k·|h_kᴴ·z_j|²)
//
// A pair whose pencil stays indefinite after loading keeps its rows and is
// counted in the report.
func UpdateIP2(w, x *tensor.Complex, varphi *tensor.Real, pairs []Pair, f floor.Floor) (Report, error) {
	var rep Report
	if err := checkFilter(w, x, varphi); err != nil {
		return rep, err
	}
	nI, nN, nJ := w.Shape[0], w.Shape[1], x.Shape[2]
	for _, p := range pairs {
		if err := checkPair(p, nN); err != nil {
			return rep, err
		}
	}
	xRows := make([][]complex128, nN)
	rm, rn := make([]complex128, nN), make([]complex128, nN)
	zm, zn := make([]complex128, nJ), make([]complex128, nJ)
	out := make([]complex128, nJ)
	pow := make([]float64, nJ)

	for i := 0; i < nI; i++ {
		binRows(xRows, x, i)
		wi := w.Row(i)
		for _, p := range pairs {
			copy(rm, wi[p.M*nN:(p.M+1)*nN])
			copy(rn, wi[p.N*nN:(p.N+1)*nN])
			project(zm, rm, xRows)
			project(zn, rn, xRows)
			gm := pairGram(varphi.Row(p.M, i), zm, zn, out, f)
			gn := pairGram(varphi.Row(p.N, i), zm, zn, out, f)

			h, ok, r, err := pairEigenvectors(gm, gn, f)
			rep.add(r)
			if err != nil {
				return rep, fmt.Errorf("spatial: IP2 bin %d pair (%d, %d): %w", i, p.M, p.N, err)
			}
			if !ok {
				continue
			}

			for k, row := range [2]int{p.M, p.N} {
				c0, c1 := cmplx.Conj(h[k][0]), cmplx.Conj(h[k][1])
				combine(out, c0, zm, c1, zn)
				s := complex(1/floor.Sqrt(f, weightedPower(varphi.Row(row, i), out, pow)), 0)
				combine(wi[row*nN:(row+1)*nN], c0*s, rm, c1*s, rn)
			}
		}
	}
	return rep, nil
}

// pairEigenvectors solves gm·h = λ·gn·h and returns the two eigenvectors
// ascending by eigenvalue. When gn is not positive definite even after
// loading, ok is false and the pair should be left as it is.
func pairEigenvectors(gm, gn *mat.CDense, f floor.Floor) (h [2][2]complex128, ok bool, rep Report, err error) {
	_, vecs, err := linalg.GenEigh2(gm, gn)
	if err != nil {
		if floor.IsIdentity(f) {
			return h, false, rep, err
		}
		rep.Degenerate++
		if _, vecs, err = linalg.GenEigh2(gm, loadedPair(gn, f)); err != nil {
			return h, false, rep, nil
		}
	}
	for k := range h {
		h[k] = [2]complex128{vecs.At(0, k), vecs.At(1, k)}
	}
	return h, true, rep, nil
}
