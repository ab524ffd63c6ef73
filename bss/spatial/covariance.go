package spatial

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/linalg"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// WeightedCovariance returns U[i,n] = mean_j varphi[n,i,j]·x_ij·x_ijᴴ with
// shape (bins, sources, channels, channels). x has shape (channels, bins,
// frames) and varphi (sources, bins, frames).
func WeightedCovariance(x *tensor.Complex, varphi *tensor.Real) *tensor.Complex {
	nM, nI, nJ := x.Shape[0], x.Shape[1], x.Shape[2]
	nN := varphi.Shape[0]
	u := tensor.NewComplex(nI, nN, nM, nM)

	xRows := make([][]complex128, nM)
	buf := make([]complex128, nJ)
	for i := 0; i < nI; i++ {
		binRows(xRows, x, i)
		for n := 0; n < nN; n++ {
			covarianceInto(u.Row(i, n), xRows, varphi.Row(n, i), buf)
		}
	}
	return u
}

// covarianceInto writes mean_j phi_j·x_j·x_jᴴ into the row-major M×M dst.
func covarianceInto(dst []complex128, xRows [][]complex128, phi []float64, buf []complex128) {
	nM := len(xRows)
	inv := complex(1/float64(len(phi)), 0)
	for b := 0; b < nM; b++ {
		weighted(buf, phi, xRows[b])
		for a := b; a < nM; a++ {
			s := cmplxs.Dot(buf, xRows[a]) * inv
			if a == b {
				s = complex(real(s), 0)
			}
			dst[a*nM+b] = s
			dst[b*nM+a] = cmplx.Conj(s)
		}
	}
}

// binRows points rows at the frames of bin i, one slice per channel.
func binRows(rows [][]complex128, x *tensor.Complex, i int) {
	for m := range rows {
		rows[m] = x.Row(m, i)
	}
}

// weighted writes phi ⊙ s into dst.
func weighted(dst []complex128, phi []float64, s []complex128) []complex128 {
	for j, v := range s {
		dst[j] = complex(phi[j]*real(v), phi[j]*imag(v))
	}
	return dst
}

// weightedPower returns mean_j phi_j·|y_j|². buf is scratch of len(y). Every
// term is non-negative, so the result does not cancel.
func weightedPower(phi []float64, y []complex128, buf []float64) float64 {
	cmplxs.Abs(buf, y)
	floats.Mul(buf, buf)
	return floats.Dot(phi, buf) / float64(len(y))
}

// project writes Σ_m c_m·x_m into dst.
func project(dst, c []complex128, xRows [][]complex128) []complex128 {
	clear(dst)
	for m, xm := range xRows {
		cmplxs.AddScaled(dst, c[m], xm)
	}
	return dst
}

// combine writes c0·a + c1·b into dst.
func combine(dst []complex128, c0 complex128, a []complex128, c1 complex128, b []complex128) {
	clear(dst)
	cmplxs.AddScaled(dst, c0, a)
	cmplxs.AddScaled(dst, c1, b)
}

// pairGram returns G = mean_j phi_j·z_j·z_jᴴ for z_j = (a_j, b_j). The
// diagonal is floored and G is exactly Hermitian.
func pairGram(phi []float64, a, b, buf []complex128, f floor.Floor) *mat.CDense {
	inv := 1 / float64(len(phi))
	weighted(buf, phi, a)
	g11 := real(cmplxs.Dot(buf, a)) * inv
	g21 := cmplxs.Dot(buf, b) * complex(inv, 0)
	weighted(buf, phi, b)
	g22 := real(cmplxs.Dot(buf, b)) * inv
	return mat.NewCDense(2, 2, []complex128{
		complex(f.Apply(g11), 0), cmplx.Conj(g21),
		g21, complex(f.Apply(g22), 0),
	})
}

// Demix returns Y with y_ij = W_i·x_ij. w has shape (bins, sources,
// channels), x (channels, bins, frames); the result is (sources, bins, frames).
func Demix(w, x *tensor.Complex) *tensor.Complex {
	y := tensor.NewComplex(w.Shape[1], w.Shape[0], x.Shape[2])
	DemixInto(y, w, x)
	return y
}

// DemixInto is [Demix] writing into an existing y.
func DemixInto(y, w, x *tensor.Complex) {
	nI, nN, nM := w.Shape[0], w.Shape[1], w.Shape[2]
	xRows := make([][]complex128, nM)
	for i := 0; i < nI; i++ {
		binRows(xRows, x, i)
		wi := w.Row(i)
		for n := 0; n < nN; n++ {
			project(y.Row(n, i), wi[n*nM:(n+1)*nM], xRows)
		}
	}
}

// EstimateFilter returns the least-squares filter W_i = Y_i·X_iᴴ·(X_i·X_iᴴ)⁻¹
// relating a separated spectrogram to the mixture. Ill-conditioned bins keep
// their computed filter.
func EstimateFilter(y, x *tensor.Complex) (*tensor.Complex, error) {
	if len(y.Shape) != 3 || len(x.Shape) == 0 {
		return nil, fmt.Errorf("%w: output %v, mixture %v", tensor.ErrShapeMismatch, y.Shape, x.Shape)
	}
	nN, nI, nJ := y.Shape[0], y.Shape[1], y.Shape[2]
	nM := x.Shape[0]
	if err := x.Check("mixture", nM, nI, nJ); err != nil {
		return nil, err
	}

	w := tensor.NewComplex(nI, nN, nM)
	for i := 0; i < nI; i++ {
		xx := gram(x, x, i)
		xy := gram(x, y, i)
		// (X Xᴴ) Wᴴ = X Yᴴ
		wh, err := linalg.Solve(xx, xy)
		if err != nil && !errors.Is(err, linalg.ErrIllConditioned) {
			return nil, fmt.Errorf("spatial: bin %d: %w", i, err)
		}
		wi := w.Row(i)
		for n := 0; n < nN; n++ {
			for m := 0; m < nM; m++ {
				wi[n*nM+m] = cmplx.Conj(wh.At(m, n))
			}
		}
	}
	return w, nil
}

// gram returns Σ_j a_ij·b_ijᴴ for bin i.
func gram(a, b *tensor.Complex, i int) *mat.CDense {
	na, nb := a.Shape[0], b.Shape[0]
	g := mat.NewCDense(na, nb, nil)
	for p := 0; p < na; p++ {
		ap := a.Row(p, i)
		for q := 0; q < nb; q++ {
			g.Set(p, q, cmplxs.Dot(b.Row(q, i), ap))
		}
	}
	return g
}

// loadEps bounds the condition number of a loaded system.
const loadEps = 1e-12

// loaded returns a + δ·I with δ = max(f(0), loadEps·max_k |a_kk|).
func loaded(a *mat.CDense, f floor.Floor) *mat.CDense {
	n, _ := a.Dims()
	var peak float64
	for k := 0; k < n; k++ {
		peak = math.Max(peak, cmplx.Abs(a.At(k, k)))
	}
	return shifted(a, math.Max(f.Apply(0), loadEps*peak))
}

// loadedPair shifts the 2×2 Hermitian a so that its smallest eigenvalue is
// at least max(f(0), loadEps·λmax).
func loadedPair(a *mat.CDense, f floor.Floor) *mat.CDense {
	a11, a22 := real(a.At(0, 0)), real(a.At(1, 1))
	mid := (a11 + a22) / 2
	rad := math.Hypot((a11-a22)/2, cmplx.Abs(a.At(0, 1)))
	target := math.Max(f.Apply(0), loadEps*math.Abs(mid+rad))
	return shifted(a, math.Max(target-(mid-rad), target))
}

func shifted(a *mat.CDense, delta float64) *mat.CDense {
	n, _ := a.Dims()
	out := linalg.Clone(a)
	for k := 0; k < n; k++ {
		out.Set(k, k, out.At(k, k)+complex(delta, 0))
	}
	return out
}

// solveLoaded solves a·x = b. An ill-conditioned a keeps its solution, an
// exactly singular one is solved again as load(a). Both are counted in the
// report. A nil x with a nil error leaves the system unsolved. With
// [floor.Identity] a singular a is an error.
func solveLoaded(a *mat.CDense, b []complex128, f floor.Floor, load func(*mat.CDense, floor.Floor) *mat.CDense) ([]complex128, Report, error) {
	var rep Report
	x, err := linalg.SolveVec(a, b)
	switch {
	case err == nil:
		return x, rep, nil
	case errors.Is(err, linalg.ErrIllConditioned):
		rep.Degenerate++
		return x, rep, nil
	case floor.IsIdentity(f):
		return nil, rep, err
	}
	rep.Degenerate++
	x, _ = linalg.SolveVec(load(a, f), b)
	return x, rep, nil
}
