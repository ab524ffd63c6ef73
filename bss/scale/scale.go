// Package scale resolves the scale ambiguity of blind source separation.
//
// Two per-iteration normalizations keep the demixing state and the source
// power model consistent ([NormalizePower], [NormalizeProjectionBack]), and
// projection back ([ProjectionBackFilter], [ProjectionBackOutput]) restores
// the scale of the mixture's reference channel once separation is done.
package scale

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/linalg"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidReference is returned for a reference channel outside the mixture.
var ErrInvalidReference = errors.New("scale: invalid reference channel")

// State is the separation state touched by a normalization. W is nil when
// the algorithm updates Y directly. When W is set, Y must equal W·X and is
// kept so.
type State struct {
	X      *tensor.Complex
	W      *tensor.Complex
	Y      *tensor.Complex
	Model  *nmf.Model
	Domain float64
	Floor  floor.Floor
}

func (s State) floor() floor.Floor {
	if s.Floor == nil {
		return floor.Default()
	}
	return s.Floor
}

// SourcePower returns ψ_n = sqrt(mean_{i,j} |y_nij|²), floored, per source.
func SourcePower(y *tensor.Complex, f floor.Floor) []float64 {
	nN := y.Shape[0]
	power := y.Power()
	psi := make([]float64, nN)
	for n := range psi {
		plane := power.Row(n)
		psi[n] = floor.Sqrt(f, vecmath.Sum(plane)/float64(len(plane)))
	}
	return psi
}

// NormalizePower scales every source to unit mean power and compensates the
// power model so the modelled variance follows.
func NormalizePower(s State) error {
	psi := SourcePower(s.Y, s.floor())
	s.Model.NormalizePower(psi, s.Domain)

	nI := s.Y.Shape[1]
	for n, v := range psi {
		inv := 1 / v
		cmplxs.ScaleReal(inv, s.Y.Row(n))
		if s.W == nil {
			continue
		}
		for i := 0; i < nI; i++ {
			cmplxs.ScaleReal(inv, s.W.Row(i, n))
		}
	}
	return nil
}

// NormalizeProjectionBack applies projection back towards channel ref and
// multiplies the basis by |scale|^p. It is undefined for a partitioned model.
func NormalizeProjectionBack(s State, ref int) error {
	if s.Model.Partitioned() {
		return fmt.Errorf("scale: projection-back normalization: %w", nmf.ErrPartitioned)
	}

	var (
		sc  *tensor.Complex
		err error
	)
	if s.W != nil {
		sc, err = ProjectionBackFilter(s.W, ref)
		if err == nil {
			applyOutputScale(s.Y, sc)
		}
	} else {
		sc, err = ProjectionBackOutput(s.Y, s.X, ref)
	}
	if err != nil {
		return err
	}

	nI, nN := sc.Shape[0], sc.Shape[1]
	gain := tensor.NewReal(nN, nI)
	for i := 0; i < nI; i++ {
		for n := 0; n < nN; n++ {
			gain.Data[n*nI+i] = math.Pow(cmplx.Abs(sc.Data[i*nN+n]), s.Domain)
		}
	}
	return s.Model.ScaleBasis(gain)
}

// ProjectionBackFilter scales each row n of W_i by (W_i⁻¹)[ref, n] in place
// and returns the scale factors with shape (bins, sources).
func ProjectionBackFilter(w *tensor.Complex, ref int) (*tensor.Complex, error) {
	nI, nN, nM := w.Shape[0], w.Shape[1], w.Shape[2]
	if ref < 0 || ref >= nM {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidReference, ref, nM)
	}

	sc := tensor.NewComplex(nI, nN)
	for i := 0; i < nI; i++ {
		inv, err := linalg.Inverse(mat.NewCDense(nN, nM, w.Row(i)))
		if err != nil && !errors.Is(err, linalg.ErrIllConditioned) {
			return nil, fmt.Errorf("scale: projection back, bin %d: %w", i, err)
		}
		row := sc.Row(i)
		for n := 0; n < nN; n++ {
			row[n] = inv.At(ref, n)
			cmplxs.Scale(row[n], w.Row(i, n))
		}
	}
	return sc, nil
}

// ProjectionBackOutput scales each source of y by ((X·Yᴴ)·(Y·Yᴴ)⁻¹)[ref, n]
// per bin, in place, and returns the scale factors with shape (bins, sources).
func ProjectionBackOutput(y, x *tensor.Complex, ref int) (*tensor.Complex, error) {
	nN, nI, nJ := y.Shape[0], y.Shape[1], y.Shape[2]
	nM := x.Shape[0]
	if err := x.Check("mixture", nM, nI, nJ); err != nil {
		return nil, err
	}
	if ref < 0 || ref >= nM {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidReference, ref, nM)
	}

	sc := tensor.NewComplex(nI, nN)
	for i := 0; i < nI; i++ {
		yy := mat.NewCDense(nN, nN, nil)
		xy := make([]complex128, nN)
		xr := x.Row(ref, i)
		for a := 0; a < nN; a++ {
			ya := y.Row(a, i)
			xy[a] = cmplxs.Dot(ya, xr)
			for b := 0; b < nN; b++ {
				yy.Set(a, b, cmplxs.Dot(y.Row(b, i), ya))
			}
		}
		inv, err := linalg.Inverse(yy)
		if err != nil && !errors.Is(err, linalg.ErrIllConditioned) {
			return nil, fmt.Errorf("scale: projection back, bin %d: %w", i, err)
		}
		row := sc.Row(i)
		for n := 0; n < nN; n++ {
			var s complex128
			for a := 0; a < nN; a++ {
				s += xy[a] * inv.At(a, n)
			}
			row[n] = s
		}
	}
	applyOutputScale(y, sc)
	return sc, nil
}

// applyOutputScale multiplies y[n,i,:] by sc[i,n].
func applyOutputScale(y, sc *tensor.Complex) {
	nN, nI := y.Shape[0], y.Shape[1]
	for n := 0; n < nN; n++ {
		for i := 0; i < nI; i++ {
			cmplxs.Scale(sc.Data[i*nN+n], y.Row(n, i))
		}
	}
}
