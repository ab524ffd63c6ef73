package transform

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/linalg"
)

// Whiten decorrelates the channels of a spectrogram with shape (channels,
// bins, frames) bin by bin: with C_i = mean_j x_ij·x_ijᴴ = Q·Λ·Qᴴ the output
// is Λ^(-1/2)·Qᴴ·x_ij, whose covariance is the identity. f floors the
// eigenvalues; nil selects [floor.Default].
func Whiten(x *tensor.Complex, f floor.Floor) (*tensor.Complex, error) {
	if len(x.Shape) != 3 {
		return nil, fmt.Errorf("%w: spectrogram must have 3 axes, got %v", tensor.ErrShapeMismatch, x.Shape)
	}
	nM, nI, nJ := x.Shape[0], x.Shape[1], x.Shape[2]
	if nM == 0 || nI == 0 || nJ == 0 {
		return nil, ErrEmptyInput
	}
	if f == nil {
		f = floor.Default()
	}

	out := tensor.NewComplex(nM, nI, nJ)
	rows := make([][]complex128, nM)
	for i := 0; i < nI; i++ {
		for m := range rows {
			rows[m] = x.Row(m, i)
		}

		cov := mat.NewCDense(nM, nM, nil)
		for a := 0; a < nM; a++ {
			for b := a; b < nM; b++ {
				var s complex128
				for j := 0; j < nJ; j++ {
					s += rows[a][j] * cmplx.Conj(rows[b][j])
				}
				s /= complex(float64(nJ), 0)
				cov.Set(a, b, s)
				cov.Set(b, a, cmplx.Conj(s))
			}
		}

		vals, vecs, err := linalg.Eigh(cov)
		if err != nil {
			return nil, fmt.Errorf("transform: whiten bin %d: %w", i, err)
		}

		for k := 0; k < nM; k++ {
			g := complex(1/math.Sqrt(f.Apply(vals[k])), 0)
			dst := out.Row(k, i)
			for m := 0; m < nM; m++ {
				c := g * cmplx.Conj(vecs.At(m, k))
				src := rows[m]
				for j := range dst {
					dst[j] += c * src[j]
				}
			}
		}
	}
	return out, nil
}
