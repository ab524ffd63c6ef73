package ilrma

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/spatial"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/linalg"
)

// Loss returns the negative log-likelihood of the current state,
//
//	Σ_i [ Σ_n mean_j l(y_nij, r_nij) − 2·log|det W_i| ]
//
// where l is the per-element loss of the source distribution. The steering
// algorithms keep no filter, so W is estimated from the mixture and the
// output by least squares.
func (s *Separator) Loss() (float64, error) {
	if s.dist.Kind == nmf.Unspecified {
		return 0, ErrUnimplementedVariant
	}
	if s.y == nil {
		return 0, fmt.Errorf("ilrma: loss before the first separation")
	}

	w := s.w
	if w == nil {
		var err error
		if w, err = spatial.EstimateFilter(s.y, s.x); err != nil {
			return 0, fmt.Errorf("ilrma: loss: %w", err)
		}
	}

	nN, nI, nJ := s.y.Shape[0], s.y.Shape[1], s.y.Shape[2]
	p := s.cfg.Domain
	absY := s.y.Abs()
	tv := s.model.Reconstruct(s.tv)
	floor.InPlace(s.cfg.Floor, tv.Data)

	var loss float64
	for n := 0; n < nN; n++ {
		for i := 0; i < nI; i++ {
			a, r := absY.Row(n, i), tv.Row(n, i)
			var sum float64
			for j := range a {
				sum += s.dist.NegLogLikelihood(a[j], r[j], p)
			}
			loss += sum / float64(nJ)
		}
	}
	for i := 0; i < nI; i++ {
		ld, err := logAbsDet(w, i)
		if err != nil {
			return 0, fmt.Errorf("ilrma: loss, bin %d: %w", i, err)
		}
		loss -= 2 * ld
	}

	s.log.WithFields(logrus.Fields{
		"iteration": s.iter,
		"loss":      loss,
	}).Debug("loss")

	return loss, nil
}

func logAbsDet(w *tensor.Complex, i int) (float64, error) {
	nN, nM := w.Shape[1], w.Shape[2]
	return linalg.LogAbsDet(mat.NewCDense(nN, nM, w.Row(i)))
}
