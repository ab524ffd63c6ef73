package nmf

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-bss/bss/floor"
)

// ErrInvalidDistribution is returned for an unusable source distribution.
var ErrInvalidDistribution = errors.New("nmf: invalid source distribution")

// Kind selects the source distribution family.
type Kind int

const (
	// Unspecified is the zero Kind. It cannot drive any update.
	Unspecified Kind = iota
	// Gaussian models sources as complex Gaussian.
	Gaussian
	// StudentT models sources as complex Student's t with Nu degrees of freedom.
	StudentT
	// GeneralizedGaussian models sources as generalized Gaussian with shape Beta.
	GeneralizedGaussian
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Unspecified:
		return "unspecified"
	case Gaussian:
		return "gaussian"
	case StudentT:
		return "student-t"
	case GeneralizedGaussian:
		return "ggd"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Distribution is the source model: a kind plus its shape parameter.
type Distribution struct {
	Kind Kind
	// Nu is the degrees of freedom of [StudentT].
	Nu float64
	// Beta is the shape of [GeneralizedGaussian].
	Beta float64
}

// Gauss returns the Gaussian source model.
func Gauss() Distribution { return Distribution{Kind: Gaussian} }

// T returns the Student's t source model with nu degrees of freedom.
func T(nu float64) Distribution { return Distribution{Kind: StudentT, Nu: nu} }

// GGD returns the generalized Gaussian source model with shape beta.
func GGD(beta float64) Distribution { return Distribution{Kind: GeneralizedGaussian, Beta: beta} }

// String implements fmt.Stringer.
func (d Distribution) String() string {
	switch d.Kind {
	case StudentT:
		return fmt.Sprintf("student-t(nu=%g)", d.Nu)
	case GeneralizedGaussian:
		return fmt.Sprintf("ggd(beta=%g)", d.Beta)
	default:
		return d.Kind.String()
	}
}

// Validate checks the shape parameter against the valid range of the kind.
// The zero Distribution is reported as invalid.
func (d Distribution) Validate() error {
	switch d.Kind {
	case Gaussian:
		return nil
	case StudentT:
		if !(d.Nu > 0) || math.IsInf(d.Nu, 0) {
			return fmt.Errorf("%w: degrees of freedom must be > 0 and finite: %v", ErrInvalidDistribution, d.Nu)
		}
		return nil
	case GeneralizedGaussian:
		if !(d.Beta > 0 && d.Beta < 2) {
			return fmt.Errorf("%w: shape must be in (0, 2): %v", ErrInvalidDistribution, d.Beta)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDistribution, d.Kind)
	}
}

// Exponent returns the exponent of the multiplicative update for domain p.
func (d Distribution) Exponent(p float64) float64 {
	if d.Kind == GeneralizedGaussian {
		return p / (d.Beta + p)
	}
	return p / (p + 2)
}

// Aux returns the normalized power of one time-frequency point entering the
// numerator of the multiplicative update, given the source magnitude |y| and
// the reconstructed NMF value tv.
//
//	Gaussian   |y|² / tv^(2/p)
//	Student-t  |y|² / (ν/(ν+2)·tv^(2/p) + 2/(ν+2)·|y|²)
//	GGD        (β/2)·|y|^β / tv^(β/p)
func (d Distribution) Aux(absY, tv, p float64) float64 {
	switch d.Kind {
	case StudentT:
		y2 := absY * absY
		return y2 / d.blend(y2, tv, p)
	case GeneralizedGaussian:
		return d.Beta / 2 * math.Pow(absY, d.Beta) / math.Pow(tv, d.Beta/p)
	default:
		return absY * absY / math.Pow(tv, 2/p)
	}
}

// Weight returns the spatial weight varphi of one time-frequency point, the
// inverse of the (auxiliary) source variance used by the spatial updates.
// f floors |y|^(2-β) for the generalized Gaussian model.
func (d Distribution) Weight(absY, tv, p float64, f floor.Floor) float64 {
	switch d.Kind {
	case StudentT:
		return 1 / d.blend(absY*absY, tv, p)
	case GeneralizedGaussian:
		y := f.Apply(math.Pow(absY, 2-d.Beta))
		return d.Beta / (2 * y * math.Pow(tv, d.Beta/p))
	default:
		return 1 / math.Pow(tv, 2/p)
	}
}

// NegLogLikelihood returns the per-point negative log-likelihood, up to
// constants, used by the loss.
func (d Distribution) NegLogLikelihood(absY, tv, p float64) float64 {
	logTerm := 2 / p * math.Log(tv)
	switch d.Kind {
	case StudentT:
		y2 := absY * absY / math.Pow(tv, 2/p)
		return (1+d.Nu/2)*math.Log1p(2/d.Nu*y2) + logTerm
	case GeneralizedGaussian:
		return math.Pow(absY, d.Beta)/math.Pow(tv, d.Beta/p) + logTerm
	default:
		return absY*absY/math.Pow(tv, 2/p) + logTerm
	}
}

// blend returns ν/(ν+2)·tv^(2/p) + 2/(ν+2)·|y|².
func (d Distribution) blend(y2, tv, p float64) float64 {
	w := d.Nu / (d.Nu + 2)
	return w*math.Pow(tv, 2/p) + (1-w)*y2
}
