package nmf

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidShape is returned for non-positive model dimensions.
	ErrInvalidShape = errors.New("nmf: invalid model shape")
	// ErrPartitioned is returned by operations undefined for the partitioned layout.
	ErrPartitioned = errors.New("nmf: not supported with partitioning")
)

// Shape gives the model dimensions.
type Shape struct {
	Sources    int
	Bins       int
	Frames     int
	Components int
}

func (s Shape) validate() error {
	if s.Sources < 1 || s.Bins < 1 || s.Frames < 1 || s.Components < 1 {
		return fmt.Errorf("%w: %+v", ErrInvalidShape, s)
	}
	return nil
}

// Overrides pre-seeds model factors. Nil fields are drawn at random. The
// tensors are copied.
type Overrides struct {
	Basis      *tensor.Real
	Activation *tensor.Real
	Latent     *tensor.Real
}

// factorization is one of the two factor layouts.
type factorization interface {
	basisShape() []int
	activationShape() []int
	latentShape() []int
	init(rng *rand.Rand, o Overrides)
	reconstruct(dst *tensor.Real)
	updateLatent(q, r *tensor.Real, e float64)
	updateBasis(q, r *tensor.Real, e float64)
	updateActivation(q, r *tensor.Real, e float64)
	normalizePower(psiP []float64)
	factors() (basis, activation, latent *tensor.Real)
}

// Model is the source power model of all sources.
type Model struct {
	shape Shape
	floor floor.Floor
	rng   *rand.Rand
	impl  factorization

	tv, q, r *tensor.Real
}

// New returns a model with the given dimensions. Factors are not set until
// [Model.Reset] is called. rng provides the random initialization.
func New(shape Shape, partitioned bool, f floor.Floor, rng *rand.Rand) (*Model, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if f == nil {
		f = floor.Default()
	}
	if rng == nil {
		return nil, errors.New("nmf: nil random generator")
	}

	m := &Model{
		shape: shape,
		floor: f,
		rng:   rng,
		tv:    tensor.NewReal(shape.Sources, shape.Bins, shape.Frames),
		q:     tensor.NewReal(shape.Sources, shape.Bins, shape.Frames),
		r:     tensor.NewReal(shape.Sources, shape.Bins, shape.Frames),
	}
	if partitioned {
		m.impl = &shared{shape: shape, floor: f}
	} else {
		m.impl = &perSource{shape: shape, floor: f}
	}
	return m, nil
}

// Reset validates the overrides against the model shape and (re)initializes
// every factor. Nothing is modified when validation fails.
func (m *Model) Reset(o Overrides) error {
	if o.Basis != nil {
		if err := o.Basis.Check("basis", m.impl.basisShape()...); err != nil {
			return err
		}
	}
	if o.Activation != nil {
		if err := o.Activation.Check("activation", m.impl.activationShape()...); err != nil {
			return err
		}
	}
	if o.Latent != nil {
		want := m.impl.latentShape()
		if want == nil {
			return fmt.Errorf("%w: latent override without partitioning", tensor.ErrShapeMismatch)
		}
		if err := o.Latent.Check("latent", want...); err != nil {
			return err
		}
	}
	m.impl.init(m.rng, o)
	return nil
}

// Shape returns the model dimensions.
func (m *Model) Shape() Shape { return m.shape }

// Partitioned reports whether components are shared across sources.
func (m *Model) Partitioned() bool {
	_, ok := m.impl.(*shared)
	return ok
}

// Basis returns the basis tensor T. It aliases the model state.
func (m *Model) Basis() *tensor.Real {
	t, _, _ := m.impl.factors()
	return t
}

// Activation returns the activation tensor V. It aliases the model state.
func (m *Model) Activation() *tensor.Real {
	_, v, _ := m.impl.factors()
	return v
}

// Latent returns the latent weights Z, or nil without partitioning.
func (m *Model) Latent() *tensor.Real {
	_, _, z := m.impl.factors()
	return z
}

// Reconstruct writes TV (or ZTV) with shape (sources, bins, frames) into dst
// and returns it. A nil dst is allocated.
func (m *Model) Reconstruct(dst *tensor.Real) *tensor.Real {
	if dst == nil {
		dst = tensor.NewReal(m.shape.Sources, m.shape.Bins, m.shape.Frames)
	}
	m.impl.reconstruct(dst)
	return dst
}

// Update runs one multiplicative update of the latent weights (partitioned
// only), the basis and the activation, in that order. absY holds |Y| with
// shape (sources, bins, frames).
func (m *Model) Update(d Distribution, p float64, absY *tensor.Real) {
	e := d.Exponent(p)
	if m.Partitioned() {
		m.prepare(d, p, absY)
		m.impl.updateLatent(m.q, m.r, e)
	}
	m.prepare(d, p, absY)
	m.impl.updateBasis(m.q, m.r, e)
	m.prepare(d, p, absY)
	m.impl.updateActivation(m.q, m.r, e)
}

// prepare refreshes the floored reconstruction and fills q = A/TV and
// r = 1/TV.
func (m *Model) prepare(d Distribution, p float64, absY *tensor.Real) {
	m.impl.reconstruct(m.tv)
	floor.InPlace(m.floor, m.tv.Data)
	for x, tv := range m.tv.Data {
		m.q.Data[x] = d.Aux(absY.Data[x], tv, p) / tv
		m.r.Data[x] = 1 / tv
	}
}

// NormalizePower rescales the factors after the sources were divided by
// psi (one value per source), so that the modelled variance follows.
func (m *Model) NormalizePower(psi []float64, p float64) {
	psiP := make([]float64, len(psi))
	for n, v := range psi {
		psiP[n] = math.Pow(v, p)
	}
	m.impl.normalizePower(psiP)
}

// ScaleBasis multiplies T[n,i,:] by gain[n,i]. gain has shape (sources, bins).
// It is undefined for the partitioned layout.
func (m *Model) ScaleBasis(gain *tensor.Real) error {
	ps, ok := m.impl.(*perSource)
	if !ok {
		return ErrPartitioned
	}
	if err := gain.Check("gain", m.shape.Sources, m.shape.Bins); err != nil {
		return err
	}
	for n := 0; n < m.shape.Sources; n++ {
		for i := 0; i < m.shape.Bins; i++ {
			floats.Scale(gain.Data[n*m.shape.Bins+i], ps.t.Row(n, i))
		}
	}
	return nil
}

// mmStep applies param ← floor(param · (num/den)^e) elementwise.
func mmStep(param, num, den []float64, e float64, f floor.Floor) {
	for x := range param {
		param[x] *= math.Pow(num[x]/den[x], e)
	}
	floor.InPlace(f, param)
}

func randomFill(rng *rand.Rand, t *tensor.Real, f floor.Floor) {
	for x := range t.Data {
		t.Data[x] = f.Apply(rng.Float64())
	}
}
