package nmf

import (
	"math/rand/v2"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"gonum.org/v1/gonum/floats"
)

// perSource gives every source its own basis and activation.
type perSource struct {
	shape Shape
	floor floor.Floor
	t     *tensor.Real // (N, I, K)
	v     *tensor.Real // (N, K, J)
}

func (m *perSource) basisShape() []int {
	return []int{m.shape.Sources, m.shape.Bins, m.shape.Components}
}

func (m *perSource) activationShape() []int {
	return []int{m.shape.Sources, m.shape.Components, m.shape.Frames}
}

func (m *perSource) latentShape() []int { return nil }

func (m *perSource) factors() (basis, activation, latent *tensor.Real) {
	return m.t, m.v, nil
}

func (m *perSource) init(rng *rand.Rand, o Overrides) {
	if o.Basis != nil {
		m.t = o.Basis.Clone()
	} else {
		m.t = tensor.NewReal(m.basisShape()...)
		randomFill(rng, m.t, m.floor)
	}
	if o.Activation != nil {
		m.v = o.Activation.Clone()
	} else {
		m.v = tensor.NewReal(m.activationShape()...)
		randomFill(rng, m.v, m.floor)
	}
}

func (m *perSource) reconstruct(dst *tensor.Real) {
	for n := 0; n < m.shape.Sources; n++ {
		for i := 0; i < m.shape.Bins; i++ {
			out := dst.Row(n, i)
			clear(out)
			for k, tk := range m.t.Row(n, i) {
				floats.AddScaled(out, tk, m.v.Row(n, k))
			}
		}
	}
}

func (m *perSource) updateLatent(_, _ *tensor.Real, _ float64) {}

func (m *perSource) updateBasis(q, r *tensor.Real, e float64) {
	num := tensor.NewReal(m.basisShape()...)
	den := tensor.NewReal(m.basisShape()...)
	for n := 0; n < m.shape.Sources; n++ {
		for i := 0; i < m.shape.Bins; i++ {
			qRow, rRow := q.Row(n, i), r.Row(n, i)
			numRow, denRow := num.Row(n, i), den.Row(n, i)
			for k := 0; k < m.shape.Components; k++ {
				vRow := m.v.Row(n, k)
				numRow[k] = floats.Dot(vRow, qRow)
				denRow[k] = floats.Dot(vRow, rRow)
			}
		}
	}
	mmStep(m.t.Data, num.Data, den.Data, e, m.floor)
}

func (m *perSource) updateActivation(q, r *tensor.Real, e float64) {
	num := tensor.NewReal(m.activationShape()...)
	den := tensor.NewReal(m.activationShape()...)
	for n := 0; n < m.shape.Sources; n++ {
		for i := 0; i < m.shape.Bins; i++ {
			qRow, rRow := q.Row(n, i), r.Row(n, i)
			for k, tk := range m.t.Row(n, i) {
				floats.AddScaled(num.Row(n, k), tk, qRow)
				floats.AddScaled(den.Row(n, k), tk, rRow)
			}
		}
	}
	mmStep(m.v.Data, num.Data, den.Data, e, m.floor)
}

func (m *perSource) normalizePower(psiP []float64) {
	for n, s := range psiP {
		floats.Scale(1/s, m.t.Row(n))
	}
}
