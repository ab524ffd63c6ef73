package nmf

import (
	"math/rand/v2"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"gonum.org/v1/gonum/floats"
)

// shared pools the components of all sources and assigns them through the
// latent weights Z.
type shared struct {
	shape Shape
	floor floor.Floor
	z     *tensor.Real // (N, K)
	t     *tensor.Real // (I, K)
	v     *tensor.Real // (K, J)
}

func (m *shared) basisShape() []int { return []int{m.shape.Bins, m.shape.Components} }

func (m *shared) activationShape() []int { return []int{m.shape.Components, m.shape.Frames} }

func (m *shared) latentShape() []int { return []int{m.shape.Sources, m.shape.Components} }

func (m *shared) factors() (basis, activation, latent *tensor.Real) {
	return m.t, m.v, m.z
}

func (m *shared) init(rng *rand.Rand, o Overrides) {
	if o.Latent != nil {
		m.z = o.Latent.Clone()
	} else {
		m.z = tensor.NewReal(m.latentShape()...)
		for x := range m.z.Data {
			m.z.Data[x] = rng.Float64()
		}
		m.normalizeLatent()
	}
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

// normalizeLatent divides every column of Z by its sum, then floors.
func (m *shared) normalizeLatent() {
	nN, nK := m.shape.Sources, m.shape.Components
	for k := 0; k < nK; k++ {
		var s float64
		for n := 0; n < nN; n++ {
			s += m.z.Data[n*nK+k]
		}
		for n := 0; n < nN; n++ {
			m.z.Data[n*nK+k] = m.floor.Apply(m.z.Data[n*nK+k] / s)
		}
	}
}

func (m *shared) reconstruct(dst *tensor.Real) {
	nI, nK := m.shape.Bins, m.shape.Components
	for n := 0; n < m.shape.Sources; n++ {
		zRow := m.z.Row(n)
		for i := 0; i < nI; i++ {
			out := dst.Row(n, i)
			clear(out)
			tRow := m.t.Row(i)
			for k := 0; k < nK; k++ {
				floats.AddScaled(out, zRow[k]*tRow[k], m.v.Row(k))
			}
		}
	}
}

// contractFrames returns Σ_j V[k,j]·a[n,i,j] with shape (N, I, K).
func (m *shared) contractFrames(a *tensor.Real) *tensor.Real {
	nI, nK := m.shape.Bins, m.shape.Components
	out := tensor.NewReal(m.shape.Sources, nI, nK)
	for n := 0; n < m.shape.Sources; n++ {
		for i := 0; i < nI; i++ {
			aRow, oRow := a.Row(n, i), out.Row(n, i)
			for k := 0; k < nK; k++ {
				oRow[k] = floats.Dot(m.v.Row(k), aRow)
			}
		}
	}
	return out
}

func (m *shared) updateLatent(q, r *tensor.Real, e float64) {
	vq, vr := m.contractFrames(q), m.contractFrames(r)
	num := tensor.NewReal(m.latentShape()...)
	den := tensor.NewReal(m.latentShape()...)
	tmp := make([]float64, m.shape.Components)
	for n := 0; n < m.shape.Sources; n++ {
		numRow, denRow := num.Row(n), den.Row(n)
		for i := 0; i < m.shape.Bins; i++ {
			tRow := m.t.Row(i)
			addProduct(numRow, tRow, vq.Row(n, i), tmp)
			addProduct(denRow, tRow, vr.Row(n, i), tmp)
		}
	}
	mmStep(m.z.Data, num.Data, den.Data, e, floor.Identity{})
	m.normalizeLatent()
}

func (m *shared) updateBasis(q, r *tensor.Real, e float64) {
	vq, vr := m.contractFrames(q), m.contractFrames(r)
	num := tensor.NewReal(m.basisShape()...)
	den := tensor.NewReal(m.basisShape()...)
	tmp := make([]float64, m.shape.Components)
	for n := 0; n < m.shape.Sources; n++ {
		zRow := m.z.Row(n)
		for i := 0; i < m.shape.Bins; i++ {
			addProduct(num.Row(i), zRow, vq.Row(n, i), tmp)
			addProduct(den.Row(i), zRow, vr.Row(n, i), tmp)
		}
	}
	mmStep(m.t.Data, num.Data, den.Data, e, m.floor)
}

func (m *shared) updateActivation(q, r *tensor.Real, e float64) {
	nI, nK := m.shape.Bins, m.shape.Components
	num := tensor.NewReal(m.activationShape()...)
	den := tensor.NewReal(m.activationShape()...)
	for n := 0; n < m.shape.Sources; n++ {
		zRow := m.z.Row(n)
		for i := 0; i < nI; i++ {
			qRow, rRow, tRow := q.Row(n, i), r.Row(n, i), m.t.Row(i)
			for k := 0; k < nK; k++ {
				c := zRow[k] * tRow[k]
				floats.AddScaled(num.Row(k), c, qRow)
				floats.AddScaled(den.Row(k), c, rRow)
			}
		}
	}
	mmStep(m.v.Data, num.Data, den.Data, e, m.floor)
}

// addProduct adds a ⊙ b to dst. tmp is scratch of the same length.
func addProduct(dst, a, b, tmp []float64) {
	floats.Add(dst, floats.MulTo(tmp, a, b))
}

func (m *shared) normalizePower(psiP []float64) {
	nN, nK := m.shape.Sources, m.shape.Components
	for k := 0; k < nK; k++ {
		var scale float64
		for n := 0; n < nN; n++ {
			m.z.Data[n*nK+k] /= psiP[n]
			scale += m.z.Data[n*nK+k]
		}
		for n := 0; n < nN; n++ {
			m.z.Data[n*nK+k] /= scale
		}
		for i := 0; i < m.shape.Bins; i++ {
			m.t.Data[i*nK+k] *= scale
		}
	}
}
