// Package floor provides the flooring strategies that keep quantities away
// from zero before they are divided by, raised to a negative power or passed
// to a logarithm.
package floor

import "math"

// DefaultEpsilon is the floor used by [Default].
const DefaultEpsilon = 1e-15

// Floor clamps a value for numerical stability. Implementations must be
// pure and elementwise.
type Floor interface {
	Apply(x float64) float64
}

// Max floors values at Eps: max(x, Eps).
type Max struct {
	Eps float64
}

// Apply returns max(x, m.Eps). NaN is passed through.
func (m Max) Apply(x float64) float64 {
	if x < m.Eps {
		return m.Eps
	}
	return x
}

// Identity disables flooring.
type Identity struct{}

// Apply returns x unchanged.
func (Identity) Apply(x float64) float64 { return x }

// Default returns Max{Eps: DefaultEpsilon}.
func Default() Floor {
	return Max{Eps: DefaultEpsilon}
}

// InPlace applies f to every element of x.
func InPlace(f Floor, x []float64) {
	for i, v := range x {
		x[i] = f.Apply(v)
	}
}

// IsIdentity reports whether f leaves every value untouched.
func IsIdentity(f Floor) bool {
	_, ok := f.(Identity)
	return ok
}

// Sqrt returns sqrt(f(x)), the common "normalize by a floored power" step.
func Sqrt(f Floor, x float64) float64 {
	return math.Sqrt(f.Apply(x))
}
