// Package window generates the analysis and synthesis windows of the
// short-time Fourier transform.
package window

import (
	"errors"
	"fmt"
	"math"
	"strings"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var (
	cosineCoeffs = map[Type][]float64{
		TypeHann:     {0.5, -0.5},
		TypeHamming:  {0.54, -0.46},
		TypeBlackman: {0.42, -0.5, 0.08},
	}
	names = map[Type]string{
		TypeRectangular: "rectangular",
		TypeHann:        "hann",
		TypeHamming:     "hamming",
		TypeBlackman:    "blackman",
	}
)

var (
	// ErrUnknownType is returned by [ParseType] for an unknown window name.
	ErrUnknownType = errors.New("window: unknown window type")

	errMismatchedLength = errors.New("window: samples and coefficients must have same length")
)

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the window named s, ignoring case and surrounding space.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range names {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	coeffs, cosine := cosineCoeffs[t]
	for i := range out {
		if !cosine {
			out[i] = 1
			continue
		}
		out[i] = cosineFromCoeffs(samplePosition(i, length, cfg.periodic), coeffs)
	}
	return out
}

// ApplyCoefficientsInPlace multiplies samples with coefficients in place.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errMismatchedLength
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
