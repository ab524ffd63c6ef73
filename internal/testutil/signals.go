package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-bss/bss/tensor"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// ComplexNoise returns a tensor of circular complex Gaussian samples with
// unit variance per component.
func ComplexNoise(seed uint64, shape ...int) *tensor.Complex {
	c := tensor.NewComplex(shape...)
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := range c.Data {
		c.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return c
}

// Mixture is a synthetic instantaneous mixture in the STFT domain.
type Mixture struct {
	// Sources has shape (sources, bins, frames).
	Sources *tensor.Complex
	// Mixing has shape (bins, channels, sources).
	Mixing *tensor.Complex
	// Observed has shape (channels, bins, frames).
	Observed *tensor.Complex
}

// LowRankMixture draws n sources whose variance is the product of a
// spectral and a temporal envelope, and mixes them with a random n×n matrix
// per bin.
func LowRankMixture(seed uint64, n, bins, frames int) Mixture {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	src := tensor.NewComplex(n, bins, frames)
	for k := 0; k < n; k++ {
		spectral := make([]float64, bins)
		for i := range spectral {
			spectral[i] = 0.2 + rng.ExpFloat64()
		}
		temporal := make([]float64, frames)
		for j := range temporal {
			temporal[j] = 0.05 + rng.ExpFloat64()
		}
		for i := 0; i < bins; i++ {
			row := src.Row(k, i)
			for j := range row {
				sd := math.Sqrt(spectral[i] * temporal[j] / 2)
				row[j] = complex(sd*rng.NormFloat64(), sd*rng.NormFloat64())
			}
		}
	}

	mixing := tensor.NewComplex(bins, n, n)
	for i := 0; i < bins; i++ {
		a := mixing.Row(i)
		for m := 0; m < n; m++ {
			for k := 0; k < n; k++ {
				v := complex(0.5*rng.NormFloat64(), 0.5*rng.NormFloat64())
				if m == k {
					v += 1
				}
				a[m*n+k] = v
			}
		}
	}

	return Mixture{Sources: src, Mixing: mixing, Observed: Mix(mixing, src)}
}

// Mix returns x_ij = A_i·s_ij for mixing (bins, channels, sources) and
// sources (sources, bins, frames).
func Mix(mixing, src *tensor.Complex) *tensor.Complex {
	nI, nM, nN := mixing.Shape[0], mixing.Shape[1], mixing.Shape[2]
	nJ := src.Shape[2]
	x := tensor.NewComplex(nM, nI, nJ)
	for i := 0; i < nI; i++ {
		a := mixing.Row(i)
		for m := 0; m < nM; m++ {
			out := x.Row(m, i)
			for k := 0; k < nN; k++ {
				c := a[m*nN+k]
				in := src.Row(k, i)
				for j := range out {
					out[j] += c * in[j]
				}
			}
		}
	}
	return x
}
