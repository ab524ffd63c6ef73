package main

import (
	"math"
	"math/rand/v2"
)

// scene is a synthetic instantaneous mixture with the source images at the
// reference microphone.
type scene struct {
	mixture [][]float64
	images  [][]float64
}

// mixing is the instantaneous 2×2 mixing matrix, rows are microphones.
var mixing = [2][2]float64{
	{1, 0.6},
	{0.5, 1},
}

// synthesize returns a harmonic tone with a slow tremolo and bursts of
// noise, mixed by [mixing]. Images are taken at microphone 0.
func synthesize(seed uint64, length int, sampleRate float64) scene {
	rng := rand.New(rand.NewPCG(seed, seed+1))

	tone := make([]float64, length)
	for t := range tone {
		ts := float64(t) / sampleRate
		env := 0.6 + 0.4*math.Sin(2*math.Pi*0.7*ts)
		var v float64
		for h := 1; h <= 5; h++ {
			v += math.Sin(2*math.Pi*220*float64(h)*ts) / float64(h)
		}
		tone[t] = 0.3 * env * v
	}

	noise := make([]float64, length)
	burst := int(0.25 * sampleRate)
	for t := range noise {
		if burst > 0 && (t/burst)%2 == 0 {
			noise[t] = 0.4 * rng.NormFloat64()
		}
	}

	sources := [][]float64{tone, noise}
	sc := scene{
		mixture: make([][]float64, 2),
		images:  make([][]float64, 2),
	}
	for m := range sc.mixture {
		sc.mixture[m] = make([]float64, length)
		for n, src := range sources {
			for t, v := range src {
				sc.mixture[m][t] += mixing[m][n] * v
			}
		}
	}
	for n, src := range sources {
		sc.images[n] = make([]float64, length)
		for t, v := range src {
			sc.images[n][t] = mixing[0][n] * v
		}
	}
	return sc
}
