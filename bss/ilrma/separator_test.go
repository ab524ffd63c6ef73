package ilrma

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/spatial"
	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/internal/testutil"
)

func quiet() Option {
	logger, _ := logtest.NewNullLogger()
	return WithLogger(logger)
}

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

func TestSeparateEndToEnd(t *testing.T) {
	mix := testutil.LowRankMixture(42, 2, 17, 10)

	s, err := New(2, nmf.Gauss(), WithSpatialAlgorithm(spatial.IP1), seeded(42), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := s.Separate(mix.Observed, 5, Overrides{})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}

	if fmt.Sprint(out.Shape) != "[2 17 10]" {
		t.Fatalf("output shape = %v, want [2 17 10]", out.Shape)
	}
	testutil.RequireFiniteComplex(t, out.Data)

	losses := s.Losses()
	if len(losses) != 6 {
		t.Fatalf("len(losses) = %d, want 6", len(losses))
	}
	testutil.RequireFinite(t, losses)
	if losses[5] >= losses[0] {
		t.Fatalf("loss did not decrease: %v", losses)
	}
	if s.Iteration() != 5 {
		t.Fatalf("iteration = %d, want 5", s.Iteration())
	}
}

func TestSeparateLossNearlyMonotone(t *testing.T) {
	mix := testutil.LowRankMixture(3, 2, 12, 40)

	for _, alg := range []spatial.Algorithm{spatial.IP1, spatial.ISS1} {
		for _, p := range []float64{1, 2} {
			t.Run(fmt.Sprintf("%s/p=%g", alg, p), func(t *testing.T) {
				s, err := New(3, nmf.Gauss(), WithSpatialAlgorithm(alg), WithDomain(p), seeded(5), quiet())
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				if _, err := s.Separate(mix.Observed, 30, Overrides{}); err != nil {
					t.Fatalf("Separate: %v", err)
				}

				requireNearlyMonotone(t, s.Losses())
			})
		}
	}
}

func requireNearlyMonotone(t *testing.T, losses []float64) {
	t.Helper()
	testutil.RequireFinite(t, losses)
	for k := 1; k < len(losses); k++ {
		tol := 1e-6 * (1 + math.Abs(losses[k-1]))
		if losses[k] > losses[k-1]+tol {
			t.Fatalf("loss increased at iteration %d: %v -> %v", k, losses[k-1], losses[k])
		}
	}
	if losses[len(losses)-1] >= losses[0] {
		t.Fatalf("loss did not decrease: first %v, last %v", losses[0], losses[len(losses)-1])
	}
}

// Three sources with a heavy-tailed model drive some bins towards a
// degenerate pencil; the pair is then kept instead of aborting the run.
func TestSeparateIP2ThreeSourcesCompletes(t *testing.T) {
	mix := testutil.LowRankMixture(9, 3, 10, 40)

	s, err := New(3, nmf.GGD(1), WithSpatialAlgorithm(spatial.IP2), seeded(2), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Separate(mix.Observed, 40, Overrides{})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	testutil.RequireFiniteComplex(t, out.Data)
	testutil.RequireFinite(t, s.Losses())
	if s.Iteration() != 40 {
		t.Fatalf("iteration = %d, want 40", s.Iteration())
	}
}

func TestSeparateUnnormalizedIP1NearlyMonotone(t *testing.T) {
	mix := testutil.LowRankMixture(9, 3, 10, 40)

	s, err := New(3, nmf.Gauss(),
		WithSpatialAlgorithm(spatial.IP1),
		WithNormalization(NormalizeOff),
		seeded(2),
		quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Separate(mix.Observed, 40, Overrides{})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	testutil.RequireFiniteComplex(t, out.Data)
	requireNearlyMonotone(t, s.Losses())
}

type countingFloor struct {
	calls int
}

func (c *countingFloor) Apply(x float64) float64 {
	c.calls++
	return math.Max(x, 1e-15)
}

func TestAlignPermutationUsesConfiguredFloor(t *testing.T) {
	mix := testutil.LowRankMixture(4, 2, 6, 8)
	f := &countingFloor{}

	s, err := New(2, nmf.Gauss(), WithFloor(f), seeded(4), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 2, Overrides{}); err != nil {
		t.Fatalf("Separate: %v", err)
	}

	f.calls = 0
	if err := s.alignPermutation(); err != nil {
		t.Fatalf("alignPermutation: %v", err)
	}
	// One floored norm per bin and frame.
	if want := 6 * 8; f.calls != want {
		t.Fatalf("floor calls = %d, want %d", f.calls, want)
	}
}

func TestSeparateAllVariants(t *testing.T) {
	mix := testutil.LowRankMixture(11, 3, 9, 16)
	dists := []nmf.Distribution{nmf.Gauss(), nmf.T(1), nmf.GGD(1)}
	algs := []spatial.Algorithm{spatial.IP1, spatial.IP2, spatial.ISS1, spatial.ISS2}

	for _, d := range dists {
		for _, alg := range algs {
			for _, partitioned := range []bool{false, true} {
				name := fmt.Sprintf("%s/%s/partitioned=%t", d, alg, partitioned)
				t.Run(name, func(t *testing.T) {
					s, err := New(2, d,
						WithSpatialAlgorithm(alg),
						WithPartitioning(partitioned),
						WithDomain(1),
						seeded(1), quiet())
					if err != nil {
						t.Fatalf("New: %v", err)
					}

					out, err := s.Separate(mix.Observed, 3, Overrides{})
					if err != nil {
						t.Fatalf("Separate: %v", err)
					}
					if fmt.Sprint(out.Shape) != fmt.Sprint(mix.Observed.Shape) {
						t.Fatalf("output shape = %v, want %v", out.Shape, mix.Observed.Shape)
					}
					testutil.RequireFiniteComplex(t, out.Data)
					testutil.RequireFinite(t, s.Losses())
					if (s.DemixFilter() != nil) != alg.UsesFilter() {
						t.Fatalf("demixing filter kept = %t for %s", s.DemixFilter() != nil, alg)
					}
				})
			}
		}
	}
}

func TestSeparateProjectionBackNormalization(t *testing.T) {
	mix := testutil.LowRankMixture(12, 2, 8, 20)

	for _, alg := range []spatial.Algorithm{spatial.IP1, spatial.ISS2} {
		t.Run(alg.String(), func(t *testing.T) {
			s, err := New(2, nmf.T(4),
				WithSpatialAlgorithm(alg),
				WithNormalization(NormalizeProjectionBack),
				WithReferenceID(1),
				seeded(2), quiet())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			out, err := s.Separate(mix.Observed, 4, Overrides{})
			if err != nil {
				t.Fatalf("Separate: %v", err)
			}
			testutil.RequireFiniteComplex(t, out.Data)
			testutil.RequireFinite(t, s.Losses())
		})
	}
}

func TestSeparateScaleRestorationSumsToReference(t *testing.T) {
	mix := testutil.LowRankMixture(21, 2, 6, 24)

	for _, alg := range []spatial.Algorithm{spatial.IP1, spatial.ISS1} {
		t.Run(alg.String(), func(t *testing.T) {
			s, err := New(2, nmf.Gauss(), WithSpatialAlgorithm(alg), WithReferenceID(1), seeded(3), quiet())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			out, err := s.Separate(mix.Observed, 5, Overrides{})
			if err != nil {
				t.Fatalf("Separate: %v", err)
			}

			// In a determined mixture the projected images add up to the
			// reference channel.
			sum := make([]complex128, 6*24)
			for n := 0; n < 2; n++ {
				for k, v := range out.Row(n) {
					sum[k] += v
				}
			}
			testutil.RequireComplexNearlyEqual(t, sum, mix.Observed.Row(1), 1e-8)
		})
	}
}

func TestSeparateWithPermutationAlignment(t *testing.T) {
	mix := testutil.LowRankMixture(8, 2, 10, 20)

	s, err := New(2, nmf.Gauss(), WithPermutationAlignment(true), seeded(8), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Separate(mix.Observed, 3, Overrides{})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	testutil.RequireFiniteComplex(t, out.Data)
	testutil.RequireComplexNearlyEqual(t, out.Data, spatial.Demix(s.DemixFilter(), mix.Observed).Data, 1e-9)
}

func TestSeparateDoesNotModifyInput(t *testing.T) {
	mix := testutil.LowRankMixture(4, 2, 5, 8)
	before := mix.Observed.Clone()

	s, err := New(2, nmf.Gauss(), WithSpatialAlgorithm(spatial.ISS1), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 2, Overrides{}); err != nil {
		t.Fatalf("Separate: %v", err)
	}
	testutil.RequireComplexNearlyEqual(t, mix.Observed.Data, before.Data, 0)
}

func TestSeparateDeterministic(t *testing.T) {
	mix := testutil.LowRankMixture(6, 2, 5, 8)

	run := func() *tensor.Complex {
		s, err := New(2, nmf.GGD(1.2), seeded(77), quiet())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		out, err := s.Separate(mix.Observed, 3, Overrides{})
		if err != nil {
			t.Fatalf("Separate: %v", err)
		}
		return out
	}
	testutil.RequireComplexNearlyEqual(t, run().Data, run().Data, 0)
}

func TestSeparateOverrides(t *testing.T) {
	mix := testutil.LowRankMixture(9, 2, 4, 6)
	w := testutil.ComplexNoise(1, 4, 2, 2)

	for _, alg := range []spatial.Algorithm{spatial.IP1, spatial.ISS1} {
		t.Run(alg.String(), func(t *testing.T) {
			s, err := New(2, nmf.Gauss(),
				WithSpatialAlgorithm(alg),
				WithScaleRestoration(RestoreOff),
				WithNormalization(NormalizeOff),
				quiet())
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			basis := tensor.NewReal(2, 4, 2)
			for k := range basis.Data {
				basis.Data[k] = 0.5
			}
			out, err := s.Separate(mix.Observed, 0, Overrides{DemixFilter: w, Basis: basis})
			if err != nil {
				t.Fatalf("Separate: %v", err)
			}
			testutil.RequireComplexNearlyEqual(t, out.Data, spatial.Demix(w, mix.Observed).Data, 1e-12)
			testutil.RequireSliceNearlyEqual(t, s.Model().Basis().Data, basis.Data, 0)
			if len(s.Losses()) != 1 {
				t.Fatalf("len(losses) = %d, want 1", len(s.Losses()))
			}
		})
	}
}

func TestSeparateShapeMismatch(t *testing.T) {
	mix := testutil.LowRankMixture(10, 2, 4, 6)

	tests := []struct {
		name string
		x    *tensor.Complex
		o    Overrides
	}{
		{"mixture rank", tensor.NewComplex(2, 4), Overrides{}},
		{"demixing filter", mix.Observed, Overrides{DemixFilter: tensor.NewComplex(4, 2, 3)}},
		{"short demixing filter", mix.Observed, Overrides{DemixFilter: &tensor.Complex{Shape: []int{4, 2, 2}, Data: make([]complex128, 3)}}},
		{"short mixture", &tensor.Complex{Shape: []int{2, 4, 6}, Data: make([]complex128, 3)}, Overrides{}},
		{"short basis", mix.Observed, Overrides{Basis: &tensor.Real{Shape: []int{2, 4, 2}, Data: make([]float64, 3)}}},
		{"basis", mix.Observed, Overrides{Basis: tensor.NewReal(2, 4, 3)}},
		{"activation", mix.Observed, Overrides{Activation: tensor.NewReal(2, 2, 5)}},
		{"latent without partitioning", mix.Observed, Overrides{Latent: tensor.NewReal(2, 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(2, nmf.Gauss(), quiet())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = s.Separate(tt.x, 1, tt.o)
			if !errors.Is(err, tensor.ErrShapeMismatch) {
				t.Fatalf("err = %v, want ErrShapeMismatch", err)
			}
			if s.Output() != nil || s.Model() != nil {
				t.Fatal("state must not be touched on a failed reset")
			}
		})
	}
}

func TestSeparateInvalidCalls(t *testing.T) {
	mix := testutil.LowRankMixture(10, 2, 4, 6)

	s, err := New(2, nmf.Gauss(), WithReferenceID(2), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 1, Overrides{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("reference out of range: err = %v, want ErrInvalidConfig", err)
	}
	if _, err := s.Separate(mix.Observed, -1, Overrides{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("negative iterations: err = %v, want ErrInvalidConfig", err)
	}
	if err := s.UpdateOnce(); err == nil {
		t.Fatal("UpdateOnce before Separate should fail")
	}
	if _, err := s.Loss(); err == nil {
		t.Fatal("Loss before Separate should fail")
	}
}

func TestUnimplementedVariant(t *testing.T) {
	s, err := New(2, nmf.Distribution{}, quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mix := testutil.LowRankMixture(1, 2, 3, 4)
	if _, err := s.Separate(mix.Observed, 1, Overrides{}); !errors.Is(err, ErrUnimplementedVariant) {
		t.Fatalf("Separate: err = %v, want ErrUnimplementedVariant", err)
	}
	if err := s.UpdateOnce(); !errors.Is(err, ErrUnimplementedVariant) {
		t.Fatalf("UpdateOnce: err = %v, want ErrUnimplementedVariant", err)
	}
	if _, err := s.Loss(); !errors.Is(err, ErrUnimplementedVariant) {
		t.Fatalf("Loss: err = %v, want ErrUnimplementedVariant", err)
	}
}

func TestCallbacks(t *testing.T) {
	mix := testutil.LowRankMixture(2, 2, 4, 6)

	var seen []int
	record := func(s *Separator) error {
		seen = append(seen, s.Iteration())
		return nil
	}
	s, err := New(2, nmf.Gauss(), WithCallbacks(record), WithRecordLoss(false), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 3, Overrides{}); err != nil {
		t.Fatalf("Separate: %v", err)
	}
	if fmt.Sprint(seen) != "[0 1 2 3]" {
		t.Fatalf("callback iterations = %v, want [0 1 2 3]", seen)
	}
	if len(s.Losses()) != 0 {
		t.Fatalf("losses recorded while disabled: %v", s.Losses())
	}

	stop := errors.New("stop")
	s, err = New(2, nmf.Gauss(), WithCallbacks(func(s *Separator) error {
		if s.Iteration() == 2 {
			return stop
		}
		return nil
	}), quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 5, Overrides{}); !errors.Is(err, stop) {
		t.Fatalf("err = %v, want callback error", err)
	}
}

func TestLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	if _, err := New(2, nmf.Gauss(), WithSpatialAlgorithm(spatial.IP2), WithLogger(logger)); err != nil {
		t.Fatalf("New: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected an IP2 warning, got %v", entry)
	}
	if entry.Data["algorithm"] != "IP2" {
		t.Fatalf("algorithm field = %v, want IP2", entry.Data["algorithm"])
	}
	hook.Reset()

	// A silent bin makes every weighted covariance of that bin zero.
	mix := testutil.LowRankMixture(5, 2, 3, 8)
	for m := 0; m < 2; m++ {
		clear(mix.Observed.Row(m, 0))
	}
	s, err := New(2, nmf.Gauss(),
		WithScaleRestoration(RestoreOff),
		WithNormalization(NormalizeOff),
		WithRecordLoss(false),
		WithLogger(logger))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Separate(mix.Observed, 1, Overrides{}); err != nil {
		t.Fatalf("Separate: %v", err)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["degenerate"] == 2 {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a degeneracy warning for the silent bin")
	}
}
