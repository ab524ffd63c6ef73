package ilrma

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/spatial"
)

var (
	// ErrInvalidConfig is returned for an unusable parameter combination.
	ErrInvalidConfig = errors.New("ilrma: invalid configuration")

	// ErrUnimplementedVariant is returned when a separator without a source
	// distribution is asked to run.
	ErrUnimplementedVariant = errors.New("ilrma: no source distribution selected")
)

// Normalization is the per-iteration scale normalization.
type Normalization int

const (
	// NormalizeOff leaves the scale of the sources free.
	NormalizeOff Normalization = iota
	// NormalizePower scales every source to unit mean power.
	NormalizePower
	// NormalizeProjectionBack scales every source to the reference channel.
	NormalizeProjectionBack
)

// String implements fmt.Stringer.
func (n Normalization) String() string {
	switch n {
	case NormalizeOff:
		return "off"
	case NormalizePower:
		return "power"
	case NormalizeProjectionBack:
		return "projection_back"
	default:
		return fmt.Sprintf("Normalization(%d)", int(n))
	}
}

// Valid reports whether n is a known normalization.
func (n Normalization) Valid() bool { return n >= NormalizeOff && n <= NormalizeProjectionBack }

// ScaleRestoration is applied once after the last iteration.
type ScaleRestoration int

const (
	// RestoreOff returns the sources at their internal scale.
	RestoreOff ScaleRestoration = iota
	// RestoreProjectionBack projects the sources back onto the reference
	// channel.
	RestoreProjectionBack
)

// String implements fmt.Stringer.
func (r ScaleRestoration) String() string {
	switch r {
	case RestoreOff:
		return "off"
	case RestoreProjectionBack:
		return "projection_back"
	default:
		return fmt.Sprintf("ScaleRestoration(%d)", int(r))
	}
}

// NoReference marks the absence of a reference channel.
const NoReference = -1

// DefaultSeed seeds the generator used when no [WithRand] option is given.
const DefaultSeed = 0x1ab5

const (
	minDomain = 1
	maxDomain = 2
)

// Callback observes a [Separator] after every iteration, and once before the
// first. A returned error aborts the separation.
type Callback func(s *Separator) error

// Config holds the separator settings.
type Config struct {
	Algorithm        spatial.Algorithm
	Domain           float64
	Partitioning     bool
	Floor            floor.Floor
	PairSelector     spatial.PairSelector
	Callbacks        []Callback
	Normalization    Normalization
	ScaleRestoration ScaleRestoration
	ReferenceID      int
	Rand             *rand.Rand
	RecordLoss       bool
	AlignPermutation bool
	Logger           logrus.FieldLogger
}

// DefaultConfig returns IP1 updates in the power domain with power
// normalization, loss recording and projection back onto channel 0.
func DefaultConfig() Config {
	return Config{
		Algorithm:        spatial.IP1,
		Domain:           2,
		Floor:            floor.Default(),
		Normalization:    NormalizePower,
		ScaleRestoration: RestoreProjectionBack,
		ReferenceID:      0,
		RecordLoss:       true,
	}
}

// validate checks the combinations no single option can see.
func (c *Config) validate() error {
	if c.ScaleRestoration == RestoreProjectionBack && c.ReferenceID == NoReference {
		return fmt.Errorf("%w: scale restoration needs a reference channel", ErrInvalidConfig)
	}
	if c.Partitioning && c.Normalization == NormalizeProjectionBack {
		return fmt.Errorf("%w: projection-back normalization is not supported with partitioning", ErrInvalidConfig)
	}
	return nil
}

// Option configures a [Separator].
type Option func(*Config) error

// WithSpatialAlgorithm selects the demixing update (default [spatial.IP1]).
func WithSpatialAlgorithm(alg spatial.Algorithm) Option {
	return func(cfg *Config) error {
		if !alg.Valid() {
			return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, spatial.ErrUnknownAlgorithm, int(alg))
		}

		cfg.Algorithm = alg

		return nil
	}
}

// WithDomain sets the exponent p of the power model, 1 for amplitude and 2
// for power (default 2).
func WithDomain(p float64) Option {
	return func(cfg *Config) error {
		if math.IsNaN(p) || p < minDomain || p > maxDomain {
			return fmt.Errorf("%w: domain must be in [%d, %d]: %g", ErrInvalidConfig, minDomain, maxDomain, p)
		}

		cfg.Domain = p

		return nil
	}
}

// WithPartitioning shares the basis and activation across sources, gated
// by per-source latent weights.
func WithPartitioning(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.Partitioning = enabled
		return nil
	}
}

// WithFloor sets the flooring applied before divisions and logarithms. A
// nil floor selects [floor.Identity], which disables all guarding.
func WithFloor(f floor.Floor) Option {
	return func(cfg *Config) error {
		if f == nil {
			f = floor.Identity{}
		}

		cfg.Floor = f

		return nil
	}
}

// WithPairSelector sets the pair schedule of IP2 and ISS2.
func WithPairSelector(sel spatial.PairSelector) Option {
	return func(cfg *Config) error {
		cfg.PairSelector = sel
		return nil
	}
}

// WithCallbacks appends iteration callbacks, run in order.
func WithCallbacks(cbs ...Callback) Option {
	return func(cfg *Config) error {
		for _, cb := range cbs {
			if cb != nil {
				cfg.Callbacks = append(cfg.Callbacks, cb)
			}
		}
		return nil
	}
}

// WithNormalization sets the per-iteration normalization (default
// [NormalizePower]).
func WithNormalization(n Normalization) Option {
	return func(cfg *Config) error {
		if !n.Valid() {
			return fmt.Errorf("%w: unknown normalization %d", ErrInvalidConfig, int(n))
		}

		cfg.Normalization = n

		return nil
	}
}

// WithScaleRestoration sets the final scale restoration (default
// [RestoreProjectionBack]).
func WithScaleRestoration(r ScaleRestoration) Option {
	return func(cfg *Config) error {
		if r != RestoreOff && r != RestoreProjectionBack {
			return fmt.Errorf("%w: unknown scale restoration %d", ErrInvalidConfig, int(r))
		}

		cfg.ScaleRestoration = r

		return nil
	}
}

// WithReferenceID sets the reference microphone (default 0).
func WithReferenceID(ref int) Option {
	return func(cfg *Config) error {
		if ref < 0 {
			return fmt.Errorf("%w: reference channel must be >= 0: %d", ErrInvalidConfig, ref)
		}

		cfg.ReferenceID = ref

		return nil
	}
}

// WithoutReference clears the reference microphone. Scale restoration must
// then be disabled.
func WithoutReference() Option {
	return func(cfg *Config) error {
		cfg.ReferenceID = NoReference
		return nil
	}
}

// WithRand sets the generator for the random initialization. Without it a
// generator seeded with [DefaultSeed] is used.
func WithRand(rng *rand.Rand) Option {
	return func(cfg *Config) error {
		cfg.Rand = rng
		return nil
	}
}

// WithRecordLoss enables or disables loss recording (default enabled).
func WithRecordLoss(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.RecordLoss = enabled
		return nil
	}
}

// WithPermutationAlignment aligns the source order across bins after the
// last iteration, before scale restoration.
func WithPermutationAlignment(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.AlignPermutation = enabled
		return nil
	}
}

// WithLogger sets the logger (default the logrus standard logger).
func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *Config) error {
		cfg.Logger = l
		return nil
	}
}
