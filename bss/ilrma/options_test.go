package ilrma

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/spatial"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Algorithm != spatial.IP1 {
		t.Errorf("algorithm = %v, want IP1", cfg.Algorithm)
	}
	if cfg.Domain != 2 {
		t.Errorf("domain = %v, want 2", cfg.Domain)
	}
	if cfg.Normalization != NormalizePower {
		t.Errorf("normalization = %v, want power", cfg.Normalization)
	}
	if cfg.ScaleRestoration != RestoreProjectionBack || cfg.ReferenceID != 0 {
		t.Errorf("restoration = %v ref %d, want projection_back ref 0", cfg.ScaleRestoration, cfg.ReferenceID)
	}
	if !cfg.RecordLoss {
		t.Error("loss recording should be enabled by default")
	}
	if cfg.Rand != nil || cfg.Logger != nil {
		t.Error("default generator and logger are resolved by New")
	}
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"unknown algorithm", WithSpatialAlgorithm(spatial.Algorithm(0))},
		{"domain below 1", WithDomain(0.5)},
		{"domain above 2", WithDomain(2.5)},
		{"NaN domain", WithDomain(math.NaN())},
		{"unknown normalization", WithNormalization(Normalization(7))},
		{"unknown restoration", WithScaleRestoration(ScaleRestoration(3))},
		{"negative reference", WithReferenceID(-2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := tt.opt(&cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOptionHappyPaths(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewPCG(1, 2))

	opts := []Option{
		WithSpatialAlgorithm(spatial.ISS2),
		WithDomain(1),
		WithPartitioning(true),
		WithFloor(nil),
		WithPairSelector(spatial.Sequential(1)),
		WithCallbacks(nil, func(*Separator) error { return nil }),
		WithNormalization(NormalizeOff),
		WithScaleRestoration(RestoreOff),
		WithoutReference(),
		WithRand(rng),
		WithRecordLoss(false),
		WithPermutationAlignment(true),
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if cfg.Algorithm != spatial.ISS2 || cfg.Domain != 1 || !cfg.Partitioning {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !floor.IsIdentity(cfg.Floor) {
		t.Error("nil floor should select the identity")
	}
	if len(cfg.Callbacks) != 1 {
		t.Errorf("callbacks = %d, want 1", len(cfg.Callbacks))
	}
	if cfg.ReferenceID != NoReference || cfg.Rand != rng || cfg.RecordLoss || !cfg.AlignPermutation {
		t.Errorf("unexpected config %+v", cfg)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		nBasis int
		dist   nmf.Distribution
		opts   []Option
	}{
		{"no bases", 0, nmf.Gauss(), nil},
		{"nu not positive", 2, nmf.T(0), nil},
		{"beta too large", 2, nmf.GGD(2), nil},
		{"restoration without reference", 2, nmf.Gauss(), []Option{WithoutReference()}},
		{"partitioned projection back", 2, nmf.Gauss(), []Option{
			WithPartitioning(true), WithNormalization(NormalizeProjectionBack),
		}},
		{"bad option", 2, nmf.Gauss(), []Option{WithDomain(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nBasis, tt.dist, tt.opts...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewAcceptsNilOption(t *testing.T) {
	s, err := New(2, nmf.Gauss(), nil, WithoutReference(), WithScaleRestoration(RestoreOff))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Config().Rand == nil || s.Config().Logger == nil {
		t.Fatal("generator and logger should be resolved")
	}
	if s.NBasis() != 2 || s.Distribution() != nmf.Gauss() {
		t.Fatalf("unexpected separator %d %v", s.NBasis(), s.Distribution())
	}
}

func TestEnumStrings(t *testing.T) {
	if NormalizeProjectionBack.String() != "projection_back" || NormalizeOff.String() != "off" {
		t.Error("unexpected normalization names")
	}
	if RestoreProjectionBack.String() != "projection_back" || ScaleRestoration(9).String() != "ScaleRestoration(9)" {
		t.Error("unexpected restoration names")
	}
}
