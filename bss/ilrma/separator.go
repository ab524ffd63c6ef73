package ilrma

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/iterative"
	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/permutation"
	"github.com/cwbudde/algo-bss/bss/scale"
	"github.com/cwbudde/algo-bss/bss/spatial"
	"github.com/cwbudde/algo-bss/bss/tensor"
)

// Overrides pre-seeds the state of a separation. Nil fields keep the
// default initialization: an identity demixing filter and random factors.
// Every tensor is copied.
type Overrides struct {
	// DemixFilter has shape (bins, sources, channels). The steering
	// algorithms use it only to form the initial output.
	DemixFilter *tensor.Complex
	Basis       *tensor.Real
	Activation  *tensor.Real
	Latent      *tensor.Real
}

// Separator runs ILRMA on one mixture at a time. It is not safe for
// concurrent use.
type Separator struct {
	cfg    Config
	nBasis int
	dist   nmf.Distribution
	engine *spatial.Engine
	driver iterative.Driver
	log    logrus.FieldLogger

	x     *tensor.Complex
	w     *tensor.Complex
	y     *tensor.Complex
	model *nmf.Model

	tv     *tensor.Real
	varphi *tensor.Real
	iter   int
}

// New returns a separator with nBasis NMF components per source (or in
// total when partitioning) and source distribution dist. The zero
// distribution is accepted, but such a separator cannot run.
func New(nBasis int, dist nmf.Distribution, opts ...Option) (*Separator, error) {
	if nBasis < 1 {
		return nil, fmt.Errorf("%w: number of bases must be >= 1: %d", ErrInvalidConfig, nBasis)
	}
	if dist.Kind != nmf.Unspecified {
		if err := dist.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(DefaultSeed, DefaultSeed))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	engine, err := spatial.NewEngine(cfg.Algorithm, cfg.PairSelector, cfg.Floor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Separator{
		cfg:    cfg,
		nBasis: nBasis,
		dist:   dist,
		engine: engine,
		log: cfg.Logger.WithFields(logrus.Fields{
			"algorithm":    cfg.Algorithm.String(),
			"distribution": dist.String(),
		}),
	}
	s.driver.RecordLoss = cfg.RecordLoss
	for _, cb := range cfg.Callbacks {
		s.driver.Callbacks = append(s.driver.Callbacks, func(any) error { return cb(s) })
	}

	if cfg.Algorithm == spatial.IP2 {
		s.log.Warn("IP2 uses the auxiliary-function generalized-eigenvector update, not the published pairwise IP2 rule")
	}
	if cfg.Normalization == NormalizeProjectionBack && cfg.ReferenceID == NoReference {
		s.log.Warn("projection-back normalization without a reference channel, using channel 0")
	}

	return s, nil
}

// Config returns the resolved configuration.
func (s *Separator) Config() Config { return s.cfg }

// Distribution returns the source distribution.
func (s *Separator) Distribution() nmf.Distribution { return s.dist }

// NBasis returns the number of NMF components.
func (s *Separator) NBasis() int { return s.nBasis }

// Mixture returns the internal copy of the mixture, or nil before the first
// separation.
func (s *Separator) Mixture() *tensor.Complex { return s.x }

// DemixFilter returns the current demixing filter. It is nil for the
// steering algorithms and before the first separation.
func (s *Separator) DemixFilter() *tensor.Complex { return s.w }

// Output returns the current separated spectrogram.
func (s *Separator) Output() *tensor.Complex { return s.y }

// Model returns the source power model.
func (s *Separator) Model() *nmf.Model { return s.model }

// Losses returns the losses recorded by the last separation.
func (s *Separator) Losses() []float64 { return s.driver.Losses() }

// Iteration returns the number of updates run in the current separation.
func (s *Separator) Iteration() int { return s.iter }

func (s *Separator) reference() int {
	if s.cfg.ReferenceID == NoReference {
		return 0
	}
	return s.cfg.ReferenceID
}

// Separate runs nIter iterations on mixture x with shape (channels, bins,
// frames) and returns the separated spectrogram with the same shape. x is
// not modified.
func (s *Separator) Separate(x *tensor.Complex, nIter int, o Overrides) (*tensor.Complex, error) {
	if s.dist.Kind == nmf.Unspecified {
		return nil, ErrUnimplementedVariant
	}
	if nIter < 0 {
		return nil, fmt.Errorf("%w: negative iteration count %d", ErrInvalidConfig, nIter)
	}
	if err := s.reset(x, o); err != nil {
		return nil, err
	}

	if err := s.driver.Run(s, nIter, true); err != nil {
		return nil, err
	}

	if s.cfg.AlignPermutation {
		if err := s.alignPermutation(); err != nil {
			return nil, err
		}
	}
	if s.cfg.ScaleRestoration == RestoreProjectionBack {
		if err := s.restoreScale(); err != nil {
			return nil, err
		}
	}
	if s.w != nil {
		spatial.DemixInto(s.y, s.w, s.x)
	}

	s.log.WithFields(logrus.Fields{
		"iterations": nIter,
		"sources":    s.y.Shape[0],
	}).Debug("separation finished")

	return s.y.Clone(), nil
}

// reset validates the overrides and initializes every state tensor. The
// separator is left untouched on error.
func (s *Separator) reset(x *tensor.Complex, o Overrides) error {
	if len(x.Shape) != 3 {
		return fmt.Errorf("%w: mixture must have 3 axes, got %v", tensor.ErrShapeMismatch, x.Shape)
	}
	nM, nI, nJ := x.Shape[0], x.Shape[1], x.Shape[2]
	if err := x.Check("mixture", nM, nI, nJ); err != nil {
		return err
	}
	nN := nM
	if ref := s.cfg.ReferenceID; ref >= nM {
		return fmt.Errorf("%w: reference channel %d of %d", ErrInvalidConfig, ref, nM)
	}

	w := tensor.NewComplex(nI, nN, nM)
	if o.DemixFilter != nil {
		if err := o.DemixFilter.Check("demixing filter", w.Shape...); err != nil {
			return err
		}
		copy(w.Data, o.DemixFilter.Data)
	} else {
		for i := 0; i < nI; i++ {
			for n := 0; n < nN; n++ {
				w.Set(1, i, n, n)
			}
		}
	}

	shape := nmf.Shape{Sources: nN, Bins: nI, Frames: nJ, Components: s.nBasis}
	model, err := nmf.New(shape, s.cfg.Partitioning, s.cfg.Floor, s.cfg.Rand)
	if err != nil {
		return err
	}
	if err := model.Reset(nmf.Overrides{Basis: o.Basis, Activation: o.Activation, Latent: o.Latent}); err != nil {
		return err
	}

	s.x = x.Clone()
	s.y = spatial.Demix(w, s.x)
	s.w = w
	if !s.cfg.Algorithm.UsesFilter() {
		s.w = nil
	}
	s.model = model
	s.tv = tensor.NewReal(nN, nI, nJ)
	s.varphi = tensor.NewReal(nN, nI, nJ)
	s.iter = 0
	return nil
}

// UpdateOnce runs one iteration: the source model, then the spatial model,
// then the normalization.
func (s *Separator) UpdateOnce() error {
	if s.dist.Kind == nmf.Unspecified {
		return ErrUnimplementedVariant
	}
	if s.y == nil {
		return fmt.Errorf("ilrma: update before the first separation")
	}

	p := s.cfg.Domain
	absY := s.y.Abs()
	s.model.Update(s.dist, p, absY)
	s.model.Reconstruct(s.tv)
	floor.InPlace(s.cfg.Floor, s.tv.Data)
	for k, a := range absY.Data {
		s.varphi.Data[k] = s.dist.Weight(a, s.tv.Data[k], p, s.cfg.Floor)
	}

	rep, err := s.engine.Step(s.x, s.w, s.y, s.varphi)
	if err != nil {
		return err
	}
	s.iter++
	if rep.Degenerate > 0 {
		s.log.WithFields(logrus.Fields{
			"iteration":  s.iter,
			"degenerate": rep.Degenerate,
		}).Warn("spatial update hit degenerate systems")
	}

	return s.normalize()
}

func (s *Separator) state() scale.State {
	return scale.State{
		X:      s.x,
		W:      s.w,
		Y:      s.y,
		Model:  s.model,
		Domain: s.cfg.Domain,
		Floor:  s.cfg.Floor,
	}
}

func (s *Separator) normalize() error {
	switch s.cfg.Normalization {
	case NormalizePower:
		return scale.NormalizePower(s.state())
	case NormalizeProjectionBack:
		return scale.NormalizeProjectionBack(s.state(), s.reference())
	default:
		return nil
	}
}

func (s *Separator) alignPermutation() error {
	perms, err := permutation.Solve(s.y, s.cfg.Floor)
	if err != nil {
		return err
	}
	if err := permutation.ApplyOutput(s.y, perms); err != nil {
		return err
	}
	if s.w != nil {
		return permutation.ApplyFilter(s.w, perms)
	}
	return nil
}

func (s *Separator) restoreScale() error {
	var err error
	if s.w != nil {
		_, err = scale.ProjectionBackFilter(s.w, s.cfg.ReferenceID)
	} else {
		_, err = scale.ProjectionBackOutput(s.y, s.x, s.cfg.ReferenceID)
	}
	if err != nil {
		return fmt.Errorf("ilrma: restore scale: %w", err)
	}
	return nil
}
