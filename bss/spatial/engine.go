package spatial

import (
	"fmt"

	"github.com/cwbudde/algo-bss/bss/floor"
	"github.com/cwbudde/algo-bss/bss/tensor"
)

// Engine dispatches one spatial update for a fixed algorithm.
type Engine struct {
	alg      Algorithm
	selector PairSelector
	floor    floor.Floor
}

// NewEngine returns an engine for alg. A nil selector selects the default
// for pairwise algorithms: Sequential(1) for IP2 and Sequential(2) for ISS2.
// A nil floor selects [floor.Default].
func NewEngine(alg Algorithm, selector PairSelector, f floor.Floor) (*Engine, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
	if selector == nil {
		switch alg {
		case IP2:
			selector = Sequential(1)
		case ISS2:
			selector = Sequential(2)
		}
	}
	if f == nil {
		f = floor.Default()
	}
	return &Engine{alg: alg, selector: selector, floor: f}, nil
}

// Algorithm returns the update rule of e.
func (e *Engine) Algorithm() Algorithm { return e.alg }

// Pairs returns the pairs visited for nSources, or nil for sequential rules.
func (e *Engine) Pairs(nSources int) []Pair {
	if !e.alg.Pairwise() {
		return nil
	}
	return e.selector(nSources)
}

// Step runs one update. For the projection family w is updated from x and
// the weights, then y is recomputed as W·x. For the steering family only y
// is updated and w is ignored.
func (e *Engine) Step(x, w, y *tensor.Complex, varphi *tensor.Real) (Report, error) {
	switch e.alg {
	case IP1, IP2:
		if w == nil {
			return Report{}, fmt.Errorf("spatial: %s needs a demixing filter", e.alg)
		}
		var (
			rep Report
			err error
		)
		if e.alg == IP1 {
			rep, err = UpdateIP1(w, x, varphi, e.floor)
		} else {
			rep, err = UpdateIP2(w, x, varphi, e.Pairs(w.Shape[1]), e.floor)
		}
		if err != nil {
			return rep, err
		}
		DemixInto(y, w, x)
		return rep, nil
	case ISS1:
		return UpdateISS1(y, varphi, e.floor)
	default:
		return UpdateISS2(y, varphi, e.Pairs(y.Shape[0]), e.floor)
	}
}
