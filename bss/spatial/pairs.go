package spatial

import "fmt"

// Pair is an ordered pair of source indices.
type Pair struct {
	M, N int
}

// PairSelector returns the pairs visited by one pairwise update for the
// given number of sources.
type PairSelector func(nSources int) []Pair

// Sequential returns the round-robin selector (k mod N, (k+1) mod N) for
// k = 0, step, 2·step, ... < N.
func Sequential(step int) PairSelector {
	return SequentialRange(step, 0, false)
}

// SequentialRange is [Sequential] with an explicit stop (0 means the number
// of sources). With sort set, every pair is returned with M < N.
func SequentialRange(step, stop int, sort bool) PairSelector {
	if step < 1 {
		step = 1
	}
	return func(nSources int) []Pair {
		if nSources < 1 {
			return nil
		}
		end := stop
		if end <= 0 {
			end = nSources
		}
		pairs := make([]Pair, 0, (end+step-1)/step)
		for k := 0; k < end; k += step {
			m, n := k%nSources, (k+1)%nSources
			if sort && m > n {
				m, n = n, m
			}
			pairs = append(pairs, Pair{M: m, N: n})
		}
		return pairs
	}
}

func checkPair(p Pair, nSources int) error {
	if p.M < 0 || p.N < 0 || p.M >= nSources || p.N >= nSources || p.M == p.N {
		return fmt.Errorf("%w: (%d, %d) for %d sources", ErrInvalidPair, p.M, p.N, nSources)
	}
	return nil
}
