package spatial

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
	ErrUnknownAlgorithm = errors.New("spatial: unknown algorithm")
	// ErrNotDetermined is returned when sources and channels differ.
	ErrNotDetermined = errors.New("spatial: number of sources must equal number of channels")
	// ErrInvalidPair is returned for a pair outside the source range or with equal indices.
	ErrInvalidPair = errors.New("spatial: invalid source pair")
)

// Algorithm selects the spatial update rule.
type Algorithm int

const (
	// IP1 is sequential iterative projection.
	IP1 Algorithm = iota + 1
	// IP2 is pairwise iterative projection.
	IP2
	// ISS1 is sequential iterative source steering.
	ISS1
	// ISS2 is pairwise iterative source steering.
	ISS2
)

// ParseAlgorithm parses a name case-insensitively. "IP" and "ISS" are
// aliases of IP1 and ISS1.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "IP", "IP1":
		return IP1, nil
	case "IP2":
		return IP2, nil
	case "ISS", "ISS1":
		return ISS1, nil
	case "ISS2":
		return ISS2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case IP1:
		return "IP1"
	case IP2:
		return "IP2"
	case ISS1:
		return "ISS1"
	case ISS2:
		return "ISS2"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// Valid reports whether a is one of the defined algorithms.
func (a Algorithm) Valid() bool { return a >= IP1 && a <= ISS2 }

// UsesFilter reports whether a maintains a demixing filter.
func (a Algorithm) UsesFilter() bool { return a == IP1 || a == IP2 }

// Pairwise reports whether a updates two sources at a time.
func (a Algorithm) Pairwise() bool { return a == IP2 || a == ISS2 }
