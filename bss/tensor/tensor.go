// Package tensor holds the dense row-major tensors exchanged by the
// separation packages and the shape contracts checked on caller-supplied
// state.
//
// Axis conventions:
//
//	mixture X, output Y   (channels|sources, bins, frames)   complex
//	demixing filter W     (bins, sources, channels)          complex
//	NMF basis T           (sources, bins, components) or (bins, components)
//	NMF activation V      (sources, components, frames) or (components, frames)
//	latent weights Z      (sources, components)
package tensor

import (
	"errors"
	"fmt"
	"slices"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// ErrShapeMismatch is returned when a tensor does not have the expected shape.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// CheckShape returns a wrapped [ErrShapeMismatch] naming the tensor when got
// differs from want.
func CheckShape(name string, got, want []int) error {
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: %s has shape %v, want %v", ErrShapeMismatch, name, got, want)
	}
	return nil
}

// checkData extends [CheckShape] to the backing slice, which must hold
// exactly one element per index.
func checkData(name string, shape []int, n int, want []int) error {
	if err := CheckShape(name, shape, want); err != nil {
		return err
	}
	size := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: %s has negative dimension in %v", ErrShapeMismatch, name, shape)
		}
		size *= d
	}
	if size != n {
		return fmt.Errorf("%w: %s has %d elements for shape %v", ErrShapeMismatch, name, n, shape)
	}
	return nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("tensor: negative dimension in %v", shape))
		}
		n *= d
	}
	return n
}

// offset returns the row-major offset of the leading indices idx.
func offset(shape []int, idx []int) int {
	if len(idx) > len(shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(shape)))
	}
	off := 0
	for a, i := range idx {
		if i < 0 || i >= shape[a] {
			panic(fmt.Sprintf("tensor: index %d out of range on axis %d of %v", i, a, shape))
		}
		off = off*shape[a] + i
	}
	for _, d := range shape[len(idx):] {
		off *= d
	}
	return off
}

// Complex is a dense complex tensor.
type Complex struct {
	Shape []int
	Data  []complex128
}

// NewComplex returns a zeroed complex tensor.
func NewComplex(shape ...int) *Complex {
	return &Complex{Shape: slices.Clone(shape), Data: make([]complex128, numel(shape))}
}

// Clone returns a deep copy of c.
func (c *Complex) Clone() *Complex {
	return &Complex{Shape: slices.Clone(c.Shape), Data: slices.Clone(c.Data)}
}

// Check returns a wrapped [ErrShapeMismatch] naming c when its shape is not
// want or when Data does not match the shape.
func (c *Complex) Check(name string, want ...int) error {
	return checkData(name, c.Shape, len(c.Data), want)
}

// At returns the element at the full index idx.
func (c *Complex) At(idx ...int) complex128 { return c.Data[offset(c.Shape, idx)] }

// Set stores v at the full index idx.
func (c *Complex) Set(v complex128, idx ...int) { c.Data[offset(c.Shape, idx)] = v }

// Row returns the contiguous sub-slice addressed by the leading indices idx.
// The slice aliases c.Data.
func (c *Complex) Row(idx ...int) []complex128 {
	off := offset(c.Shape, idx)
	return c.Data[off : off+numel(c.Shape[len(idx):])]
}

// Power returns |c|² elementwise as a real tensor of the same shape.
func (c *Complex) Power() *Real {
	re, im := c.split()
	out := NewReal(c.Shape...)
	vecmath.Power(out.Data, re, im)
	return out
}

// Abs returns |c| elementwise as a real tensor of the same shape.
func (c *Complex) Abs() *Real {
	re, im := c.split()
	out := NewReal(c.Shape...)
	vecmath.Magnitude(out.Data, re, im)
	return out
}

func (c *Complex) split() (re, im []float64) {
	re = make([]float64, len(c.Data))
	im = make([]float64, len(c.Data))
	for i, v := range c.Data {
		re[i], im[i] = real(v), imag(v)
	}
	return re, im
}

// Real is a dense real tensor.
type Real struct {
	Shape []int
	Data  []float64
}

// NewReal returns a zeroed real tensor.
func NewReal(shape ...int) *Real {
	return &Real{Shape: slices.Clone(shape), Data: make([]float64, numel(shape))}
}

// Clone returns a deep copy of r.
func (r *Real) Clone() *Real {
	return &Real{Shape: slices.Clone(r.Shape), Data: slices.Clone(r.Data)}
}

// Check is [Complex.Check] for real tensors.
func (r *Real) Check(name string, want ...int) error {
	return checkData(name, r.Shape, len(r.Data), want)
}

// At returns the element at the full index idx.
func (r *Real) At(idx ...int) float64 { return r.Data[offset(r.Shape, idx)] }

// Set stores v at the full index idx.
func (r *Real) Set(v float64, idx ...int) { r.Data[offset(r.Shape, idx)] = v }

// Row returns the contiguous sub-slice addressed by the leading indices idx.
// The slice aliases r.Data.
func (r *Real) Row(idx ...int) []float64 {
	off := offset(r.Shape, idx)
	return r.Data[off : off+numel(r.Shape[len(idx):])]
}
