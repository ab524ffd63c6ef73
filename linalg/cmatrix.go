package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Identity returns the n×n complex identity matrix.
func Identity(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Clone returns a dense copy of a.
func Clone(a mat.CMatrix) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	out.Copy(a)
	return out
}

// ConjTranspose returns a dense copy of aᴴ.
func ConjTranspose(a mat.CMatrix) *mat.CDense {
	return Clone(a.H())
}

// Mul returns the product a·b. It panics with [ErrDimensionMismatch] when the
// inner dimensions differ, like gonum's own Mul.
func Mul(a, b mat.CMatrix) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic(fmt.Errorf("%w: %dx%d · %dx%d", ErrDimensionMismatch, ar, ac, br, bc))
	}
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var s complex128
			for k := 0; k < ac; k++ {
				s += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, s)
		}
	}
	return out
}

func square(a mat.CMatrix) (int, error) {
	r, c := a.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	return r, nil
}

// embed returns the 2r×2c real embedding of a.
func embed(a mat.CMatrix) *mat.Dense {
	r, c := a.Dims()
	d := mat.NewDense(2*r, 2*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			d.Set(i, j, real(v))
			d.Set(i, j+c, -imag(v))
			d.Set(i+r, j, imag(v))
			d.Set(i+r, j+c, real(v))
		}
	}
	return d
}

// embedSym returns the real embedding of a Hermitian matrix. Only the upper
// triangle of a is read.
func embedSym(a mat.CMatrix, n int) *mat.SymDense {
	s := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := a.At(i, j)
			if i == j {
				v = complex(real(v), 0)
			}
			s.SetSym(i, j, real(v))
			s.SetSym(i+n, j+n, real(v))
			s.SetSym(i, j+n, -imag(v))
			s.SetSym(j, i+n, imag(v))
		}
	}
	return s
}

// stack returns the 2r×c real stacking [Re(b); Im(b)].
func stack(b mat.CMatrix) *mat.Dense {
	r, c := b.Dims()
	d := mat.NewDense(2*r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := b.At(i, j)
			d.Set(i, j, real(v))
			d.Set(i+r, j, imag(v))
		}
	}
	return d
}

// unstack is the inverse of stack.
func unstack(d mat.Matrix, r, c int) *mat.CDense {
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, complex(d.At(i, j), d.At(i+r, j)))
		}
	}
	return out
}
