// Package grid provides the in-memory rasters threaded through the model
// and the morphological operations applied to them.
package grid

import (
	"github.com/rotisserie/eris"
)

// Number is the set of cell types a Grid may hold.
type Number interface {
	~uint8 | ~uint16 | ~int32 | ~float32 | ~float64
}

// Grid is a row-major 2D raster.
type Grid[T Number] struct {
	Rows int
	Cols int
	Data []T
}

// New allocates a zero-filled grid.
func New[T Number](rows, cols int) *Grid[T] {
	return &Grid[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// FromRows builds a grid from a slice of equal-length rows.
func FromRows[T Number](rows [][]T) *Grid[T] {
	if len(rows) == 0 {
		return New[T](0, 0)
	}
	g := New[T](len(rows), len(rows[0]))
	for r, row := range rows {
		copy(g.Data[r*g.Cols:(r+1)*g.Cols], row)
	}
	return g
}

// Fill returns a grid with every cell set to v.
func Fill[T Number](rows, cols int, v T) *Grid[T] {
	g := New[T](rows, cols)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// At returns the value at (r, c).
func (g *Grid[T]) At(r, c int) T {
	return g.Data[r*g.Cols+c]
}

// Set writes v at (r, c).
func (g *Grid[T]) Set(r, c int, v T) {
	g.Data[r*g.Cols+c] = v
}

// Len returns the number of cells.
func (g *Grid[T]) Len() int {
	return len(g.Data)
}

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	out := &Grid[T]{Rows: g.Rows, Cols: g.Cols, Data: make([]T, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// SameShape reports whether two grids have identical dimensions.
func SameShape[A, B Number](a *Grid[A], b *Grid[B]) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols
}

// CheckShape returns an error if b's dimensions differ from a's.
func CheckShape[A, B Number](a *Grid[A], b *Grid[B], name string) error {
	if !SameShape(a, b) {
		return eris.Errorf("grid: %s is %dx%d, expected %dx%d", name, b.Rows, b.Cols, a.Rows, a.Cols)
	}
	return nil
}

// Rows2D returns the grid as a slice of rows, mainly for tests.
func (g *Grid[T]) Rows2D() [][]T {
	out := make([][]T, g.Rows)
	for r := range out {
		out[r] = make([]T, g.Cols)
		copy(out[r], g.Data[r*g.Cols:(r+1)*g.Cols])
	}
	return out
}

// Count returns the number of cells equal to v.
func (g *Grid[T]) Count(v T) int {
	n := 0
	for _, x := range g.Data {
		if x == v {
			n++
		}
	}
	return n
}

// Mask is a boolean raster.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

// NewMask allocates an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
}

// MaskOf returns a mask of cells for which pred holds.
func MaskOf[T Number](g *Grid[T], pred func(T) bool) *Mask {
	m := NewMask(g.Rows, g.Cols)
	for i, v := range g.Data {
		m.Data[i] = pred(v)
	}
	return m
}

// Equal returns the mask of cells equal to v.
func Equal[T Number](g *Grid[T], v T) *Mask {
	return MaskOf(g, func(x T) bool { return x == v })
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// Count returns the number of true cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Where returns a copy of g where cells under mask are set to v.
func Where[T Number](g *Grid[T], m *Mask, v T) *Grid[T] {
	out := g.Clone()
	for i, on := range m.Data {
		if on {
			out.Data[i] = v
		}
	}
	return out
}
