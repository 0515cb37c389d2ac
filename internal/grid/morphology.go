package grid

import "github.com/rotisserie/eris"

// Connectivity selects the neighbourhood used to join cells into regions:
// 1 joins orthogonal neighbours (4-connected), 2 adds diagonals (8-connected).
type Connectivity int

const (
	Four  Connectivity = 1
	Eight Connectivity = 2
)

// Validate returns an error for anything but Four or Eight.
func (c Connectivity) Validate() error {
	if c != Four && c != Eight {
		return eris.Errorf("grid: connectivity must be 1 or 2, got %d", int(c))
	}
	return nil
}

// Neighbours returns the number of cells in the neighbourhood (4 or 8).
func (c Connectivity) Neighbours() int {
	if c == Eight {
		return 8
	}
	return 4
}

var (
	offsets4 = [][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	offsets8 = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
)

func (c Connectivity) offsets() [][2]int {
	if c == Eight {
		return offsets8
	}
	return offsets4
}

// Components is a labelling of the true cells of a mask.
type Components struct {
	Rows   int
	Cols   int
	Labels []int32 // 0 for background, 1..N for components
	Sizes  []int   // Sizes[label] = cell count; Sizes[0] unused
}

// Count returns the number of components.
func (c *Components) Count() int {
	return len(c.Sizes) - 1
}

// Label finds the connected components of the true cells of m.
func Label(m *Mask, conn Connectivity) *Components {
	comp := &Components{
		Rows:   m.Rows,
		Cols:   m.Cols,
		Labels: make([]int32, len(m.Data)),
		Sizes:  []int{0},
	}
	offs := conn.offsets()
	var queue []int
	for start, on := range m.Data {
		if !on || comp.Labels[start] != 0 {
			continue
		}
		label := int32(len(comp.Sizes))
		size := 0
		comp.Labels[start] = label
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			r, c := i/m.Cols, i%m.Cols
			for _, o := range offs {
				nr, nc := r+o[0], c+o[1]
				if nr < 0 || nr >= m.Rows || nc < 0 || nc >= m.Cols {
					continue
				}
				j := nr*m.Cols + nc
				if m.Data[j] && comp.Labels[j] == 0 {
					comp.Labels[j] = label
					queue = append(queue, j)
				}
			}
		}
		comp.Sizes = append(comp.Sizes, size)
	}
	return comp
}

// RemoveSmallObjects returns a copy of m with every component of fewer than
// minSize cells cleared.
func RemoveSmallObjects(m *Mask, minSize int, conn Connectivity) *Mask {
	out := m.Clone()
	if minSize <= 1 {
		return out
	}
	comp := Label(m, conn)
	for i, l := range comp.Labels {
		if l != 0 && comp.Sizes[l] < minSize {
			out.Data[i] = false
		}
	}
	return out
}

// RemoveSmallHoles returns a copy of m with every connected region of false
// cells smaller than minSize set true. Regions touching the raster edge are
// treated like any other hole.
func RemoveSmallHoles(m *Mask, minSize int, conn Connectivity) *Mask {
	inv := NewMask(m.Rows, m.Cols)
	for i, v := range m.Data {
		inv.Data[i] = !v
	}
	kept := RemoveSmallObjects(inv, minSize, conn)
	out := NewMask(m.Rows, m.Cols)
	for i, v := range kept.Data {
		out.Data[i] = !v
	}
	return out
}
