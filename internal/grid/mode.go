package grid

import "slices"

// Mode applies a rank-majority filter with a size x size rectangular window.
// Each output cell takes the most frequent value in its window; ties go to
// the smallest value. The window is anchored at size/2 and clipped at the
// raster edge, so edge cells vote over fewer neighbours.
func Mode(g *Grid[uint16], size int) *Grid[uint16] {
	if size <= 1 || g.Len() == 0 {
		return g.Clone()
	}

	values := distinct(g)
	index := make([]int32, int(values[len(values)-1])+1)
	for i, v := range values {
		index[v] = int32(i)
	}

	lo := size / 2
	hi := size - 1 - lo
	counts := make([]int, len(values))
	out := New[uint16](g.Rows, g.Cols)

	for r := 0; r < g.Rows; r++ {
		r0, r1 := max(r-lo, 0), min(r+hi, g.Rows-1)
		clear(counts)

		addColumn := func(c int, delta int) {
			for rr := r0; rr <= r1; rr++ {
				counts[index[g.Data[rr*g.Cols+c]]] += delta
			}
		}

		for c := 0; c <= min(hi, g.Cols-1); c++ {
			addColumn(c, 1)
		}
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				if in := c + hi; in < g.Cols {
					addColumn(in, 1)
				}
				if outCol := c - lo - 1; outCol >= 0 {
					addColumn(outCol, -1)
				}
			}
			best, votes := 0, -1
			for i, n := range counts {
				if n > votes {
					best, votes = i, n
				}
			}
			out.Data[r*g.Cols+c] = values[best]
		}
	}
	return out
}

// distinct returns the sorted distinct values of g.
func distinct(g *Grid[uint16]) []uint16 {
	seen := make(map[uint16]struct{})
	for _, v := range g.Data {
		seen[v] = struct{}{}
	}
	values := make([]uint16, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}
