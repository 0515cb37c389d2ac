package grid

import "math"

// FeatureTransform is the exact Euclidean distance transform of a feature
// mask together with the index of the nearest feature cell for every cell.
type FeatureTransform struct {
	Rows    int
	Cols    int
	Dist2   []float64 // squared distance in cell units; +Inf when no feature exists
	Nearest []int     // row-major index of the nearest feature cell; -1 when none
}

// Distance returns the Euclidean distance (cells) of cell i to its nearest feature.
func (ft *FeatureTransform) Distance(i int) float64 {
	return math.Sqrt(ft.Dist2[i])
}

// NearestFeature computes the feature transform of m, whose true cells are
// the features. It runs the two-pass lower-envelope algorithm of
// Felzenszwalb and Huttenlocher, tracking the argmin through both passes.
// Ties resolve to the lowest column and then the lowest row.
func NearestFeature(m *Mask) *FeatureTransform {
	rows, cols := m.Rows, m.Cols
	ft := &FeatureTransform{
		Rows:    rows,
		Cols:    cols,
		Dist2:   make([]float64, rows*cols),
		Nearest: make([]int, rows*cols),
	}

	// Column pass: nearest feature row within each column.
	colRow := make([]int, rows*cols)
	for c := 0; c < cols; c++ {
		last := -1
		for r := 0; r < rows; r++ {
			if m.Data[r*cols+c] {
				last = r
			}
			colRow[r*cols+c] = last
		}
		last = -1
		for r := rows - 1; r >= 0; r-- {
			i := r*cols + c
			if m.Data[i] {
				last = r
			}
			if last >= 0 && (colRow[i] < 0 || last-r < r-colRow[i]) {
				colRow[i] = last
			}
		}
	}

	// Row pass: lower envelope of parabolas over the column distances.
	f := make([]float64, cols)
	v := make([]int, cols)
	z := make([]float64, cols+1)
	for r := 0; r < rows; r++ {
		k := -1
		for q := 0; q < cols; q++ {
			fr := colRow[r*cols+q]
			if fr < 0 {
				f[q] = math.Inf(1)
				continue
			}
			d := float64(r - fr)
			f[q] = d * d
			if k < 0 {
				k = 0
				v[0] = q
				z[0] = math.Inf(-1)
				z[1] = math.Inf(1)
				continue
			}
			s := intersect(f, q, v[k])
			for s <= z[k] {
				k--
				s = intersect(f, q, v[k])
			}
			k++
			v[k] = q
			z[k] = s
			z[k+1] = math.Inf(1)
		}

		for c := 0; c < cols; c++ {
			i := r*cols + c
			if k < 0 {
				ft.Dist2[i] = math.Inf(1)
				ft.Nearest[i] = -1
				continue
			}
			j := 0
			for z[j+1] < float64(c) {
				j++
			}
			q := v[j]
			dc := float64(c - q)
			ft.Dist2[i] = dc*dc + f[q]
			ft.Nearest[i] = colRow[r*cols+q]*cols + q
		}
	}
	return ft
}

func intersect(f []float64, q, p int) float64 {
	fq := f[q] + float64(q*q)
	fp := f[p] + float64(p*p)
	return (fq - fp) / float64(2*q-2*p)
}

// Allocate copies into every zero cell the value of its nearest non-zero
// cell, for those cells accept admits. Non-zero cells are unchanged.
func Allocate[T Number](g *Grid[T], accept func(i int, dist float64) bool) *Grid[T] {
	features := MaskOf(g, func(v T) bool { return v != 0 })
	out := g.Clone()
	if features.Count() == 0 {
		return out
	}
	ft := NearestFeature(features)
	for i, v := range g.Data {
		if v != 0 {
			continue
		}
		if accept(i, ft.Distance(i)) {
			out.Data[i] = g.Data[ft.Nearest[i]]
		}
	}
	return out
}
