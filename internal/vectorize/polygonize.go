// Package vectorize turns the final classification grid into labelled
// polygons and writes them out.
package vectorize

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/grid"
)

// Output attribute names.
const (
	FieldLabel = "BGC_LABEL"
	FieldArea  = "AREA_HA"
	FieldCode  = "BECVALUE"
)

// Feature is one connected region of a single zone code.
type Feature struct {
	Code    uint16        `json:"becvalue"`
	Label   string        `json:"bgc_label"`
	AreaHa  float64       `json:"area_ha"`
	Cells   int           `json:"cells"`
	Polygon *geom.Polygon `json:"-"`
}

// Polygonize traces every maximal connected region of equal non-zero code
// into a polygon with holes. Cells where footprint is 0 are dropped first;
// a nil footprint keeps everything. The shell of each polygon runs
// counter-clockwise and holes clockwise. Regions come out ordered by code,
// then by their first cell in row-major order.
func Polygonize(g *grid.Grid[uint16], footprint *grid.Grid[int32], tr grid.Transform, conn grid.Connectivity, labels map[uint16]string) ([]Feature, error) {
	if err := conn.Validate(); err != nil {
		return nil, eris.Wrap(err, "vectorize: polygonize")
	}
	clipped := g
	if footprint != nil {
		if err := grid.CheckShape(footprint, g, "footprint"); err != nil {
			return nil, eris.Wrap(err, "vectorize: polygonize")
		}
		clipped = g.Clone()
		for i, r := range footprint.Data {
			if r == 0 {
				clipped.Data[i] = 0
			}
		}
	}

	codes := distinctCodes(clipped)
	var features []Feature
	for _, code := range codes {
		comp := grid.Label(grid.Equal(clipped, code), conn)
		cells := make([][]int, comp.Count()+1)
		for i, l := range comp.Labels {
			if l != 0 {
				cells[l] = append(cells[l], i)
			}
		}
		label, ok := labels[code]
		if !ok {
			zap.L().Warn("vectorize: code has no label", zap.Uint16("code", code))
		}
		for l := 1; l <= comp.Count(); l++ {
			poly, err := trace(comp, int32(l), cells[l], tr, conn)
			if err != nil {
				return nil, eris.Wrapf(err, "vectorize: trace code %d", code)
			}
			features = append(features, Feature{
				Code:    code,
				Label:   label,
				Cells:   len(cells[l]),
				AreaHa:  roundTenth(float64(len(cells[l])) * tr.CellArea() / 10000),
				Polygon: poly,
			})
		}
	}
	return features, nil
}

func distinctCodes(g *grid.Grid[uint16]) []uint16 {
	seen := make(map[uint16]struct{})
	var out []uint16
	for _, v := range g.Data {
		if v == 0 {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// roundTenth rounds half to even, so 0.25 ha reports as 0.2.
func roundTenth(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

// edge is a unit cell side between lattice vertices, directed so the region
// lies on its left in map coordinates.
type edge struct {
	from, to int
	used     bool
}

// trace builds the polygon of one component from its boundary edges.
// Vertices are lattice points r*(cols+1)+c.
func trace(comp *grid.Components, l int32, cells []int, tr grid.Transform, conn grid.Connectivity) (*geom.Polygon, error) {
	rows, cols := comp.Rows, comp.Cols
	stride := cols + 1
	vertex := func(r, c int) int { return r*stride + c }
	inside := func(r, c int) bool {
		return r >= 0 && r < rows && c >= 0 && c < cols && comp.Labels[r*cols+c] == l
	}

	var edges []edge
	for _, i := range cells {
		r, c := i/cols, i%cols
		if !inside(r-1, c) {
			edges = append(edges, edge{from: vertex(r, c+1), to: vertex(r, c)})
		}
		if !inside(r+1, c) {
			edges = append(edges, edge{from: vertex(r+1, c), to: vertex(r+1, c+1)})
		}
		if !inside(r, c-1) {
			edges = append(edges, edge{from: vertex(r, c), to: vertex(r+1, c)})
		}
		if !inside(r, c+1) {
			edges = append(edges, edge{from: vertex(r+1, c+1), to: vertex(r, c+1)})
		}
	}
	out := make(map[int][]int, len(edges))
	for i, e := range edges {
		out[e.from] = append(out[e.from], i)
	}

	// direction in lattice steps (dr, dc) of edge i
	dir := func(i int) (int, int) {
		e := edges[i]
		return e.to/stride - e.from/stride, e.to%stride - e.from%stride
	}

	var shell [][]int
	var holes [][][]int
	for start := range edges {
		if edges[start].used {
			continue
		}
		var ring [][]int
		cur := start
		for {
			edges[cur].used = true
			v := edges[cur].from
			ring = append(ring, []int{v / stride, v % stride})

			var next int
			var candidates []int
			for _, j := range out[edges[cur].to] {
				if !edges[j].used || j == start {
					candidates = append(candidates, j)
				}
			}
			switch len(candidates) {
			case 0:
				return nil, eris.New("vectorize: open ring")
			case 1:
				next = candidates[0]
			default:
				next = pickTurn(dir, cur, candidates, conn)
			}
			if next == start {
				break
			}
			cur = next
		}
		ring = simplify(ring)
		if latticeArea(ring) > 0 {
			if shell != nil {
				return nil, eris.New("vectorize: region has more than one shell")
			}
			shell = ring
		} else {
			holes = append(holes, ring)
		}
	}
	if shell == nil {
		return nil, eris.New("vectorize: region has no shell")
	}

	var flat []float64
	var ends []int
	for _, ring := range append([][][]int{shell}, holes...) {
		for _, p := range ring {
			x, y := tr.Corner(p[0], p[1])
			flat = append(flat, x, y)
		}
		x, y := tr.Corner(ring[0][0], ring[0][1])
		flat = append(flat, x, y)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends), nil
}

// pickTurn resolves a saddle vertex, where two region cells touch only at
// a corner. Turning right crosses to the other cell (8-connected), turning
// left stays with the current one (4-connected). Each ring then bounds the
// region against one background component, so a gap meeting the outside at
// a corner leaves a self-touching shell rather than a hole.
func pickTurn(dir func(int) (int, int), cur int, candidates []int, conn grid.Connectivity) int {
	dr, dc := dir(cur)
	wantR, wantC := -dc, dr // left, with rows growing southward
	if conn == grid.Eight {
		wantR, wantC = dc, -dr
	}
	for _, j := range candidates {
		if r, c := dir(j); r == wantR && c == wantC {
			return j
		}
	}
	return candidates[0]
}

// simplify drops vertices in the middle of straight runs.
func simplify(ring [][]int) [][]int {
	n := len(ring)
	if n < 4 {
		return ring
	}
	out := make([][]int, 0, n)
	for i := range ring {
		prev, cur, next := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		if (cur[0]-prev[0])*(next[1]-cur[1]) == (cur[1]-prev[1])*(next[0]-cur[0]) {
			continue
		}
		out = append(out, cur)
	}
	return out
}

// latticeArea returns twice the signed area of a ring in map orientation:
// positive for counter-clockwise.
func latticeArea(ring [][]int) int {
	sum := 0
	n := len(ring)
	for i := range ring {
		a, b := ring[i], ring[(i+1)%n]
		// x = c, y = -r
		sum += a[1]*(-b[0]) - b[1]*(-a[0])
	}
	return sum
}
