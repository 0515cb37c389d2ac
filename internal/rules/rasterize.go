package rules

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/becmodel/internal/grid"
)

// Rasterize burns polygon ids into a rows x cols grid. A cell takes a
// polygon's id when its centre lies inside the polygon (holes excluded);
// later polygons overwrite earlier ones. Cells outside every polygon are 0.
func Rasterize(polys []Polygon, tr grid.Transform, rows, cols int) *grid.Grid[int32] {
	out := grid.New[int32](rows, cols)
	for _, p := range polys {
		if p.Geometry == nil {
			continue
		}
		for i := 0; i < p.Geometry.NumPolygons(); i++ {
			burnPolygon(out, p.Geometry.Polygon(i), tr, int32(p.ID))
		}
	}
	return out
}

func burnPolygon(out *grid.Grid[int32], poly *geom.Polygon, tr grid.Transform, id int32) {
	if poly.NumLinearRings() == 0 {
		return
	}
	b := poly.Bounds()
	if b.IsEmpty() {
		return
	}

	// Cell ranges whose centres can fall inside the polygon's envelope.
	c0 := max(int(math.Floor((b.Min(0)-tr.OriginX)/tr.CellSize-0.5)), 0)
	c1 := min(int(math.Ceil((b.Max(0)-tr.OriginX)/tr.CellSize-0.5)), out.Cols-1)
	r0 := max(int(math.Floor((tr.OriginY-b.Max(1))/tr.CellSize-0.5)), 0)
	r1 := min(int(math.Ceil((tr.OriginY-b.Min(1))/tr.CellSize-0.5)), out.Rows-1)

	layout := poly.Layout()
	shell := poly.LinearRing(0).FlatCoords()
	holes := make([][]float64, 0, poly.NumLinearRings()-1)
	for j := 1; j < poly.NumLinearRings(); j++ {
		holes = append(holes, poly.LinearRing(j).FlatCoords())
	}

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			x, y := tr.CellCentre(r, c)
			if containsPoint(layout, shell, holes, geom.Coord{x, y}) {
				out.Set(r, c, id)
			}
		}
	}
}

func containsPoint(layout geom.Layout, shell []float64, holes [][]float64, p geom.Coord) bool {
	if !xy.IsPointInRing(layout, p, shell) {
		return false
	}
	for _, h := range holes {
		if xy.IsPointInRing(layout, p, h) {
			return false
		}
	}
	return true
}

// Expand allocates cells outside every rule polygon to the nearest rule
// polygon, for cells whose Euclidean distance (in cells) to that polygon is
// below maxCells. Cells farther out stay 0.
func Expand(ruleGrid *grid.Grid[int32], maxCells float64) *grid.Grid[int32] {
	return grid.Allocate(ruleGrid, func(i int, dist float64) bool {
		return dist < maxCells
	})
}
