// Package rules loads rule polygons and burns them into the rule id grid
// that selects which elevation bands apply to each cell.
package rules

import (
	"slices"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/becmodel/internal/grid"
)

// Polygon is one rule polygon: an id and its geometry in the DEM's
// projected coordinate system.
type Polygon struct {
	ID       int
	Geometry *geom.MultiPolygon
}

// IDs returns the distinct polygon ids in order of first appearance.
func IDs(polys []Polygon) []int {
	var out []int
	for _, p := range polys {
		if !slices.Contains(out, p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}

// TotalBounds returns the extent of all polygons.
func TotalBounds(polys []Polygon) (grid.Bounds, bool) {
	b := geom.NewBounds(geom.XY)
	for _, p := range polys {
		if p.Geometry != nil && !p.Geometry.Empty() {
			b.Extend(p.Geometry)
		}
	}
	if b.IsEmpty() {
		return grid.Bounds{}, false
	}
	return grid.Bounds{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, true
}
