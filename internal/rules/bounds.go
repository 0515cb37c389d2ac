package rules

import (
	"math"

	"github.com/sells-group/becmodel/internal/grid"
)

// Align snaps bounds outward to the Hectares BC grid: coordinates are
// truncated to 100 m, then shifted so cell edges fall on x.5 offsets of the
// provincial 25 m raster.
func Align(b grid.Bounds) grid.Bounds {
	return grid.Bounds{
		MinX: math.Trunc(b.MinX/100)*100 - 12.5,
		MinY: math.Trunc(b.MinY/100)*100 - 12.5,
		MaxX: (math.Trunc(b.MaxX/100)+1)*100 + 87.5,
		MaxY: (math.Trunc(b.MaxY/100)+1)*100 + 87.5,
	}
}

// ExpandBounds grows bounds by metres on every side.
func ExpandBounds(b grid.Bounds, metres float64) grid.Bounds {
	return grid.Bounds{
		MinX: b.MinX - metres,
		MinY: b.MinY - metres,
		MaxX: b.MaxX + metres,
		MaxY: b.MaxY + metres,
	}
}

// StudyArea returns the aligned, expanded extent of the rule polygons, the
// area a DEM must cover.
func StudyArea(polys []Polygon, expandMetres float64) (grid.Bounds, bool) {
	b, ok := TotalBounds(polys)
	if !ok {
		return grid.Bounds{}, false
	}
	return Align(ExpandBounds(b, expandMetres)), true
}
