package raster

import (
	"math"

	"github.com/sells-group/becmodel/internal/grid"
)

// FlatAspect marks cells with no gradient in an aspect grid.
const FlatAspect = -9999

// SlopeAspect derives slope (percent) and aspect (degrees clockwise from
// north, FlatAspect where the surface is level) from a DEM using Horn's
// 3x3 finite difference. Neighbours beyond the raster edge take the value
// of the nearest edge cell. Nodata cells produce nodata in both outputs, and nodata
// neighbours are replaced by the centre value.
func SlopeAspect(dem *Raster) (slope, aspect *grid.Grid[float32]) {
	g := dem.Data
	slope = grid.New[float32](g.Rows, g.Cols)
	aspect = grid.New[float32](g.Rows, g.Cols)
	cell := dem.Transform.CellSize

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			i := r*g.Cols + c
			if dem.IsNoData(i) {
				slope.Data[i] = float32(DefaultNoData)
				aspect.Data[i] = float32(DefaultNoData)
				continue
			}
			centre := float64(g.Data[i])
			z := func(dr, dc int) float64 {
				rr := min(max(r+dr, 0), g.Rows-1)
				cc := min(max(c+dc, 0), g.Cols-1)
				j := rr*g.Cols + cc
				if dem.IsNoData(j) {
					return centre
				}
				return float64(g.Data[j])
			}
			z1, z2, z3 := z(-1, -1), z(-1, 0), z(-1, 1)
			z4, z6 := z(0, -1), z(0, 1)
			z7, z8, z9 := z(1, -1), z(1, 0), z(1, 1)

			dx := (z3 + 2*z6 + z9) - (z1 + 2*z4 + z7)
			dy := (z7 + 2*z8 + z9) - (z1 + 2*z2 + z3)

			gx := dx / (8 * cell)
			gy := dy / (8 * cell)
			slope.Data[i] = float32(100 * math.Sqrt(gx*gx+gy*gy))
			aspect.Data[i] = float32(hornAspect(dx, dy))
		}
	}
	return slope, aspect
}

func hornAspect(dx, dy float64) float64 {
	if dx == 0 && dy == 0 {
		return FlatAspect
	}
	a := math.Atan2(dy, -dx) * 180 / math.Pi
	if a > 90 {
		a = 450 - a
	} else {
		a = 90 - a
	}
	if a >= 360 {
		a -= 360
	}
	return a
}
