package aspect

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/grid"
)

// Flatten returns the aspect grid used by the classifier. Cells whose slope
// is below threshold (percent), and cells carrying the negative flat
// sentinel, take the neutral-east midpoint. Remaining values are floored to
// whole degrees, which leaves every comparison against integer class bounds
// unchanged.
func Flatten(aspect, slope *grid.Grid[float32], threshold float64, midpoint int) (*grid.Grid[uint16], error) {
	if err := grid.CheckShape(aspect, slope, "slope"); err != nil {
		return nil, eris.Wrap(err, "aspect: flatten")
	}
	if midpoint < 0 || midpoint >= 360 {
		return nil, eris.Errorf("aspect: flatten midpoint %d out of range", midpoint)
	}

	out := grid.New[uint16](aspect.Rows, aspect.Cols)
	for i, a := range aspect.Data {
		if float64(slope.Data[i]) < threshold || a < 0 || math.IsNaN(float64(a)) {
			out.Data[i] = uint16(midpoint)
			continue
		}
		out.Data[i] = uint16(mod360(int(math.Floor(float64(a)))))
	}
	return out, nil
}
