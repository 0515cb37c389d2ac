package postfilter

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/highelev"
)

// Options are the filter parameters, already converted to cells.
type Options struct {
	LowSize      int
	SteepSize    int
	SteepPercent float64
	NoiseCells   int
	Connectivity grid.Connectivity
}

// Inputs are the rasters the filters read besides the classification.
type Inputs struct {
	Rules *grid.Grid[int32]
	Slope *grid.Grid[float32]
}

// Result holds the grid after each stage.
type Result struct {
	Grouped  *grid.Grid[uint16]
	Majority *grid.Grid[uint16]
	Ungroup  *grid.Grid[uint16]
	Noise    *grid.Grid[uint16]
	Filled   *grid.Grid[uint16]
}

// Run applies grouping, majority, ungrouping, noise removal and gap filling
// in order. codes are the registry's codes in registry order; maxCode sets
// the aggregate codes.
func Run(ctx context.Context, g *grid.Grid[uint16], in Inputs, plan *highelev.Plan, codes []uint16, maxCode uint16, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "postfilter"))
	if err := grid.CheckShape(in.Rules, g, "rule grid"); err != nil {
		return nil, eris.Wrap(err, "postfilter: run")
	}

	res := &Result{}
	agg := NewAggregates(maxCode)
	res.Grouped = Group(g, plan, agg)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "postfilter: run")
	}
	log.Info("running majority filter",
		zap.Int("low_size", opts.LowSize),
		zap.Int("steep_size", opts.SteepSize),
	)
	var err error
	res.Majority, err = Majority(res.Grouped, in.Slope, opts.SteepPercent, opts.LowSize, opts.SteepSize)
	if err != nil {
		return nil, err
	}

	res.Ungroup, err = Ungroup(res.Majority, in.Rules, plan, agg)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "postfilter: run")
	}
	log.Info("running noise removal filter", zap.Int("threshold_cells", opts.NoiseCells))
	res.Noise, err = RemoveNoise(res.Ungroup, codes, opts.NoiseCells, opts.Connectivity)
	if err != nil {
		return nil, err
	}

	res.Filled, err = FillGaps(res.Noise, in.Rules)
	if err != nil {
		return nil, err
	}
	log.Debug("filled gaps",
		zap.Int("before", res.Noise.Count(0)),
		zap.Int("after", res.Filled.Count(0)),
	)
	return res, nil
}
