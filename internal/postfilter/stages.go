// Package postfilter tidies the initial classification: majority smoothing
// with high elevation tiers grouped, noise removal and gap filling.
package postfilter

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/highelev"
	"github.com/sells-group/becmodel/internal/zone"
)

// groupedTiers are the tiers collapsed to an aggregate code before
// smoothing, in aggregate order.
var groupedTiers = []zone.Tier{zone.TierAlpine, zone.TierParkland, zone.TierWoodland}

// Aggregates maps each grouped tier to its synthetic code.
type Aggregates map[zone.Tier]uint16

// NewAggregates places the aggregate codes just above the registry's
// highest code, keeping the mode filter's value range small.
func NewAggregates(maxCode uint16) Aggregates {
	agg := make(Aggregates, len(groupedTiers))
	for i, t := range groupedTiers {
		agg[t] = maxCode + uint16(i) + 1
	}
	return agg
}

// Group replaces every code in the alpine, parkland and woodland dissolve
// groups with its tier's aggregate code.
func Group(g *grid.Grid[uint16], plan *highelev.Plan, agg Aggregates) *grid.Grid[uint16] {
	out := g.Clone()
	lookup := make(map[uint16]uint16)
	for _, t := range groupedTiers {
		for _, code := range plan.Dissolves[t] {
			lookup[code] = agg[t]
		}
	}
	if len(lookup) == 0 {
		return out
	}
	for i, v := range out.Data {
		if a, ok := lookup[v]; ok {
			out.Data[i] = a
		}
	}
	return out
}

// Majority applies two mode filters and blends them per cell: the low slope
// window where slope is below steepPercent, the steep window elsewhere.
func Majority(g *grid.Grid[uint16], slope *grid.Grid[float32], steepPercent float64, lowSize, steepSize int) (*grid.Grid[uint16], error) {
	if err := grid.CheckShape(slope, g, "slope"); err != nil {
		return nil, eris.Wrap(err, "postfilter: majority")
	}
	if lowSize < 1 || steepSize < 1 {
		return nil, eris.Errorf("postfilter: majority window sizes must be positive, got %d and %d", lowSize, steepSize)
	}

	low := grid.Mode(g, lowSize)
	steep := low
	if steepSize != lowSize {
		steep = grid.Mode(g, steepSize)
	}
	out := grid.New[uint16](g.Rows, g.Cols)
	for i, s := range slope.Data {
		if float64(s) < steepPercent {
			out.Data[i] = low.Data[i]
		} else {
			out.Data[i] = steep.Data[i]
		}
	}
	return out, nil
}

// Ungroup restores aggregate codes to each rule polygon's own code for the
// tier. Aggregates left outside any member polygon stay as they are and are
// cleared by the noise filter.
func Ungroup(g *grid.Grid[uint16], rules *grid.Grid[int32], plan *highelev.Plan, agg Aggregates) (*grid.Grid[uint16], error) {
	if err := grid.CheckShape(rules, g, "rule grid"); err != nil {
		return nil, eris.Wrap(err, "postfilter: ungroup")
	}

	out := g.Clone()
	restore := make(map[int32]map[uint16]uint16)
	for _, t := range groupedTiers {
		for _, m := range plan.MembersOf(t) {
			rule := int32(m.Rule)
			if restore[rule] == nil {
				restore[rule] = make(map[uint16]uint16)
			}
			restore[rule][agg[t]] = m.Code
		}
	}
	if len(restore) == 0 {
		return out, nil
	}
	for i, v := range g.Data {
		if code, ok := restore[rules.Data[i]][v]; ok {
			out.Data[i] = code
		}
	}
	return out, nil
}

// RemoveNoise rebuilds the grid code by code: each code's cells have holes
// below thresholdCells filled and objects below thresholdCells removed, and
// the survivors are written in codes order. Cells no code claims are 0.
func RemoveNoise(g *grid.Grid[uint16], codes []uint16, thresholdCells int, conn grid.Connectivity) (*grid.Grid[uint16], error) {
	if err := conn.Validate(); err != nil {
		return nil, eris.Wrap(err, "postfilter: remove noise")
	}

	out := grid.New[uint16](g.Rows, g.Cols)
	for _, code := range codes {
		if code == zone.NoCode || !slices.Contains(g.Data, code) {
			continue
		}
		mask := grid.Equal(g, code)
		mask = grid.RemoveSmallHoles(mask, thresholdCells, conn)
		mask = grid.RemoveSmallObjects(mask, thresholdCells, conn)
		for i, keep := range mask.Data {
			if keep {
				out.Data[i] = code
			}
		}
	}
	return out, nil
}

// FillGaps gives every 0 cell inside the rule footprint the code of its
// nearest non-zero cell. Cells outside the footprint stay 0.
func FillGaps(g *grid.Grid[uint16], rules *grid.Grid[int32]) (*grid.Grid[uint16], error) {
	if err := grid.CheckShape(rules, g, "rule grid"); err != nil {
		return nil, eris.Wrap(err, "postfilter: fill gaps")
	}
	return grid.Allocate(g, func(i int, _ float64) bool {
		return rules.Data[i] != 0
	}), nil
}
