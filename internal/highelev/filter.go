package highelev

import (
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/grid"
)

// Filter merges undersized high elevation patches into the next tier down.
// Tiers are processed top-down; for each tier the cells of every lower tier
// form a mask, holes in that mask smaller than thresholdCells are filled, and
// filled cells inside a merge rule's polygon take the rule's target. The
// input grid is not modified.
func Filter(g *grid.Grid[uint16], rules *grid.Grid[int32], plan *Plan, thresholdCells int, conn grid.Connectivity) (*grid.Grid[uint16], error) {
	if err := conn.Validate(); err != nil {
		return nil, eris.Wrap(err, "highelev: filter")
	}
	if err := grid.CheckShape(rules, g, "rule grid"); err != nil {
		return nil, eris.Wrap(err, "highelev: filter")
	}

	out := g.Clone()
	tiers := plan.Tiers()
	if len(tiers) == 0 {
		zap.L().Debug("highelev: no high elevation tiers, skipping")
		return out, nil
	}

	for i, tier := range tiers[:len(tiers)-1] {
		// every lower tier, not just the next, so a patch left after one
		// merge still cascades down to high
		var lower []uint16
		for _, t := range tiers[i+1:] {
			lower = append(lower, plan.Dissolves[t]...)
		}
		mask := grid.MaskOf(out, func(v uint16) bool { return slices.Contains(lower, v) })
		filled := grid.RemoveSmallHoles(mask, thresholdCells, conn)

		merged := 0
		for _, r := range plan.RulesFor(tier) {
			rule := int32(r.Rule)
			for j := range out.Data {
				if filled.Data[j] && !mask.Data[j] && rules.Data[j] == rule {
					out.Data[j] = r.Target
					merged++
				}
			}
		}
		zap.L().Debug("highelev: merged tier",
			zap.String("tier", string(tier)),
			zap.Int("cells", merged),
		)
	}
	return out, nil
}
