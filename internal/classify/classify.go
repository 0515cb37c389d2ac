// Package classify builds the initial classification grid from the rule id
// grid, elevation and flattened aspect.
package classify

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/aspect"
	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/zone"
)

// Assignment is one masked write: cells under Rule whose aspect falls in
// Aspect and whose elevation falls in [Elevation.Low, Elevation.High)
// receive Code.
type Assignment struct {
	Band       int         `json:"band"`
	Rule       int32       `json:"rule"`
	Code       uint16      `json:"code"`
	Transition int         `json:"transition"`
	Offset     int         `json:"offset"`
	Aspect     aspect.Pass `json:"aspect"`
	Elevation  model.Range `json:"elevation"`
}

// Matches reports whether a cell satisfies the assignment's predicate.
func (a Assignment) Matches(rule int32, elevation float32, asp uint16) bool {
	if rule != a.Rule || !a.Aspect.Contains(int(asp)) {
		return false
	}
	e := float64(elevation)
	return e >= float64(a.Elevation.Low) && e < float64(a.Elevation.High)
}

// Inputs are the co-registered grids the classifier reads.
type Inputs struct {
	Rules     *grid.Grid[int32]
	Elevation *grid.Grid[float32]
	Aspect    *grid.Grid[uint16]
}

func (in Inputs) validate() error {
	if in.Rules == nil || in.Elevation == nil || in.Aspect == nil {
		return eris.New("classify: rules, elevation and aspect grids are required")
	}
	if err := grid.CheckShape(in.Rules, in.Elevation, "elevation"); err != nil {
		return eris.Wrap(err, "classify: inputs")
	}
	if err := grid.CheckShape(in.Rules, in.Aspect, "aspect"); err != nil {
		return eris.Wrap(err, "classify: inputs")
	}
	return nil
}

// Plan expands the bands into the ordered list of assignments. Order is
// bands in table order, then the four transitions cool→neutral,
// neutral→warm, warm→neutral, neutral→cool, then steps in increasing
// order, and for a step wrapping north the tail pass before the head pass.
// Later assignments override earlier ones.
func Plan(bands []model.ElevationBand, reg *zone.Registry, mids aspect.Midpoints) ([]Assignment, error) {
	var plan []Assignment
	for i, b := range bands {
		code, ok := reg.Code(b.Label)
		if !ok {
			return nil, eris.Errorf("classify: label %q has no code", b.Label)
		}
		for _, tr := range mids.Transitions(b) {
			for _, step := range tr.Steps() {
				for _, pass := range step.Aspect.Split() {
					plan = append(plan, Assignment{
						Band:       i,
						Rule:       int32(b.PolygonNumber),
						Code:       code,
						Transition: tr.Index,
						Offset:     step.Offset,
						Aspect:     pass,
						Elevation:  step.Elevation,
					})
				}
			}
		}
	}
	return plan, nil
}

// Apply runs the plan over a zeroed grid; last write wins. Cells matching no
// assignment stay 0.
func Apply(plan []Assignment, in Inputs) (*grid.Grid[uint16], error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	out := grid.New[uint16](in.Rules.Rows, in.Rules.Cols)

	// Index assignments by rule so each cell scans only its own polygon's
	// list, preserving plan order within it.
	byRule := make(map[int32][]int)
	for i, a := range plan {
		byRule[a.Rule] = append(byRule[a.Rule], i)
	}

	for i, rule := range in.Rules.Data {
		idx, ok := byRule[rule]
		if !ok {
			continue
		}
		elev, asp := in.Elevation.Data[i], in.Aspect.Data[i]
		// Walk backwards: the first match from the end is the last write.
		for k := len(idx) - 1; k >= 0; k-- {
			a := plan[idx[k]]
			if a.Matches(rule, elev, asp) {
				out.Data[i] = a.Code
				break
			}
		}
	}
	return out, nil
}

// Classify plans and applies in one step.
func Classify(bands []model.ElevationBand, reg *zone.Registry, mids aspect.Midpoints, in Inputs) (*grid.Grid[uint16], error) {
	plan, err := Plan(bands, reg, mids)
	if err != nil {
		return nil, err
	}
	return Apply(plan, in)
}
