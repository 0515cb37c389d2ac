package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/raster"
)

// qaGrid is one raster written by WriteQA.
type qaGrid struct {
	name  string
	write func(path string) error
}

func floatGrid(name string, g *grid.Grid[float32], tr grid.Transform) qaGrid {
	return qaGrid{name, func(path string) error { return raster.WriteASCII(path, g, tr, raster.DefaultNoData) }}
}

func codeGrid[T grid.Number](name string, g *grid.Grid[T], tr grid.Transform) qaGrid {
	return qaGrid{name, func(path string) error { return raster.WriteASCII(path, g, tr, 0) }}
}

// WriteQA dumps the terrain and every intermediate grid into dir as
// NN_name.asc, numbered in processing order. Grids a failed run never
// produced are skipped. It returns the number of files written.
func WriteQA(dir string, in *Inputs, g *Grids) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, eris.Wrapf(err, "pipeline: create %s", dir)
	}

	var dumps []qaGrid
	if in != nil && in.Terrain != nil {
		t := in.Terrain
		dumps = append(dumps,
			floatGrid("dem", t.DEM.Data, t.Transform),
			floatGrid("slope", t.Slope, t.Transform),
			floatGrid("aspect", t.Aspect, t.Transform),
		)
	}
	if g != nil {
		tr := g.Transform
		add := func(name string, gr *grid.Grid[uint16]) {
			if gr != nil {
				dumps = append(dumps, codeGrid(name, gr, tr))
			}
		}
		if g.Rules != nil {
			dumps = append(dumps, codeGrid("ruleimg", g.Rules, tr))
		}
		if g.RulesExpand != nil {
			dumps = append(dumps, codeGrid("ruleimg_expanded", g.RulesExpand, tr))
		}
		add("aspect_class", g.Aspect)
		add("becinit", g.Initial)
		if f := g.Filters; f != nil {
			add("becinit_grouped", f.Grouped)
			add("becmajority", f.Majority)
			add("becmajority_ungrouped", f.Ungroup)
			add("becnoise", f.Noise)
			add("becvalue_filled", f.Filled)
		}
		add("becvalue", g.HighElev)
	}

	for i, d := range dumps {
		path := filepath.Join(dir, fmt.Sprintf("%02d_%s.asc", i, d.name))
		if err := d.write(path); err != nil {
			return i, eris.Wrapf(err, "pipeline: write QA grid %s", d.name)
		}
	}
	return len(dumps), nil
}
