package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/becmodel/internal/config"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/raster"
	"github.com/sells-group/becmodel/internal/rules"
	"github.com/sells-group/becmodel/internal/tables"
)

// Inputs are the source data of one run.
type Inputs struct {
	Bands     []model.ElevationBand
	Catalogue map[string]int
	Rules     []rules.Polygon
	Terrain   *raster.Terrain
}

// Load reads the elevation table, the optional catalogue and the rule
// polygons concurrently, checks the bands against the rule polygon ids, and
// only then derives the terrain. The first failure cancels the rest.
func Load(ctx context.Context, cfg *config.Config) (*Inputs, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	start := time.Now()

	in := &Inputs{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bands, err := tables.ReadBands(gCtx, cfg.Input.Elevation)
		if err != nil {
			return eris.Wrap(err, "pipeline: load elevation table")
		}
		in.Bands = bands
		return nil
	})

	if cfg.Input.BECMaster != "" {
		g.Go(func() error {
			cat, err := tables.ReadCatalogue(gCtx, cfg.Input.BECMaster)
			if err != nil {
				return eris.Wrap(err, "pipeline: load catalogue")
			}
			in.Catalogue = cat
			return nil
		})
	}

	g.Go(func() error {
		polys, err := rules.Read(gCtx, cfg.Input.RulePolys)
		if err != nil {
			return eris.Wrap(err, "pipeline: load rule polygons")
		}
		in.Rules = polys
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := tables.Validate(in.Bands, rules.IDs(in.Rules)); err != nil {
		return nil, err
	}

	t, err := raster.EnsureTerrain(ctx, cfg.Input.DEM, cfg.SourceDir(), cfg.Model.CellSize())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load terrain")
	}
	in.Terrain = t

	log.Info("pipeline: inputs loaded",
		zap.String("bands", tables.Summary(in.Bands)),
		zap.Int("rule_polygons", len(in.Rules)),
		zap.Int("rows", in.Terrain.Rows()),
		zap.Int("cols", in.Terrain.Cols()),
		zap.Bool("catalogue", in.Catalogue != nil),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return in, nil
}
