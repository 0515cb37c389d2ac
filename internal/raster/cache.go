package raster

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/model"
)

// Cached terrain file names inside the workspace source directory.
const (
	SlopeFile  = "slope.asc"
	AspectFile = "aspect.asc"
)

// Terrain holds the DEM and its derived slope and aspect on one grid.
type Terrain struct {
	Transform grid.Transform
	DEM       *Raster
	Slope     *grid.Grid[float32]
	Aspect    *grid.Grid[float32]
}

// Rows returns the raster height.
func (t *Terrain) Rows() int { return t.DEM.Data.Rows }

// Cols returns the raster width.
func (t *Terrain) Cols() int { return t.DEM.Data.Cols }

// EnsureTerrain loads the DEM and returns it with slope and aspect. Slope
// and aspect are read from srcDir when present and computed and written
// there otherwise. The DEM cell size must equal cellSize.
func EnsureTerrain(ctx context.Context, demPath, srcDir string, cellSize float64) (*Terrain, error) {
	log := zap.L().With(zap.String("component", "raster"))

	dem, err := ReadASCII(demPath)
	if err != nil {
		return nil, err
	}
	if math.Abs(dem.Transform.CellSize-cellSize) > 1e-9 {
		return nil, model.NewDataError(eris.Errorf(
			"raster: DEM cell size %g does not match cell_size_metres %g", dem.Transform.CellSize, cellSize,
		))
	}
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "raster: create %s", srcDir)
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "raster: context cancelled")
	}

	t := &Terrain{Transform: dem.Transform, DEM: dem}
	slopePath := filepath.Join(srcDir, SlopeFile)
	aspectPath := filepath.Join(srcDir, AspectFile)

	if exists(slopePath) && exists(aspectPath) {
		slope, err := readMatching(slopePath, dem)
		if err != nil {
			return nil, err
		}
		aspect, err := readMatching(aspectPath, dem)
		if err != nil {
			return nil, err
		}
		t.Slope, t.Aspect = slope, aspect
		log.Info("using cached slope and aspect", zap.String("dir", srcDir))
		return t, nil
	}

	log.Info("computing slope and aspect",
		zap.Int("rows", dem.Data.Rows),
		zap.Int("cols", dem.Data.Cols),
	)
	t.Slope, t.Aspect = SlopeAspect(dem)
	if err := WriteASCII(slopePath, t.Slope, dem.Transform, DefaultNoData); err != nil {
		return nil, err
	}
	if err := WriteASCII(aspectPath, t.Aspect, dem.Transform, DefaultNoData); err != nil {
		return nil, err
	}
	return t, nil
}

func readMatching(path string, dem *Raster) (*grid.Grid[float32], error) {
	r, err := ReadASCII(path)
	if err != nil {
		return nil, err
	}
	if err := grid.CheckShape(dem.Data, r.Data, filepath.Base(path)); err != nil {
		return nil, eris.Wrap(err, "raster: cached terrain does not match DEM, rerun with --overwrite")
	}
	return r.Data, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
