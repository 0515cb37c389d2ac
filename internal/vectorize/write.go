package vectorize

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// SRIDBCAlbers is NAD83 / BC Albers, the projection of the provincial DEM.
const SRIDBCAlbers = 3005

// bcAlbersWKT is written to .prj files and the GeoPackage SRS table.
const bcAlbersWKT = `PROJCS["NAD83 / BC Albers",GEOGCS["NAD83",DATUM["North_American_Datum_1983",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Albers_Conic_Equal_Area"],PARAMETER["latitude_of_center",45],PARAMETER["longitude_of_center",-126],PARAMETER["standard_parallel_1",50],PARAMETER["standard_parallel_2",58.5],PARAMETER["false_easting",1000000],PARAMETER["false_northing",0],UNIT["metre",1],AUTHORITY["EPSG","3005"]]`

// Formats lists the supported output extensions.
var Formats = []string{".gpkg", ".shp", ".geojson"}

// Write dispatches on the extension of path.
func Write(ctx context.Context, path, layer string, features []Feature, srid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "vectorize: create directory for %s", path)
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gpkg":
		err = WriteGeoPackage(ctx, path, layer, features, srid)
	case ".shp":
		err = WriteShapefile(path, features, srid)
	case ".geojson", ".json":
		err = WriteGeoJSON(path, features)
	default:
		return eris.Errorf("vectorize: unsupported output format %q", ext)
	}
	if err != nil {
		return err
	}
	zap.L().Info("vectorize: wrote output",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return nil
}

// WriteGeoJSON writes the features as a GeoJSON FeatureCollection.
func WriteGeoJSON(path string, features []Feature) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Polygon,
			Properties: f.properties(),
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "vectorize: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "vectorize: write %s", path)
	}
	return nil
}

func (f Feature) properties() map[string]any {
	return map[string]any{
		FieldLabel: f.Label,
		FieldArea:  f.AreaHa,
		FieldCode:  int(f.Code),
	}
}

// rings returns the rings of p as closed coordinate lists.
func rings(p *geom.Polygon) [][]geom.Coord {
	out := make([][]geom.Coord, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		out = append(out, p.LinearRing(i).Coords())
	}
	return out
}
