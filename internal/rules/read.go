package rules

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/model"
)

// idFields are the accepted names of the rule id attribute, lower-cased.
var idFields = []string{"polygon_number", "polygonnbr"}

// shapeReader is the common surface of shp.Reader and shp.ZipReader.
type shapeReader interface {
	Next() bool
	Shape() (int, shp.Shape)
	Attribute(n int) string
	Fields() []shp.Field
	Err() error
	Close() error
}

// Read loads rule polygons from a shapefile (.shp or a .zip holding one)
// or a GeoJSON feature collection (.geojson, .json).
func Read(ctx context.Context, path string) ([]Polygon, error) {
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "rules: context cancelled")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp", ".zip":
		return ReadShapefile(path)
	case ".geojson", ".json":
		return ReadGeoJSON(path)
	default:
		return nil, eris.Errorf("rules: unsupported rule polygon format %q", filepath.Ext(path))
	}
}

// ReadShapefile reads polygon records and their rule id attribute.
func ReadShapefile(path string) ([]Polygon, error) {
	var (
		reader shapeReader
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		reader, err = shp.OpenZip(path)
	} else {
		reader, err = shp.Open(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "rules: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := -1
	for i, f := range reader.Fields() {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		for _, want := range idFields {
			if name == want {
				idIdx = i
			}
		}
	}
	if idIdx < 0 {
		return nil, model.NewDataError(eris.Errorf("rules: %s has no polygon_number field", path))
	}

	var polys []Polygon
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		id, err := parseID(raw)
		if err != nil {
			return nil, model.NewDataError(eris.Wrapf(err, "rules: record %d", n))
		}
		var mp *geom.MultiPolygon
		switch s := shape.(type) {
		case *shp.Polygon:
			mp = polygonFromShape(s)
		case *shp.PolygonZ:
			mp = polygonFromParts(s.Parts, s.Points)
		case *shp.PolygonM:
			mp = polygonFromParts(s.Parts, s.Points)
		}
		if mp == nil {
			skipped++
			continue
		}
		polys = append(polys, Polygon{ID: id, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "rules: read shapefile %s", path)
	}
	if skipped > 0 {
		zap.L().Debug("rules: skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(polys) == 0 {
		return nil, model.NewDataError(eris.Errorf("rules: %s holds no polygons", path))
	}
	return polys, nil
}

func polygonFromShape(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil {
		return nil
	}
	return polygonFromParts(p.Parts, p.Points)
}

// polygonFromParts groups shapefile rings into polygons. Clockwise rings are
// shells; counter-clockwise rings are holes of the shell that contains them.
func polygonFromParts(parts []int32, points []shp.Point) *geom.MultiPolygon {
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	var shells [][]float64
	var holes [][]float64
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		if xy.IsRingCounterClockwise(geom.XY, flat) {
			holes = append(holes, flat)
		} else {
			shells = append(shells, flat)
		}
	}
	if len(shells) == 0 {
		// Rings written with the wrong winding: treat them all as shells.
		shells, holes = holes, nil
	}

	owned := make([][][]float64, len(shells))
	for _, h := range holes {
		owner := len(shells) - 1
		first := geom.Coord{h[0], h[1]}
		for i, s := range shells {
			if xy.IsPointInRing(geom.XY, first, s) {
				owner = i
				break
			}
		}
		owned[owner] = append(owned[owner], h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, s := range shells {
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, s)); err != nil {
			continue
		}
		for _, h := range owned[i] {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, h)); err != nil {
				zap.L().Debug("rules: skipping malformed hole", zap.Error(err))
			}
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("rules: skipping malformed polygon part", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// ReadGeoJSON reads a feature collection of Polygon or MultiPolygon
// features carrying a polygon_number property.
func ReadGeoJSON(path string) ([]Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, model.NewDataError(eris.Wrapf(err, "rules: decode %s", path))
	}

	polys := make([]Polygon, 0, len(fc.Features))
	for n, f := range fc.Features {
		id, err := featureID(f.Properties)
		if err != nil {
			return nil, model.NewDataError(eris.Wrapf(err, "rules: feature %d", n))
		}
		var mp *geom.MultiPolygon
		switch g := f.Geometry.(type) {
		case *geom.MultiPolygon:
			mp = g
		case *geom.Polygon:
			mp = geom.NewMultiPolygon(g.Layout())
			if err := mp.Push(g); err != nil {
				return nil, model.NewDataError(eris.Wrapf(err, "rules: feature %d", n))
			}
		default:
			return nil, model.NewDataError(eris.Errorf("rules: feature %d is not a polygon", n))
		}
		polys = append(polys, Polygon{ID: id, Geometry: mp})
	}
	if len(polys) == 0 {
		return nil, model.NewDataError(eris.Errorf("rules: %s holds no polygons", path))
	}
	return polys, nil
}

func featureID(props map[string]any) (int, error) {
	for k, v := range props {
		key := strings.ToLower(k)
		if key != idFields[0] && key != idFields[1] {
			continue
		}
		switch id := v.(type) {
		case float64:
			return parseID(strconv.FormatFloat(id, 'f', -1, 64))
		case string:
			return parseID(id)
		default:
			return 0, eris.Errorf("polygon_number has type %T", v)
		}
	}
	return 0, eris.New("missing polygon_number property")
}

func parseID(s string) (int, error) {
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("polygon_number %q is not an integer", s)
	}
	if id <= 0 {
		return 0, eris.Errorf("polygon_number %d must be positive", id)
	}
	return id, nil
}
