package rules

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/model"
)

func square(minX, minY, maxX, maxY float64) []geom.Coord {
	return []geom.Coord{{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}, {minX, minY}}
}

func rulePolygon(t *testing.T, id int, rings ...[]geom.Coord) Polygon {
	t.Helper()
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords([][][]geom.Coord{rings})
	require.NoError(t, err)
	return Polygon{ID: id, Geometry: mp}
}

func TestAlign(t *testing.T) {
	got := Align(grid.Bounds{MinX: 1445933.56, MinY: 467399.57, MaxX: 1463229.87, MaxY: 488903.09})
	assert.Equal(t, grid.Bounds{MinX: 1445887.5, MinY: 467287.5, MaxX: 1463387.5, MaxY: 489087.5}, got)
}

func TestExpandBounds(t *testing.T) {
	got := ExpandBounds(grid.Bounds{MinX: 100, MinY: 200, MaxX: 300, MaxY: 400}, 50)
	assert.Equal(t, grid.Bounds{MinX: 50, MinY: 150, MaxX: 350, MaxY: 450}, got)
}

func TestStudyArea(t *testing.T) {
	polys := []Polygon{
		rulePolygon(t, 1, square(1000, 2000, 1500, 2500)),
		rulePolygon(t, 2, square(1500, 2000, 2210, 2600)),
	}
	b, ok := StudyArea(polys, 100)
	require.True(t, ok)
	assert.Equal(t, grid.Bounds{MinX: 887.5, MinY: 1887.5, MaxX: 2487.5, MaxY: 2887.5}, b)

	_, ok = StudyArea(nil, 100)
	assert.False(t, ok)
}

func TestIDs(t *testing.T) {
	polys := []Polygon{{ID: 3}, {ID: 1}, {ID: 3}}
	assert.Equal(t, []int{3, 1}, IDs(polys))
}

func TestRasterize(t *testing.T) {
	tr := grid.Transform{OriginX: 0, OriginY: 100, CellSize: 10}

	t.Run("cell centres", func(t *testing.T) {
		g := Rasterize([]Polygon{rulePolygon(t, 1, square(20, 20, 60, 60))}, tr, 10, 10)
		assert.Equal(t, 16, g.Count(1))
		assert.Equal(t, int32(1), g.At(4, 2))
		assert.Equal(t, int32(1), g.At(7, 5))
		assert.Equal(t, int32(0), g.At(3, 2))
		assert.Equal(t, int32(0), g.At(4, 6))
	})

	t.Run("holes excluded", func(t *testing.T) {
		p := rulePolygon(t, 1, square(20, 20, 60, 60), square(30, 30, 50, 50))
		g := Rasterize([]Polygon{p}, tr, 10, 10)
		assert.Equal(t, 12, g.Count(1))
		assert.Equal(t, int32(0), g.At(5, 3))
	})

	t.Run("later polygons overwrite", func(t *testing.T) {
		polys := []Polygon{
			rulePolygon(t, 1, square(20, 20, 60, 60)),
			rulePolygon(t, 2, square(50, 20, 80, 60)),
		}
		g := Rasterize(polys, tr, 10, 10)
		assert.Equal(t, 12, g.Count(1))
		assert.Equal(t, 12, g.Count(2))
		assert.Equal(t, int32(2), g.At(4, 5))
	})

	t.Run("clipped to grid", func(t *testing.T) {
		g := Rasterize([]Polygon{rulePolygon(t, 4, square(-50, -50, 500, 500))}, tr, 10, 10)
		assert.Equal(t, 100, g.Count(4))
	})
}

func TestExpand(t *testing.T) {
	g := grid.FromRows([][]int32{
		{0, 0, 0, 0, 0, 0},
		{0, 1, 1, 0, 0, 0},
		{0, 1, 1, 0, 0, 2},
	})
	out := Expand(g, 2)
	assert.Equal(t, [][]int32{
		{1, 1, 1, 1, 0, 0},
		{1, 1, 1, 1, 2, 2},
		{1, 1, 1, 1, 2, 2},
	}, out.Rows2D())

	tight := Expand(g, 1)
	assert.Equal(t, g.Rows2D(), tight.Rows2D())
}

func writeShapefile(t *testing.T, dir string, ids []int, polys []*shp.Polygon) string {
	t.Helper()
	base := filepath.Join(dir, "rules")
	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.NumberField("POLYGONNBR", 10)}))
	for i, p := range polys {
		row := w.Write(p)
		require.NoError(t, w.WriteAttribute(int(row), 0, ids[i]))
	}
	w.Close()
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return base + ".shp"
}

func shpRing(coords []geom.Coord) []shp.Point {
	out := make([]shp.Point, len(coords))
	for i, c := range coords {
		out[i] = shp.Point{X: c[0], Y: c[1]}
	}
	return out
}

func reversed(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

func TestReadShapefile(t *testing.T) {
	dir := t.TempDir()
	// square() winds clockwise; holes are counter-clockwise.
	withHole := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		shpRing(square(0, 0, 100, 100)),
		shpRing(reversed(square(40, 40, 60, 60))),
	}))
	plain := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		shpRing(square(200, 0, 300, 100)),
	}))
	path := writeShapefile(t, dir, []int{7, 9}, []*shp.Polygon{&withHole, &plain})

	polys, err := Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, polys, 2)

	assert.Equal(t, 7, polys[0].ID)
	require.Equal(t, 1, polys[0].Geometry.NumPolygons())
	assert.Equal(t, 2, polys[0].Geometry.Polygon(0).NumLinearRings())
	assert.InDelta(t, 9600.0, math.Abs(polys[0].Geometry.Area()), 1e-6)

	assert.Equal(t, 9, polys[1].ID)
	assert.InDelta(t, 10000.0, math.Abs(polys[1].Geometry.Area()), 1e-6)
}

func TestPolygonFromParts_MultipleShells(t *testing.T) {
	rings := [][]shp.Point{
		shpRing(square(0, 0, 10, 10)),
		shpRing(square(20, 0, 30, 10)),
		shpRing(reversed(square(22, 2, 24, 4))),
	}
	pl := shp.NewPolyLine(rings)
	mp := polygonFromParts(pl.Parts, pl.Points)
	require.NotNil(t, mp)
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 1, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 2, mp.Polygon(1).NumLinearRings())
}

func TestReadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.geojson")
	doc := `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"POLYGON_NUMBER":3},"geometry":{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}},
{"type":"Feature","properties":{"polygonnbr":"4"},"geometry":{"type":"MultiPolygon","coordinates":[[[[20,0],[20,10],[30,10],[30,0],[20,0]]]]}}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	polys, err := Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, polys, 2)
	assert.Equal(t, 3, polys[0].ID)
	assert.Equal(t, 4, polys[1].ID)
	assert.InDelta(t, 100.0, math.Abs(polys[1].Geometry.Area()), 1e-9)
}

func TestReadGeoJSON_MissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.geojson")
	doc := `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := ReadGeoJSON(path)
	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
	assert.Contains(t, err.Error(), "missing polygon_number")
}

func TestParseID(t *testing.T) {
	id, err := parseID("12.0")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = parseID("12.5")
	assert.Error(t, err)
	_, err = parseID("0")
	assert.Error(t, err)
}

func TestRead_UnsupportedFormat(t *testing.T) {
	_, err := Read(context.Background(), "rules.gdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
