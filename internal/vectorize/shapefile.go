package vectorize

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// WriteShapefile writes the features as a polygon shapefile with
// BGC_LABEL, AREA_HA and BECVALUE attributes. Rings are reversed to the
// shapefile convention of clockwise shells. A .prj is written for BC Albers.
func WriteShapefile(path string, features []Feature, srid int) error {
	base := strings.TrimSuffix(path, ".shp")
	w, err := shp.Create(base+".shp", shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "vectorize: create %s", path)
	}

	fields := []shp.Field{
		shp.StringField(FieldLabel, 9),
		shp.FloatField(FieldArea, 16, 1),
		shp.NumberField(FieldCode, 10),
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return eris.Wrap(err, "vectorize: set shapefile fields")
	}

	for _, f := range features {
		var parts [][]shp.Point
		for _, ring := range rings(f.Polygon) {
			pts := make([]shp.Point, len(ring))
			for i, c := range ring {
				pts[len(ring)-1-i] = shp.Point{X: c[0], Y: c[1]}
			}
			parts = append(parts, pts)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := int(w.Write(&poly))
		for i, v := range []any{f.Label, f.AreaHa, int(f.Code)} {
			if err := w.WriteAttribute(row, i, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "vectorize: write attribute %s", fields[i].String())
			}
		}
	}
	w.Close()

	// go-shp names the attribute file "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrap(err, "vectorize: rename dbf")
	}
	if srid == SRIDBCAlbers {
		if err := os.WriteFile(base+".prj", []byte(bcAlbersWKT), 0o644); err != nil {
			return eris.Wrap(err, "vectorize: write prj")
		}
	}
	return nil
}
