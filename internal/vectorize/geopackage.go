package vectorize

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"
)

// gpkgApplicationID is "GPKG" as a big-endian int32.
const gpkgApplicationID = 0x47504B47

// gpkgVersion is GeoPackage 1.3.0.
const gpkgVersion = 10300

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER NOT NULL PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT NOT NULL PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL REFERENCES gpkg_spatial_ref_sys(srs_id),
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	PRIMARY KEY (table_name, column_name)
);

INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', NULL),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', NULL),
	('WGS 84 geodetic', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]', NULL);
`

// WriteGeoPackage writes the features to a new GeoPackage, replacing any
// existing file, as a single polygon layer.
func WriteGeoPackage(ctx context.Context, path, layer string, features []Feature, srid int) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "vectorize: remove %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "vectorize: open geopackage")
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "vectorize: begin geopackage")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version = %d", gpkgVersion),
		gpkgSchema,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "vectorize: create geopackage schema")
		}
	}

	if srid != 4326 && srid > 0 {
		name, org, def := fmt.Sprintf("EPSG:%d", srid), "EPSG", "undefined"
		if srid == SRIDBCAlbers {
			name, def = "NAD83 / BC Albers", bcAlbersWKT
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition) VALUES (?, ?, ?, ?, ?)`,
			name, srid, org, srid, def,
		); err != nil {
			return eris.Wrap(err, "vectorize: insert srs")
		}
	}

	table := quoteIdent(layer)
	create := fmt.Sprintf(`CREATE TABLE %s (
	fid       INTEGER PRIMARY KEY AUTOINCREMENT,
	geom      POLYGON,
	%s TEXT,
	%s DOUBLE,
	%s INTEGER
)`, table, FieldLabel, FieldArea, FieldCode)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return eris.Wrapf(err, "vectorize: create layer %s", layer)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (geom, %s, %s, %s) VALUES (?, ?, ?, ?)", table, FieldLabel, FieldArea, FieldCode))
	if err != nil {
		return eris.Wrap(err, "vectorize: prepare insert")
	}
	defer insert.Close()

	extent := geom.NewBounds(geom.XY)
	for _, f := range features {
		blob, err := gpkgGeometry(f.Polygon, srid)
		if err != nil {
			return err
		}
		if _, err := insert.ExecContext(ctx, blob, f.Label, f.AreaHa, int(f.Code)); err != nil {
			return eris.Wrap(err, "vectorize: insert feature")
		}
		extent.Extend(f.Polygon)
	}

	var minX, minY, maxX, maxY any
	if !extent.IsEmpty() {
		minX, minY, maxX, maxY = extent.Min(0), extent.Min(1), extent.Max(0), extent.Max(1)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		layer, layer, minX, minY, maxX, maxY, srid,
	); err != nil {
		return eris.Wrap(err, "vectorize: insert contents")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', 'POLYGON', ?, 0, 0)`,
		layer, srid,
	); err != nil {
		return eris.Wrap(err, "vectorize: insert geometry column")
	}

	return eris.Wrap(tx.Commit(), "vectorize: commit geopackage")
}

// gpkgGeometry encodes a polygon as a GeoPackage binary: the "GP" header
// with an XY envelope followed by little-endian WKB.
func gpkgGeometry(p *geom.Polygon, srid int) ([]byte, error) {
	body, err := wkb.Marshal(p, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "vectorize: encode wkb")
	}
	b := p.Bounds()

	var buf bytes.Buffer
	buf.Write([]byte{'G', 'P', 0})
	// flags: little endian, envelope [minx, maxx, miny, maxy]
	buf.WriteByte(0x01 | 1<<1)
	_ = binary.Write(&buf, binary.LittleEndian, int32(srid))
	_ = binary.Write(&buf, binary.LittleEndian, []float64{b.Min(0), b.Max(0), b.Min(1), b.Max(1)})
	buf.Write(body)
	return buf.Bytes(), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
