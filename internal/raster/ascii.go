// Package raster reads and writes ESRI ASCII grids and derives slope and
// aspect from a DEM.
package raster

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/grid"
)

// DefaultNoData is written as NODATA_value when a grid has no nodata of its own.
const DefaultNoData = -9999

// Raster is a float grid with its georeferencing.
type Raster struct {
	Data      *grid.Grid[float32]
	Transform grid.Transform
	NoData    float64
	HasNoData bool
}

// IsNoData reports whether cell i holds the nodata value.
func (r *Raster) IsNoData(i int) bool {
	return r.HasNoData && float64(r.Data.Data[i]) == r.NoData
}

// ReadASCII reads an ESRI ASCII grid. Paths ending in .gz are decompressed.
func ReadASCII(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: gunzip %s", path)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	ras, err := ParseASCII(r)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: parse %s", path)
	}
	return ras, nil
}

// ParseASCII parses the header and cell values of an ESRI ASCII grid.
func ParseASCII(r io.Reader) (*Raster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<26)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header %s has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Errorf("raster: header %s value %q", key, sc.Text())
		}
		header[key] = v
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: missing header %s", k)
		}
	}
	cols, rows := int(header["ncols"]), int(header["nrows"])
	cell := header["cellsize"]
	if cols <= 0 || rows <= 0 || cell <= 0 {
		return nil, eris.Errorf("raster: invalid dimensions %dx%d cellsize %g", rows, cols, cell)
	}

	var xll, yll float64
	switch {
	case hasKey(header, "xllcorner") && hasKey(header, "yllcorner"):
		xll, yll = header["xllcorner"], header["yllcorner"]
	case hasKey(header, "xllcenter") && hasKey(header, "yllcenter"):
		xll, yll = header["xllcenter"]-cell/2, header["yllcenter"]-cell/2
	default:
		return nil, eris.New("raster: missing lower-left corner or centre")
	}

	ras := &Raster{
		Data: grid.New[float32](rows, cols),
		Transform: grid.Transform{
			OriginX:  xll,
			OriginY:  yll + float64(rows)*cell,
			CellSize: cell,
		},
	}
	if nd, ok := header["nodata_value"]; ok {
		ras.NoData, ras.HasNoData = nd, true
	}

	n := 0
	parse := func(s string) error {
		if n >= len(ras.Data.Data) {
			return eris.Errorf("raster: more than %d values", len(ras.Data.Data))
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return eris.Errorf("raster: value %d %q", n, s)
		}
		ras.Data.Data[n] = float32(v)
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan")
	}
	if n != len(ras.Data.Data) {
		return nil, eris.Errorf("raster: expected %d values, got %d", len(ras.Data.Data), n)
	}
	return ras, nil
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

// WriteASCII writes g as an ESRI ASCII grid. Paths ending in .gz are
// compressed.
func WriteASCII[T grid.Number](path string, g *grid.Grid[T], tr grid.Transform, nodata float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "raster: close %s", path)
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); cerr != nil && err == nil {
				err = eris.Wrapf(cerr, "raster: gzip %s", path)
			}
		}()
		w = gz
	}

	bw := bufio.NewWriter(w)
	b := tr.Bounds(g.Rows, g.Cols)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\nxllcorner %s\nyllcorner %s\ncellsize %s\nNODATA_value %s\n",
		g.Cols, g.Rows, formatCoord(b.MinX), formatCoord(b.MinY), formatCoord(tr.CellSize), formatCoord(nodata))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(formatFloat(float64(g.At(r, c))))
		}
		_ = bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrapf(err, "raster: write %s", path)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFloat writes cell values at float32 precision.
func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 32)
}
