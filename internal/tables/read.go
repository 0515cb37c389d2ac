// Package tables loads the elevation band table and the zone label
// catalogue from CSV or Excel files.
package tables

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is a header plus string rows. Header names are lower-cased and
// trimmed on read.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Rename replaces header names found in remap.
func (t *Table) Rename(remap map[string]string) {
	for i, h := range t.Header {
		if to, ok := remap[h]; ok {
			t.Header[i] = to
		}
	}
}

// Value returns the trimmed cell of row at column i, or "" when the row is short.
func (t *Table) Value(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Read loads a table from a .csv, .xls or .xlsx file. Excel tables are read
// from the first worksheet.
func Read(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tables: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	case ".xls", ".xlsx":
		return ReadXLSX(ctx, path)
	default:
		return nil, eris.Errorf("tables: unsupported table format %q", filepath.Ext(path))
	}
}

// ReadCSV parses a comma separated table with a header row.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	t := &Table{}
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "tables: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tables: read csv row")
		}
		if t.Header == nil {
			t.Header = normalizeHeader(record)
			continue
		}
		if blank(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	if t.Header == nil {
		return nil, eris.New("tables: csv has no header row")
	}
	return t, nil
}

// ReadXLSX parses the first worksheet of an Excel workbook.
func ReadXLSX(ctx context.Context, path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "tables: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("tables: %s has no worksheets", path)
	}

	t := &Table{}
	for _, row := range f.Sheets[0].Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "tables: context cancelled")
		}
		cells := rowToStrings(row)
		if t.Header == nil {
			t.Header = normalizeHeader(cells)
			continue
		}
		if blank(cells) {
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	if t.Header == nil {
		return nil, eris.Errorf("tables: %s has no header row", path)
	}
	return t, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, h := range record {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
