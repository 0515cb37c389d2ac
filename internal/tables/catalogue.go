package tables

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/zone"
)

var catalogueColumns = []string{"biogeoclimatic_catalogue_id", "zone", "subzone", "variant", "phase"}

// CatalogueLabel builds the padded zone label from its catalogue parts:
// zone padded to 4, subzone padded to 3, then variant and phase, each a
// single blank when missing.
func CatalogueLabel(zoneName, subzone, variant, phase string) string {
	if variant == "" {
		variant = " "
	}
	if phase == "" {
		phase = " "
	}
	return zone.Pad(padRight(zoneName, 4) + padRight(subzone, 3) + variant + phase)
}

// ReadCatalogue loads the zone label catalogue at path and returns the
// catalogue id of every label.
func ReadCatalogue(ctx context.Context, path string) (map[string]int, error) {
	t, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}
	cat, err := ParseCatalogue(t)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: catalogue %s", path)
	}
	return cat, nil
}

// ParseCatalogue converts catalogue rows into a label to id map.
func ParseCatalogue(t *Table) (map[string]int, error) {
	idx := make([]int, len(catalogueColumns))
	for i, col := range catalogueColumns {
		idx[i] = t.Index(col)
		if idx[i] < 0 {
			return nil, model.NewDataError(eris.Errorf("tables: catalogue is missing column %s", col))
		}
	}

	out := make(map[string]int, len(t.Rows))
	for n, row := range t.Rows {
		id, err := parseInt(t.Value(row, idx[0]))
		if err != nil {
			return nil, model.NewDataError(eris.Wrapf(err, "tables: catalogue row %d", n+2))
		}
		label := CatalogueLabel(
			t.Value(row, idx[1]),
			t.Value(row, idx[2]),
			t.Value(row, idx[3]),
			t.Value(row, idx[4]),
		)
		out[label] = id
	}
	return out, nil
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}
