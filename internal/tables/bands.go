package tables

import (
	"context"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/zone"
)

// bandColumnRemap maps the short dBase-compatible names found in older
// elevation tables onto the standard names.
var bandColumnRemap = map[string]string{
	"classnm":    "class_name",
	"neut_low":   "neutral_low",
	"neut_high":  "neutral_high",
	"polygonnbr": "polygon_number",
}

var bandColumns = []string{
	"beclabel",
	"cool_low",
	"cool_high",
	"neutral_low",
	"neutral_high",
	"warm_low",
	"warm_high",
	"polygon_number",
}

// ReadBands loads and parses the elevation table at path.
func ReadBands(ctx context.Context, path string) ([]model.ElevationBand, error) {
	t, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}
	bands, err := ParseBands(t)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: elevation table %s", path)
	}
	return bands, nil
}

// ParseBands converts the rows of an elevation table into bands, in table
// order. Labels are padded to the fixed label width; unused columns are
// ignored.
func ParseBands(t *Table) ([]model.ElevationBand, error) {
	t.Rename(bandColumnRemap)

	idx := make(map[string]int, len(bandColumns))
	var missing []string
	for _, col := range bandColumns {
		i := t.Index(col)
		if i < 0 {
			missing = append(missing, col)
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, model.NewDataError(eris.Errorf("tables: elevation table is missing column(s) %v", missing))
	}

	bands := make([]model.ElevationBand, 0, len(t.Rows))
	for n, row := range t.Rows {
		ints := make(map[string]int, len(bandColumns)-1)
		for _, col := range bandColumns[1:] {
			v, err := parseInt(t.Value(row, idx[col]))
			if err != nil {
				return nil, model.NewDataError(eris.Wrapf(err, "tables: row %d column %s", n+2, col))
			}
			ints[col] = v
		}
		label := t.Value(row, idx["beclabel"])
		if label == "" {
			return nil, model.NewDataError(eris.Errorf("tables: row %d has an empty beclabel", n+2))
		}
		bands = append(bands, model.ElevationBand{
			PolygonNumber: ints["polygon_number"],
			Label:         zone.Pad(label),
			Cool:          model.Range{Low: ints["cool_low"], High: ints["cool_high"]},
			Neutral:       model.Range{Low: ints["neutral_low"], High: ints["neutral_high"]},
			Warm:          model.Range{Low: ints["warm_low"], High: ints["warm_high"]},
		})
	}
	return bands, nil
}

// parseInt accepts integers and integral floats ("100", "100.0"); Excel
// numeric cells often arrive in the latter form.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, eris.New("empty value")
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("%q is not a number", s)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, eris.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}
