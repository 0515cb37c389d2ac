package tables

import (
	"fmt"
	"slices"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/model"
)

// Validate checks the elevation bands against the rule polygon ids. The two
// id sets must be equal, and for every polygon and aspect position the band
// bounds must tile the elevation axis without gaps or overlaps.
func Validate(bands []model.ElevationBand, ruleIDs []int) error {
	bandIDs := polygonNumbers(bands)
	onlyRules := difference(ruleIDs, bandIDs)
	onlyBands := difference(bandIDs, ruleIDs)
	if len(onlyRules) > 0 || len(onlyBands) > 0 {
		return model.NewDataError(eris.Errorf(
			"tables: polygon_number values do not match: rule polygons only %v, elevation table only %v",
			onlyRules, onlyBands,
		))
	}

	for _, id := range bandIDs {
		for _, pos := range model.Positions {
			var values []int
			for _, b := range bands {
				if b.PolygonNumber != id {
					continue
				}
				r := b.At(pos)
				values = append(values, r.Low, r.High)
			}
			if !contiguous(values) {
				return model.NewDataError(eris.Errorf(
					"tables: elevations are poorly structured, see %s columns for polygon_number %d", pos, id,
				))
			}
		}
	}
	return nil
}

// contiguous reports whether the low/high values of a polygon's bands form
// a partition. With the overall min and max removed, every interior
// boundary must appear exactly twice: once as a high, once as a low.
func contiguous(values []int) bool {
	sort.Ints(values)
	inner := values[1 : len(values)-1]
	if len(inner)%2 != 0 {
		return false
	}
	unique := make(map[int]struct{}, len(inner))
	for _, v := range inner {
		unique[v] = struct{}{}
	}
	return len(unique) == len(inner)/2
}

// polygonNumbers returns the distinct polygon numbers of the bands, in order
// of first appearance.
func polygonNumbers(bands []model.ElevationBand) []int {
	var out []int
	seen := make(map[int]bool)
	for _, b := range bands {
		if !seen[b.PolygonNumber] {
			seen[b.PolygonNumber] = true
			out = append(out, b.PolygonNumber)
		}
	}
	return out
}

func difference(a, b []int) []int {
	in := make(map[int]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	var out []int
	seen := make(map[int]bool)
	for _, v := range a {
		if !in[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// Summary describes the bands for logging.
func Summary(bands []model.ElevationBand) string {
	return fmt.Sprintf("%d bands over %d rule polygons", len(bands), len(polygonNumbers(bands)))
}
