package zone

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/model"
)

// NoCode is the reserved code for unclassified cells.
const NoCode uint16 = 0

// aggregateHeadroom is the number of codes above MaxCode reserved for the
// alpine/parkland/woodland aggregates used while majority filtering.
const aggregateHeadroom = 3

// Registry is a bijection between the zone labels present in a run and the
// codes written to classification grids.
type Registry struct {
	codes  map[string]uint16
	labels map[uint16]string
	order  []uint16
}

// NewRegistry numbers the distinct labels of the bands 1..n in order of
// first appearance.
func NewRegistry(bands []model.ElevationBand) *Registry {
	r := newRegistry()
	next := uint16(1)
	for _, b := range bands {
		label := Pad(b.Label)
		if _, ok := r.codes[label]; ok {
			continue
		}
		r.add(label, next)
		next++
	}
	return r
}

// NewRegistryFromCatalogue assigns each band label the code it carries in the
// catalogue. Every unknown label is reported in a single data error.
func NewRegistryFromCatalogue(bands []model.ElevationBand, catalogue map[string]int) (*Registry, error) {
	r := newRegistry()
	var missing []string
	seenMissing := make(map[string]bool)
	for _, b := range bands {
		label := Pad(b.Label)
		if _, ok := r.codes[label]; ok {
			continue
		}
		value, ok := catalogue[label]
		if !ok {
			if !seenMissing[label] {
				seenMissing[label] = true
				missing = append(missing, strings.TrimSpace(label))
			}
			continue
		}
		if value <= 0 || value > math.MaxUint16-aggregateHeadroom {
			return nil, model.NewDataError(eris.Errorf("zone: catalogue value %d for %q out of range", value, label))
		}
		if other, dup := r.labels[uint16(value)]; dup {
			return nil, model.NewDataError(eris.Errorf("zone: catalogue value %d shared by %q and %q", value, other, label))
		}
		r.add(label, uint16(value))
	}
	if len(missing) > 0 {
		return nil, model.NewDataError(eris.Errorf(
			"zone: beclabel(s) in elevation table are misformatted or do not exist in the catalogue: %s",
			strings.Join(missing, ", "),
		))
	}
	return r, nil
}

func newRegistry() *Registry {
	return &Registry{
		codes:  make(map[string]uint16),
		labels: make(map[uint16]string),
	}
}

func (r *Registry) add(label string, code uint16) {
	r.codes[label] = code
	r.labels[code] = label
	r.order = append(r.order, code)
}

// Code returns the code of a label. Labels are padded before lookup.
func (r *Registry) Code(label string) (uint16, bool) {
	c, ok := r.codes[Pad(label)]
	return c, ok
}

// Label returns the padded label of a code. Code 0 has no label.
func (r *Registry) Label(code uint16) (string, bool) {
	if code == NoCode {
		return "", false
	}
	l, ok := r.labels[code]
	return l, ok
}

// Codes returns all non-zero codes in registration order.
func (r *Registry) Codes() []uint16 {
	out := make([]uint16, len(r.order))
	copy(out, r.order)
	return out
}

// MaxCode returns the largest registered code.
func (r *Registry) MaxCode() uint16 {
	var m uint16
	for _, c := range r.order {
		if c > m {
			m = c
		}
	}
	return m
}

// Len returns the number of registered labels.
func (r *Registry) Len() int {
	return len(r.order)
}

// Lookup returns the reverse mapping code → label, including 0 → "".
func (r *Registry) Lookup() map[uint16]string {
	out := make(map[uint16]string, len(r.labels)+1)
	for c, l := range r.labels {
		out[c] = l
	}
	out[NoCode] = ""
	return out
}
