// Package aspect converts compass aspect into positions along the cyclic
// cool → neutral → warm → neutral → cool temperature sequence and
// interpolates elevation bands across it.
package aspect

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/model"
)

// StepDegrees is the width of each aspect class within a transition.
const StepDegrees = 10

// Midpoints holds the aspect (degrees) at the centre of each temperature zone.
type Midpoints struct {
	Cool        int `json:"cool"`
	NeutralEast int `json:"neutral_east"`
	Warm        int `json:"warm"`
	NeutralWest int `json:"neutral_west"`
}

// DefaultMidpoints returns 0/90/200/290.
func DefaultMidpoints() Midpoints {
	return Midpoints{Cool: 0, NeutralEast: 90, Warm: 200, NeutralWest: 290}
}

// Sequence returns the five midpoints of the cycle, cool repeated at the end.
func (m Midpoints) Sequence() [5]int {
	return [5]int{m.Cool, m.NeutralEast, m.Warm, m.NeutralWest, m.Cool}
}

// Spans returns the angular distance (mod 360) of each of the four transitions.
func (m Midpoints) Spans() [4]int {
	seq := m.Sequence()
	var out [4]int
	for i := range out {
		out[i] = mod360(seq[i+1] - seq[i])
	}
	return out
}

// Validate checks the midpoints are multiples of 10 in [0,360) and that every
// transition has a positive span.
func (m Midpoints) Validate() error {
	seq := m.Sequence()
	for _, v := range seq[:4] {
		if v < 0 || v >= 360 || v%StepDegrees != 0 {
			return eris.Errorf("aspect: midpoint %d must be a multiple of %d in [0,360)", v, StepDegrees)
		}
	}
	total := 0
	for _, s := range m.Spans() {
		if s == 0 {
			return eris.New("aspect: consecutive midpoints must differ")
		}
		total += s
	}
	if total != 360 {
		return eris.Errorf("aspect: midpoints must be in clockwise order (spans sum to %d)", total)
	}
	return nil
}

// Range is a half-open aspect interval [Min, Max) in degrees. Min > Max
// means the interval wraps through north.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Wraps reports whether the range crosses 360°/0°.
func (r Range) Wraps() bool {
	return r.Min > r.Max
}

// Pass is one masked comparison against aspect. Open passes have no upper bound.
type Pass struct {
	Min  int  `json:"min"`
	Max  int  `json:"max"`
	Open bool `json:"open,omitempty"`
}

// Contains reports whether an aspect value falls inside the pass.
func (p Pass) Contains(aspect int) bool {
	if aspect < p.Min {
		return false
	}
	return p.Open || aspect < p.Max
}

// Split returns the passes that cover the range. A wrapping range becomes the
// tail (aspect >= Min) followed by the head [0, Max).
func (r Range) Split() []Pass {
	if r.Wraps() {
		return []Pass{
			{Min: r.Min, Open: true},
			{Min: 0, Max: r.Max},
		}
	}
	return []Pass{{Min: r.Min, Max: r.Max}}
}

// Step is one 10° aspect class of a transition with its interpolated elevation
// range.
type Step struct {
	Transition int         `json:"transition"`
	Offset     int         `json:"offset"`
	Aspect     Range       `json:"aspect"`
	Elevation  model.Range `json:"elevation"`
}

// Transition moves between two adjacent temperature zones.
type Transition struct {
	Index    int         `json:"index"`
	Midpoint int         `json:"midpoint"`
	Span     int         `json:"span"`
	From     model.Range `json:"from"`
	To       model.Range `json:"to"`
}

// Transitions returns the four canonical transitions of a band in fixed
// order: cool→neutral, neutral→warm, warm→neutral, neutral→cool.
func (m Midpoints) Transitions(b model.ElevationBand) [4]Transition {
	seq := m.Sequence()
	spans := m.Spans()
	pairs := [4][2]model.Range{
		{b.Cool, b.Neutral},
		{b.Neutral, b.Warm},
		{b.Warm, b.Neutral},
		{b.Neutral, b.Cool},
	}
	var out [4]Transition
	for i := range out {
		out[i] = Transition{
			Index:    i,
			Midpoint: seq[i],
			Span:     spans[i],
			From:     pairs[i][0],
			To:       pairs[i][1],
		}
	}
	return out
}

// Steps returns the 10° classes of the transition in increasing order.
func (t Transition) Steps() []Step {
	var steps []Step
	for off := 0; off < t.Span; off += StepDegrees {
		centre := t.Midpoint + off
		steps = append(steps, Step{
			Transition: t.Index,
			Offset:     off,
			Aspect: Range{
				Min: mod360(centre - StepDegrees/2),
				Max: mod360(centre + StepDegrees/2),
			},
			Elevation: model.Range{
				Low:  interpolate(t.From.Low, t.To.Low, off, t.Span),
				High: interpolate(t.From.High, t.To.High, off, t.Span),
			},
		})
	}
	return steps
}

// interpolate returns start + round(step*(end-start)/span), rounding half to even.
func interpolate(start, end, step, span int) int {
	perDegree := float64(end-start) / float64(span)
	return start + int(math.RoundToEven(float64(step)*perDegree))
}

func mod360(v int) int {
	v %= 360
	if v < 0 {
		v += 360
	}
	return v
}
