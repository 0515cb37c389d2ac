package model

// Position is one of the three canonical aspect temperature positions.
type Position int

const (
	Cool Position = iota
	Neutral
	Warm
)

// Positions lists the aspect positions in canonical order.
var Positions = []Position{Cool, Neutral, Warm}

func (p Position) String() string {
	switch p {
	case Cool:
		return "cool"
	case Neutral:
		return "neutral"
	case Warm:
		return "warm"
	default:
		return "unknown"
	}
}

// Range is a half-open elevation interval [Low, High) in metres.
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// ElevationBand is one row of the elevation table: the elevation ranges a
// zone label occupies under one rule polygon, per aspect position.
type ElevationBand struct {
	PolygonNumber int    `json:"polygon_number"`
	Label         string `json:"beclabel"` // padded to 9 characters
	Cool          Range  `json:"cool"`
	Neutral       Range  `json:"neutral"`
	Warm          Range  `json:"warm"`
}

// At returns the band's range for the given aspect position.
func (b ElevationBand) At(p Position) Range {
	switch p {
	case Cool:
		return b.Cool
	case Warm:
		return b.Warm
	default:
		return b.Neutral
	}
}
