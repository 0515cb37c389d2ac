// Package zone maps biogeoclimatic zone labels to the compact codes used in
// classification grids and parses the fixed-width label convention.
package zone

import (
	"slices"
	"strings"
)

// LabelWidth is the fixed width labels are padded to before indexing.
const LabelWidth = 9

// Tier is a level of the high elevation hierarchy.
type Tier string

const (
	TierNone     Tier = ""
	TierAlpine   Tier = "alpine"
	TierParkland Tier = "parkland"
	TierWoodland Tier = "woodland"
	TierHigh     Tier = "high"
)

// TierOrder is the canonical processing order of the high elevation tiers.
var TierOrder = []Tier{TierAlpine, TierParkland, TierWoodland, TierHigh}

// Pad right-pads a label with spaces to LabelWidth.
func Pad(label string) string {
	if len(label) >= LabelWidth {
		return label
	}
	return label + strings.Repeat(" ", LabelWidth-len(label))
}

// Zone returns characters 1-4 of the label, trimmed.
func Zone(label string) string {
	return strings.TrimSpace(substr(Pad(label), 0, 4))
}

// Modifier returns character 7 of the label, trimmed: "" for a base label,
// "p"/"s" for parkland, "w" for woodland.
func Modifier(label string) string {
	return strings.TrimSpace(substr(Pad(label), 6, 7))
}

// BaseKey returns the first 6 characters shared by a label and its base
// (unmodified) label.
func BaseKey(label string) string {
	return substr(Pad(label), 0, 6)
}

// IsBase reports whether the label carries no parkland/woodland modifier.
func IsBase(label string) bool {
	return Pad(label)[6] == ' '
}

func substr(s string, from, to int) string {
	if to > len(s) {
		to = len(s)
	}
	if from >= to {
		return ""
	}
	return s[from:to]
}

// Matcher classifies labels into high elevation tiers.
type Matcher struct {
	Alpine   []string `json:"alpine"`
	Parkland []string `json:"parkland"`
	Woodland []string `json:"woodland"`
}

// DefaultMatcher returns the standard BC label sets.
func DefaultMatcher() Matcher {
	return Matcher{
		Alpine:   []string{"AT", "BAFA", "CMA", "IMA"},
		Parkland: []string{"p", "s"},
		Woodland: []string{"w"},
	}
}

// TierOf returns the high elevation tier of a label, or TierNone. Alpine is
// checked first so an alpine label with a modifier stays alpine.
func (m Matcher) TierOf(label string) Tier {
	if slices.Contains(m.Alpine, Zone(label)) {
		return TierAlpine
	}
	mod := Modifier(label)
	if mod == "" {
		return TierNone
	}
	if slices.Contains(m.Parkland, mod) {
		return TierParkland
	}
	if slices.Contains(m.Woodland, mod) {
		return TierWoodland
	}
	return TierNone
}
