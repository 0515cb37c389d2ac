// Package highelev plans and applies the high elevation merges: small
// alpine, parkland and woodland patches fold into the next tier down within
// their own rule polygon.
package highelev

import (
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/zone"
)

// MergeRule says that under rule polygon Rule, an undersized patch of Source
// (a Tier label) becomes Target (a TargetTier label).
type MergeRule struct {
	Rule       int       `json:"rule"`
	Tier       zone.Tier `json:"type"`
	Source     uint16    `json:"becvalue"`
	Target     uint16    `json:"becvalue_target"`
	TargetTier zone.Tier `json:"target_type"`
}

// Member is the code a rule polygon uses for one of the alpine, parkland
// or woodland tiers.
type Member struct {
	Rule int       `json:"rule"`
	Tier zone.Tier `json:"type"`
	Code uint16    `json:"becvalue"`
}

// Plan is the merge chain of every rule polygon plus the codes of each tier
// across all polygons.
type Plan struct {
	Rules     []MergeRule            `json:"rules"`
	Members   []Member               `json:"members"`
	Dissolves map[zone.Tier][]uint16 `json:"dissolves"`
}

// polygonTiers holds the labels of one rule polygon by tier.
type polygonTiers struct {
	rule    int
	labels  map[zone.Tier]string
	topmost string
}

// NewPlan derives the merge chains from the elevation bands. Per rule
// polygon the chain is alpine → parkland|woodland|high, parkland →
// woodland|high, woodland → high, with a link only when its source tier
// occurs in the polygon. When a polygon holds several labels of one tier the
// first in table order is used.
//
// The high label is the base label sharing the first six characters of the
// woodland label (else the parkland label). When there is none, or the
// polygon holds only alpine, the polygon's topmost non-tier band (greatest
// neutral high elevation) stands in. Links whose target cannot be resolved
// are dropped.
func NewPlan(bands []model.ElevationBand, reg *zone.Registry, m zone.Matcher) (*Plan, error) {
	log := zap.L().With(zap.String("component", "highelev"))

	p := &Plan{Dissolves: make(map[zone.Tier][]uint16)}
	for _, pt := range groupByPolygon(bands, m) {
		high := pt.baseLabel(bands, m)
		if high != "" {
			pt.labels[zone.TierHigh] = high
		}

		for _, tier := range zone.TierOrder[:3] {
			label, ok := pt.labels[tier]
			if !ok {
				continue
			}
			code, err := mustCode(reg, label)
			if err != nil {
				return nil, err
			}
			p.Members = append(p.Members, Member{Rule: pt.rule, Tier: tier, Code: code})

			targetTier, targetLabel := pt.target(tier)
			if targetLabel == "" {
				log.Debug("no merge target",
					zap.Int("rule", pt.rule),
					zap.String("tier", string(tier)),
				)
				continue
			}
			target, err := mustCode(reg, targetLabel)
			if err != nil {
				return nil, err
			}
			p.Rules = append(p.Rules, MergeRule{
				Rule:       pt.rule,
				Tier:       tier,
				Source:     code,
				Target:     target,
				TargetTier: targetTier,
			})
		}
	}

	for _, r := range p.Rules {
		p.addDissolve(r.Tier, r.Source)
		p.addDissolve(r.TargetTier, r.Target)
	}
	for tier := range p.Dissolves {
		slices.Sort(p.Dissolves[tier])
	}
	return p, nil
}

func (p *Plan) addDissolve(t zone.Tier, code uint16) {
	if !slices.Contains(p.Dissolves[t], code) {
		p.Dissolves[t] = append(p.Dissolves[t], code)
	}
}

// Tiers returns the tiers present in the plan in canonical order, with high
// always last when any tier is present.
func (p *Plan) Tiers() []zone.Tier {
	var out []zone.Tier
	for _, t := range zone.TierOrder[:3] {
		if len(p.Dissolves[t]) > 0 {
			out = append(out, t)
		}
	}
	if len(out) > 0 {
		out = append(out, zone.TierHigh)
	}
	return out
}

// Empty reports whether no high elevation tier occurs anywhere.
func (p *Plan) Empty() bool {
	return len(p.Tiers()) == 0
}

// RulesFor returns the merge rules of one tier in polygon order.
func (p *Plan) RulesFor(t zone.Tier) []MergeRule {
	var out []MergeRule
	for _, r := range p.Rules {
		if r.Tier == t {
			out = append(out, r)
		}
	}
	return out
}

// MembersOf returns the per-polygon codes of one tier.
func (p *Plan) MembersOf(t zone.Tier) []Member {
	var out []Member
	for _, m := range p.Members {
		if m.Tier == t {
			out = append(out, m)
		}
	}
	return out
}

func groupByPolygon(bands []model.ElevationBand, m zone.Matcher) []*polygonTiers {
	var order []*polygonTiers
	byRule := make(map[int]*polygonTiers)
	for _, b := range bands {
		pt, ok := byRule[b.PolygonNumber]
		if !ok {
			pt = &polygonTiers{rule: b.PolygonNumber, labels: make(map[zone.Tier]string)}
			byRule[b.PolygonNumber] = pt
			order = append(order, pt)
		}
		tier := m.TierOf(b.Label)
		if tier == zone.TierNone {
			continue
		}
		if _, seen := pt.labels[tier]; !seen {
			pt.labels[tier] = zone.Pad(b.Label)
		}
	}
	return order
}

// baseLabel resolves the polygon's high label, or "" when the polygon has
// no tiers or no candidate.
func (pt *polygonTiers) baseLabel(bands []model.ElevationBand, m zone.Matcher) string {
	if len(pt.labels) == 0 {
		return ""
	}
	source, ok := pt.labels[zone.TierWoodland]
	if !ok {
		source, ok = pt.labels[zone.TierParkland]
	}
	if ok {
		key := zone.BaseKey(source)
		for _, b := range bands {
			if b.PolygonNumber == pt.rule && zone.BaseKey(b.Label) == key && zone.IsBase(b.Label) && m.TierOf(b.Label) == zone.TierNone {
				return zone.Pad(b.Label)
			}
		}
	}

	// Topmost non-tier band of the polygon.
	best, bestHigh := "", 0
	for _, b := range bands {
		if b.PolygonNumber != pt.rule || m.TierOf(b.Label) != zone.TierNone {
			continue
		}
		if best == "" || b.Neutral.High > bestHigh {
			best, bestHigh = zone.Pad(b.Label), b.Neutral.High
		}
	}
	return best
}

// target returns the merge target of a tier: the next present tier down,
// ending at high.
func (pt *polygonTiers) target(t zone.Tier) (zone.Tier, string) {
	i := slices.Index(zone.TierOrder, t)
	for _, next := range zone.TierOrder[i+1:] {
		if l, ok := pt.labels[next]; ok {
			return next, l
		}
	}
	return zone.TierNone, ""
}

func mustCode(reg *zone.Registry, label string) (uint16, error) {
	code, ok := reg.Code(label)
	if !ok {
		return 0, model.NewDataError(eris.Errorf("highelev: label %q has no zone code", label))
	}
	return code, nil
}
