package postfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/highelev"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/zone"
)

// chainPlan has codes MS=1, ESSFxc 3=2, ESSFxcw=3, ESSFxcp=4, IMA=5, all in
// rule polygon 1.
func chainPlan(t *testing.T) *highelev.Plan {
	t.Helper()
	var bands []model.ElevationBand
	for _, l := range []string{"MS  xk 1", "ESSFxc 3", "ESSFxcw", "ESSFxcp", "IMA un"} {
		bands = append(bands, model.ElevationBand{PolygonNumber: 1, Label: zone.Pad(l)})
	}
	p, err := highelev.NewPlan(bands, zone.NewRegistry(bands), zone.DefaultMatcher())
	require.NoError(t, err)
	return p
}

func halves(rows, cols int, left, right uint16) *grid.Grid[uint16] {
	g := grid.New[uint16](rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c < cols/2 {
				g.Set(r, c, left)
			} else {
				g.Set(r, c, right)
			}
		}
	}
	return g
}

func TestNewAggregates(t *testing.T) {
	agg := NewAggregates(5)
	assert.Equal(t, uint16(6), agg[zone.TierAlpine])
	assert.Equal(t, uint16(7), agg[zone.TierParkland])
	assert.Equal(t, uint16(8), agg[zone.TierWoodland])
}

func TestGroup(t *testing.T) {
	plan := chainPlan(t)
	g := grid.FromRows([][]uint16{{0, 1, 2, 3, 4, 5}})

	out := Group(g, plan, NewAggregates(5))
	assert.Equal(t, []uint16{0, 1, 2, 8, 7, 6}, out.Data)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4, 5}, g.Data)
}

func TestMajority_BlendsBySlope(t *testing.T) {
	g := grid.Fill[uint16](5, 8, 1)
	g.Set(2, 1, 9)
	g.Set(2, 6, 9)

	// Left half is gentle, right half steep.
	slope := grid.New[float32](5, 8)
	for r := 0; r < 5; r++ {
		for c := 4; c < 8; c++ {
			slope.Set(r, c, 40)
		}
	}

	out, err := Majority(g, slope, 25, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), out.At(2, 1), "smoothed by the low slope window")
	assert.Equal(t, uint16(9), out.At(2, 6), "steep window of one cell keeps it")
}

func TestMajority_Errors(t *testing.T) {
	g := grid.New[uint16](2, 2)
	_, err := Majority(g, grid.New[float32](2, 3), 25, 3, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slope")

	_, err = Majority(g, grid.New[float32](2, 2), 25, 0, 3)
	require.Error(t, err)
}

func TestUngroup_PerRulePolygon(t *testing.T) {
	plan := &highelev.Plan{Members: []highelev.Member{
		{Rule: 1, Tier: zone.TierParkland, Code: 4},
		{Rule: 2, Tier: zone.TierParkland, Code: 9},
	}}
	agg := NewAggregates(9)
	park := agg[zone.TierParkland]

	g := grid.Fill[uint16](1, 4, park)
	g.Set(0, 3, 3)
	rules := grid.FromRows([][]int32{{1, 2, 0, 1}})

	out, err := Ungroup(g, rules, plan, agg)
	require.NoError(t, err)
	assert.Equal(t, []uint16{4, 9, park, 3}, out.Data)
}

func TestRemoveNoise(t *testing.T) {
	g := halves(6, 8, 1, 2)
	g.Set(2, 1, 3) // speck of an unrelated code
	g.Set(3, 5, 1) // speck of the neighbouring code

	out, err := RemoveNoise(g, []uint16{1, 2, 3}, 4, grid.Four)
	require.NoError(t, err)
	assert.Equal(t, halves(6, 8, 1, 2).Data, out.Data)
}

func TestRemoveNoise_UnclaimedCellsAreZero(t *testing.T) {
	// A small patch touching two codes is a hole in neither.
	g := grid.FromRows([][]uint16{
		{1, 1, 1, 2, 2, 2},
		{1, 1, 3, 2, 2, 2},
		{1, 1, 1, 2, 2, 2},
	})
	out, err := RemoveNoise(g, []uint16{1, 2, 3}, 2, grid.Four)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), out.At(1, 2))
	assert.Equal(t, 9-1, out.Count(1))
}

func TestRemoveNoise_BadConnectivity(t *testing.T) {
	_, err := RemoveNoise(grid.New[uint16](2, 2), []uint16{1}, 2, grid.Connectivity(3))
	require.Error(t, err)
}

func TestFillGaps(t *testing.T) {
	g := grid.FromRows([][]uint16{
		{1, 0, 0, 0, 0, 2},
		{0, 0, 0, 0, 0, 0},
	})
	rules := grid.FromRows([][]int32{
		{1, 1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0, 0},
	})

	out, err := FillGaps(g, rules)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 1, 1, 2, 2, 2}, out.Rows2D()[0])
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 0}, out.Rows2D()[1])
}

func TestNoiseAndFill_Idempotent(t *testing.T) {
	g := halves(8, 8, 1, 2)
	g.Set(3, 2, 4)
	g.Set(5, 6, 1)
	rules := grid.Fill[int32](8, 8, 1)
	codes := []uint16{1, 2, 4}

	pass := func(in *grid.Grid[uint16]) *grid.Grid[uint16] {
		n, err := RemoveNoise(in, codes, 4, grid.Eight)
		require.NoError(t, err)
		f, err := FillGaps(n, rules)
		require.NoError(t, err)
		return f
	}

	once := pass(g)
	twice := pass(once)
	assert.Equal(t, once.Data, twice.Data)
	assert.Equal(t, halves(8, 8, 1, 2).Data, once.Data)
}

func TestRun_KeepsCleanGrid(t *testing.T) {
	plan := chainPlan(t)
	g := halves(10, 10, 2, 4)
	in := Inputs{
		Rules: grid.Fill[int32](10, 10, 1),
		Slope: grid.New[float32](10, 10),
	}
	opts := Options{LowSize: 3, SteepSize: 5, SteepPercent: 25, NoiseCells: 4, Connectivity: grid.Four}

	res, err := Run(context.Background(), g, in, plan, []uint16{1, 2, 3, 4, 5}, 5, opts)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), res.Grouped.At(0, 9), "parkland grouped")
	assert.Equal(t, g.Data, res.Ungroup.Data)
	assert.Equal(t, g.Data, res.Filled.Data)
}

func TestRun_SmoothsGroupedSpeck(t *testing.T) {
	plan := chainPlan(t)
	g := halves(10, 10, 2, 4)
	g.Set(5, 7, 1)
	in := Inputs{
		Rules: grid.Fill[int32](10, 10, 1),
		Slope: grid.New[float32](10, 10),
	}
	opts := Options{LowSize: 3, SteepSize: 3, SteepPercent: 25, NoiseCells: 4, Connectivity: grid.Eight}

	res, err := Run(context.Background(), g, in, plan, []uint16{1, 2, 3, 4, 5}, 5, opts)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), res.Filled.At(5, 7))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := grid.New[uint16](2, 2)
	_, err := Run(ctx, g, Inputs{Rules: grid.New[int32](2, 2), Slope: grid.New[float32](2, 2)},
		&highelev.Plan{}, nil, 0, Options{LowSize: 1, SteepSize: 1, Connectivity: grid.Four})
	require.Error(t, err)
}
