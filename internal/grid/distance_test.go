package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestFeature_Single(t *testing.T) {
	m := NewMask(4, 5)
	m.Data[1*5+3] = true

	ft := NearestFeature(m)
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			i := r*5 + c
			dr, dc := float64(r-1), float64(c-3)
			assert.Equal(t, dr*dr+dc*dc, ft.Dist2[i])
			assert.Equal(t, 1*5+3, ft.Nearest[i])
		}
	}
	assert.Equal(t, math.Sqrt(13), ft.Distance(3*5+0))
}

func TestNearestFeature_Empty(t *testing.T) {
	ft := NearestFeature(NewMask(2, 2))
	for i := range ft.Dist2 {
		assert.True(t, math.IsInf(ft.Dist2[i], 1))
		assert.Equal(t, -1, ft.Nearest[i])
	}
}

func TestNearestFeature_MatchesBruteForce(t *testing.T) {
	m := NewMask(13, 17)
	for i := range m.Data {
		m.Data[i] = (i*31+7)%23 == 0
	}
	require.Positive(t, m.Count())

	ft := NearestFeature(m)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			best := math.Inf(1)
			for j, on := range m.Data {
				if !on {
					continue
				}
				dr, dc := float64(r-j/m.Cols), float64(c-j%m.Cols)
				best = math.Min(best, dr*dr+dc*dc)
			}
			i := r*m.Cols + c
			require.Equal(t, best, ft.Dist2[i], "cell %d,%d", r, c)

			n := ft.Nearest[i]
			require.True(t, m.Data[n])
			dr, dc := float64(r-n/m.Cols), float64(c-n%m.Cols)
			assert.Equal(t, best, dr*dr+dc*dc)
		}
	}
}

func TestNearestFeature_FeaturesAreZero(t *testing.T) {
	m := maskFrom(
		"#..#",
		"....",
		"..#.",
	)
	ft := NearestFeature(m)
	for i, on := range m.Data {
		if on {
			assert.Zero(t, ft.Dist2[i])
			assert.Equal(t, i, ft.Nearest[i])
		}
	}
}

func TestAllocate(t *testing.T) {
	g := FromRows([][]uint16{
		{0, 0, 0, 0, 0},
		{0, 3, 0, 0, 7},
		{0, 0, 0, 0, 0},
	})

	all := Allocate(g, func(int, float64) bool { return true })
	assert.Equal(t, [][]uint16{
		{3, 3, 3, 7, 7},
		{3, 3, 3, 7, 7},
		{3, 3, 3, 7, 7},
	}, all.Rows2D())

	near := Allocate(g, func(_ int, d float64) bool { return d < 1.5 })
	assert.Equal(t, [][]uint16{
		{3, 3, 3, 7, 7},
		{3, 3, 3, 7, 7},
		{3, 3, 3, 7, 7},
	}, near.Rows2D())

	only := Allocate(g, func(_ int, d float64) bool { return d < 1 })
	assert.Equal(t, g.Rows2D(), only.Rows2D())
}

func TestAllocate_NoFeatures(t *testing.T) {
	g := New[uint16](2, 2)
	out := Allocate(g, func(int, float64) bool { return true })
	assert.Equal(t, g.Rows2D(), out.Rows2D())
}
