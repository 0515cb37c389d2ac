package aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/becmodel/internal/model"
)

func TestMidpoints_Defaults(t *testing.T) {
	m := DefaultMidpoints()
	require.NoError(t, m.Validate())
	assert.Equal(t, [5]int{0, 90, 200, 290, 0}, m.Sequence())
	assert.Equal(t, [4]int{90, 110, 90, 70}, m.Spans())
}

func TestMidpoints_Validate(t *testing.T) {
	tests := []struct {
		name string
		m    Midpoints
		want string
	}{
		{"not a multiple of ten", Midpoints{0, 95, 200, 290}, "multiple of 10"},
		{"out of range", Midpoints{0, 90, 200, 360}, "multiple of 10"},
		{"negative cool", Midpoints{-10, 90, 200, 290}, "midpoint -10"},
		{"repeated", Midpoints{0, 90, 90, 290}, "must differ"},
		{"counter-clockwise", Midpoints{0, 290, 200, 90}, "clockwise"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Midpoints{Cool: 350, NeutralEast: 80, Warm: 190, NeutralWest: 280}.Validate())
}

func TestTransitions_Order(t *testing.T) {
	b := model.ElevationBand{
		Cool:    model.Range{Low: 0, High: 300},
		Neutral: model.Range{Low: 0, High: 350},
		Warm:    model.Range{Low: 0, High: 400},
	}
	tr := DefaultMidpoints().Transitions(b)

	assert.Equal(t, b.Cool, tr[0].From)
	assert.Equal(t, b.Neutral, tr[0].To)
	assert.Equal(t, b.Neutral, tr[1].From)
	assert.Equal(t, b.Warm, tr[1].To)
	assert.Equal(t, b.Warm, tr[2].From)
	assert.Equal(t, b.Neutral, tr[2].To)
	assert.Equal(t, b.Neutral, tr[3].From)
	assert.Equal(t, b.Cool, tr[3].To)
	assert.Equal(t, []int{0, 90, 200, 290}, []int{tr[0].Midpoint, tr[1].Midpoint, tr[2].Midpoint, tr[3].Midpoint})
}

func TestTransition_Steps(t *testing.T) {
	tr := Transition{
		Index:    0,
		Midpoint: 0,
		Span:     90,
		From:     model.Range{Low: 300, High: 600},
		To:       model.Range{Low: 350, High: 700},
	}
	steps := tr.Steps()
	require.Len(t, steps, 9)

	assert.Equal(t, Range{Min: 355, Max: 5}, steps[0].Aspect)
	assert.True(t, steps[0].Aspect.Wraps())
	assert.Equal(t, model.Range{Low: 300, High: 600}, steps[0].Elevation)

	// 300 + round(10*50/90) = 300 + round(5.56) = 306
	assert.Equal(t, Range{Min: 5, Max: 15}, steps[1].Aspect)
	assert.Equal(t, model.Range{Low: 306, High: 611}, steps[1].Elevation)

	last := steps[8]
	assert.Equal(t, 80, last.Offset)
	assert.Equal(t, Range{Min: 75, Max: 85}, last.Aspect)
	assert.Equal(t, model.Range{Low: 344, High: 689}, last.Elevation)
}

func TestInterpolate_HalfToEven(t *testing.T) {
	// 0.5 rounds to 0, 1.5 rounds to 2.
	assert.Equal(t, 100, interpolate(100, 105, 1, 10))
	assert.Equal(t, 102, interpolate(100, 105, 3, 10))
	assert.Equal(t, 98, interpolate(100, 95, 3, 10))
}

func TestSteps_CoverFullCircle(t *testing.T) {
	b := model.ElevationBand{}
	covered := make([]int, 360)
	for _, tr := range DefaultMidpoints().Transitions(b) {
		for _, s := range tr.Steps() {
			for a := 0; a < 360; a++ {
				for _, p := range s.Aspect.Split() {
					if p.Contains(a) {
						covered[a]++
					}
				}
			}
		}
	}
	for a, n := range covered {
		assert.Equal(t, 1, n, "aspect %d", a)
	}
}

func TestSplit_WrapEquivalence(t *testing.T) {
	// Rotating a wrapping range into [0,360) must select the same aspects
	// as the tail/head split.
	for _, r := range []Range{{Min: 355, Max: 5}, {Min: 350, Max: 0}, {Min: 345, Max: 15}} {
		passes := r.Split()
		for a := 0; a < 360; a++ {
			split := false
			for _, p := range passes {
				split = split || p.Contains(a)
			}
			width := mod360(r.Max - r.Min)
			rotated := mod360(a-r.Min) < width
			assert.Equal(t, rotated, split, "range %v aspect %d", r, a)
		}
	}
}

func TestSplit_NonWrapping(t *testing.T) {
	passes := Range{Min: 85, Max: 95}.Split()
	require.Len(t, passes, 1)
	assert.True(t, passes[0].Contains(85))
	assert.False(t, passes[0].Contains(95))
}

func TestSplit_OrderTailFirst(t *testing.T) {
	passes := Range{Min: 355, Max: 5}.Split()
	require.Len(t, passes, 2)
	assert.Equal(t, Pass{Min: 355, Open: true}, passes[0])
	assert.Equal(t, Pass{Min: 0, Max: 5}, passes[1])
}
