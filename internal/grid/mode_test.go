package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMode_SizeOneIsIdentity(t *testing.T) {
	g := FromRows([][]uint16{{1, 2}, {3, 4}})
	assert.Equal(t, g.Rows2D(), Mode(g, 1).Rows2D())
}

func TestMode_RemovesSpeck(t *testing.T) {
	g := FromRows([][]uint16{
		{1, 1, 1, 1},
		{1, 5, 1, 1},
		{1, 1, 1, 1},
		{1, 1, 1, 1},
	})
	out := Mode(g, 3)
	assert.Equal(t, 16, out.Count(1))
}

func TestMode_TieGoesToSmallest(t *testing.T) {
	g := FromRows([][]uint16{
		{4, 2},
		{2, 4},
	})
	// Every clipped 3x3 window holds two 2s and two 4s.
	out := Mode(g, 3)
	assert.Equal(t, [][]uint16{{2, 2}, {2, 2}}, out.Rows2D())
}

func TestMode_EvenWindowAnchor(t *testing.T) {
	g := FromRows([][]uint16{
		{1, 1, 7, 7},
	})
	// size 2: window covers [c-1, c].
	out := Mode(g, 2)
	assert.Equal(t, [][]uint16{{1, 1, 1, 7}}, out.Rows2D())
}

func TestMode_MatchesBruteForce(t *testing.T) {
	g := New[uint16](9, 11)
	for i := range g.Data {
		g.Data[i] = uint16((i*7 + i/5) % 4)
	}

	for _, size := range []int{2, 3, 4, 5} {
		got := Mode(g, size)
		want := bruteMode(g, size)
		assert.Equal(t, want.Rows2D(), got.Rows2D(), "size %d", size)
	}
}

func bruteMode(g *Grid[uint16], size int) *Grid[uint16] {
	lo, hi := size/2, size-1-size/2
	out := New[uint16](g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			counts := map[uint16]int{}
			for rr := max(r-lo, 0); rr <= min(r+hi, g.Rows-1); rr++ {
				for cc := max(c-lo, 0); cc <= min(c+hi, g.Cols-1); cc++ {
					counts[g.At(rr, cc)]++
				}
			}
			var best uint16
			votes := -1
			for v, n := range counts {
				if n > votes || (n == votes && v < best) {
					best, votes = v, n
				}
			}
			out.Set(r, c, best)
		}
	}
	return out
}
