package grid

import "math"

// Bounds is an axis-aligned extent in projected coordinates (metres).
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether b fully covers o.
func (b Bounds) Contains(o Bounds) bool {
	return b.MinX <= o.MinX && b.MinY <= o.MinY && b.MaxX >= o.MaxX && b.MaxY >= o.MaxY
}

// Transform maps cell indices to projected coordinates. The origin is the
// upper-left corner of the upper-left cell; rows increase southward.
type Transform struct {
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	CellSize float64 `json:"cell_size"`
}

// CellCentre returns the coordinates of the centre of cell (r, c).
func (t Transform) CellCentre(r, c int) (x, y float64) {
	return t.OriginX + (float64(c)+0.5)*t.CellSize, t.OriginY - (float64(r)+0.5)*t.CellSize
}

// Corner returns the coordinates of the upper-left corner of cell (r, c).
// Passing r == Rows or c == Cols addresses the far edges.
func (t Transform) Corner(r, c int) (x, y float64) {
	return t.OriginX + float64(c)*t.CellSize, t.OriginY - float64(r)*t.CellSize
}

// Index returns the cell containing (x, y); the result may be out of range.
func (t Transform) Index(x, y float64) (r, c int) {
	c = int(math.Floor((x - t.OriginX) / t.CellSize))
	r = int(math.Floor((t.OriginY - y) / t.CellSize))
	return r, c
}

// Bounds returns the extent of a rows x cols raster under this transform.
func (t Transform) Bounds(rows, cols int) Bounds {
	return Bounds{
		MinX: t.OriginX,
		MinY: t.OriginY - float64(rows)*t.CellSize,
		MaxX: t.OriginX + float64(cols)*t.CellSize,
		MaxY: t.OriginY,
	}
}

// CellArea returns the area of one cell in square metres.
func (t Transform) CellArea() float64 {
	return t.CellSize * t.CellSize
}
