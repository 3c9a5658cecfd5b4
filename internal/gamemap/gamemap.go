package gamemap

// Rect is an axis-aligned rectangle used for rooms and ruins.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (int, int) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Intersects reports whether r overlaps other (inclusive edges).
func (r Rect) Intersects(other Rect) bool {
	return r.X1 <= other.X2 && r.X2 >= other.X1 &&
		r.Y1 <= other.Y2 && r.Y2 >= other.Y1
}

// Contains reports whether (x, y) lies inside r (inclusive edges).
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// Grid is a dense row-major tile array.
type Grid struct {
	Width, Height int
	Tiles         []TileID
}

// NewFilled creates a Grid filled with t.
func NewFilled(width, height int, t TileID) *Grid {
	tiles := make([]TileID, width*height)
	for i := range tiles {
		tiles[i] = t
	}
	return &Grid{Width: width, Height: height, Tiles: tiles}
}

// InBounds reports whether (x, y) is within the grid boundaries.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the tile at (x, y). Panics if out of bounds.
func (g *Grid) At(x, y int) TileID {
	return g.Tiles[y*g.Width+x]
}

// Set replaces the tile at (x, y).
func (g *Grid) Set(x, y int, t TileID) {
	g.Tiles[y*g.Width+x] = t
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	tiles := make([]TileID, len(g.Tiles))
	copy(tiles, g.Tiles)
	return &Grid{Width: g.Width, Height: g.Height, Tiles: tiles}
}
