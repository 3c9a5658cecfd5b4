package fov

import "terminus-core/internal/gamemap"

// State is a tile's tier in a viewer's memory.
type State uint8

const (
	Unseen State = iota
	Remembered
	Visible
)

func (s State) String() string {
	switch s {
	case Remembered:
		return "remembered"
	case Visible:
		return "visible"
	}
	return "unseen"
}

// Key addresses a remembered tile by world coordinate and level, so memory
// outlives the chunk that backed it.
type Key struct {
	X, Y, Z int
}

// Cell is what a viewer knows about a tile. Tile is the last static
// appearance seen; entities are never remembered.
type Cell struct {
	State State
	Tile  gamemap.TileID
}

// Grid is one viewer's fog of war.
type Grid struct {
	cells   map[Key]Cell
	visible map[Key]struct{}
}

func NewGrid() *Grid {
	return &Grid{
		cells:   make(map[Key]Cell),
		visible: make(map[Key]struct{}),
	}
}

// Apply installs the result of a sweep on level z. Tiles in vis become
// Visible with their current tile from lookup; tiles visible before but not
// now drop to Remembered and keep their last tile. lookup's ok is false for
// tiles with no loaded terrain; those are not seen and keep whatever state
// they had.
func (g *Grid) Apply(z int, vis Set, lookup func(x, y, z int) (gamemap.TileID, bool)) {
	next := make(map[Key]struct{}, len(vis))
	for p := range vis {
		t, ok := lookup(p.X, p.Y, z)
		if !ok {
			continue
		}
		k := Key{p.X, p.Y, z}
		next[k] = struct{}{}
		g.cells[k] = Cell{State: Visible, Tile: t}
	}
	for k := range g.visible {
		if _, still := next[k]; still {
			continue
		}
		c := g.cells[k]
		c.State = Remembered
		g.cells[k] = c
	}
	g.visible = next
}

// At returns what the viewer knows about (x, y, z).
func (g *Grid) At(x, y, z int) Cell {
	return g.cells[Key{x, y, z}]
}

// VisibleCount is the number of tiles visible after the last Apply.
func (g *Grid) VisibleCount() int { return len(g.visible) }
