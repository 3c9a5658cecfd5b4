package component

import "terminus-core/internal/ecs"

const CPosition ecs.ComponentType = 1

// Position is a tile coordinate; Z selects the level (0 surface, <0 below).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (Position) Type() ecs.ComponentType { return CPosition }

// Offset returns p shifted by (dx, dy) on the same level.
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
}

// Chebyshev returns the king-move distance between p and o, ignoring Z.
func (p Position) Chebyshev(o Position) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
