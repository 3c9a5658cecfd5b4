// Package fov computes field of view with iterative shadowcasting and keeps
// each viewer's three-tier tile memory.
package fov

// octant transform matrices.
// For each octant, a (dx, dy) sweep pair maps to a world offset via:
//
//	worldX = ox + dx*xx + dy*xy
//	worldY = oy + dx*yx + dy*yy
//
// where dx sweeps within the row and dy is the fixed row index.
var octants = [8][4]int{
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{0, -1, 1, 0},
	{-1, 0, 0, 1},
	{-1, 0, 0, -1},
	{0, -1, -1, 0},
	{0, 1, -1, 0},
	{1, 0, 0, -1},
}

// Point is a tile on one level.
type Point struct {
	X, Y int
}

// Set is the tiles reached by one sweep.
type Set map[Point]struct{}

func (s Set) Has(x, y int) bool {
	_, ok := s[Point{x, y}]
	return ok
}

// InRadius reports whether offset (dx, dy) lies inside a view of the given
// radius: round(sqrt(dx²+dy²)) <= radius, evaluated in integers.
func InRadius(dx, dy, radius int) bool {
	return dx*dx+dy*dy <= radius*radius+radius
}

// scan is one pending slope interval of one octant, starting at row.
type scan struct {
	row        int
	start, end float64
	m          [4]int
}

// Compute returns every tile visible from (ox, oy). opaque reports whether a
// tile blocks sight; it is called only for tiles the sweep reaches. Rows
// stop at radius, and a reached tile counts only when InRadius holds. The
// origin is always visible.
func Compute(ox, oy, radius int, opaque func(x, y int) bool) Set {
	visible := Set{{ox, oy}: {}}
	if radius <= 0 {
		return visible
	}

	stack := make([]scan, 0, 64)
	for _, m := range octants {
		stack = append(stack, scan{row: 1, start: 1.0, end: 0.0, m: m})
	}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.start < s.end {
			continue
		}
		xx, xy, yx, yy := s.m[0], s.m[1], s.m[2], s.m[3]
		start := s.start
		newStart := start

		for j := s.row; j <= radius; j++ {
			dy := -j
			blocked := false

			for dx := -j; dx <= 0; dx++ {
				wx := ox + dx*xx + dy*xy
				wy := oy + dx*yx + dy*yy

				lSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
				rSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)

				if start < rSlope {
					continue
				}
				if s.end > lSlope {
					break
				}

				if InRadius(dx, dy, radius) {
					visible[Point{wx, wy}] = struct{}{}
				}

				solid := opaque(wx, wy)
				if blocked {
					if solid {
						newStart = rSlope
					} else {
						blocked = false
						start = newStart
					}
				} else if solid && j < radius {
					// The part of the interval left of this wall continues
					// past it as its own scan.
					blocked = true
					stack = append(stack, scan{row: j + 1, start: start, end: lSlope, m: s.m})
					newStart = rSlope
				}
			}
			if blocked {
				break
			}
		}
	}
	return visible
}
