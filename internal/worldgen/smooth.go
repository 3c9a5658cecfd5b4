package worldgen

import "terminus-core/internal/gamemap"

// Automaton limits: a solid tile opens with more than birthLimit open
// neighbors, an open tile fills with fewer than deathLimit.
const (
	birthLimit = 4
	deathLimit = 3
)

// smooth is stage (d). The automaton runs over the chunk plus a border of
// rounds tiles whose initial state is the neighbor's natural terrain. The
// border ignores structures placed in neighboring chunks, so tiles near the
// edge can differ from a level-wide pass; the result still depends only on
// the chunk's coordinates. Locked tiles and tiles of non-smoothing biomes
// keep their state but still count as neighbors.
func (g *Generator) smooth(c Coord, grid *gamemap.Grid, locked []bool) {
	pad := g.rounds
	n := g.size + 2*pad
	ox, oy := c.CX*g.size-pad, c.CY*g.size-pad

	open := make([]bool, n*n)
	fixed := make([]bool, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := y*n + x
			wx, wy := ox+x, oy+y
			lx, ly := x-pad, y-pad
			var t gamemap.TileID
			if grid.InBounds(lx, ly) {
				t = grid.At(lx, ly)
				fixed[i] = locked[ly*g.size+lx]
			} else {
				t = g.naturalTile(wx, wy, c.Z)
			}
			open[i] = !g.solid(t)
			fixed[i] = fixed[i] || !g.biomeAt(wx, wy, c.Z).smooths()
		}
	}

	next := make([]bool, n*n)
	for round := 0; round < g.rounds; round++ {
		changed := false
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				i := y*n + x
				next[i] = open[i]
				if fixed[i] {
					continue
				}
				k := openNeighbors(open, n, x, y)
				if !open[i] && k > birthLimit {
					next[i] = true
				} else if open[i] && k < deathLimit {
					next[i] = false
				}
				if next[i] != open[i] {
					changed = true
				}
			}
		}
		open, next = next, open
		if !changed {
			break
		}
	}

	for ly := 0; ly < g.size; ly++ {
		for lx := 0; lx < g.size; lx++ {
			i := (ly+pad)*n + lx + pad
			if fixed[i] {
				continue
			}
			t := grid.At(lx, ly)
			switch {
			case open[i] && g.solid(t):
				grid.Set(lx, ly, groundTile(g.biomeAt(ox+lx+pad, oy+ly+pad, c.Z)))
			case !open[i] && !g.solid(t):
				grid.Set(lx, ly, gamemap.TileWall)
			}
		}
	}
}

func (g *Generator) solid(t gamemap.TileID) bool {
	return g.tiles.Info(t).Category == gamemap.CatWall
}

// openNeighbors counts open tiles among the 8 neighbors; outside the region
// counts as solid.
func openNeighbors(open []bool, n, x, y int) int {
	k := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= n || ny >= n {
				continue
			}
			if open[ny*n+nx] {
				k++
			}
		}
	}
	return k
}
