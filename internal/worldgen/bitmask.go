package worldgen

import (
	"terminus-core/internal/gamemap"
	"terminus-core/internal/mathx"
)

// Neighbor order for the 8-bit mask, clockwise from north. Even indices are
// the cardinal directions that make up the 4-bit mask (N=1 E=2 S=4 W=8).
var neighbors8 = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// NeighborMask returns the 8-bit mask of (x, y): bit i is set when neighbor
// i shares the tile's category. at reports a tile by coordinate; where it
// returns ok=false the bit is copied from prev.
func NeighborMask(x, y int, at func(x, y int) (gamemap.TileID, bool), tiles gamemap.TileTable, prev uint8) uint8 {
	self, ok := at(x, y)
	if !ok {
		return prev
	}
	cat := tiles.Info(self).Category
	var m8 uint8
	for i, d := range neighbors8 {
		t, ok := at(x+d[0], y+d[1])
		switch {
		case !ok:
			m8 |= prev & (1 << i)
		case tiles.Info(t).Category == cat:
			m8 |= 1 << i
		}
	}
	return m8
}

// CardinalMask extracts the 4-bit mask from an 8-bit one.
func CardinalMask(m8 uint8) uint8 {
	var m4 uint8
	for i := 0; i < 4; i++ {
		if m8&(1<<(2*i)) != 0 {
			m4 |= 1 << i
		}
	}
	return m4
}

func bitmasks(grid *gamemap.Grid, tiles gamemap.TileTable, at func(x, y int) (gamemap.TileID, bool)) (mask4, mask8 []uint8) {
	mask4 = make([]uint8, len(grid.Tiles))
	mask8 = make([]uint8, len(grid.Tiles))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := y*grid.Width + x
			mask8[i] = NeighborMask(x, y, at, tiles, 0)
			mask4[i] = CardinalMask(mask8[i])
		}
	}
	return mask4, mask8
}

// masks is stage (e) for chunk c. Tiles across the chunk border are read
// from the neighbor's static layout or, failing that, its natural terrain;
// structures placed in neighbors are not seen until the chunk manager
// refreshes the border against loaded chunks.
func (g *Generator) masks(c Coord, grid *gamemap.Grid) (mask4, mask8 []uint8) {
	ox, oy := c.CX*g.size, c.CY*g.size
	layouts := map[Coord]*gamemap.Grid{}
	return bitmasks(grid, g.tiles, func(x, y int) (gamemap.TileID, bool) {
		if grid.InBounds(x, y) {
			return grid.At(x, y), true
		}
		wx, wy := ox+x, oy+y
		nc := Coord{CX: mathx.FloorDiv(wx, g.size), CY: mathx.FloorDiv(wy, g.size), Z: c.Z}
		if rows, ok := g.static[nc]; ok {
			l, cached := layouts[nc]
			if !cached {
				l = ParseLayout(g.size, rows)
				layouts[nc] = l
			}
			return l.At(wx-nc.CX*g.size, wy-nc.CY*g.size), true
		}
		return g.naturalTile(wx, wy, c.Z), true
	})
}
