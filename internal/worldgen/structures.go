package worldgen

import (
	"slices"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/mathx"
)

const (
	maxRuins    = 2
	stairChance = 0.25
)

var ruinChance = map[Biome]float64{
	BiomeTown:     0.6,
	BiomeForest:   0.3,
	BiomeDesert:   0.35,
	BiomeSnow:     0.2,
	BiomeVolcanic: 0.15,
	BiomeCave:     0.5,
}

var maxCamps = map[Biome]int{
	BiomeForest:   1,
	BiomeDesert:   1,
	BiomeSnow:     1,
	BiomeVolcanic: 2,
	BiomeCave:     2,
}

// campSlots are the offsets from a camp center that spawns take in order, so
// no two spawns of one camp share a tile.
var campSlots = [...][2]int{{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// placer is stage (c). Every tile it writes is locked so the smoothing stage
// leaves structures alone.
type placer struct {
	g        *Generator
	c        Coord
	biome    Biome
	grid     *gamemap.Grid
	locked   []bool
	rng      *mathx.Rand
	features []Feature
	ruins    []gamemap.Rect
}

func (p *placer) run() {
	p.placeRuins()
	p.placeCamps()
	p.placeResources()
	p.placeStairs()
}

func (p *placer) set(x, y int, t gamemap.TileID) {
	if !p.grid.InBounds(x, y) {
		return
	}
	p.grid.Set(x, y, t)
	p.locked[y*p.grid.Width+x] = true
}

func (p *placer) world(x, y int) (int, int) {
	return p.c.CX*p.grid.Width + x, p.c.CY*p.grid.Height + y
}

func (p *placer) add(kind FeatureKind, x, y int, template string) {
	wx, wy := p.world(x, y)
	p.features = append(p.features, Feature{Kind: kind, X: wx, Y: wy, Template: template})
}

func (p *placer) clearing(cx, cy int, t gamemap.TileID) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if p.grid.InBounds(x, y) && isStairs(p.grid.At(x, y)) {
				continue
			}
			p.set(x, y, t)
		}
	}
}

func (p *placer) placeRuins() {
	size := p.grid.Width
	for i := 0; i < maxRuins; i++ {
		if p.rng.Float64() >= ruinChance[p.biome] {
			continue
		}
		w := 5 + p.rng.Intn(5)
		h := 5 + p.rng.Intn(4)
		x := 1 + p.rng.Intn(size-w-1)
		y := 1 + p.rng.Intn(size-h-1)
		r := gamemap.Rect{X1: x, Y1: y, X2: x + w - 1, Y2: y + h - 1}
		if slices.ContainsFunc(p.ruins, r.Intersects) {
			continue
		}
		p.ruins = append(p.ruins, r)
		p.carveRuin(r)
	}
}

// inRuin reports whether (x, y) lies inside a ruin placed in this chunk.
func (p *placer) inRuin(x, y int) bool {
	return slices.ContainsFunc(p.ruins, func(r gamemap.Rect) bool { return r.Contains(x, y) })
}

// carveRuin walls the rectangle, floors its interior and knocks one door
// into a random side. Underground, a tunnel joins the door to the chunk
// center so ruins are never sealed into solid rock.
func (p *placer) carveRuin(r gamemap.Rect) {
	for y := r.Y1; y <= r.Y2; y++ {
		for x := r.X1; x <= r.X2; x++ {
			switch {
			case x == r.X1 || x == r.X2 || y == r.Y1 || y == r.Y2:
				p.set(x, y, gamemap.TileWall)
			case p.rng.Intn(100) < 15:
				p.set(x, y, gamemap.TileRubble)
			default:
				p.set(x, y, gamemap.TileFloor)
			}
		}
	}

	cx, cy := r.Center()
	var dx, dy, nx, ny int
	switch p.rng.Intn(4) {
	case 0:
		dx, dy, nx, ny = cx, r.Y1, 0, -1
	case 1:
		dx, dy, nx, ny = r.X2, cy, 1, 0
	case 2:
		dx, dy, nx, ny = cx, r.Y2, 0, 1
	default:
		dx, dy, nx, ny = r.X1, cy, -1, 0
	}
	p.set(dx, dy, gamemap.TileDoor)
	p.add(FeatureRuin, cx, cy, "")

	if p.biome == BiomeCave {
		mid := p.grid.Width / 2
		p.carveTunnel(dx+nx, dy+ny, mid, mid)
	}
}

// carveTunnel digs an L-shaped passage, picking which leg goes first at random.
func (p *placer) carveTunnel(x1, y1, x2, y2 int) {
	if p.rng.Intn(2) == 0 {
		p.carveH(x1, x2, y1)
		p.carveV(y1, y2, x2)
	} else {
		p.carveV(y1, y2, x1)
		p.carveH(x1, x2, y2)
	}
}

func (p *placer) carveH(x1, x2, y int) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		if p.grid.InBounds(x, y) && p.grid.At(x, y) != gamemap.TileDoor {
			p.set(x, y, gamemap.TileFloor)
		}
	}
}

func (p *placer) carveV(y1, y2, x int) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		if p.grid.InBounds(x, y) && p.grid.At(x, y) != gamemap.TileDoor {
			p.set(x, y, gamemap.TileFloor)
		}
	}
}

func (p *placer) placeCamps() {
	table := p.g.camps[p.biome]
	limit := maxCamps[p.biome]
	if len(table) == 0 || limit == 0 {
		return
	}
	size := p.grid.Width
	ground := groundTile(p.biome)
	for n := p.rng.Intn(limit + 1); n > 0; n-- {
		cx := 2 + p.rng.Intn(size-4)
		cy := 2 + p.rng.Intn(size-4)
		spawns := 1 + p.rng.Intn(3)
		if p.inRuin(cx, cy) {
			continue
		}
		p.clearing(cx, cy, ground)
		for k := 0; k < spawns; k++ {
			slot := campSlots[k]
			p.add(FeatureCamp, cx+slot[0], cy+slot[1], table[p.rng.Intn(len(table))])
		}
	}
}

func (p *placer) placeResources() {
	size := p.grid.Width
	if p.biome == BiomeCave || p.biome == BiomeVolcanic {
		for n := p.rng.Intn(4); n > 0; n-- {
			x := 1 + p.rng.Intn(size-2)
			y := 1 + p.rng.Intn(size-2)
			if !p.locked[y*size+x] {
				p.set(x, y, gamemap.TileOre)
			}
		}
	}
	table := p.g.resources[p.biome]
	if len(table) == 0 {
		return
	}
	tile := groundTile(p.biome)
	if p.biome == BiomeCave {
		tile = gamemap.TileRubble
	}
	for n := p.rng.Intn(3); n > 0; n-- {
		x := 1 + p.rng.Intn(size-2)
		y := 1 + p.rng.Intn(size-2)
		p.set(x, y, tile)
		p.add(FeatureResource, x, y, table[p.rng.Intn(len(table))])
	}
}

// placeStairs connects levels. The stair position is a pure function of the
// upper chunk's coordinate and the static layouts, so the chunk below places
// its up-stair on the same tile without generating the upper chunk.
func (p *placer) placeStairs() {
	if p.c.Z < 0 {
		if x, y, ok := p.g.stairsDown(Coord{CX: p.c.CX, CY: p.c.CY, Z: p.c.Z + 1}); ok {
			p.clearing(x, y, gamemap.TileFloor)
			p.set(x, y, gamemap.TileStairsUp)
			p.add(FeatureStairsUp, x, y, "")
		}
	}
	if x, y, ok := p.g.stairsDown(p.c); ok && !isStairs(p.grid.At(x, y)) {
		p.clearing(x, y, groundTile(p.biome))
		p.set(x, y, gamemap.TileStairsDown)
		p.add(FeatureStairsDown, x, y, "")
	}
}

// stairsDown is the down-stair of chunk c in local coordinates. A static
// chunk supplies its own; above a static chunk the stair lands on that
// chunk's up-stair.
func (g *Generator) stairsDown(c Coord) (x, y int, ok bool) {
	if rows, static := g.static[c]; static {
		return findTile(ParseLayout(g.size, rows), gamemap.TileStairsDown)
	}
	if rows, static := g.static[Coord{CX: c.CX, CY: c.CY, Z: c.Z - 1}]; static {
		return findTile(ParseLayout(g.size, rows), gamemap.TileStairsUp)
	}
	h := mathx.Hash3(g.seed^stairSalt, c.CX, c.CY, c.Z)
	if mathx.Unit(h) >= stairChance {
		return 0, 0, false
	}
	span := uint64(g.size - 4)
	return 2 + int((h>>8)%span), 2 + int((h>>24)%span), true
}

func isStairs(t gamemap.TileID) bool {
	return t == gamemap.TileStairsDown || t == gamemap.TileStairsUp
}
