// Package worldgen produces chunk terrain and feature placements as a pure
// function of the world seed and chunk coordinates.
package worldgen

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/mathx"
)

const (
	DefaultChunkSize = 32
	MaxSmoothRounds  = 4
)

// Coord addresses a chunk. Z is the level (0 surface, negative below).
type Coord struct {
	CX, CY, Z int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.CX, c.CY, c.Z) }

// FeatureKind tags a placement produced by the structure stage.
type FeatureKind uint8

const (
	FeatureRuin FeatureKind = iota + 1
	FeatureCamp
	FeatureResource
	FeatureStairsDown
	FeatureStairsUp
)

// Feature is a placement in world coordinates. Template is set for camps
// (monster template) and resource nodes (item template).
type Feature struct {
	Kind     FeatureKind
	X, Y     int
	Template string
}

// Options configures a Generator. Zero fields take defaults.
type Options struct {
	ChunkSize    int
	SmoothRounds int
	Tiles        gamemap.TileTable
	// Static maps a chunk coordinate to hand-authored rows using the layout
	// legend. Static chunks skip stages (a) through (d).
	Static    map[Coord][]string
	Camps     map[Biome][]string
	Resources map[Biome][]string
}

// DefaultCamps lists the monster templates camps draw from per biome.
var DefaultCamps = map[Biome][]string{
	BiomeForest:   {"crystal_crawl", "neon_specter"},
	BiomeDesert:   {"thought_leech", "prism_drake"},
	BiomeSnow:     {"void_tendril", "fractal_golem"},
	BiomeVolcanic: {"entropy_bloom", "fractal_golem", "apex_warden"},
	BiomeCave:     {"crystal_crawl", "thought_leech", "void_tendril"},
}

// DefaultResources lists the item templates resource nodes yield per biome.
var DefaultResources = map[Biome][]string{
	BiomeTown:     {"memory_scroll"},
	BiomeForest:   {"hyperflask"},
	BiomeDesert:   {"prism_shard"},
	BiomeSnow:     {"null_cloak", "frost_weave"},
	BiomeVolcanic: {"tesseract", "resonance_maul"},
	BiomeCave:     {"prism_shard", "hyperflask", "shard_blade", "crystal_helm"},
}

// Generator runs the chunk pipeline. It holds no mutable state, so calls may
// happen in any order, in isolation, or repeatedly.
type Generator struct {
	seed      int64
	size      int
	rounds    int
	tiles     gamemap.TileTable
	static    map[Coord][]string
	camps     map[Biome][]string
	resources map[Biome][]string
}

// New creates a Generator for seed.
func New(seed int64, opts Options) *Generator {
	g := &Generator{
		seed:      seed,
		size:      opts.ChunkSize,
		rounds:    opts.SmoothRounds,
		tiles:     opts.Tiles,
		static:    opts.Static,
		camps:     opts.Camps,
		resources: opts.Resources,
	}
	if g.size < 16 {
		g.size = DefaultChunkSize
	}
	if g.rounds <= 0 || g.rounds > MaxSmoothRounds {
		g.rounds = MaxSmoothRounds
	}
	if g.tiles == nil {
		g.tiles = gamemap.DefaultTiles
	}
	if g.camps == nil {
		g.camps = DefaultCamps
	}
	if g.resources == nil {
		g.resources = DefaultResources
	}
	return g
}

func (g *Generator) Seed() int64    { return g.seed }
func (g *Generator) ChunkSize() int { return g.size }

// SubSeed derives the per-chunk seed that drives structure placement.
func (g *Generator) SubSeed(c Coord) uint64 {
	return mathx.Hash3(g.seed, c.CX, c.CY, c.Z)
}

// Result is the generated content of one chunk. Terrain is in chunk-local
// coordinates; feature positions are world coordinates.
type Result struct {
	Coord    Coord
	Size     int
	Biome    Biome
	Static   bool
	Terrain  *gamemap.Grid
	Mask4    []uint8
	Mask8    []uint8
	Features []Feature
}

// Origin returns the world coordinate of the chunk's top-left tile.
func (r *Result) Origin() (int, int) {
	return r.Coord.CX * r.Size, r.Coord.CY * r.Size
}

// Digest hashes every output of the pipeline. Two results with equal digests
// are byte-identical for all practical purposes.
func (r *Result) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	putInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	putInt(r.Coord.CX)
	putInt(r.Coord.CY)
	putInt(r.Coord.Z)
	putInt(r.Size)
	h.Write([]byte{byte(r.Biome)})
	raw := make([]byte, len(r.Terrain.Tiles))
	for i, t := range r.Terrain.Tiles {
		raw[i] = byte(t)
	}
	h.Write(raw)
	h.Write(r.Mask4)
	h.Write(r.Mask8)
	for _, f := range r.Features {
		putInt(int(f.Kind))
		putInt(f.X)
		putInt(f.Y)
		h.WriteString(f.Template)
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Generate runs the pipeline for one chunk.
func (g *Generator) Generate(c Coord) *Result {
	ox, oy := c.CX*g.size, c.CY*g.size
	res := &Result{Coord: c, Size: g.size}
	res.Biome = g.biomeAt(ox+g.size/2, oy+g.size/2, c.Z)

	if rows, ok := g.static[c]; ok {
		res.Static = true
		res.Terrain = ParseLayout(g.size, rows)
		for i, t := range res.Terrain.Tiles {
			x, y := ox+i%g.size, oy+i/g.size
			switch t {
			case gamemap.TileStairsDown:
				res.Features = append(res.Features, Feature{Kind: FeatureStairsDown, X: x, Y: y})
			case gamemap.TileStairsUp:
				res.Features = append(res.Features, Feature{Kind: FeatureStairsUp, X: x, Y: y})
			}
		}
		res.Mask4, res.Mask8 = g.masks(c, res.Terrain)
		return res
	}

	grid := gamemap.NewFilled(g.size, g.size, gamemap.TileWall)
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			grid.Set(x, y, g.naturalTile(ox+x, oy+y, c.Z))
		}
	}

	p := &placer{
		g:      g,
		c:      c,
		biome:  res.Biome,
		grid:   grid,
		locked: make([]bool, g.size*g.size),
		rng:    mathx.NewRand(g.SubSeed(c)),
	}
	p.run()

	if res.Biome.smooths() {
		g.smooth(c, grid, p.locked)
	}

	res.Terrain = grid
	res.Features = p.features
	res.Mask4, res.Mask8 = g.masks(c, grid)
	return res
}

// naturalTile is the tile at a world coordinate after stages (a) and (b).
func (g *Generator) naturalTile(wx, wy, z int) gamemap.TileID {
	if z < 0 {
		if g.caveOpen(wx, wy, z) {
			return gamemap.TileFloor
		}
		return gamemap.TileWall
	}
	return baseTile(g.biomeAt(wx, wy, z), g.elevation(wx, wy))
}

// caveOpen seeds the cave automaton with roughly 55% open tiles.
func (g *Generator) caveOpen(wx, wy, z int) bool {
	return mathx.Unit(mathx.Hash3(g.seed^caveSalt, wx, wy, z)) >= 0.45
}
