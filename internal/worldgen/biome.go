package worldgen

import (
	"math"

	"terminus-core/internal/gamemap"
)

// Biome classifies a region of the surface. Underground levels are always
// BiomeCave.
type Biome uint8

const (
	BiomeTown Biome = iota
	BiomeForest
	BiomeDesert
	BiomeSnow
	BiomeVolcanic
	BiomeCave
)

var biomeNames = [...]string{"town", "forest", "desert", "snow", "volcanic", "cave"}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

// smooths reports whether cellular-automata smoothing shapes this biome.
func (b Biome) smooths() bool {
	return b == BiomeCave || b == BiomeVolcanic
}

// Ring boundaries measured in tiles from the world origin.
const (
	townRadius   = 60
	forestRadius = 250
	desertRadius = 450
	snowRadius   = 650

	// biomeJitter is how far moisture noise may push a ring boundary.
	biomeJitter = 40.0
)

const (
	elevationSalt = 0x5eed_e1e7
	moistureSalt  = 0x5eed_0a7e
	caveSalt      = 0x5eed_ca7e
	stairSalt     = 0x5eed_57a1
)

func ringBiome(distance float64) Biome {
	switch {
	case distance < townRadius:
		return BiomeTown
	case distance < forestRadius:
		return BiomeForest
	case distance < desertRadius:
		return BiomeDesert
	case distance < snowRadius:
		return BiomeSnow
	default:
		return BiomeVolcanic
	}
}

// elevation is stage (a): coherent noise per world tile.
func (g *Generator) elevation(wx, wy int) float64 {
	return fractal(g.seed^elevationSalt, wx, wy, 16, 3)
}

// biomeAt is stage (b): ring distance perturbed by a secondary moisture
// field, so borders between rings wander instead of forming circles.
func (g *Generator) biomeAt(wx, wy, z int) Biome {
	if z < 0 {
		return BiomeCave
	}
	moisture := fractal(g.seed^moistureSalt, wx, wy, 32, 2)
	d := math.Hypot(float64(wx), float64(wy)) + (moisture-0.5)*2*biomeJitter
	return ringBiome(d)
}

// baseTile maps elevation to a tile for one biome. Cave tiles are handled by
// caveOpen and the smoothing pass instead.
func baseTile(b Biome, e float64) gamemap.TileID {
	switch b {
	case BiomeTown:
		switch {
		case e > 0.8:
			return gamemap.TileWall
		case e < 0.2:
			return gamemap.TileGrass
		}
		return gamemap.TilePavement
	case BiomeForest:
		switch {
		case e < 0.2:
			return gamemap.TileWater
		case e > 0.65:
			return gamemap.TileTree
		}
		return gamemap.TileGrass
	case BiomeDesert:
		switch {
		case e < 0.1:
			return gamemap.TileWater
		case e > 0.85:
			return gamemap.TileWall
		case e > 0.72:
			return gamemap.TileCactus
		}
		return gamemap.TileSand
	case BiomeSnow:
		switch {
		case e < 0.3:
			return gamemap.TileIce
		case e > 0.7:
			return gamemap.TileTree
		}
		return gamemap.TileSnow
	case BiomeVolcanic:
		switch {
		case e < 0.25:
			return gamemap.TileLava
		case e > 0.6:
			return gamemap.TileWall
		}
		return gamemap.TileAsh
	}
	return gamemap.TileWall
}

// groundTile is the plain walkable tile of a biome, used for clearings.
func groundTile(b Biome) gamemap.TileID {
	switch b {
	case BiomeTown:
		return gamemap.TilePavement
	case BiomeForest:
		return gamemap.TileGrass
	case BiomeDesert:
		return gamemap.TileSand
	case BiomeSnow:
		return gamemap.TileSnow
	case BiomeVolcanic:
		return gamemap.TileAsh
	}
	return gamemap.TileFloor
}
