// Package chunk streams the world through a bounded set of active chunks
// around a focus point.
package chunk

import (
	"errors"
	"slices"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/persist"
	"terminus-core/internal/worldgen"
)

// Key addresses a chunk.
type Key = worldgen.Coord

// ErrDeterminismViolation means regenerating a chunk produced different
// output for the same seed and coordinates. It is an invariant breach.
var ErrDeterminismViolation = errors.New("chunk: generation is not deterministic")

// ErrNotLoaded is returned for tile writes into a chunk that is not active.
var ErrNotLoaded = errors.New("chunk: not loaded")

// State is a chunk's lifecycle stage.
type State uint8

const (
	Unloaded State = iota
	Generating
	Active
	Evicting
)

func (s State) String() string {
	switch s {
	case Generating:
		return "generating"
	case Active:
		return "active"
	case Evicting:
		return "evicting"
	}
	return "unloaded"
}

// Chunk is an active region: generated terrain merged with its overrides.
type Chunk struct {
	Key      Key
	Biome    worldgen.Biome
	Terrain  *gamemap.Grid
	Mask4    []uint8
	Mask8    []uint8
	Features []worldgen.Feature

	overrides map[int]gamemap.TileID
	dirty     bool
}

// Overrides lists the chunk's overrides in row-major order.
func (c *Chunk) Overrides() []persist.Override {
	idx := make([]int, 0, len(c.overrides))
	for i := range c.overrides {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	out := make([]persist.Override, 0, len(idx))
	for _, i := range idx {
		out = append(out, persist.Override{
			X:    i % c.Terrain.Width,
			Y:    i / c.Terrain.Width,
			Tile: c.overrides[i],
		})
	}
	return out
}

func (c *Chunk) Dirty() bool { return c.dirty }
