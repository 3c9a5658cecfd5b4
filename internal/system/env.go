package system

import (
	"go.uber.org/zap"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/gamemap"
	"terminus-core/internal/mathx"
	"terminus-core/internal/spatial"
)

// Terrain resolves the tile at a world coordinate. ok is false when the
// chunk holding it is not active.
type Terrain interface {
	Tile(x, y, z int) (gamemap.TileID, bool)
}

// Env bundles what the systems read and mutate during a tick. It holds no
// state of its own; the simulation owns every field.
type Env struct {
	World   *ecs.World
	Index   *spatial.Index
	Terrain Terrain
	Tiles   gamemap.TileTable
	Seed    int64
	Log     *zap.Logger
}

// NewEnv wires an Env. A nil logger is replaced with a no-op logger.
func NewEnv(w *ecs.World, ix *spatial.Index, terrain Terrain, tiles gamemap.TileTable, seed int64, log *zap.Logger) *Env {
	if log == nil {
		log = zap.NewNop()
	}
	if tiles == nil {
		tiles = gamemap.DefaultTiles
	}
	return &Env{World: w, Index: ix, Terrain: terrain, Tiles: tiles, Seed: seed, Log: log.Named("system")}
}

// position returns the entity's Position, or false when it has none.
func (e *Env) position(id ecs.EntityID) (component.Position, bool) {
	c := e.World.Get(id, component.CPosition)
	if c == nil {
		return component.Position{}, false
	}
	return c.(component.Position), true
}

func (e *Env) actor(id ecs.EntityID) (component.Actor, bool) {
	c := e.World.Get(id, component.CActor)
	if c == nil {
		return component.Actor{}, false
	}
	return c.(component.Actor), true
}

// opaque reports whether (x, y, z) blocks sight. Unloaded tiles block.
func (e *Env) opaque(x, y, z int) bool {
	t, ok := e.Terrain.Tile(x, y, z)
	if !ok {
		return true
	}
	return e.Tiles.Info(t).Opaque
}

// rng derives the decision stream for one entity on one tick, so a replay
// of the same tick from the same state makes the same choices.
func (e *Env) rng(id ecs.EntityID, tick uint64, salt int) *mathx.Rand {
	return mathx.NewRand(mathx.Hash3(e.Seed, int(id), int(tick), salt))
}
