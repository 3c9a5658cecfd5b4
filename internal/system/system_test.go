package system

import (
	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/gamemap"
	"terminus-core/internal/spatial"
)

// fakeTerrain is an open floor of the given size on level 0; walls,
// unloaded holes and single tiles on any level are set by tests.
type fakeTerrain struct {
	w, h     int
	walls    map[[2]int]bool
	unloaded map[[2]int]bool
	special  map[[3]int]gamemap.TileID
}

func newTerrain(w, h int) *fakeTerrain {
	return &fakeTerrain{w: w, h: h, walls: map[[2]int]bool{}, unloaded: map[[2]int]bool{}, special: map[[3]int]gamemap.TileID{}}
}

func (t *fakeTerrain) Tile(x, y, z int) (gamemap.TileID, bool) {
	if tile, ok := t.special[[3]int{x, y, z}]; ok {
		return tile, true
	}
	if z != 0 || x < 0 || y < 0 || x >= t.w || y >= t.h || t.unloaded[[2]int{x, y}] {
		return 0, false
	}
	if t.walls[[2]int{x, y}] {
		return gamemap.TileWall, true
	}
	return gamemap.TileFloor, true
}

// newEnv creates a 20×20 open world with a spatial index attached.
func newEnv() (*Env, *fakeTerrain) {
	w := ecs.NewWorld()
	ix := spatial.New(8)
	ix.Attach(w)
	terrain := newTerrain(20, 20)
	return NewEnv(w, ix, terrain, gamemap.DefaultTiles, 7, nil), terrain
}

func addPlayer(e *Env, x, y int) ecs.EntityID {
	id := e.World.CreateEntity()
	e.World.Add(id, component.Position{X: x, Y: y})
	e.World.Add(id, component.Actor{Kind: component.KindPlayer, Name: "player"})
	e.World.Add(id, component.Blocking{})
	e.World.Add(id, component.Combat{Attack: 3, Defense: 1})
	e.World.Add(id, component.Health{Current: 30, Max: 30})
	e.World.Add(id, component.Inventory{Capacity: 2})
	return id
}

func addMonster(e *Env, x, y int, behavior component.AIBehavior, sight int) ecs.EntityID {
	id := e.World.CreateEntity()
	e.World.Add(id, component.Position{X: x, Y: y})
	e.World.Add(id, component.Actor{Kind: component.KindMonster, Name: "crawler"})
	e.World.Add(id, component.Blocking{})
	e.World.Add(id, component.AI{Behavior: behavior, SightRange: sight, HomeX: x, HomeY: y})
	e.World.Add(id, component.Combat{Attack: 2, Defense: 0})
	e.World.Add(id, component.Health{Current: 5, Max: 5})
	return id
}

func addItem(e *Env, x, y int, item component.Item) ecs.EntityID {
	id := e.World.CreateEntity()
	e.World.Add(id, component.Position{X: x, Y: y})
	e.World.Add(id, component.Actor{Kind: component.KindItem, Name: "shard"})
	e.World.Add(id, item)
	return id
}

func posOf(e *Env, id ecs.EntityID) component.Position {
	return e.World.Get(id, component.CPosition).(component.Position)
}
