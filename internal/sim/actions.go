package sim

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/fov"
	"terminus-core/internal/gamemap"
	"terminus-core/internal/system"
)

// MoveEntity moves id by (dx, dy). A refused move returns the unchanged
// Position and a *system.BlockedMoveError; that is an expected outcome.
func (w *World) MoveEntity(id ecs.EntityID, dx, dy int) (component.Position, error) {
	if err := w.checkRunning(); err != nil {
		return component.Position{}, err
	}
	if !w.store.Alive(id) {
		return component.Position{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	pos, err := w.env.Move(id, dx, dy)
	if err != nil {
		return pos, err
	}
	w.afterMove(id)
	return pos, nil
}

// ApplyAction validates and commits one action for id on the current tick.
// Refusals come back as errors next to an Outcome that performed a wait.
func (w *World) ApplyAction(id ecs.EntityID, a system.Action) (system.Outcome, error) {
	if err := w.checkRunning(); err != nil {
		return system.Outcome{}, err
	}
	if !w.store.Alive(id) {
		return system.Outcome{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	out, err := w.env.Execute(id, a, w.sched.Tick())
	if err != nil {
		return out, err
	}
	if out.Moved {
		w.afterMove(id)
	}
	if out.Attack != nil && out.Attack.Killed {
		w.forget(out.Attack.Defender)
	}
	return out, nil
}

// afterMove keeps the chunk window on the focus and refreshes the mover's
// view if it is a viewer.
func (w *World) afterMove(id ecs.EntityID) {
	if id == w.focus {
		if pos, ok := w.position(id); ok {
			w.chunks.SetFocus(pos.X, pos.Y, pos.Z)
		}
	}
	if w.store.Has(id, component.CViewer) {
		w.refreshViewer(id)
	}
}

// forget drops per-entity state of a destroyed entity.
func (w *World) forget(id ecs.EntityID) {
	delete(w.grids, id)
	delete(w.lastSeen, id)
	if id == w.focus {
		w.focus = ecs.NilEntity
		w.pickFocus()
	}
}

// pickFocus follows the lowest-id living viewer when the focus is unset.
func (w *World) pickFocus() {
	if w.focus != ecs.NilEntity && w.store.Alive(w.focus) {
		return
	}
	w.focus = ecs.NilEntity
	for id := range w.store.Query(component.CViewer, component.CPosition) {
		a := w.store.Get(id, component.CActor)
		if a != nil && a.(component.Actor).Kind == component.KindPlayer {
			w.focus = id
			return
		}
	}
}

// View is a read-only field-of-view query result.
type View struct {
	Origin   component.Position
	Radius   int
	Visible  fov.Set
	Tiles    map[fov.Point]gamemap.TileID
	Entities []ecs.EntityID // ascending
}

// QueryView computes what viewer sees with the given radius (zero uses the
// viewer's own radius) without touching its remembered grid.
func (w *World) QueryView(viewer ecs.EntityID, radius int) (View, error) {
	pos, ok := w.position(viewer)
	if !ok {
		return View{}, fmt.Errorf("%w: %d has no position", ErrUnknownEntity, viewer)
	}
	if radius <= 0 {
		radius = w.viewRadius(viewer)
	}
	vis := w.sweep(pos, radius)
	v := View{Origin: pos, Radius: radius, Visible: vis, Tiles: make(map[fov.Point]gamemap.TileID, len(vis))}
	for p := range vis {
		if t, ok := w.chunks.Tile(p.X, p.Y, pos.Z); ok {
			v.Tiles[p] = t
		}
	}
	for id := range w.index.QueryRect(pos.X-radius, pos.Y-radius, pos.X+radius, pos.Y+radius, pos.Z) {
		if p, ok := w.position(id); ok && vis.Has(p.X, p.Y) {
			v.Entities = append(v.Entities, id)
		}
	}
	slices.Sort(v.Entities)
	return v, nil
}

// Visibility returns viewer's remembered grid. The grid is live; read it
// only between ticks.
func (w *World) Visibility(viewer ecs.EntityID) (*fov.Grid, bool) {
	g, ok := w.grids[viewer]
	return g, ok
}

func (w *World) viewRadius(id ecs.EntityID) int {
	if c := w.store.Get(id, component.CViewer); c != nil {
		if r := c.(component.Viewer).Radius; r > 0 {
			return r
		}
	}
	return w.opts.FOVRadius
}

func (w *World) sweep(pos component.Position, radius int) fov.Set {
	return fov.Compute(pos.X, pos.Y, radius, func(x, y int) bool {
		t, ok := w.chunks.Tile(x, y, pos.Z)
		return !ok || w.opts.Tiles.Info(t).Opaque
	})
}

// refreshViewer recomputes id's field of view into its grid.
func (w *World) refreshViewer(id ecs.EntityID) {
	pos, ok := w.position(id)
	if !ok {
		return
	}
	g, ok := w.grids[id]
	if !ok {
		g = fov.NewGrid()
		w.grids[id] = g
	}
	g.Apply(pos.Z, w.sweep(pos, w.viewRadius(id)), w.chunks.Tile)
	w.lastSeen[id] = pos
}

// Spawn creates an entity from a template at (x, y, z). Templates that
// block cannot spawn onto another blocking entity.
func (w *World) Spawn(templateID string, x, y, z int) (ecs.EntityID, error) {
	if err := w.checkRunning(); err != nil {
		return ecs.NilEntity, err
	}
	tpl, ok := w.templates.Lookup(templateID)
	if !ok {
		return ecs.NilEntity, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	cs := tpl.Components(x, y, z)
	blocks := slices.ContainsFunc(cs, func(c ecs.Component) bool { return c.Type() == component.CBlocking })
	if blocks {
		if other, busy := w.env.BlockerAt(x, y, z, ecs.NilEntity); busy {
			return ecs.NilEntity, &system.BlockedMoveError{
				Reason: system.BlockOccupied, At: component.Position{X: x, Y: y, Z: z}, Blocker: other}
		}
	}
	id := w.store.CreateEntity()
	for _, c := range cs {
		if err := w.store.Add(id, c); err != nil {
			_ = w.store.DestroyEntity(id)
			return ecs.NilEntity, fmt.Errorf("spawn %q: %w", templateID, err)
		}
	}
	w.log.Debug("spawned",
		zap.String("template", templateID),
		zap.Uint64("entity", uint64(id)),
		zap.Int("x", x), zap.Int("y", y), zap.Int("z", z))
	return id, nil
}

// SpawnPlayer spawns a player template (DefaultPlayerTemplate when empty)
// and makes it the focus when no other player holds it. The tile must be
// walkable if its chunk is loaded.
func (w *World) SpawnPlayer(templateID string, x, y, z int) (ecs.EntityID, error) {
	if templateID == "" {
		templateID = DefaultPlayerTemplate
	}
	if walkable, loaded := w.env.Walkable(x, y, z); loaded && !walkable {
		return ecs.NilEntity, &system.BlockedMoveError{
			Reason: system.BlockImpassable, At: component.Position{X: x, Y: y, Z: z}}
	}
	id, err := w.Spawn(templateID, x, y, z)
	if err != nil {
		return id, err
	}
	w.pickFocus()
	if w.focus == id {
		w.chunks.SetFocus(x, y, z)
	}
	if w.store.Has(id, component.CViewer) {
		w.refreshViewer(id)
	}
	return id, nil
}
