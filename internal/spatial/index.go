// Package spatial keeps a bucketed position index in sync with the entity
// store. It subscribes to Position mutations only; every other component is
// invisible to it.
package spatial

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/mathx"
)

// ErrIndexDesync reports that cell membership no longer matches live
// Position components. It is an invariant breach.
var ErrIndexDesync = errors.New("spatial: index out of sync with entity store")

// CellKey addresses one bucket: (floor(x/size), floor(y/size), z).
type CellKey struct {
	CX, CY, Z int
}

type entry struct {
	cell CellKey
	pos  component.Position
}

// Index buckets entity ids by Position.
type Index struct {
	cellSize int
	cells    map[CellKey]map[ecs.EntityID]struct{}
	entities map[ecs.EntityID]entry
}

var _ ecs.Listener = (*Index)(nil)

// New creates an empty Index with square cells of cellSize tiles.
func New(cellSize int) *Index {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[CellKey]map[ecs.EntityID]struct{}),
		entities: make(map[ecs.EntityID]entry),
	}
}

// Attach indexes every existing Position in w and subscribes to future
// Position changes.
func (ix *Index) Attach(w *ecs.World) {
	for id := range w.Query(component.CPosition) {
		ix.ComponentSet(id, nil, w.Get(id, component.CPosition))
	}
	w.Subscribe(ix, component.CPosition)
}

// CellSize returns the bucket edge length in tiles.
func (ix *Index) CellSize() int { return ix.cellSize }

// CellFor returns the bucket containing (x, y, z).
func (ix *Index) CellFor(x, y, z int) CellKey {
	return CellKey{CX: mathx.FloorDiv(x, ix.cellSize), CY: mathx.FloorDiv(y, ix.cellSize), Z: z}
}

// ComponentSet handles Position add and update.
func (ix *Index) ComponentSet(id ecs.EntityID, _, c ecs.Component) {
	pos, ok := c.(component.Position)
	if !ok {
		return
	}
	cell := ix.CellFor(pos.X, pos.Y, pos.Z)
	if old, ok := ix.entities[id]; ok && old.cell != cell {
		ix.removeFromCell(old.cell, id)
	}
	set := ix.cells[cell]
	if set == nil {
		set = make(map[ecs.EntityID]struct{})
		ix.cells[cell] = set
	}
	set[id] = struct{}{}
	ix.entities[id] = entry{cell: cell, pos: pos}
}

// ComponentRemoved handles Position removal, including entity destruction.
func (ix *Index) ComponentRemoved(id ecs.EntityID, c ecs.Component) {
	if _, ok := c.(component.Position); !ok {
		return
	}
	old, ok := ix.entities[id]
	if !ok {
		return
	}
	ix.removeFromCell(old.cell, id)
	delete(ix.entities, id)
}

func (ix *Index) removeFromCell(cell CellKey, id ecs.EntityID) {
	set := ix.cells[cell]
	delete(set, id)
	if len(set) == 0 {
		delete(ix.cells, cell)
	}
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int { return len(ix.entities) }

// Cell returns the ids in one bucket in ascending order.
func (ix *Index) Cell(key CellKey) []ecs.EntityID {
	return sortedIDs(ix.cells[key])
}

// QueryRect yields ids whose position lies in the inclusive rectangle on
// level z. Only overlapping buckets are visited; ids come out bucket by
// bucket in row-major order, ascending within a bucket.
func (ix *Index) QueryRect(minX, minY, maxX, maxY, z int) iter.Seq[ecs.EntityID] {
	return func(yield func(ecs.EntityID) bool) {
		if minX > maxX || minY > maxY {
			return
		}
		lo := ix.CellFor(minX, minY, z)
		hi := ix.CellFor(maxX, maxY, z)
		for cy := lo.CY; cy <= hi.CY; cy++ {
			for cx := lo.CX; cx <= hi.CX; cx++ {
				set := ix.cells[CellKey{CX: cx, CY: cy, Z: z}]
				if len(set) == 0 {
					continue
				}
				for _, id := range sortedIDs(set) {
					p := ix.entities[id].pos
					if p.X < minX || p.X > maxX || p.Y < minY || p.Y > maxY {
						continue
					}
					if !yield(id) {
						return
					}
				}
			}
		}
	}
}

// EntitiesAt returns the ids standing exactly on (x, y, z), ascending.
func (ix *Index) EntitiesAt(x, y, z int) []ecs.EntityID {
	return slices.Collect(ix.QueryRect(x, y, x, y, z))
}

// OccupantAt returns the lowest id on (x, y, z) accepted by pred. A nil pred
// accepts any entity.
func (ix *Index) OccupantAt(x, y, z int, pred func(ecs.EntityID) bool) (ecs.EntityID, bool) {
	for id := range ix.QueryRect(x, y, x, y, z) {
		if pred == nil || pred(id) {
			return id, true
		}
	}
	return ecs.NilEntity, false
}

// Verify checks that bucket membership equals exactly the set of live
// entities whose Position maps to each bucket.
func (ix *Index) Verify(w *ecs.World) error {
	want := make(map[ecs.EntityID]CellKey)
	for id := range w.Query(component.CPosition) {
		p := w.Get(id, component.CPosition).(component.Position)
		want[id] = ix.CellFor(p.X, p.Y, p.Z)
	}
	if len(want) != len(ix.entities) {
		return fmt.Errorf("%w: %d positioned entities, %d indexed", ErrIndexDesync, len(want), len(ix.entities))
	}
	members := 0
	for cell, set := range ix.cells {
		for id := range set {
			members++
			if want[id] != cell {
				return fmt.Errorf("%w: entity %d in cell %v, expected %v", ErrIndexDesync, id, cell, want[id])
			}
		}
	}
	if members != len(want) {
		return fmt.Errorf("%w: %d cell memberships for %d entities", ErrIndexDesync, members, len(want))
	}
	for id, cell := range want {
		if _, ok := ix.cells[cell][id]; !ok {
			return fmt.Errorf("%w: entity %d missing from cell %v", ErrIndexDesync, id, cell)
		}
	}
	return nil
}

func sortedIDs(set map[ecs.EntityID]struct{}) []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
