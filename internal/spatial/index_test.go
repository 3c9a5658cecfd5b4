package spatial

import (
	"math/rand"
	"slices"
	"testing"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"

	"github.com/stretchr/testify/require"
)

func newIndexedWorld(cellSize int) (*ecs.World, *Index) {
	w := ecs.NewWorld()
	ix := New(cellSize)
	ix.Attach(w)
	return w, ix
}

func place(w *ecs.World, x, y, z int) ecs.EntityID {
	id := w.CreateEntity()
	w.Add(id, component.Position{X: x, Y: y, Z: z})
	return id
}

func TestNegativeCoordinatesUseFloorBuckets(t *testing.T) {
	w, ix := newIndexedWorld(8)
	id := place(w, -1, -9, 0)

	require.Equal(t, []ecs.EntityID{id}, ix.Cell(CellKey{CX: -1, CY: -2, Z: 0}))
	require.Empty(t, ix.Cell(CellKey{CX: 0, CY: -1, Z: 0}))
}

func TestMoveAcrossCellsUpdatesMembership(t *testing.T) {
	w, ix := newIndexedWorld(4)
	id := place(w, 1, 1, 0)
	require.Equal(t, []ecs.EntityID{id}, ix.Cell(CellKey{0, 0, 0}))

	w.Add(id, component.Position{X: 5, Y: 1, Z: 0})
	require.Empty(t, ix.Cell(CellKey{0, 0, 0}))
	require.Equal(t, []ecs.EntityID{id}, ix.Cell(CellKey{1, 0, 0}))

	// Same cell, new tile: the cached position still tracks the move.
	w.Add(id, component.Position{X: 6, Y: 2, Z: 0})
	require.Empty(t, ix.EntitiesAt(5, 1, 0))
	require.Equal(t, []ecs.EntityID{id}, ix.EntitiesAt(6, 2, 0))
	require.NoError(t, ix.Verify(w))
}

func TestDestroyDeregisters(t *testing.T) {
	w, ix := newIndexedWorld(4)
	id := place(w, 2, 2, 0)
	w.Add(id, component.Health{Current: 1, Max: 1})

	w.DestroyEntity(id)
	require.Equal(t, 0, ix.Len())
	_, ok := ix.OccupantAt(2, 2, 0, nil)
	require.False(t, ok)
	require.NoError(t, ix.Verify(w))
}

func TestQueryRectFiltersToRectangleAndLevel(t *testing.T) {
	w, ix := newIndexedWorld(4)
	in1 := place(w, 0, 0, 0)
	in2 := place(w, 7, 3, 0)
	place(w, 8, 3, 0)  // outside on x
	place(w, 3, 3, -1) // other level

	got := slices.Collect(ix.QueryRect(0, 0, 7, 7, 0))
	require.ElementsMatch(t, []ecs.EntityID{in1, in2}, got)

	require.Empty(t, slices.Collect(ix.QueryRect(5, 5, 1, 1, 0)))
}

func TestOccupantAtPredicate(t *testing.T) {
	w, ix := newIndexedWorld(4)
	item := place(w, 3, 3, 0)
	monster := place(w, 3, 3, 0)
	w.Add(monster, component.Blocking{})

	id, ok := ix.OccupantAt(3, 3, 0, nil)
	require.True(t, ok)
	require.Equal(t, item, id)

	id, ok = ix.OccupantAt(3, 3, 0, func(e ecs.EntityID) bool { return w.Has(e, component.CBlocking) })
	require.True(t, ok)
	require.Equal(t, monster, id)
}

func TestAttachIndexesExistingPositions(t *testing.T) {
	w := ecs.NewWorld()
	a := place(w, 10, 10, 0)
	ix := New(4)
	ix.Attach(w)

	require.Equal(t, []ecs.EntityID{a}, ix.EntitiesAt(10, 10, 0))
	require.NoError(t, ix.Verify(w))
}

func TestVerifyDetectsDesync(t *testing.T) {
	w, ix := newIndexedWorld(4)
	id := place(w, 1, 1, 0)
	// Corrupt the index behind the store's back.
	ix.removeFromCell(CellKey{0, 0, 0}, id)
	require.ErrorIs(t, ix.Verify(w), ErrIndexDesync)
}

// Randomized create/add/update/remove/destroy sequences must leave cell
// membership equal to the live Position set after every single operation.
func TestRandomOperationsKeepIndexConsistent(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w, ix := newIndexedWorld(1 + rng.Intn(8))
		var ids []ecs.EntityID

		for step := 0; step < 2000; step++ {
			switch op := rng.Intn(6); {
			case op == 0 || len(ids) == 0:
				ids = append(ids, w.CreateEntity())
			case op <= 2:
				id := ids[rng.Intn(len(ids))]
				if w.Alive(id) {
					w.Add(id, component.Position{X: rng.Intn(60) - 30, Y: rng.Intn(60) - 30, Z: rng.Intn(3) - 1})
				}
			case op == 3:
				w.Remove(ids[rng.Intn(len(ids))], component.CPosition)
			case op == 4:
				id := ids[rng.Intn(len(ids))]
				if w.Alive(id) {
					w.Add(id, component.Health{Current: 1, Max: 1})
				}
			default:
				w.DestroyEntity(ids[rng.Intn(len(ids))])
			}
			if err := ix.Verify(w); err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
		}
	}
}
