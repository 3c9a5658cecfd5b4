package system

import (
	"errors"
	"testing"

	"terminus-core/internal/component"
)

func TestMoveOK(t *testing.T) {
	e, _ := newEnv()
	p := addPlayer(e, 5, 5)

	got, err := e.Move(p, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := component.Position{X: 6, Y: 5}
	if got != want || posOf(e, p) != want {
		t.Errorf("position = %+v, stored %+v; want %+v", got, posOf(e, p), want)
	}
	if len(e.Index.EntitiesAt(6, 5, 0)) != 1 {
		t.Error("spatial index did not follow the move")
	}
}

func TestMoveBlockedByWall(t *testing.T) {
	e, terrain := newEnv()
	p := addPlayer(e, 5, 5)
	terrain.walls[[2]int{6, 5}] = true

	got, err := e.Move(p, 1, 0)
	var blocked *BlockedMoveError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected *BlockedMoveError, got %v", err)
	}
	if blocked.Reason != BlockImpassable {
		t.Errorf("reason = %s, want impassable", blocked.Reason)
	}
	if got != (component.Position{X: 5, Y: 5}) || posOf(e, p) != got {
		t.Errorf("position changed to %+v", posOf(e, p))
	}
}

func TestMoveBlockedByEntity(t *testing.T) {
	e, _ := newEnv()
	p := addPlayer(e, 5, 5)
	m := addMonster(e, 6, 5, component.BehaviorStatic, 0)

	_, err := e.Move(p, 1, 0)
	var blocked *BlockedMoveError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected *BlockedMoveError, got %v", err)
	}
	if blocked.Reason != BlockOccupied || blocked.Blocker != m {
		t.Errorf("got %+v, want occupied by %d", blocked, m)
	}
}

func TestMoveOntoItemAllowed(t *testing.T) {
	e, _ := newEnv()
	p := addPlayer(e, 5, 5)
	addItem(e, 6, 5, component.Item{})

	if _, err := e.Move(p, 1, 0); err != nil {
		t.Fatalf("items do not block: %v", err)
	}
}

func TestMoveIntoUnloadedChunk(t *testing.T) {
	e, terrain := newEnv()
	p := addPlayer(e, 5, 5)
	terrain.unloaded[[2]int{5, 4}] = true

	_, err := e.Move(p, 0, -1)
	var blocked *BlockedMoveError
	if !errors.As(err, &blocked) || blocked.Reason != BlockUnloaded {
		t.Fatalf("expected unloaded block, got %v", err)
	}
}

func TestMoveWithoutPosition(t *testing.T) {
	e, _ := newEnv()
	id := e.World.CreateEntity()
	if _, err := e.Move(id, 1, 0); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}
