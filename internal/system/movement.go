package system

import (
	"errors"
	"fmt"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
)

var (
	// ErrNoPosition is returned when a positional action targets an entity
	// that is not on the map.
	ErrNoPosition = errors.New("system: entity has no position")

	// ErrInvalidAction marks an action that cannot apply in the current state.
	ErrInvalidAction = errors.New("system: invalid action")
)

// BlockReason says why a move was refused.
type BlockReason uint8

const (
	BlockImpassable BlockReason = iota + 1 // destination tile is not walkable
	BlockOccupied                          // a blocking entity stands there
	BlockUnloaded                          // destination chunk is not active
)

func (r BlockReason) String() string {
	switch r {
	case BlockImpassable:
		return "impassable"
	case BlockOccupied:
		return "occupied"
	case BlockUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// BlockedMoveError is the expected outcome of a refused move. The mover's
// Position is unchanged.
type BlockedMoveError struct {
	Reason  BlockReason
	At      component.Position
	Blocker ecs.EntityID
}

func (e *BlockedMoveError) Error() string {
	if e.Blocker != ecs.NilEntity {
		return fmt.Sprintf("move blocked at (%d,%d,%d): %s by entity %d", e.At.X, e.At.Y, e.At.Z, e.Reason, e.Blocker)
	}
	return fmt.Sprintf("move blocked at (%d,%d,%d): %s", e.At.X, e.At.Y, e.At.Z, e.Reason)
}

// Walkable reports whether the tile at (x, y, z) can be entered. loaded is
// false when the tile's chunk is not active.
func (e *Env) Walkable(x, y, z int) (walkable, loaded bool) {
	t, ok := e.Terrain.Tile(x, y, z)
	if !ok {
		return false, false
	}
	return e.Tiles.Info(t).Walkable, true
}

// BlockerAt returns the lowest-id blocking entity on (x, y, z) other than self.
func (e *Env) BlockerAt(x, y, z int, self ecs.EntityID) (ecs.EntityID, bool) {
	return e.Index.OccupantAt(x, y, z, func(id ecs.EntityID) bool {
		return id != self && e.World.Has(id, component.CBlocking)
	})
}

// CheckMove validates moving id by (dx, dy) without mutating anything.
func (e *Env) CheckMove(id ecs.EntityID, dx, dy int) (component.Position, error) {
	pos, ok := e.position(id)
	if !ok {
		return component.Position{}, fmt.Errorf("%w: %d", ErrNoPosition, id)
	}
	dest := pos.Offset(dx, dy)
	walkable, loaded := e.Walkable(dest.X, dest.Y, dest.Z)
	switch {
	case !loaded:
		return pos, &BlockedMoveError{Reason: BlockUnloaded, At: dest}
	case !walkable:
		return pos, &BlockedMoveError{Reason: BlockImpassable, At: dest}
	}
	if e.World.Has(id, component.CBlocking) {
		if other, found := e.BlockerAt(dest.X, dest.Y, dest.Z, id); found {
			return pos, &BlockedMoveError{Reason: BlockOccupied, At: dest, Blocker: other}
		}
	}
	return dest, nil
}

// Move moves id by (dx, dy) if the destination is walkable and unoccupied.
// On success it returns the new Position. A refused move returns the
// unchanged Position and a *BlockedMoveError.
func (e *Env) Move(id ecs.EntityID, dx, dy int) (component.Position, error) {
	dest, err := e.CheckMove(id, dx, dy)
	if err != nil {
		return dest, err
	}
	if err := e.World.Add(id, dest); err != nil {
		return component.Position{}, err
	}
	return dest, nil
}
