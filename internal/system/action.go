package system

import (
	"errors"
	"fmt"
	"slices"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/gamemap"
)

// ActionKind tags an Action.
type ActionKind uint8

const (
	ActWait ActionKind = iota
	ActMove
	ActAttack
	ActPickup
	ActClimb
	ActUse
	ActEquip
)

func (k ActionKind) String() string {
	switch k {
	case ActWait:
		return "wait"
	case ActMove:
		return "move"
	case ActAttack:
		return "attack"
	case ActPickup:
		return "pickup"
	case ActClimb:
		return "climb"
	case ActUse:
		return "use"
	case ActEquip:
		return "equip"
	default:
		return "unknown"
	}
}

// Action is an intent submitted by the player or decided by AI.
// DX/DY apply to ActMove; Target is the defender for ActAttack and the
// carried item for ActUse and ActEquip.
type Action struct {
	Kind   ActionKind
	DX, DY int
	Target ecs.EntityID
}

func Wait() Action { return Action{Kind: ActWait} }
func MoveBy(dx, dy int) Action { return Action{Kind: ActMove, DX: dx, DY: dy} }
func AttackOn(t ecs.EntityID) Action { return Action{Kind: ActAttack, Target: t} }
func Pickup() Action { return Action{Kind: ActPickup} }
func Climb() Action { return Action{Kind: ActClimb} }
func Use(item ecs.EntityID) Action { return Action{Kind: ActUse, Target: item} }
func Equip(item ecs.EntityID) Action { return Action{Kind: ActEquip, Target: item} }

// Outcome is what an applied action actually did. Performed differs from
// the requested action when a bump-move turns into an attack or a refused
// action degrades to a wait.
type Outcome struct {
	Performed Action
	Moved     bool
	Position  component.Position
	Attack    *AttackResult
	PickedUp  ecs.EntityID
	Healed    int
	// Unequipped lists items taken out of their slots by an equip.
	Unequipped []ecs.EntityID
	Blocked    *BlockedMoveError
}

// hostile reports whether a and b fight when one bumps the other.
func (e *Env) hostile(a, b ecs.EntityID) bool {
	aa, ok1 := e.actor(a)
	ba, ok2 := e.actor(b)
	if !ok1 || !ok2 || aa.Kind == ba.Kind {
		return false
	}
	if aa.Kind == component.KindItem || ba.Kind == component.KindItem {
		return false
	}
	return e.World.Has(b, component.CHealth)
}

// Execute validates and commits one action for id on the given tick. The
// tick seeds the combat roll. Expected refusals come back as errors
// (*BlockedMoveError, ErrInvalidAction) alongside an Outcome whose
// Performed action is a wait; nothing is mutated in that case.
func (e *Env) Execute(id ecs.EntityID, a Action, tick uint64) (Outcome, error) {
	if !e.World.Alive(id) {
		return Outcome{}, fmt.Errorf("%w: entity %d is not alive", ErrInvalidAction, id)
	}
	pos, _ := e.position(id)
	out := Outcome{Performed: Wait(), Position: pos}

	switch a.Kind {
	case ActWait:
		return out, nil

	case ActMove:
		if a.DX == 0 && a.DY == 0 {
			return out, nil
		}
		dest, err := e.Move(id, a.DX, a.DY)
		var blocked *BlockedMoveError
		if errors.As(err, &blocked) && blocked.Reason == BlockOccupied && e.hostile(id, blocked.Blocker) {
			return e.attack(id, blocked.Blocker, tick, out)
		}
		if err != nil {
			out.Blocked = blocked
			return out, err
		}
		out.Performed, out.Moved, out.Position = a, true, dest
		return out, nil

	case ActAttack:
		return e.attack(id, a.Target, tick, out)

	case ActPickup:
		return e.pickup(id, out)

	case ActClimb:
		return e.climb(id, out)

	case ActUse:
		return e.use(id, a.Target, out)

	case ActEquip:
		return e.equip(id, a.Target, out)
	}
	return out, fmt.Errorf("%w: unknown action kind %d", ErrInvalidAction, a.Kind)
}

func (e *Env) attack(id, target ecs.EntityID, tick uint64, out Outcome) (Outcome, error) {
	pos, ok := e.position(id)
	tpos, tok := e.position(target)
	if !ok || !tok || pos.Z != tpos.Z || pos.Chebyshev(tpos) != 1 {
		return out, fmt.Errorf("%w: %d is not adjacent to %d", ErrInvalidAction, id, target)
	}
	res, err := e.Attack(e.rng(id, tick, saltCombat), id, target)
	if err != nil {
		return out, err
	}
	out.Performed = AttackOn(target)
	out.Attack = &res
	return out, nil
}

// pickup moves the lowest-id item on the actor's tile into its inventory.
func (e *Env) pickup(id ecs.EntityID, out Outcome) (Outcome, error) {
	pos, ok := e.position(id)
	if !ok {
		return out, fmt.Errorf("%w: %d", ErrNoPosition, id)
	}
	ic := e.World.Get(id, component.CInventory)
	if ic == nil {
		return out, fmt.Errorf("%w: %d has no inventory", ErrInvalidAction, id)
	}
	inv := ic.(component.Inventory)
	if inv.Full() {
		return out, fmt.Errorf("%w: inventory of %d is full", ErrInvalidAction, id)
	}
	item, found := e.Index.OccupantAt(pos.X, pos.Y, pos.Z, func(other ecs.EntityID) bool {
		a, ok := e.actor(other)
		return ok && a.Kind == component.KindItem
	})
	if !found {
		return out, fmt.Errorf("%w: nothing to pick up at (%d,%d,%d)", ErrInvalidAction, pos.X, pos.Y, pos.Z)
	}
	carried := inv
	carried.Items = append(slices.Clone(inv.Items), item)
	if err := e.World.Add(id, carried); err != nil {
		return out, err
	}
	if err := e.World.Remove(item, component.CPosition); err != nil {
		_ = e.World.Add(id, inv)
		return out, err
	}
	out.Performed, out.PickedUp = Pickup(), item
	return out, nil
}

// carriedItem returns id's inventory and the Item stats of a carried item.
func (e *Env) carriedItem(id, item ecs.EntityID) (component.Inventory, component.Item, error) {
	ic := e.World.Get(id, component.CInventory)
	if ic == nil {
		return component.Inventory{}, component.Item{}, fmt.Errorf("%w: %d has no inventory", ErrInvalidAction, id)
	}
	inv := ic.(component.Inventory)
	if !inv.Holds(item) {
		return inv, component.Item{}, fmt.Errorf("%w: %d does not carry %d", ErrInvalidAction, id, item)
	}
	c := e.World.Get(item, component.CItem)
	if c == nil {
		return inv, component.Item{}, fmt.Errorf("%w: %d is not an item", ErrInvalidAction, item)
	}
	return inv, c.(component.Item), nil
}

// use consumes a carried healing item: it restores up to Heal hit points
// and the item is destroyed.
func (e *Env) use(id, item ecs.EntityID, out Outcome) (Outcome, error) {
	inv, it, err := e.carriedItem(id, item)
	if err != nil {
		return out, err
	}
	if it.Equippable() || it.Heal <= 0 {
		return out, fmt.Errorf("%w: %d cannot be used", ErrInvalidAction, item)
	}
	hc := e.World.Get(id, component.CHealth)
	if hc == nil {
		return out, fmt.Errorf("%w: %d has no health", ErrInvalidAction, id)
	}
	hp := hc.(component.Health)
	healed := min(it.Heal, hp.Max-hp.Current)
	hp.Current += healed
	if err := e.World.Add(id, hp); err != nil {
		return out, err
	}
	if err := e.World.Add(id, inv.Without(item)); err != nil {
		return out, err
	}
	if err := e.World.DestroyEntity(item); err != nil {
		return out, err
	}
	out.Performed, out.Healed = Use(item), healed
	return out, nil
}

// equip puts a carried item into its slot, unequipping whatever held that
// slot or a conflicting one. The unequipped items stay carried.
func (e *Env) equip(id, item ecs.EntityID, out Outcome) (Outcome, error) {
	inv, it, err := e.carriedItem(id, item)
	if err != nil {
		return out, err
	}
	if !it.Equippable() {
		return out, fmt.Errorf("%w: %d has no equipment slot", ErrInvalidAction, item)
	}
	if inv.IsEquipped(item) {
		out.Performed = Equip(item)
		return out, nil
	}
	next := inv
	next.Equipped = nil
	var removed []ecs.EntityID
	for _, other := range inv.Equipped {
		if oc := e.World.Get(other, component.CItem); oc != nil && oc.(component.Item).Slot.Conflicts(it.Slot) {
			removed = append(removed, other)
			continue
		}
		next.Equipped = append(next.Equipped, other)
	}
	next.Equipped = append(next.Equipped, item)
	if err := e.World.Add(id, next); err != nil {
		return out, err
	}
	out.Performed, out.Unequipped = Equip(item), removed
	return out, nil
}

// climb takes the stairs under the actor one level down or up. Stairs are
// aligned across levels, so the landing tile is the matching staircase even
// when its chunk is not loaded yet.
func (e *Env) climb(id ecs.EntityID, out Outcome) (Outcome, error) {
	pos, ok := e.position(id)
	if !ok {
		return out, fmt.Errorf("%w: %d", ErrNoPosition, id)
	}
	t, loaded := e.Terrain.Tile(pos.X, pos.Y, pos.Z)
	if !loaded {
		return out, &BlockedMoveError{Reason: BlockUnloaded, At: pos}
	}
	dest := pos
	switch t {
	case gamemap.TileStairsDown:
		dest.Z--
	case gamemap.TileStairsUp:
		dest.Z++
	default:
		return out, fmt.Errorf("%w: no stairs at (%d,%d,%d)", ErrInvalidAction, pos.X, pos.Y, pos.Z)
	}
	if e.World.Has(id, component.CBlocking) {
		if other, found := e.BlockerAt(dest.X, dest.Y, dest.Z, id); found {
			blocked := &BlockedMoveError{Reason: BlockOccupied, At: dest, Blocker: other}
			out.Blocked = blocked
			return out, blocked
		}
	}
	if err := e.World.Add(id, dest); err != nil {
		return out, err
	}
	out.Performed, out.Moved, out.Position = Climb(), true, dest
	return out, nil
}
