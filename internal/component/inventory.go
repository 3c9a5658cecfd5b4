package component

import (
	"slices"

	"terminus-core/internal/ecs"
)

const CInventory ecs.ComponentType = 6

// Inventory holds carried item entities. Carried items have no Position.
// Equipped is the subset of Items whose bonuses apply, at most one per slot.
type Inventory struct {
	Items    []ecs.EntityID `json:"items"`
	Equipped []ecs.EntityID `json:"equipped,omitempty"`
	Capacity int            `json:"capacity"`
}

func (Inventory) Type() ecs.ComponentType { return CInventory }

// Full reports whether another item would exceed Capacity.
func (inv Inventory) Full() bool { return len(inv.Items) >= inv.Capacity }

func (inv Inventory) Holds(item ecs.EntityID) bool { return slices.Contains(inv.Items, item) }

func (inv Inventory) IsEquipped(item ecs.EntityID) bool { return slices.Contains(inv.Equipped, item) }

// Without returns a copy of inv with item neither carried nor equipped.
func (inv Inventory) Without(item ecs.EntityID) Inventory {
	out := inv
	out.Items = slices.DeleteFunc(slices.Clone(inv.Items), func(id ecs.EntityID) bool { return id == item })
	out.Equipped = slices.DeleteFunc(slices.Clone(inv.Equipped), func(id ecs.EntityID) bool { return id == item })
	return out
}
