package component

import "terminus-core/internal/ecs"

// ItemSlot categorises where an item can be equipped (or whether it is consumable).
type ItemSlot uint8

const (
	SlotConsumable ItemSlot = iota // single-use
	SlotHead                       // 1
	SlotBody                       // 2
	SlotFeet                       // 3
	SlotOneHand                    // 4
	SlotTwoHand                    // 5
	SlotOffHand                    // 6
)

// CItem is the component type for item stats carried by item entities, both
// on the floor and inside an Inventory.
const CItem ecs.ComponentType = 13

type Item struct {
	Slot     ItemSlot `json:"slot"`
	BonusATK int      `json:"atk,omitempty"`
	BonusDEF int      `json:"def,omitempty"`
	Heal     int      `json:"heal,omitempty"`
}

func (Item) Type() ecs.ComponentType { return CItem }

// Equippable reports whether the item goes into an equipment slot.
func (it Item) Equippable() bool { return it.Slot != SlotConsumable }

// Conflicts reports whether two slots cannot be filled at once. A two-handed
// item takes both hands.
func (s ItemSlot) Conflicts(o ItemSlot) bool {
	if s == o {
		return true
	}
	hands := func(a, b ItemSlot) bool {
		return a == SlotTwoHand && (b == SlotOneHand || b == SlotOffHand)
	}
	return hands(s, o) || hands(o, s)
}
