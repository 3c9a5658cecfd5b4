package system

import (
	"fmt"

	"go.uber.org/zap"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
)

// Roller yields an integer in [0, n). *mathx.Rand and *rand.Rand both satisfy it.
type Roller interface {
	Intn(n int) int
}

// AttackResult holds the outcome of one attack.
type AttackResult struct {
	Attacker ecs.EntityID
	Defender ecs.EntityID
	Damage   int
	Killed   bool
	Dropped  []ecs.EntityID // inventory items left on the floor by a kill
}

// itemBonuses sums the ATK and DEF bonuses of the items id has equipped.
// Carried but unequipped items do not count.
func itemBonuses(w *ecs.World, id ecs.EntityID) (atk, def int) {
	c := w.Get(id, component.CInventory)
	if c == nil {
		return 0, 0
	}
	for _, item := range c.(component.Inventory).Equipped {
		if ic := w.Get(item, component.CItem); ic != nil {
			it := ic.(component.Item)
			atk += it.BonusATK
			def += it.BonusDEF
		}
	}
	return atk, def
}

// Attack resolves one attack from attacker against defender.
// Damage formula: max(1, atk+bonus-def-bonus) + roll(0..2).
// If the defender's HP drops to <= 0 its inventory is dropped on its tile
// and the entity is destroyed.
func (e *Env) Attack(rng Roller, attackerID, defenderID ecs.EntityID) (AttackResult, error) {
	w := e.World
	atkComp := w.Get(attackerID, component.CCombat)
	hpComp := w.Get(defenderID, component.CHealth)
	if atkComp == nil || hpComp == nil {
		return AttackResult{}, fmt.Errorf("%w: %d cannot attack %d", ErrInvalidAction, attackerID, defenderID)
	}

	atkBonus, _ := itemBonuses(w, attackerID)
	_, defBonus := itemBonuses(w, defenderID)
	atk := atkComp.(component.Combat).Attack + atkBonus
	def := defBonus
	if dc := w.Get(defenderID, component.CCombat); dc != nil {
		def += dc.(component.Combat).Defense
	}
	dmg := max(1, atk-def) + rng.Intn(3)

	hp := hpComp.(component.Health)
	hp.Current -= dmg
	if err := w.Add(defenderID, hp); err != nil {
		return AttackResult{}, err
	}

	result := AttackResult{Attacker: attackerID, Defender: defenderID, Damage: dmg}
	if hp.Current <= 0 {
		result.Killed = true
		dropped, err := e.kill(defenderID)
		if err != nil {
			return result, err
		}
		result.Dropped = dropped
		e.Log.Debug("entity killed",
			zap.Uint64("attacker", uint64(attackerID)),
			zap.Uint64("defender", uint64(defenderID)),
			zap.Int("damage", dmg))
	}
	return result, nil
}

// kill drops the carried items of id onto its tile and destroys it.
func (e *Env) kill(id ecs.EntityID) ([]ecs.EntityID, error) {
	w := e.World
	var dropped []ecs.EntityID
	pos, onMap := e.position(id)
	if c := w.Get(id, component.CInventory); c != nil {
		for _, item := range c.(component.Inventory).Items {
			if !w.Alive(item) {
				continue
			}
			if !onMap {
				if err := w.DestroyEntity(item); err != nil {
					return dropped, err
				}
				continue
			}
			if err := w.Add(item, pos); err != nil {
				return dropped, err
			}
			dropped = append(dropped, item)
		}
	}
	return dropped, w.DestroyEntity(id)
}
