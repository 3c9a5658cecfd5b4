package ecs

// EntityID uniquely identifies an entity in the world.
type EntityID uint64

// NilEntity is the zero value; no valid entity has this ID.
const NilEntity EntityID = 0

// ComponentType is a small integer key used to store/retrieve components.
type ComponentType uint8

// Component is implemented by every data struct stored in the world.
type Component interface {
	Type() ComponentType
}

// Listener receives synchronous notifications for component mutations.
// Both methods run after the store has been updated and before the mutating
// call returns.
type Listener interface {
	// ComponentSet reports that c is now attached to id. prev is the value it
	// replaced, or nil when the component was absent.
	ComponentSet(id EntityID, prev, c Component)
	// ComponentRemoved reports that c is no longer attached to id.
	ComponentRemoved(id EntityID, c Component)
}
