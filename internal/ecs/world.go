package ecs

import (
	"fmt"
	"iter"
	"slices"
)

type slot struct {
	t  ComponentType
	id EntityID
}

type subscription struct {
	l     Listener
	types map[ComponentType]bool
}

// World is the central entity registry and component store.
//
// Listeners are registered once with Subscribe and are invoked in
// registration order. A World is not safe for concurrent use.
type World struct {
	nextID     EntityID
	alive      map[EntityID]struct{}
	components map[ComponentType]map[EntityID]Component
	types      []ComponentType // sorted keys of components

	subs      []subscription
	notifying []slot
	debug     bool
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{
		nextID:     1,
		alive:      make(map[EntityID]struct{}),
		components: make(map[ComponentType]map[EntityID]Component),
	}
}

// SetDebug toggles fail-fast mode: validation errors panic instead of being
// returned.
func (w *World) SetDebug(on bool) { w.debug = on }

// Debug reports whether fail-fast mode is enabled.
func (w *World) Debug() bool { return w.debug }

// Subscribe registers l for mutations of the given component types. An empty
// type list subscribes to every type.
func (w *World) Subscribe(l Listener, types ...ComponentType) {
	var set map[ComponentType]bool
	if len(types) > 0 {
		set = make(map[ComponentType]bool, len(types))
		for _, t := range types {
			set[t] = true
		}
	}
	w.subs = append(w.subs, subscription{l: l, types: set})
}

// CreateEntity mints a new entity ID and marks it alive.
func (w *World) CreateEntity() EntityID {
	id := w.nextID
	w.nextID++
	w.alive[id] = struct{}{}
	return id
}

// CreateWithID revives a specific id, used when restoring a snapshot.
func (w *World) CreateWithID(id EntityID) error {
	if id == NilEntity {
		return w.invalid(fmt.Errorf("%w: nil entity id", ErrValidation))
	}
	if _, ok := w.alive[id]; ok {
		return w.invalid(fmt.Errorf("%w: entity %d already alive", ErrValidation, id))
	}
	w.alive[id] = struct{}{}
	if id >= w.nextID {
		w.nextID = id + 1
	}
	return nil
}

// NextID is the id the next CreateEntity call will return.
func (w *World) NextID() EntityID { return w.nextID }

// SetNextID moves the id counter forward. It never moves backwards.
func (w *World) SetNextID(id EntityID) {
	if id > w.nextID {
		w.nextID = id
	}
}

// DestroyEntity removes every component of id, firing remove notifications
// in ascending component type order, and then frees the id.
func (w *World) DestroyEntity(id EntityID) error {
	if _, ok := w.alive[id]; !ok {
		return nil
	}
	for _, t := range w.types {
		if _, ok := w.components[t][id]; !ok {
			continue
		}
		if err := w.Remove(id, t); err != nil {
			return err
		}
	}
	delete(w.alive, id)
	return nil
}

// Alive reports whether the entity is alive.
func (w *World) Alive(id EntityID) bool {
	_, ok := w.alive[id]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int { return len(w.alive) }

// Add attaches a component to an entity, replacing any value of the same type.
func (w *World) Add(id EntityID, c Component) error {
	if c == nil {
		return w.invalid(fmt.Errorf("%w: nil component for entity %d", ErrValidation, id))
	}
	if !w.Alive(id) {
		return w.invalid(fmt.Errorf("%w: add %d to dead entity %d", ErrValidation, c.Type(), id))
	}
	t := c.Type()
	s := slot{t: t, id: id}
	if w.isNotifying(s) {
		return w.invalid(fmt.Errorf("%w: add type %d on entity %d", ErrReentrant, t, id))
	}
	store := w.components[t]
	if store == nil {
		store = make(map[EntityID]Component)
		w.components[t] = store
		i, _ := slices.BinarySearch(w.types, t)
		w.types = slices.Insert(w.types, i, t)
	}
	prev := store[id]
	store[id] = c

	w.notifying = append(w.notifying, s)
	defer w.popNotifying()
	for _, sub := range w.subs {
		if sub.types == nil || sub.types[t] {
			sub.l.ComponentSet(id, prev, c)
		}
	}
	return nil
}

// Get returns the component of the given type for entity id, or nil.
func (w *World) Get(id EntityID, t ComponentType) Component {
	store := w.components[t]
	if store == nil {
		return nil
	}
	return store[id]
}

// Remove detaches a component from an entity. Removing an absent component
// is a no-op.
func (w *World) Remove(id EntityID, t ComponentType) error {
	store := w.components[t]
	c, ok := store[id]
	if !ok {
		return nil
	}
	s := slot{t: t, id: id}
	if w.isNotifying(s) {
		return w.invalid(fmt.Errorf("%w: remove type %d on entity %d", ErrReentrant, t, id))
	}
	delete(store, id)

	w.notifying = append(w.notifying, s)
	defer w.popNotifying()
	for _, sub := range w.subs {
		if sub.types == nil || sub.types[t] {
			sub.l.ComponentRemoved(id, c)
		}
	}
	return nil
}

// Has reports whether entity id has a component of the given type.
func (w *World) Has(id EntityID, t ComponentType) bool {
	_, ok := w.components[t][id]
	return ok
}

// Count returns how many entities carry a component of type t.
func (w *World) Count(t ComponentType) int { return len(w.components[t]) }

// Query yields, in ascending id order, every alive entity that has all listed
// component types. The sequence is lazy and may be ranged over repeatedly;
// each pass re-reads the store, and entities that stop matching mid-pass are
// skipped.
func (w *World) Query(types ...ComponentType) iter.Seq[EntityID] {
	if len(types) == 0 {
		_ = w.invalid(fmt.Errorf("%w: query with no component types", ErrValidation))
		return func(func(EntityID) bool) {}
	}
	return func(yield func(EntityID) bool) {
		// Use the smallest store as the candidate set.
		smallest := types[0]
		for _, t := range types[1:] {
			if len(w.components[t]) < len(w.components[smallest]) {
				smallest = t
			}
		}
		store := w.components[smallest]
		if len(store) == 0 {
			return
		}
		ids := make([]EntityID, 0, len(store))
		for id := range store {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !w.matches(id, types) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// QueryAll collects Query into a slice.
func (w *World) QueryAll(types ...ComponentType) []EntityID {
	return slices.Collect(w.Query(types...))
}

// Entities returns every alive entity id in ascending order.
func (w *World) Entities() []EntityID {
	ids := make([]EntityID, 0, len(w.alive))
	for id := range w.alive {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ComponentsOf returns the components attached to id in ascending type order.
func (w *World) ComponentsOf(id EntityID) []Component {
	var out []Component
	for _, t := range w.types {
		if c, ok := w.components[t][id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (w *World) matches(id EntityID, types []ComponentType) bool {
	if !w.Alive(id) {
		return false
	}
	for _, t := range types {
		if !w.Has(id, t) {
			return false
		}
	}
	return true
}

func (w *World) isNotifying(s slot) bool {
	return slices.Contains(w.notifying, s)
}

func (w *World) popNotifying() {
	w.notifying = w.notifying[:len(w.notifying)-1]
}
