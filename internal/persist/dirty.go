package persist

import (
	"sync/atomic"

	"terminus-core/internal/ecs"
)

// DirtyTracker is an entity store listener that records whether anything
// changed since the last save.
type DirtyTracker struct {
	dirty atomic.Bool
}

var _ ecs.Listener = (*DirtyTracker)(nil)

func (d *DirtyTracker) ComponentSet(ecs.EntityID, ecs.Component, ecs.Component) { d.dirty.Store(true) }
func (d *DirtyTracker) ComponentRemoved(ecs.EntityID, ecs.Component)             { d.dirty.Store(true) }

// Mark flags a change the store does not see, such as a tick advance.
func (d *DirtyTracker) Mark() { d.dirty.Store(true) }

func (d *DirtyTracker) Dirty() bool { return d.dirty.Load() }

// Reset clears the flag after a successful save.
func (d *DirtyTracker) Reset() { d.dirty.Store(false) }
