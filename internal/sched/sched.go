// Package sched owns the tick counter and spreads AI evaluation across ticks.
package sched

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"terminus-core/internal/ecs"
)

// Scheduler assigns every entity to one of numBatches batches. The batch is
// recomputed from the id whenever it is needed, so it is the same across
// saves without being stored.
type Scheduler struct {
	tick       uint64
	numBatches int
}

// New creates a scheduler at tick 0. numBatches below 1 is treated as 1.
func New(numBatches int) *Scheduler {
	return &Scheduler{numBatches: max(1, numBatches)}
}

// StableHash hashes an entity id independently of platform and process.
func StableHash(id ecs.EntityID) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return xxhash.Sum64(buf[:])
}

func (s *Scheduler) Tick() uint64 { return s.tick }

// SetTick restores the counter from a snapshot.
func (s *Scheduler) SetTick(t uint64) { s.tick = t }

func (s *Scheduler) NumBatches() int { return s.numBatches }

// Batch returns the batch of id.
func (s *Scheduler) Batch(id ecs.EntityID) int {
	return int(StableHash(id) % uint64(s.numBatches))
}

// Current is the batch evaluated on the current tick.
func (s *Scheduler) Current() int {
	return int(s.tick % uint64(s.numBatches))
}

// Due filters candidates down to the current batch, in ascending id order.
func (s *Scheduler) Due(candidates []ecs.EntityID) []ecs.EntityID {
	cur := s.Current()
	var out []ecs.EntityID
	for _, id := range candidates {
		if s.Batch(id) == cur {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Advance moves to the next tick and returns it.
func (s *Scheduler) Advance() uint64 {
	s.tick++
	return s.tick
}
