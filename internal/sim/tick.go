package sim

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"terminus-core/internal/chunk"
	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/system"
	"terminus-core/internal/worldgen"
)

// TickReport summarises one AdvanceTick.
type TickReport struct {
	Tick      uint64 // the tick that was run
	Chunks    chunk.Stats
	Spawned   int
	Evaluated int
	Moved     int
	Attacks   int
	Kills     int
	Refreshed int  // viewers whose visibility was recomputed
	Dirty     bool // entity state changed since the last Save
}

// AdvanceTick runs one turn: the chunk window catches up with the focus,
// newly generated chunks are populated, the due AI batch acts in ascending
// id order, and viewers that moved get their visibility recomputed.
// Expected failures inside the tick degrade silently; an invariant breach
// halts the world and is returned wrapped in ErrInvariant.
func (w *World) AdvanceTick(ctx context.Context) (TickReport, error) {
	if err := w.checkRunning(); err != nil {
		return TickReport{}, err
	}
	rep := TickReport{Tick: w.sched.Tick()}

	w.pickFocus()
	if pos, ok := w.position(w.focus); ok {
		w.chunks.SetFocus(pos.X, pos.Y, pos.Z)
	}
	stats, err := w.chunks.Tick(ctx)
	rep.Chunks = stats
	if err != nil {
		if errors.Is(err, chunk.ErrDeterminismViolation) {
			return rep, w.halt(err)
		}
		return rep, err
	}
	for _, k := range stats.Loaded {
		rep.Spawned += w.populate(k)
	}

	due := w.sched.Due(w.awake())
	for _, id := range due {
		if !w.store.Alive(id) || !w.inActiveChunk(id) {
			continue
		}
		rep.Evaluated++
		out := w.env.Act(id, rep.Tick)
		switch {
		case out.Moved:
			rep.Moved++
			w.afterMove(id)
		case out.Attack != nil:
			rep.Attacks++
			if out.Attack.Killed {
				rep.Kills++
				w.forget(out.Attack.Defender)
			}
		}
	}

	terrainChanged := w.stale || len(stats.Loaded) > 0
	for id := range w.store.Query(component.CViewer, component.CPosition) {
		pos, _ := w.position(id)
		if last, seen := w.lastSeen[id]; seen && last == pos && !terrainChanged {
			continue
		}
		w.refreshViewer(id)
		rep.Refreshed++
	}
	w.stale = false

	if w.opts.Debug {
		if err := w.index.Verify(w.store); err != nil {
			return rep, w.halt(err)
		}
	}

	w.sched.Advance()
	rep.Dirty = w.dirty.Dirty()
	w.log.Debug("tick",
		zap.Uint64("tick", rep.Tick),
		zap.Int("evaluated", rep.Evaluated),
		zap.Int("moved", rep.Moved),
		zap.Int("attacks", rep.Attacks),
		zap.Int("spawned", rep.Spawned),
		zap.Int("chunks_loaded", len(stats.Loaded)))
	return rep, nil
}

// awake lists the AI actors standing in active chunks. Actors left on
// unloaded terrain keep their state and wait until their chunk returns.
func (w *World) awake() []ecs.EntityID {
	var out []ecs.EntityID
	for id := range w.store.Query(component.CAI, component.CPosition) {
		if w.inActiveChunk(id) {
			out = append(out, id)
		}
	}
	return out
}

func (w *World) inActiveChunk(id ecs.EntityID) bool {
	pos, ok := w.position(id)
	if !ok {
		return false
	}
	return w.chunks.State(w.chunks.KeyFor(pos.X, pos.Y, pos.Z)) == chunk.Active
}

// Resident lists the entities positioned inside chunk k in ascending id
// order.
func (w *World) Resident(k worldgen.Coord) []ecs.EntityID {
	s := w.chunks.ChunkSize()
	ox, oy := k.CX*s, k.CY*s
	ids := slices.Collect(w.index.QueryRect(ox, oy, ox+s-1, oy+s-1, k.Z))
	slices.Sort(ids)
	return ids
}

// populate spawns a chunk's camps and resources the first time it is
// generated. Later regenerations find the chunk in populated and leave the
// entities, which persist on their own, alone.
func (w *World) populate(k worldgen.Coord) int {
	if _, done := w.populated[k]; done {
		return 0
	}
	w.populated[k] = struct{}{}
	w.dirty.Mark()

	n := 0
	for _, f := range w.chunks.Features(k) {
		if f.Template == "" {
			continue
		}
		switch f.Kind {
		case worldgen.FeatureCamp, worldgen.FeatureResource:
		default:
			continue
		}
		if _, err := w.Spawn(f.Template, f.X, f.Y, k.Z); err != nil {
			var blocked *system.BlockedMoveError
			if !errors.As(err, &blocked) {
				w.log.Warn("feature spawn failed",
					zap.Stringer("chunk", k),
					zap.String("template", f.Template),
					zap.Error(err))
			}
			continue
		}
		n++
	}
	return n
}

// Populated reports whether a chunk's features have been spawned.
func (w *World) Populated(k worldgen.Coord) bool {
	_, ok := w.populated[k]
	return ok
}

// Run advances n ticks, stopping at the first error or when ctx is done.
func (w *World) Run(ctx context.Context, n int) (TickReport, error) {
	var last TickReport
	for range n {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		rep, err := w.AdvanceTick(ctx)
		if err != nil {
			return rep, err
		}
		last = rep
	}
	return last, nil
}

var _ system.Terrain = (*chunk.Manager)(nil)
