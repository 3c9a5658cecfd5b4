package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"terminus-core/internal/persist"
	"terminus-core/internal/worldgen"
)

// Snapshot copies every entity at the current tick boundary. The result
// shares nothing with the live world and may be handed to another
// goroutine.
func (w *World) Snapshot() (*persist.EntitySnapshot, error) {
	records, err := persist.CaptureEntities(w.store)
	if err != nil {
		return nil, err
	}
	populated := make([][3]int, 0, len(w.populated))
	for k := range w.populated {
		populated = append(populated, [3]int{k.CX, k.CY, k.Z})
	}
	slices.SortFunc(populated, func(a, b [3]int) int {
		return slices.Compare(a[:], b[:])
	})
	return &persist.EntitySnapshot{
		Header:    persist.Header{Version: persist.SchemaVersion, Kind: persist.KindEntities},
		WorldID:   w.id,
		Seed:      w.opts.Seed,
		Tick:      w.sched.Tick(),
		NextID:    uint64(w.store.NextID()),
		Populated: populated,
		Entities:  records,
	}, nil
}

// Save flushes dirty chunk overrides, then writes the entity snapshot to
// the store and, when a snapshot path is configured, to the export file
// concurrently.
func (w *World) Save(ctx context.Context) error {
	if err := w.checkRunning(); err != nil {
		return err
	}
	snap, err := w.Snapshot()
	if err != nil {
		return err
	}
	if err := w.chunks.FlushAll(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.persist.SaveEntitySnapshot(gctx, snap)
	})
	if path := w.opts.SnapshotPath; path != "" {
		g.Go(func() error {
			return persist.ExportSnapshot(path, snap)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.dirty.Reset()
	w.log.Info("saved",
		zap.Uint64("tick", snap.Tick),
		zap.Int("entities", len(snap.Entities)),
		zap.Int("populated_chunks", len(snap.Populated)))
	return nil
}

// Restore replaces every entity with the snapshot held by the store. It
// returns persist.ErrNoSnapshot when there is none.
func (w *World) Restore(ctx context.Context) error {
	snap, err := w.persist.LoadEntitySnapshot(ctx)
	if err != nil {
		return err
	}
	return w.Load(snap)
}

// RestoreFile replaces every entity with an exported snapshot file.
func (w *World) RestoreFile(path string) error {
	snap, err := persist.ImportSnapshot(path)
	if err != nil {
		return err
	}
	return w.Load(snap)
}

// Load installs snap. Active chunks are dropped along with their unsaved
// overrides; terrain regenerates from the seed, which must match, and
// chunks missing from the snapshot's populated set are populated again.
// Visibility memory is not part of a snapshot, so every viewer starts with
// an empty fog grid.
func (w *World) Load(snap *persist.EntitySnapshot) error {
	if err := w.checkRunning(); err != nil {
		return err
	}
	if snap.Seed != w.opts.Seed {
		return fmt.Errorf("%w: snapshot seed %d, world seed %d", ErrSeedMismatch, snap.Seed, w.opts.Seed)
	}
	w.resetEntities()
	if err := persist.RestoreEntities(w.store, snap.Entities, snap.NextID); err != nil {
		w.resetEntities()
		return errors.Join(persist.ErrPersistence, err)
	}
	clear(w.populated)
	for _, c := range snap.Populated {
		w.populated[worldgen.Coord{CX: c[0], CY: c[1], Z: c[2]}] = struct{}{}
	}
	if snap.WorldID != "" {
		w.id = snap.WorldID
	}
	w.sched.SetTick(snap.Tick)
	w.chunks.Reset()
	w.stale = true
	w.pickFocus()
	if pos, ok := w.position(w.focus); ok {
		w.chunks.SetFocus(pos.X, pos.Y, pos.Z)
	}
	w.dirty.Reset()
	w.log.Info("restored",
		zap.Uint64("tick", snap.Tick),
		zap.Int("entities", len(snap.Entities)))
	return nil
}
