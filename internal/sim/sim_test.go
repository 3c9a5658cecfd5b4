package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminus-core/assets"
	"terminus-core/internal/chunk"
	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/fov"
	"terminus-core/internal/gamemap"
	"terminus-core/internal/persist"
	"terminus-core/internal/system"
	"terminus-core/internal/template"
	"terminus-core/internal/worldgen"
)

func testOptions(seed int64) Options {
	return Options{
		Seed:       seed,
		WorldID:    "test-world",
		ChunkSize:  16,
		Chunks:     chunk.Config{Radius: 1, Hysteresis: 1},
		CellSize:   8,
		FOVRadius:  6,
		NumBatches: 4,
		Debug:      true,
	}
}

func newTestWorld(t *testing.T, opts Options, store persist.Store) *World {
	t.Helper()
	if store == nil {
		store = persist.NewMemoryStore()
	}
	w, err := New(opts, assets.Builtin(), store, nil)
	require.NoError(t, err)
	return w
}

// withPlayer loads the chunks around the origin and spawns a player on the
// nearest open tile.
func withPlayer(t *testing.T, w *World) ecs.EntityID {
	t.Helper()
	ctx := context.Background()
	w.SetFocus(0, 0, 0)
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	spot, ok := w.NearestWalkable(0, 0, 0, 12)
	require.True(t, ok, "no walkable tile near the origin")
	id, err := w.SpawnPlayer("", spot.X, spot.Y, spot.Z)
	require.NoError(t, err)
	return id
}

func TestBlockedMoveLeavesPositionUnchanged(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	p := withPlayer(t, w)
	start, _ := w.position(p)
	require.NoError(t, w.SetTile(start.X+1, start.Y, start.Z, gamemap.TileWall))

	_, err := w.MoveEntity(p, 1, 0)
	var blocked *system.BlockedMoveError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, system.BlockImpassable, blocked.Reason)
	got, _ := w.position(p)
	assert.Equal(t, start, got)
}

func TestSpawnPlayerTakesFocusAndSees(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	p := withPlayer(t, w)
	assert.Equal(t, p, w.Focus())

	grid, ok := w.Visibility(p)
	require.True(t, ok)
	assert.Positive(t, grid.VisibleCount())

	view, err := w.QueryView(p, 0)
	require.NoError(t, err)
	assert.Contains(t, view.Entities, p)
	assert.True(t, view.Visible.Has(view.Origin.X, view.Origin.Y))
	assert.Equal(t, grid.VisibleCount(), len(view.Tiles), "a query with the viewer's radius sees what its grid shows")
}

func TestViewerInUnloadedTerrainSeesNothing(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	withPlayer(t, w)
	far, err := w.SpawnPlayer("", 5000, 5000, 0)
	require.NoError(t, err)
	_, err = w.AdvanceTick(context.Background())
	require.NoError(t, err)

	_, loaded := w.Tile(5001, 5000, 0)
	require.False(t, loaded)
	grid, ok := w.Visibility(far)
	require.True(t, ok)
	assert.Equal(t, fov.Unseen, grid.At(5001, 5000, 0).State)
	assert.Equal(t, fov.Unseen, grid.At(5000, 5000, 0).State)
	assert.Zero(t, grid.VisibleCount())
}

func TestRememberedTilesSurviveChunkEviction(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	p := withPlayer(t, w)
	pos, _ := w.position(p)
	grid, ok := w.Visibility(p)
	require.True(t, ok)
	seen := grid.At(pos.X, pos.Y, pos.Z)
	require.Equal(t, fov.Visible, seen.State)

	require.NoError(t, w.Entities().Add(p, component.Position{X: pos.X + 400, Y: pos.Y, Z: pos.Z}))
	_, err := w.AdvanceTick(context.Background())
	require.NoError(t, err)

	_, loaded := w.Tile(pos.X, pos.Y, pos.Z)
	require.False(t, loaded, "the starting chunk should have been evicted")
	got := grid.At(pos.X, pos.Y, pos.Z)
	assert.Equal(t, fov.Remembered, got.State)
	assert.Equal(t, seen.Tile, got.Tile)
}

func TestSpawnRejectsUnknownTemplateAndBlockedTile(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	p := withPlayer(t, w)
	pos, _ := w.position(p)

	_, err := w.Spawn("no_such_thing", pos.X, pos.Y, pos.Z)
	require.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = w.Spawn("crystal_crawl", pos.X, pos.Y, pos.Z)
	var blocked *system.BlockedMoveError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, p, blocked.Blocker)

	_, err = w.Spawn("hyperflask", pos.X, pos.Y, pos.Z)
	require.NoError(t, err, "items do not block")
}

func TestUnknownEntity(t *testing.T) {
	w := newTestWorld(t, testOptions(42), nil)
	_, err := w.MoveEntity(999, 1, 0)
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = w.ApplyAction(999, system.Wait())
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = w.QueryView(999, 4)
	require.ErrorIs(t, err, ErrUnknownEntity)
}

func TestChunksArePopulatedOnce(t *testing.T) {
	w := newTestWorld(t, testOptions(7), nil)
	ctx := context.Background()
	w.SetFocus(0, 0, 0)
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	for _, k := range w.Chunks().Active() {
		assert.True(t, w.Populated(k), "chunk %v not populated", k)
	}

	// Leave and come back: the chunks regenerate but nothing respawns.
	w.SetFocus(2000, 0, 0)
	_, err = w.AdvanceTick(ctx)
	require.NoError(t, err)
	before := w.Entities().Len()
	w.SetFocus(0, 0, 0)
	rep, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Chunks.Loaded)
	assert.Zero(t, rep.Spawned)
	assert.Equal(t, before, w.Entities().Len())
}

func TestEveryAIEvaluatedOncePerCycle(t *testing.T) {
	opts := testOptions(11)
	w := newTestWorld(t, opts, nil)
	ctx := context.Background()
	w.SetFocus(0, 0, 0)
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	for _, id := range w.Entities().QueryAll(component.CAI) {
		require.NoError(t, w.Entities().DestroyEntity(id))
	}

	near := 0
	for y := 2; y < 14 && near < 12; y++ {
		for x := 2; x < 14 && near < 12; x++ {
			if _, err := w.Spawn("fractal_golem", x, y, 0); err == nil {
				near++
			}
		}
	}
	require.Equal(t, 12, near)
	for i := 0; i < 5; i++ {
		_, err := w.Spawn("fractal_golem", 1000+i*3, 1000, 0)
		require.NoError(t, err)
	}

	total := 0
	for range opts.NumBatches {
		rep, err := w.AdvanceTick(ctx)
		require.NoError(t, err)
		total += rep.Evaluated
	}
	assert.Equal(t, near, total)
}

func TestAIOnUnloadedTerrainWaits(t *testing.T) {
	opts := testOptions(11)
	w := newTestWorld(t, opts, nil)
	ctx := context.Background()
	w.SetFocus(0, 0, 0)
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	for _, id := range w.Entities().QueryAll(component.CAI) {
		require.NoError(t, w.Entities().DestroyEntity(id))
	}

	far, err := w.Spawn("neon_specter", 4000, 4000, 0)
	require.NoError(t, err)
	k := w.Chunks().KeyFor(4000, 4000, 0)
	require.Equal(t, chunk.Unloaded, w.Chunks().State(k))
	assert.Equal(t, []ecs.EntityID{far}, w.Resident(k))

	ai := w.Entities().Get(far, component.CAI)
	evaluated := 0
	for range 2 * opts.NumBatches {
		rep, err := w.AdvanceTick(ctx)
		require.NoError(t, err)
		evaluated += rep.Evaluated
	}
	assert.Zero(t, evaluated)
	assert.Equal(t, ai, w.Entities().Get(far, component.CAI))
	assert.Equal(t, component.Position{X: 4000, Y: 4000}, w.Entities().Get(far, component.CPosition))
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() *persist.EntitySnapshot {
		w := newTestWorld(t, testOptions(99), nil)
		p := withPlayer(t, w)
		ctx := context.Background()
		for i := 0; i < 40; i++ {
			dx := []int{1, 0, -1, 0}[i%4]
			dy := []int{0, 1, 0, -1}[(i/4)%4]
			_, _ = w.ApplyAction(p, system.MoveBy(dx, dy))
			_, err := w.AdvanceTick(ctx)
			require.NoError(t, err)
		}
		snap, err := w.Snapshot()
		require.NoError(t, err)
		return snap
	}
	assert.Equal(t, run(), run())
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	store := persist.NewMemoryStore()
	opts := testOptions(5)
	opts.SnapshotPath = filepath.Join(t.TempDir(), "world.snap.zst")
	w := newTestWorld(t, opts, store)
	p := withPlayer(t, w)
	ctx := context.Background()
	_, err := w.Run(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, w.Save(ctx))
	want, err := w.Snapshot()
	require.NoError(t, err)

	fresh := newTestWorld(t, testOptions(5), store)
	require.NoError(t, fresh.Restore(ctx))
	got, err := fresh.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, p, fresh.Focus())

	_, err = os.Stat(opts.SnapshotPath)
	require.NoError(t, err)
	fromFile := newTestWorld(t, testOptions(5), nil)
	require.NoError(t, fromFile.RestoreFile(opts.SnapshotPath))
	got, err = fromFile.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want.Entities, got.Entities)

	// The restored world keeps running.
	_, err = fresh.AdvanceTick(ctx)
	require.NoError(t, err)
	_, ok := fresh.Visibility(p)
	assert.True(t, ok)
}

func TestLoadRewindsChunksAndTerrain(t *testing.T) {
	w := newTestWorld(t, testOptions(7), nil)
	ctx := context.Background()
	empty, err := w.Snapshot()
	require.NoError(t, err)

	w.SetFocus(0, 0, 0)
	first, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	original, ok := w.Tile(3, 3, 0)
	require.True(t, ok)
	dug := gamemap.TileLava
	if original == dug {
		dug = gamemap.TileIce
	}
	require.NoError(t, w.SetTile(3, 3, 0, dug))

	require.NoError(t, w.Load(empty))
	assert.Zero(t, w.Chunks().ActiveCount())
	assert.Zero(t, w.Entities().Len())
	assert.False(t, w.Populated(w.Chunks().KeyFor(0, 0, 0)))

	w.SetFocus(0, 0, 0)
	again, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Spawned, again.Spawned)
	assert.True(t, w.Populated(w.Chunks().KeyFor(0, 0, 0)))
	tile, ok := w.Tile(3, 3, 0)
	require.True(t, ok)
	assert.Equal(t, original, tile)
}

func TestRestoredViewerStartsWithFreshFog(t *testing.T) {
	w := newTestWorld(t, testOptions(5), persist.NewMemoryStore())
	p := withPlayer(t, w)
	ctx := context.Background()
	pos, _ := w.position(p)
	require.NoError(t, w.Entities().Add(p, component.Position{X: pos.X + 400, Y: pos.Y, Z: pos.Z}))
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	grid, ok := w.Visibility(p)
	require.True(t, ok)
	require.Equal(t, fov.Remembered, grid.At(pos.X, pos.Y, pos.Z).State)
	require.NoError(t, w.Save(ctx))

	require.NoError(t, w.Restore(ctx))
	_, ok = w.Visibility(p)
	assert.False(t, ok)
	_, err = w.AdvanceTick(ctx)
	require.NoError(t, err)
	grid, ok = w.Visibility(p)
	require.True(t, ok)
	assert.Equal(t, fov.Unseen, grid.At(pos.X, pos.Y, pos.Z).State)
}

func TestRestoreErrors(t *testing.T) {
	ctx := context.Background()
	w := newTestWorld(t, testOptions(5), nil)
	require.ErrorIs(t, w.Restore(ctx), persist.ErrNoSnapshot)

	snap, err := w.Snapshot()
	require.NoError(t, err)
	other := newTestWorld(t, testOptions(6), nil)
	require.ErrorIs(t, other.Load(snap), ErrSeedMismatch)
}

// flakyGen flips a tile whenever a chunk is generated a second time.
type flakyGen struct {
	inner *worldgen.Generator
	seen  map[worldgen.Coord]bool
}

func (f *flakyGen) ChunkSize() int { return f.inner.ChunkSize() }

func (f *flakyGen) Generate(c worldgen.Coord) *worldgen.Result {
	res := f.inner.Generate(c)
	if f.seen[c] {
		res.Terrain.Set(0, 0, res.Terrain.At(0, 0)+1)
	}
	f.seen[c] = true
	return res
}

func TestDeterminismViolationHaltsWorld(t *testing.T) {
	opts := testOptions(3)
	opts.Chunks = chunk.Config{Radius: 0, VerifyDeterminism: true}
	opts.Generator = &flakyGen{inner: worldgen.New(3, worldgen.Options{ChunkSize: 16}), seen: map[worldgen.Coord]bool{}}
	w := newTestWorld(t, opts, nil)
	ctx := context.Background()

	w.SetFocus(0, 0, 0)
	_, err := w.AdvanceTick(ctx)
	require.NoError(t, err)
	w.SetFocus(500, 0, 0)
	_, err = w.AdvanceTick(ctx)
	require.NoError(t, err)
	w.SetFocus(0, 0, 0)
	_, err = w.AdvanceTick(ctx)
	require.ErrorIs(t, err, ErrInvariant)
	require.ErrorIs(t, err, chunk.ErrDeterminismViolation)

	_, err = w.AdvanceTick(ctx)
	require.ErrorIs(t, err, ErrHalted)
	_, err = w.Spawn("crystal_crawl", 1, 1, 0)
	require.ErrorIs(t, err, ErrHalted)
	require.Error(t, w.Halted())
}

func TestReloadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates: []\n"), 0o644))
	src, err := template.NewReloadable(assets.Builtin(), path)
	require.NoError(t, err)

	w, err := New(testOptions(1), src, persist.NewMemoryStore(), nil)
	require.NoError(t, err)
	_, err = w.Spawn("glass_moth", 0, 0, 0)
	require.ErrorIs(t, err, ErrUnknownTemplate)

	require.NoError(t, os.WriteFile(path, []byte(`templates:
  - id: glass_moth
    kind: monster
    glyph: "🦋"
    hp: 3
    behavior: passive
`), 0o644))
	require.NoError(t, w.ReloadTemplates())
	_, err = w.Spawn("glass_moth", 0, 0, 0)
	require.NoError(t, err)
}
