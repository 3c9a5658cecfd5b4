package chunk

import (
	"context"
	"errors"
	"testing"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/persist"
	"terminus-core/internal/worldgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	saved    map[Key][]persist.Override
	failSave bool
	failLoad bool
	saves    int
}

func newFakeStore() *fakeStore { return &fakeStore{saved: make(map[Key][]persist.Override)} }

func (s *fakeStore) LoadOverrides(_ context.Context, k worldgen.Coord) ([]persist.Override, error) {
	if s.failLoad {
		return nil, persist.ErrPersistence
	}
	return s.saved[k], nil
}

func (s *fakeStore) SaveOverrides(_ context.Context, k worldgen.Coord, ov []persist.Override) error {
	s.saves++
	if s.failSave {
		return persist.ErrPersistence
	}
	s.saved[k] = ov
	return nil
}

func newManager(cfg Config, store Store) *Manager {
	return New(cfg, worldgen.New(42, worldgen.Options{ChunkSize: 16}), store, nil)
}

func TestActiveSetCoversRadius(t *testing.T) {
	m := newManager(Config{Radius: 1}, nil)
	m.SetFocus(0, 0, 0)
	st, err := m.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9, st.Generated)
	assert.Equal(t, 9, m.ActiveCount())
	assert.Equal(t, Key{}, st.Loaded[0], "focus chunk loads first")
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			assert.Equal(t, Active, m.State(Key{CX: dx, CY: dy}))
		}
	}
	assert.Equal(t, Unloaded, m.State(Key{CX: 2}))
}

func TestFocusUsesFloorDivision(t *testing.T) {
	m := newManager(Config{}, nil)
	m.SetFocus(-1, -16, -2)
	assert.Equal(t, Key{CX: -1, CY: -1, Z: -2}, m.Focus())
}

func TestMemoryBoundOverLongWalk(t *testing.T) {
	for _, cfg := range []Config{
		{Radius: 2, Hysteresis: 1},
		{Radius: 2, Hysteresis: 3, GenBudget: 1},
		{Radius: 1, Hysteresis: 5, GenBudget: 2},
	} {
		m := newManager(cfg, newFakeStore())
		ctx := context.Background()
		for step := 0; step < 10000; step++ {
			m.SetFocus(step, 0, 0)
			_, err := m.Tick(ctx)
			require.NoError(t, err)
			require.LessOrEqual(t, m.ActiveCount(), m.MaxActive(), "step %d cfg %+v", step, cfg)
		}
	}
}

func TestHysteresisKeepsRecentChunks(t *testing.T) {
	m := newManager(Config{Radius: 1, Hysteresis: 1}, nil)
	ctx := context.Background()
	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)

	// One chunk east: column -1 is at distance 2 = R+H and may stay, but
	// the bound forces room for the new column.
	m.SetFocus(16, 0, 0)
	st, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Generated)
	assert.Equal(t, 3, st.Evicted)
	assert.Equal(t, 9, m.ActiveCount())

	// Back to the start: nothing beyond R+H, column 2 is evicted only to make room.
	m.SetFocus(0, 0, 0)
	st, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Generated)
	assert.LessOrEqual(t, m.ActiveCount(), 9)
}

func TestBudgetDefersGeneration(t *testing.T) {
	m := newManager(Config{Radius: 1, GenBudget: 2}, nil)
	ctx := context.Background()
	m.SetFocus(0, 0, 0)

	st, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Generated)
	assert.Equal(t, 7, st.Pending)
	assert.Equal(t, Active, m.State(Key{}), "nearest chunk first")

	for i := 0; i < 4; i++ {
		_, err = m.Tick(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 9, m.ActiveCount())
}

func TestChangingLevelEvictsOldLevel(t *testing.T) {
	m := newManager(Config{Radius: 1, Hysteresis: 4}, nil)
	ctx := context.Background()
	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)

	m.SetFocus(0, 0, -1)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	for _, k := range m.Active() {
		assert.Equal(t, -1, k.Z)
	}
}

func TestOverridesSurviveEviction(t *testing.T) {
	store := newFakeStore()
	m := newManager(Config{Radius: 0}, store)
	ctx := context.Background()

	m.SetFocus(5, 5, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)
	require.NoError(t, m.SetTile(5, 5, 0, gamemap.TileDoor))
	tile, ok := m.Tile(5, 5, 0)
	require.True(t, ok)
	require.Equal(t, gamemap.TileDoor, tile)

	m.SetFocus(100, 5, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	_, ok = m.Tile(5, 5, 0)
	require.False(t, ok)
	require.Equal(t, []persist.Override{{X: 5, Y: 5, Tile: gamemap.TileDoor}}, store.saved[Key{}])

	m.SetFocus(5, 5, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	tile, _ = m.Tile(5, 5, 0)
	assert.Equal(t, gamemap.TileDoor, tile)
}

func TestCleanChunksAreNotWritten(t *testing.T) {
	store := newFakeStore()
	m := newManager(Config{Radius: 1}, store)
	ctx := context.Background()
	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)
	m.SetFocus(1000, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, store.saves)
}

func TestPersistenceFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failSave = true
	m := newManager(Config{Radius: 0}, store)
	ctx := context.Background()

	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)
	original, _ := m.Tile(3, 3, 0)
	require.NoError(t, m.SetTile(3, 3, 0, gamemap.TileLava))
	require.Error(t, m.FlushAll(ctx))

	m.SetFocus(500, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err, "failed flush on eviction must not surface")

	store.failSave = false
	store.failLoad = true
	m.SetFocus(0, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	tile, ok := m.Tile(3, 3, 0)
	require.True(t, ok)
	assert.Equal(t, original, tile, "overrides lost, terrain regenerated")
}

func TestSetTileOutsideActiveSet(t *testing.T) {
	m := newManager(Config{Radius: 0}, nil)
	err := m.SetTile(0, 0, 0, gamemap.TileFloor)
	require.True(t, errors.Is(err, ErrNotLoaded))
}

func TestFeaturesOfActiveChunk(t *testing.T) {
	m := newManager(Config{Radius: 0}, nil)
	m.SetFocus(0, 0, -1)
	_, err := m.Tick(context.Background())
	require.NoError(t, err)
	want := worldgen.New(42, worldgen.Options{ChunkSize: 16}).Generate(Key{Z: -1}).Features
	assert.Equal(t, want, m.Features(Key{Z: -1}))
	assert.Nil(t, m.Features(Key{CX: 9}))
}

// flakyGen flips a tile on every call after the first.
type flakyGen struct {
	inner *worldgen.Generator
	calls int
}

func (f *flakyGen) ChunkSize() int { return f.inner.ChunkSize() }

func (f *flakyGen) Generate(c worldgen.Coord) *worldgen.Result {
	res := f.inner.Generate(c)
	f.calls++
	if f.calls > 1 {
		res.Terrain.Set(0, 0, res.Terrain.At(0, 0)+1)
	}
	return res
}

func TestDeterminismViolationIsFatal(t *testing.T) {
	gen := &flakyGen{inner: worldgen.New(42, worldgen.Options{ChunkSize: 16})}
	m := New(Config{Radius: 0, VerifyDeterminism: true}, gen, nil, nil)
	ctx := context.Background()

	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)

	m.SetFocus(100, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)

	m.SetFocus(0, 0, 0)
	_, err = m.Tick(ctx)
	require.ErrorIs(t, err, ErrDeterminismViolation)
}

func TestDeterministicRegenerationPasses(t *testing.T) {
	m := New(Config{Radius: 1, VerifyDeterminism: true, DigestCache: 4},
		worldgen.New(7, worldgen.Options{ChunkSize: 16}), nil, nil)
	ctx := context.Background()
	for _, x := range []int{0, 200, 0, 200, 0} {
		m.SetFocus(x, 0, 0)
		_, err := m.Tick(ctx)
		require.NoError(t, err)
	}
}

func TestMasksFollowOverridesAcrossBorders(t *testing.T) {
	store := newFakeStore()
	m := newManager(Config{Radius: 1}, store)
	ctx := context.Background()
	m.SetFocus(0, 0, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)

	// (15,3) is the east edge of chunk 0, (16,3) the west edge of chunk 1.
	require.NoError(t, m.SetTile(15, 3, 0, gamemap.TileLava))
	require.NoError(t, m.SetTile(16, 3, 0, gamemap.TileLava))
	const east, west = 2, 8
	assert.NotZero(t, m.Chunk(Key{}).Mask4[3*16+15]&east)
	assert.NotZero(t, m.Chunk(Key{CX: 1}).Mask4[3*16]&west)

	// Leave, come back: the overrides reload and the masks agree again.
	m.SetFocus(800, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	m.SetFocus(0, 0, 0)
	_, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.NotZero(t, m.Chunk(Key{}).Mask4[3*16+15]&east)
	assert.NotZero(t, m.Chunk(Key{CX: 1}).Mask4[3*16]&west)
}

func TestResetDropsUnsavedOverrides(t *testing.T) {
	store := newFakeStore()
	m := newManager(Config{Radius: 0}, store)
	ctx := context.Background()

	m.SetFocus(5, 5, 0)
	_, err := m.Tick(ctx)
	require.NoError(t, err)
	before, _ := m.Tile(6, 5, 0)
	require.NoError(t, m.SetTile(5, 5, 0, gamemap.TileDoor))
	require.NoError(t, m.FlushAll(ctx))
	require.NoError(t, m.SetTile(6, 5, 0, gamemap.TileDoor))
	saves := store.saves

	m.Reset()
	assert.Zero(t, m.ActiveCount())
	assert.Equal(t, Unloaded, m.State(Key{}))
	assert.Equal(t, saves, store.saves)

	st, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Key{{}}, st.Loaded)
	tile, _ := m.Tile(5, 5, 0)
	assert.Equal(t, gamemap.TileDoor, tile)
	tile, _ = m.Tile(6, 5, 0)
	assert.Equal(t, before, tile)
}
