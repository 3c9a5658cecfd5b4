package chunk

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/mathx"
	"terminus-core/internal/persist"
	"terminus-core/internal/worldgen"
)

// Generator produces base terrain. *worldgen.Generator satisfies it.
type Generator interface {
	Generate(c worldgen.Coord) *worldgen.Result
	ChunkSize() int
}

// Store is the part of the persistence collaborator the manager uses.
type Store interface {
	LoadOverrides(ctx context.Context, key worldgen.Coord) ([]persist.Override, error)
	SaveOverrides(ctx context.Context, key worldgen.Coord, overrides []persist.Override) error
}

// Config controls the active window.
type Config struct {
	// Radius is R: every chunk within Chebyshev distance R of the focus
	// chunk is needed.
	Radius int
	// Hysteresis keeps chunks up to R+Hysteresis away active while the
	// active bound allows it.
	Hysteresis int
	// GenBudget caps chunks generated per Tick. Zero or less means no cap.
	GenBudget int
	// VerifyDeterminism remembers digests of generated chunks and checks
	// regenerations against them.
	VerifyDeterminism bool
	// DigestCache bounds the remembered digests.
	DigestCache int
}

// Stats reports what one Tick did.
type Stats struct {
	Generated int
	Evicted   int
	Pending   int
	// Loaded lists chunks that became active this tick, nearest first.
	Loaded []Key
}

// Manager owns the active chunk set.
type Manager struct {
	cfg   Config
	gen   Generator
	store Store
	log   *zap.Logger
	tiles gamemap.TileTable

	size   int
	focus  Key
	active map[Key]*Chunk
	states map[Key]State

	digests     map[Key]uint64
	digestOrder []Key
}

// New creates a manager. store may be nil, in which case overrides live only
// as long as their chunk stays active.
func New(cfg Config, gen Generator, store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}
	if cfg.Hysteresis < 0 {
		cfg.Hysteresis = 0
	}
	if cfg.DigestCache <= 0 {
		cfg.DigestCache = 4096
	}
	return &Manager{
		cfg:     cfg,
		gen:     gen,
		store:   store,
		log:     log.Named("chunk"),
		tiles:   gamemap.DefaultTiles,
		size:    gen.ChunkSize(),
		active:  make(map[Key]*Chunk),
		states:  make(map[Key]State),
		digests: make(map[Key]uint64),
	}
}

// SetTiles replaces the tile table used for connected-tile masks.
func (m *Manager) SetTiles(t gamemap.TileTable) { m.tiles = t }

// ChunkSize returns the edge length of a chunk in tiles.
func (m *Manager) ChunkSize() int { return m.size }

// MaxActive is the bound on the active set, (2R+1)^2.
func (m *Manager) MaxActive() int {
	side := 2*m.cfg.Radius + 1
	return side * side
}

// KeyFor returns the chunk containing a world tile.
func (m *Manager) KeyFor(x, y, z int) Key {
	return Key{CX: mathx.FloorDiv(x, m.size), CY: mathx.FloorDiv(y, m.size), Z: z}
}

// SetFocus moves the focus to the chunk containing world tile (x, y, z).
// Loading and eviction happen on the next Tick.
func (m *Manager) SetFocus(x, y, z int) { m.focus = m.KeyFor(x, y, z) }

func (m *Manager) Focus() Key { return m.focus }

// distance is the Chebyshev distance between chunk keys; other levels are
// infinitely far away.
func distance(a, b Key) int {
	if a.Z != b.Z {
		return int(^uint(0) >> 1)
	}
	return max(mathx.AbsInt(a.CX-b.CX), mathx.AbsInt(a.CY-b.CY))
}

// Tick evicts chunks that fell out of range and generates needed ones,
// nearest first, up to the budget. Persistence failures are logged and
// absorbed; only ErrDeterminismViolation is returned.
func (m *Manager) Tick(ctx context.Context) (Stats, error) {
	var st Stats
	keep := m.cfg.Radius + m.cfg.Hysteresis

	for _, k := range m.Active() {
		if distance(k, m.focus) > keep {
			m.evict(ctx, k)
			st.Evicted++
		}
	}

	budget := m.cfg.GenBudget
	for _, k := range m.needed() {
		if _, ok := m.active[k]; ok {
			continue
		}
		if m.cfg.GenBudget > 0 && budget == 0 {
			st.Pending++
			continue
		}
		if len(m.active) >= m.MaxActive() {
			victim, ok := m.furthest()
			if !ok {
				return st, fmt.Errorf("chunk: active set full with no chunk outside radius")
			}
			m.evict(ctx, victim)
			st.Evicted++
		}
		if err := m.load(ctx, k); err != nil {
			return st, err
		}
		budget--
		st.Generated++
		st.Loaded = append(st.Loaded, k)
	}

	if st.Generated > 0 || st.Evicted > 0 {
		m.log.Debug("chunk tick",
			zap.Stringer("focus", m.focus),
			zap.Int("generated", st.Generated),
			zap.Int("evicted", st.Evicted),
			zap.Int("pending", st.Pending),
			zap.Int("active", len(m.active)))
	}
	return st, nil
}

// needed lists every chunk within R of the focus, nearest first, ties broken
// by key so the order is deterministic.
func (m *Manager) needed() []Key {
	r := m.cfg.Radius
	out := make([]Key, 0, m.MaxActive())
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, Key{CX: m.focus.CX + dx, CY: m.focus.CY + dy, Z: m.focus.Z})
		}
	}
	slices.SortStableFunc(out, func(a, b Key) int {
		return distance(a, m.focus) - distance(b, m.focus)
	})
	return out
}

// furthest returns the active chunk furthest from the focus among those
// outside R.
func (m *Manager) furthest() (Key, bool) {
	var (
		best  Key
		bestD = -1
	)
	for _, k := range m.Active() {
		d := distance(k, m.focus)
		if d > m.cfg.Radius && d > bestD {
			best, bestD = k, d
		}
	}
	return best, bestD >= 0
}

func (m *Manager) load(ctx context.Context, k Key) error {
	m.states[k] = Generating
	res := m.gen.Generate(k)

	if m.cfg.VerifyDeterminism {
		d := res.Digest()
		if prev, ok := m.digests[k]; ok && prev != d {
			delete(m.states, k)
			m.log.Error("regenerated chunk differs",
				zap.Stringer("chunk", k),
				zap.Uint64("want", prev),
				zap.Uint64("got", d))
			return fmt.Errorf("%w: chunk %v digest %x, previously %x", ErrDeterminismViolation, k, d, prev)
		}
		m.rememberDigest(k, d)
	}

	c := &Chunk{
		Key:       k,
		Biome:     res.Biome,
		Terrain:   res.Terrain.Clone(),
		Mask4:     res.Mask4,
		Mask8:     res.Mask8,
		Features:  res.Features,
		overrides: make(map[int]gamemap.TileID),
	}

	if m.store != nil {
		ov, err := m.store.LoadOverrides(ctx, k)
		if err != nil {
			m.log.Warn("overrides unavailable, using generated terrain",
				zap.Stringer("chunk", k), zap.Error(err))
			ov = nil
		}
		for _, o := range ov {
			if !c.Terrain.InBounds(o.X, o.Y) {
				continue
			}
			c.Terrain.Set(o.X, o.Y, o.Tile)
			c.overrides[o.Y*c.Terrain.Width+o.X] = o.Tile
		}
	}

	m.active[k] = c
	m.states[k] = Active
	ox, oy := k.CX*m.size, k.CY*m.size
	for i := range c.overrides {
		m.refreshMasks(ox+i%m.size, oy+i/m.size, k.Z)
	}
	m.refreshBorder(c)
	m.log.Debug("chunk generated",
		zap.Stringer("chunk", k),
		zap.Stringer("biome", res.Biome),
		zap.Int("overrides", len(c.overrides)))
	return nil
}

func (m *Manager) rememberDigest(k Key, d uint64) {
	if _, ok := m.digests[k]; !ok {
		m.digestOrder = append(m.digestOrder, k)
	}
	m.digests[k] = d
	for len(m.digestOrder) > m.cfg.DigestCache {
		delete(m.digests, m.digestOrder[0])
		m.digestOrder = m.digestOrder[1:]
	}
}

// evict flushes dirty overrides and drops the chunk. A failed flush loses
// the overrides; the terrain itself can always be regenerated.
func (m *Manager) evict(ctx context.Context, k Key) {
	c, ok := m.active[k]
	if !ok {
		return
	}
	m.states[k] = Evicting
	if err := m.flush(ctx, c); err != nil {
		m.log.Warn("dropping chunk overrides",
			zap.Stringer("chunk", k),
			zap.Int("overrides", len(c.overrides)),
			zap.Error(err))
	}
	delete(m.active, k)
	delete(m.states, k)
	m.log.Debug("chunk evicted", zap.Stringer("chunk", k))
}

// Reset drops every active chunk without flushing, so overrides not yet
// saved are discarded. The next Tick reloads the window from the store and
// the generator.
func (m *Manager) Reset() {
	n := len(m.active)
	clear(m.active)
	clear(m.states)
	if n > 0 {
		m.log.Debug("chunks reset", zap.Int("dropped", n))
	}
}

func (m *Manager) flush(ctx context.Context, c *Chunk) error {
	if !c.dirty || m.store == nil {
		return nil
	}
	if err := m.store.SaveOverrides(ctx, c.Key, c.Overrides()); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// FlushAll saves dirty overrides of every active chunk. Chunks that fail
// stay dirty and are retried on eviction.
func (m *Manager) FlushAll(ctx context.Context) error {
	var errs []error
	for _, k := range m.Active() {
		if err := m.flush(ctx, m.active[k]); err != nil {
			m.log.Warn("flush overrides failed", zap.Stringer("chunk", k), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Active lists active chunk keys in a stable order.
func (m *Manager) Active() []Key {
	out := make([]Key, 0, len(m.active))
	for k := range m.active {
		out = append(out, k)
	}
	slices.SortFunc(out, compareKeys)
	return out
}

func compareKeys(a, b Key) int {
	switch {
	case a.Z != b.Z:
		return a.Z - b.Z
	case a.CY != b.CY:
		return a.CY - b.CY
	}
	return a.CX - b.CX
}

func (m *Manager) ActiveCount() int { return len(m.active) }

// State returns the lifecycle stage of k.
func (m *Manager) State(k Key) State { return m.states[k] }

// Chunk returns the active chunk k, or nil.
func (m *Manager) Chunk(k Key) *Chunk { return m.active[k] }

// Features returns the feature placements of an active chunk.
func (m *Manager) Features(k Key) []worldgen.Feature {
	if c, ok := m.active[k]; ok {
		return c.Features
	}
	return nil
}

// Tile returns the tile at a world coordinate. ok is false when the chunk
// is not active.
func (m *Manager) Tile(x, y, z int) (gamemap.TileID, bool) {
	k := m.KeyFor(x, y, z)
	c, ok := m.active[k]
	if !ok {
		return gamemap.TileWall, false
	}
	return c.Terrain.At(x-k.CX*m.size, y-k.CY*m.size), true
}

// SetTile changes a tile in an active chunk and records it as an override.
func (m *Manager) SetTile(x, y, z int, t gamemap.TileID) error {
	k := m.KeyFor(x, y, z)
	c, ok := m.active[k]
	if !ok {
		return fmt.Errorf("%w: chunk %v", ErrNotLoaded, k)
	}
	lx, ly := x-k.CX*m.size, y-k.CY*m.size
	c.Terrain.Set(lx, ly, t)
	c.overrides[ly*m.size+lx] = t
	c.dirty = true
	m.refreshMasks(x, y, z)
	return nil
}

// refreshMasks recomputes the connected-tile masks of (x, y, z) and its
// eight neighbors in every active chunk. Bits pointing into inactive chunks
// keep their generated value.
func (m *Manager) refreshMasks(x, y, z int) {
	at := func(wx, wy int) (gamemap.TileID, bool) { return m.Tile(wx, wy, z) }
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			wx, wy := x+dx, y+dy
			k := m.KeyFor(wx, wy, z)
			c, ok := m.active[k]
			if !ok {
				continue
			}
			i := (wy-k.CY*m.size)*m.size + wx - k.CX*m.size
			c.Mask8[i] = worldgen.NeighborMask(wx, wy, at, m.tiles, c.Mask8[i])
			c.Mask4[i] = worldgen.CardinalMask(c.Mask8[i])
		}
	}
}

// refreshBorder reconciles the masks along c's edges with the chunks
// around it, on both sides of the border.
func (m *Manager) refreshBorder(c *Chunk) {
	ox, oy := c.Key.CX*m.size, c.Key.CY*m.size
	last := m.size - 1
	for i := 0; i < m.size; i++ {
		m.refreshMasks(ox+i, oy, c.Key.Z)
		m.refreshMasks(ox+i, oy+last, c.Key.Z)
		m.refreshMasks(ox, oy+i, c.Key.Z)
		m.refreshMasks(ox+last, oy+i, c.Key.Z)
	}
}
