// Package sim is the simulation context: one explicit value owning the
// entity store, spatial index, chunk manager, scheduler and visibility
// state, and exposing the operations a front end drives between ticks.
package sim

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminus-core/internal/chunk"
	"terminus-core/internal/component"
	"terminus-core/internal/config"
	"terminus-core/internal/ecs"
	"terminus-core/internal/fov"
	"terminus-core/internal/gamemap"
	"terminus-core/internal/persist"
	"terminus-core/internal/sched"
	"terminus-core/internal/spatial"
	"terminus-core/internal/system"
	"terminus-core/internal/template"
	"terminus-core/internal/worldgen"
)

var (
	// ErrInvariant wraps every unrecoverable breach: a chunk regenerated
	// differently, or the spatial index drifting from the store. The world
	// halts after returning it.
	ErrInvariant = errors.New("sim: invariant violated")

	// ErrHalted is returned by every mutating call after an invariant breach.
	ErrHalted = errors.New("sim: halted")

	ErrUnknownEntity   = errors.New("sim: unknown entity")
	ErrUnknownTemplate = errors.New("sim: unknown template")
	ErrSeedMismatch    = errors.New("sim: snapshot belongs to another seed")
)

// DefaultPlayerTemplate is spawned by SpawnPlayer when no id is given.
const DefaultPlayerTemplate = "player"

// Options configures a World.
type Options struct {
	Seed       int64
	WorldID    string // empty generates a fresh id
	ChunkSize  int
	Chunks     chunk.Config
	CellSize   int
	FOVRadius  int
	NumBatches int
	// Debug verifies the spatial index after every tick and makes the
	// entity store panic on validation errors.
	Debug        bool
	SnapshotPath string

	Tiles gamemap.TileTable
	// Static holds hand-authored chunk layouts for the default generator.
	Static    map[worldgen.Coord][]string
	Generator chunk.Generator // nil uses worldgen with the seed and chunk size
}

// OptionsFrom maps the runtime configuration onto World options.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Seed:      cfg.Seed,
		ChunkSize: cfg.ChunkSize,
		Chunks: chunk.Config{
			Radius:            cfg.ChunkRadius,
			Hysteresis:        cfg.ChunkHysteresis,
			GenBudget:         cfg.GenBudget,
			VerifyDeterminism: cfg.VerifyDeterminism || cfg.Debug,
		},
		CellSize:     cfg.CellSize,
		FOVRadius:    cfg.FOVRadius,
		NumBatches:   cfg.NumBatches,
		Debug:        cfg.Debug,
		SnapshotPath: cfg.SnapshotPath,
	}
}

// World is the whole simulation. It is owned by one goroutine; consumers
// read it only between ticks.
type World struct {
	opts Options
	id   string
	log  *zap.Logger

	store     *ecs.World
	index     *spatial.Index
	chunks    *chunk.Manager
	sched     *sched.Scheduler
	env       *system.Env
	templates template.Source
	persist   persist.Store
	dirty     *persist.DirtyTracker

	focus     ecs.EntityID
	grids     map[ecs.EntityID]*fov.Grid
	lastSeen  map[ecs.EntityID]component.Position
	populated map[worldgen.Coord]struct{}
	stale     bool // terrain changed since the last visibility refresh

	halted error
}

// New builds a World. templates and store are required collaborators; log
// may be nil.
func New(opts Options, templates template.Source, store persist.Store, log *zap.Logger) (*World, error) {
	if templates == nil {
		return nil, fmt.Errorf("sim: nil template source")
	}
	if store == nil {
		return nil, fmt.Errorf("sim: nil store")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Tiles == nil {
		opts.Tiles = gamemap.DefaultTiles
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 16
	}
	if opts.FOVRadius <= 0 {
		opts.FOVRadius = 8
	}
	if opts.WorldID == "" {
		opts.WorldID = uuid.NewString()
	}
	gen := opts.Generator
	if gen == nil {
		gen = worldgen.New(opts.Seed, worldgen.Options{
			ChunkSize: opts.ChunkSize,
			Tiles:     opts.Tiles,
			Static:    opts.Static,
		})
	}

	w := &World{
		opts:      opts,
		id:        opts.WorldID,
		log:       log.Named("sim").With(zap.String("world", opts.WorldID)),
		chunks:    chunk.New(opts.Chunks, gen, store, log),
		sched:     sched.New(opts.NumBatches),
		templates: templates,
		persist:   store,
		dirty:     &persist.DirtyTracker{},
		grids:     make(map[ecs.EntityID]*fov.Grid),
		lastSeen:  make(map[ecs.EntityID]component.Position),
		populated: make(map[worldgen.Coord]struct{}),
	}
	w.chunks.SetTiles(opts.Tiles)
	w.resetEntities()
	w.log.Info("world created",
		zap.Int64("seed", opts.Seed),
		zap.Int("chunk_size", w.chunks.ChunkSize()),
		zap.Int("max_active_chunks", w.chunks.MaxActive()))
	return w, nil
}

// resetEntities replaces the entity store and everything keyed by entity.
func (w *World) resetEntities() {
	w.store = ecs.NewWorld()
	w.store.SetDebug(w.opts.Debug)
	w.index = spatial.New(w.opts.CellSize)
	w.index.Attach(w.store)
	w.store.Subscribe(w.dirty)
	w.env = system.NewEnv(w.store, w.index, w.chunks, w.opts.Tiles, w.opts.Seed, w.log)
	w.focus = ecs.NilEntity
	clear(w.grids)
	clear(w.lastSeen)
}

// ID is the world's persistent identity.
func (w *World) ID() string { return w.id }

func (w *World) Seed() int64 { return w.opts.Seed }

// Tick is the number of completed ticks.
func (w *World) Tick() uint64 { return w.sched.Tick() }

// Entities exposes the entity store for read access between ticks.
func (w *World) Entities() *ecs.World { return w.store }

// Index exposes the spatial index for read access between ticks.
func (w *World) Index() *spatial.Index { return w.index }

// Chunks exposes the chunk manager for read access between ticks.
func (w *World) Chunks() *chunk.Manager { return w.chunks }

// Halted returns the invariant breach that stopped the world, if any.
func (w *World) Halted() error { return w.halted }

// halt records an invariant breach. Every later mutating call fails.
func (w *World) halt(cause error) error {
	w.halted = fmt.Errorf("%w: %w", ErrInvariant, cause)
	w.log.Error("simulation halted", zap.Error(cause), zap.Uint64("tick", w.sched.Tick()))
	return w.halted
}

func (w *World) checkRunning() error {
	if w.halted != nil {
		return fmt.Errorf("%w: %w", ErrHalted, w.halted)
	}
	return nil
}

func (w *World) position(id ecs.EntityID) (component.Position, bool) {
	c := w.store.Get(id, component.CPosition)
	if c == nil {
		return component.Position{}, false
	}
	return c.(component.Position), true
}

// SetFocus points the chunk window at a world coordinate. It is used while
// no viewer exists; once a player is spawned the window follows it.
func (w *World) SetFocus(x, y, z int) {
	w.chunks.SetFocus(x, y, z)
}

// Focus returns the entity the chunk window follows, if any.
func (w *World) Focus() ecs.EntityID { return w.focus }

// Tile returns the tile at a world coordinate; ok is false when its chunk
// is not active.
func (w *World) Tile(x, y, z int) (gamemap.TileID, bool) { return w.chunks.Tile(x, y, z) }

// SetTile changes terrain in an active chunk. The change is persisted as an
// override when the chunk is evicted or flushed.
func (w *World) SetTile(x, y, z int, t gamemap.TileID) error {
	if err := w.checkRunning(); err != nil {
		return err
	}
	if err := w.chunks.SetTile(x, y, z, t); err != nil {
		return err
	}
	w.stale = true
	return nil
}

// NearestWalkable searches rings around (x, y, z) out to maxRadius for a
// loaded walkable tile with no blocking entity.
func (w *World) NearestWalkable(x, y, z, maxRadius int) (component.Position, bool) {
	for r := 0; r <= maxRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				if walkable, _ := w.env.Walkable(x+dx, y+dy, z); !walkable {
					continue
				}
				if _, busy := w.env.BlockerAt(x+dx, y+dy, z, ecs.NilEntity); busy {
					continue
				}
				return component.Position{X: x + dx, Y: y + dy, Z: z}, true
			}
		}
	}
	return component.Position{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ReloadTemplates re-reads the template source when it supports reloading.
// Entities already spawned keep their components.
func (w *World) ReloadTemplates() error {
	r, ok := w.templates.(interface{ Reload() error })
	if !ok {
		return nil
	}
	if err := r.Reload(); err != nil {
		w.log.Warn("template reload failed, keeping previous table", zap.Error(err))
		return err
	}
	w.log.Info("templates reloaded")
	return nil
}
