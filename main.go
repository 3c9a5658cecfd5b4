// terminus runs the simulation headless: it loads a config, builds the
// world, walks a player through it for a number of ticks and saves.
//
// Usage:
//
//	go run . [--config terminus.yaml] [--ticks 200] [--restore]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"terminus-core/internal/component"
	"terminus-core/internal/config"
	"terminus-core/internal/ecs"
	"terminus-core/internal/injector"
	"terminus-core/internal/persist"
	"terminus-core/internal/sim"
	"terminus-core/internal/system"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	ticks := flag.Int("ticks", 200, "number of ticks to run")
	restore := flag.Bool("restore", false, "continue from the saved snapshot if there is one")
	class := flag.String("class", "", "player template id")
	flag.Parse()

	if err := run(*cfgPath, *ticks, *restore, *class); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, ticks int, restore bool, class string) error {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	w, log := app.World, app.Log.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	player := ecs.NilEntity
	if restore {
		switch err := w.Restore(ctx); {
		case errors.Is(err, persist.ErrNoSnapshot):
			log.Info("no snapshot, starting fresh")
		case err != nil:
			return err
		default:
			player = w.Focus()
		}
	}
	if player == ecs.NilEntity {
		if player, err = spawnPlayer(ctx, w, class); err != nil {
			return err
		}
	}

	walker := newWalker(cfg.Seed)
	for range ticks {
		if ctx.Err() != nil {
			break
		}
		alive := w.Entities().Alive(player)
		if alive {
			walker.step(w, player)
		}
		rep, err := w.AdvanceTick(ctx)
		if err != nil {
			return err
		}
		if alive && !w.Entities().Alive(player) {
			log.Info("player died", zap.Uint64("tick", rep.Tick))
		}
	}

	if err := w.Save(context.Background()); err != nil {
		return err
	}
	log.Info("run complete",
		zap.Uint64("tick", w.Tick()),
		zap.Int("entities", w.Entities().Len()),
		zap.Int("active_chunks", w.Chunks().ActiveCount()))
	return nil
}

// spawnPlayer loads the area around the origin and places the player on the
// nearest open tile.
func spawnPlayer(ctx context.Context, w *sim.World, class string) (ecs.EntityID, error) {
	w.SetFocus(0, 0, 0)
	if _, err := w.AdvanceTick(ctx); err != nil {
		return ecs.NilEntity, err
	}
	spot, ok := w.NearestWalkable(0, 0, 0, w.Chunks().ChunkSize())
	if !ok {
		return ecs.NilEntity, fmt.Errorf("no open tile near the origin")
	}
	return w.SpawnPlayer(class, spot.X, spot.Y, spot.Z)
}

// walker drives the player: it keeps a heading, attacks what blocks it,
// takes stairs it stands on, equips what it picks up, drinks when hurt, and
// turns when a move is refused.
type walker struct {
	heading int
	turns   uint64
}

var headings = [8][2]int{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

func newWalker(seed int64) *walker {
	return &walker{heading: int(uint64(seed) % uint64(len(headings)))}
}

func (wk *walker) step(w *sim.World, player ecs.EntityID) {
	wk.turns++
	if wk.turns%50 == 0 {
		if _, err := w.ApplyAction(player, system.Climb()); err == nil {
			return
		}
	}
	if wk.heal(w, player) {
		return
	}
	if out, err := w.ApplyAction(player, system.Pickup()); err == nil {
		if it, ok := w.Entities().Get(out.PickedUp, component.CItem).(component.Item); ok && it.Equippable() {
			_, _ = w.ApplyAction(player, system.Equip(out.PickedUp))
		}
		return
	}
	d := headings[wk.heading]
	if _, err := w.ApplyAction(player, system.MoveBy(d[0], d[1])); err != nil {
		wk.heading = (wk.heading + 3) % len(headings)
	}
}

// heal uses the first carried consumable once the player is below half
// health.
func (wk *walker) heal(w *sim.World, player ecs.EntityID) bool {
	hp, ok := w.Entities().Get(player, component.CHealth).(component.Health)
	if !ok || hp.Current*2 >= hp.Max {
		return false
	}
	inv, _ := w.Entities().Get(player, component.CInventory).(component.Inventory)
	for _, item := range inv.Items {
		if _, err := w.ApplyAction(player, system.Use(item)); err == nil {
			return true
		}
	}
	return false
}
