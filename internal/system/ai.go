package system

import (
	"go.uber.org/zap"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
	"terminus-core/internal/fov"
	"terminus-core/internal/mathx"
)

const (
	// DefaultSightRange is the aggro range used when a template leaves it unset.
	DefaultSightRange = 8

	passiveStepChance = 0.10
	patrolStepChance  = 0.40

	saltDecide = 1
	saltCombat = 2
)

// directions lists the eight king-move steps clockwise from north.
var directions = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Decide picks the action an AI entity wants to take on tick. It only reads
// state. Entities without AI, without a Position, or standing on an
// unloaded tile wait.
func (e *Env) Decide(id ecs.EntityID, tick uint64) Action {
	c := e.World.Get(id, component.CAI)
	pos, ok := e.position(id)
	if c == nil || !ok {
		return Wait()
	}
	if _, loaded := e.Terrain.Tile(pos.X, pos.Y, pos.Z); !loaded {
		return Wait()
	}
	ai := c.(component.AI)
	rng := e.rng(id, tick, saltDecide)

	switch ai.Behavior {
	case component.BehaviorAggressive:
		if target, tpos, ok := e.nearestPlayer(id, pos, ai.SightRange); ok {
			return e.chase(id, target, pos, tpos)
		}
		return e.wander(id, pos, rng, passiveStepChance, ai)
	case component.BehaviorPassive:
		return e.wander(id, pos, rng, passiveStepChance, ai)
	case component.BehaviorPatrol:
		return e.wander(id, pos, rng, patrolStepChance, ai)
	default:
		return Wait()
	}
}

// Act decides and executes one action for id. Refused actions degrade to a
// wait; the returned Outcome always describes what was committed.
func (e *Env) Act(id ecs.EntityID, tick uint64) Outcome {
	a := e.Decide(id, tick)
	out, err := e.Execute(id, a, tick)
	if err != nil {
		e.Log.Debug("ai action degraded to wait",
			zap.Uint64("entity", uint64(id)),
			zap.Stringer("action", a.Kind),
			zap.Error(err))
		pos, _ := e.position(id)
		return Outcome{Performed: Wait(), Position: pos}
	}
	return out
}

// nearestPlayer finds the closest player on id's level within Chebyshev
// range sight that id can see. Ties go to the lowest id.
func (e *Env) nearestPlayer(id ecs.EntityID, pos component.Position, sight int) (ecs.EntityID, component.Position, bool) {
	if sight <= 0 {
		sight = DefaultSightRange
	}
	var (
		best     component.Position
		bestID   ecs.EntityID
		bestDist = sight + 1
		found    bool
		vis      fov.Set
	)
	for other := range e.Index.QueryRect(pos.X-sight, pos.Y-sight, pos.X+sight, pos.Y+sight, pos.Z) {
		a, ok := e.actor(other)
		if !ok || a.Kind != component.KindPlayer || other == id {
			continue
		}
		op, _ := e.position(other)
		d := pos.Chebyshev(op)
		if d > bestDist || (d == bestDist && other > bestID) {
			continue
		}
		if vis == nil {
			// 2*sight covers the corners of the Chebyshev square.
			vis = fov.Compute(pos.X, pos.Y, 2*sight, func(x, y int) bool { return e.opaque(x, y, pos.Z) })
		}
		if !vis.Has(op.X, op.Y) {
			continue
		}
		best, bestID, bestDist, found = op, other, d, true
	}
	return bestID, best, found
}

// chase attacks an adjacent target, else steps toward it trying the
// diagonal first and then each axis alone.
func (e *Env) chase(id, target ecs.EntityID, pos, tpos component.Position) Action {
	if pos.Chebyshev(tpos) == 1 {
		return AttackOn(target)
	}
	dx, dy := sign(tpos.X-pos.X), sign(tpos.Y-pos.Y)
	for _, step := range [3][2]int{{dx, dy}, {dx, 0}, {0, dy}} {
		if step[0] == 0 && step[1] == 0 {
			continue
		}
		if _, err := e.CheckMove(id, step[0], step[1]); err == nil {
			return MoveBy(step[0], step[1])
		}
	}
	return Wait()
}

// wander takes a random step with the given probability. Steps that would
// leave the patrol radius around home, or that are blocked, become waits.
func (e *Env) wander(id ecs.EntityID, pos component.Position, rng *mathx.Rand, chance float64, ai component.AI) Action {
	if rng.Float64() >= chance {
		return Wait()
	}
	d := directions[rng.Intn(len(directions))]
	dest := pos.Offset(d[0], d[1])
	if ai.PatrolRadius > 0 {
		home := component.Position{X: ai.HomeX, Y: ai.HomeY, Z: pos.Z}
		if dest.Chebyshev(home) > ai.PatrolRadius {
			return Wait()
		}
	}
	if _, err := e.CheckMove(id, d[0], d[1]); err != nil {
		return Wait()
	}
	return MoveBy(d[0], d[1])
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
