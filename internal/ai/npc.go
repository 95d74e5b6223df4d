// Package ai implements the per-NPC simulation step — target
// acquisition, melee attack, pathfinding pursuit, bounded random walk —
// registered as one stateless tick.Effect rather than a separate
// per-NPC ticking subsystem.
package ai

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/geo"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

// Broadcaster is the narrow slice of broadcast the AI effect needs:
// announcing NPC movement and attacks to observers.
type Broadcaster interface {
	BroadcastMove(mapID int32, charIndex uint32, from, to model.Location)
	BroadcastAttack(mapID int32, attackerIdx, targetIdx uint32, result combat.AttackResult)
	BroadcastRemove(mapID int32, charIndex uint32)
}

const wanderRadius = 5

// Effect is the NPCAI tick effect: one pass over every live NPC,
// applying the per-NPC step.
type Effect struct {
	world    *world.MapManager
	bcast    Broadcaster
	interval time.Duration
	log      *slog.Logger
}

// NewEffect builds the NPCAI effect with its dependencies bound at
// construction, per the explicit-DI convention the core requires.
func NewEffect(w *world.MapManager, bcast Broadcaster, interval time.Duration, log *slog.Logger) *Effect {
	return &Effect{world: w, bcast: bcast, interval: interval, log: log}
}

func (e *Effect) Name() string            { return "NPCAI" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, now time.Time) {
	for _, n := range e.world.ListNPCs() {
		e.step(n, now)
	}
}

func (e *Effect) step(n *model.NPC, now time.Time) {
	if n.Static {
		return
	}

	// Player fields (position, dead flag, status timers) are mutated by
	// command handlers under the world lock, so the whole target-
	// selection read runs under it too; only the chosen target and a
	// snapshot of its tile leave the critical section.
	players := e.world.ListPlayers()
	var dead bool
	var target *model.Player
	var goal model.Tile
	adjacent := false
	e.world.WithLock(func() {
		if n.IsDead() {
			dead = true
			return
		}
		target = acquireTarget(n, players, now)
		if target != nil {
			goal = target.Location.Tile()
			adjacent = model.ManhattanDistance(n.Location.Tile(), goal) == 1
		}
	})
	if dead {
		return
	}

	if target != nil && adjacent {
		if n.CanAttack(now) {
			e.attack(n, target, now)
		}
		return
	}

	if target != nil {
		e.moveToward(n, goal)
		return
	}

	e.randomWalk(n)
}

// acquireTarget finds the nearest non-invisible, non-dead player
// within aggro_range on the NPC's map. Caller must hold the world
// lock.
func acquireTarget(n *model.NPC, players []*model.Player, now time.Time) *model.Player {
	if !n.Hostile {
		return nil
	}
	var best *model.Player
	var bestDist int32
	for _, p := range players {
		if p.Location.Map != n.Location.Map || p.Dead {
			continue
		}
		if p.Status.Invisible(now) {
			continue
		}
		dist := model.ManhattanDistance(n.Location.Tile(), p.Location.Tile())
		if dist > n.AggroRange {
			continue
		}
		if best == nil || dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	return best
}

func (e *Effect) attack(n *model.NPC, target *model.Player, now time.Time) {
	n.LastAttackAt = now
	var result combat.AttackResult
	attempted := false
	e.world.WithLock(func() {
		if target.Dead {
			return
		}
		attempted = true
		result = combat.NPCAttack(n, target)
		target.HP = result.TargetNewHP
		if result.Killed {
			combat.KillPlayer(target)
		}
	})
	if attempted && e.bcast != nil {
		e.bcast.BroadcastAttack(n.Location.Map, n.CharIndex, target.CharIndex, result)
	}
}

func (e *Effect) moveToward(n *model.NPC, goal model.Tile) {
	blocked := func(x, y int32) bool { return !e.world.CanMoveTo(n.Location.Map, x, y) }
	path, ok := geo.FindPath(n.Location.Tile(), goal, blocked, geo.DefaultMaxExpand)
	if !ok || len(path) < 2 {
		e.randomWalk(n)
		return
	}
	next := path[1]
	from := n.Location
	heading, _ := model.HeadingFromDelta(next.X-from.X, next.Y-from.Y)
	to := model.Location{Map: n.Location.Map, X: next.X, Y: next.Y, Heading: heading}
	if _, _, err := e.world.MoveEntity(n.CharIndex, to); err != nil {
		return
	}
	if e.bcast != nil {
		e.bcast.BroadcastMove(n.Location.Map, n.CharIndex, from, to)
	}
}

// randomWalk steps the NPC one tile in a random direction, bounded to
// wanderRadius tiles from its spawn anchor. Stays put if no walkable
// neighbor qualifies.
func (e *Effect) randomWalk(n *model.NPC) {
	deltas := [4][2]int32{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	order := rand.Perm(4)
	for _, i := range order {
		dx, dy := deltas[i][0], deltas[i][1]
		nx, ny := n.Location.X+dx, n.Location.Y+dy
		if model.ManhattanDistance(model.Tile{X: nx, Y: ny}, n.Spawn) > wanderRadius {
			continue
		}
		if !e.world.CanMoveTo(n.Location.Map, nx, ny) {
			continue
		}
		from := n.Location
		heading, _ := model.HeadingFromDelta(dx, dy)
		to := model.Location{Map: n.Location.Map, X: nx, Y: ny, Heading: heading}
		if _, _, err := e.world.MoveEntity(n.CharIndex, to); err != nil {
			continue
		}
		if e.bcast != nil {
			e.bcast.BroadcastMove(n.Location.Map, n.CharIndex, from, to)
		}
		return
	}
}
