// Package respawn implements the RespawnTimers tick effect: NPCs
// killed in combat come back at their spawn anchor once their respawn
// delay has elapsed.
package respawn

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

// Announcer is the narrow slice of broadcast.Events this effect needs:
// announcing a reinstated NPC's arrival to its map.
type Announcer interface {
	BroadcastCreate(mapID int32, charIndex uint32, name string, x, y int32, heading model.Heading)
}

// Effect brings dead NPCs back once per Interval.
type Effect struct {
	world    *world.MapManager
	announce Announcer
	interval time.Duration
	log      *slog.Logger
}

// NewEffect builds the RespawnTimers effect.
func NewEffect(w *world.MapManager, announce Announcer, interval time.Duration, log *slog.Logger) *Effect {
	return &Effect{world: w, announce: announce, interval: interval, log: log}
}

func (e *Effect) Name() string            { return "RespawnTimers" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, now time.Time) {
	due := e.world.PopReadyRespawns(func(n *model.NPC) bool {
		return combat.ReadyToRespawn(n, now)
	})

	for _, n := range due {
		combat.Respawn(n)
		if err := e.world.AddNPC(n); err != nil {
			// spawn anchor occupied; put the NPC back in the registry
			// with DiedAt reset so the respawn timer restarts rather
			// than losing the NPC.
			n.DiedAt = now
			e.world.ScheduleRespawn(n)
			if e.log != nil {
				e.log.Warn("respawn blocked, retrying", "char_index", n.CharIndex, "error", err)
			}
			continue
		}
		e.announce.BroadcastCreate(n.Location.Map, n.CharIndex, n.Name, n.Location.X, n.Location.Y, n.Location.Heading)
	}
}
