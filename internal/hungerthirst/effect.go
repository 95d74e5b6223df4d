// Package hungerthirst implements the HungerThirst tick effect: every
// online player's hunger and thirst decay toward zero, and starvation
// chips away at HP once either bottoms out.
package hungerthirst

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/protocol"
	"github.com/tilerealm/worldserver/internal/world"
)

// Notifier is the narrow slice of broadcast.Events this effect needs:
// a private stat push to one player.
type Notifier interface {
	Notify(charIndex uint32, opcode byte, payload []byte)
}

// Effect decrements hunger and thirst for every online player once per
// Interval, applying starvation damage when either reaches zero.
type Effect struct {
	world     *world.MapManager
	notify    Notifier
	interval  time.Duration
	decrement int32
	damage    int32
	log       *slog.Logger
}

// NewEffect builds the HungerThirst effect with its dependencies bound
// at construction.
func NewEffect(w *world.MapManager, notify Notifier, interval time.Duration, decrement, damage int32, log *slog.Logger) *Effect {
	return &Effect{world: w, notify: notify, interval: interval, decrement: decrement, damage: damage, log: log}
}

func (e *Effect) Name() string            { return "HungerThirst" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, _ time.Time) {
	for _, p := range e.world.ListPlayers() {
		if p.Dead {
			continue
		}

		var hunger, thirst, hp, maxHP int32
		var starved, killed bool
		e.world.WithLock(func() {
			p.Hunger = clampDown(p.Hunger - e.decrement)
			p.Thirst = clampDown(p.Thirst - e.decrement)
			hunger, thirst = p.Hunger, p.Thirst

			if p.Hunger == 0 || p.Thirst == 0 {
				p.HP -= e.damage
				starved = true
				if p.HP <= 0 {
					combat.KillPlayer(p)
					killed = true
				}
			}
			hp, maxHP = p.HP, p.MaxHP
		})

		opcode, payload := protocol.EncodeUpdateHungerAndThirst(hunger, thirst)
		e.notify.Notify(p.CharIndex, opcode, payload)

		if starved && !killed {
			opcode, payload = protocol.EncodeUpdateUserStats(hp, maxHP, p.Mana, p.MaxMana, p.Stamina, p.MaxSt)
			e.notify.Notify(p.CharIndex, opcode, payload)
		}
	}
}

func clampDown(v int32) int32 {
	if v < 0 {
		return 0
	}
	return v
}
