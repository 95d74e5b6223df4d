// Package regen implements the Regen/Stamina tick effect: every online
// player recovers stamina once per Interval, at a faster rate while
// resting.
package regen

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilerealm/worldserver/internal/protocol"
	"github.com/tilerealm/worldserver/internal/world"
)

// Notifier is the narrow slice of broadcast.Events this effect needs.
type Notifier interface {
	Notify(charIndex uint32, opcode byte, payload []byte)
}

// Effect restores stamina to every online player once per Interval.
// Resting adds restBonus on top of the base amount restored.
type Effect struct {
	world     *world.MapManager
	notify    Notifier
	interval  time.Duration
	amount    int32
	restBonus int32
	log       *slog.Logger
}

// NewEffect builds the Regen effect.
func NewEffect(w *world.MapManager, notify Notifier, interval time.Duration, amount, restBonus int32, log *slog.Logger) *Effect {
	return &Effect{world: w, notify: notify, interval: interval, amount: amount, restBonus: restBonus, log: log}
}

func (e *Effect) Name() string            { return "Regen" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, _ time.Time) {
	for _, p := range e.world.ListPlayers() {
		if p.Dead || p.Stamina >= p.MaxSt {
			continue
		}

		var hp, maxHP, mana, maxMana, stamina, maxSt int32
		e.world.WithLock(func() {
			restore := e.amount
			if p.Resting {
				restore += e.restBonus
			}
			p.Stamina += restore
			if p.Stamina > p.MaxSt {
				p.Stamina = p.MaxSt
			}
			hp, maxHP, mana, maxMana, stamina, maxSt = p.HP, p.MaxHP, p.Mana, p.MaxMana, p.Stamina, p.MaxSt
		})

		opcode, payload := protocol.EncodeUpdateUserStats(hp, maxHP, mana, maxMana, stamina, maxSt)
		e.notify.Notify(p.CharIndex, opcode, payload)
	}
}
