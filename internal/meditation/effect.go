// Package meditation implements the Meditation tick effect: a player
// who is meditating recovers a percentage of max mana every Interval,
// capped at MaxMana.
package meditation

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

// Effect restores mana to every meditating player once per Interval.
type Effect struct {
	world    *world.MapManager
	notify   Notifier
	interval time.Duration
	pct      float64
	log      *slog.Logger
}

// NewEffect builds the Meditation effect. pct is the fraction of
// MaxMana restored per tick, clamped to (0, 1].
func NewEffect(w *world.MapManager, notify Notifier, interval time.Duration, pct float64, log *slog.Logger) *Effect {
	if pct <= 0 {
		pct = 0.01
	}
	if pct > 1 {
		pct = 1
	}
	return &Effect{world: w, notify: notify, interval: interval, pct: pct, log: log}
}

func (e *Effect) Name() string            { return "Meditation" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, _ time.Time) {
	for _, p := range e.world.ListPlayers() {
		if p.Dead || !p.Meditating || p.Mana >= p.MaxMana {
			continue
		}

		var hp, maxHP, mana, maxMana, stamina, maxSt int32
		e.world.WithLock(func() {
			restored := int32(float64(p.MaxMana) * e.pct)
			if restored < 1 {
				restored = 1
			}
			p.Mana += restored
			if p.Mana > p.MaxMana {
				p.Mana = p.MaxMana
			}
			hp, maxHP, mana, maxMana, stamina, maxSt = p.HP, p.MaxHP, p.Mana, p.MaxMana, p.Stamina, p.MaxSt
		})

		opcode, payload := protocol.EncodeUpdateUserStats(hp, maxHP, mana, maxMana, stamina, maxSt)
		e.notify.Notify(p.CharIndex, opcode, payload)
	}
}
