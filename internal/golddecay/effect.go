// Package golddecay implements the GoldDecay tick effect: every online
// player's carried gold shrinks by a fixed fraction once per Interval,
// a soft sink against unbounded gold accumulation.
package golddecay

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

// Effect reduces every online player's gold by Fraction once per
// Interval. Players with zero gold are left alone.
type Effect struct {
	world    *world.MapManager
	notify   Notifier
	interval time.Duration
	fraction float64
	log      *slog.Logger
}

// NewEffect builds the GoldDecay effect. fraction is clamped to [0, 1].
func NewEffect(w *world.MapManager, notify Notifier, interval time.Duration, fraction float64, log *slog.Logger) *Effect {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return &Effect{world: w, notify: notify, interval: interval, fraction: fraction, log: log}
}

func (e *Effect) Name() string            { return "GoldDecay" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, _ time.Time) {
	for _, p := range e.world.ListPlayers() {
		if p.Gold <= 0 || e.fraction == 0 {
			continue
		}

		var gold int64
		e.world.WithLock(func() {
			lost := int64(float64(p.Gold) * e.fraction)
			if lost < 1 {
				lost = 1
			}
			if lost > p.Gold {
				lost = p.Gold
			}
			p.Gold -= lost
			gold = p.Gold
		})

		opcode, payload := protocol.EncodeUpdateGold(gold)
		e.notify.Notify(p.CharIndex, opcode, payload)
	}
}
