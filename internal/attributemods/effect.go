// Package attributemods implements the AttributeModifiers tick effect:
// once a buff spell's duration expires, the temporary attribute bonus
// it granted is reverted.
package attributemods

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

// Effect scans every online player once per Interval and reverts any
// buff whose Status.BuffedUntil has passed.
type Effect struct {
	world    *world.MapManager
	interval time.Duration
	log      *slog.Logger
}

// NewEffect builds the AttributeModifiers effect.
func NewEffect(w *world.MapManager, interval time.Duration, log *slog.Logger) *Effect {
	return &Effect{world: w, interval: interval, log: log}
}

func (e *Effect) Name() string            { return "AttributeModifiers" }
func (e *Effect) Interval() time.Duration { return e.interval }

func (e *Effect) Apply(_ context.Context, now time.Time) {
	for _, p := range e.world.ListPlayers() {
		if p.Status.BuffedUntil.IsZero() || now.Before(p.Status.BuffedUntil) {
			continue
		}
		e.world.WithLock(func() {
			revertBuff(p, now)
		})
	}
}

func revertBuff(p *model.Player, now time.Time) {
	if p.Status.BuffedUntil.IsZero() || now.Before(p.Status.BuffedUntil) {
		return
	}
	d := p.ActiveBuffDelta
	p.Attrs.STR -= d.STR
	p.Attrs.AGI -= d.AGI
	p.Attrs.INT -= d.INT
	p.Attrs.VIT -= d.VIT
	p.Attrs.CHA -= d.CHA
	p.ActiveBuffDelta = model.Attributes{}
	p.Status.BuffedUntil = time.Time{}
}
