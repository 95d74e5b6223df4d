// Package tick drives the server's fixed-period simulation step: a
// small set of ordered Effects, each gated by its own interval, run
// once per Engine.Run period. The engine takes no lock around an
// effect: each effect takes the world lock for the sections it needs,
// so an effect's Apply as a whole is not atomic against command
// handlers.
package tick

import (
	"context"
	"log/slog"
	"time"
)

// Effect is one unit of ordered per-tick simulation work: hunger decay,
// NPC AI, regen, respawn timers, and so on. Effects run in the order
// they were registered with Engine.Register — that order IS the
// ordering contract, so register them in the sequence the simulation
// requires.
type Effect interface {
	// Name identifies the effect in logs.
	Name() string
	// Interval is the minimum time between two Apply calls. An interval
	// of zero runs the effect every engine period.
	Interval() time.Duration
	// Apply runs the effect's logic for one step. now is the tick
	// timestamp; the effect is responsible for taking any locks it
	// needs (typically the world lock).
	Apply(ctx context.Context, now time.Time)
}

type registeredEffect struct {
	effect Effect
	nextAt time.Time
}

// Engine runs registered Effects on a fixed period, skipping any effect
// whose own interval hasn't elapsed yet.
type Engine struct {
	period  time.Duration
	log     *slog.Logger
	effects []*registeredEffect
}

// NewEngine builds an Engine with the given base period. period is the
// engine's own wakeup cadence; each Effect further throttles itself via
// Interval().
func NewEngine(period time.Duration, log *slog.Logger) *Engine {
	return &Engine{period: period, log: log}
}

// Register adds an effect to the end of the execution order.
func (e *Engine) Register(eff Effect) {
	e.effects = append(e.effects, &registeredEffect{effect: eff})
}

// Run blocks, executing one tick every period until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.step(ctx, now)
		}
	}
}

func (e *Engine) step(ctx context.Context, now time.Time) {
	for _, re := range e.effects {
		if now.Before(re.nextAt) {
			continue
		}
		e.applyGuarded(re, ctx, now)
		re.nextAt = now.Add(re.effect.Interval())
	}
}

// applyGuarded runs one effect, recovering a panic so one broken effect
// never stalls the tick schedule or skips the effects after it.
func (e *Engine) applyGuarded(re *registeredEffect, ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil && e.log != nil {
			e.log.Error("tick effect panicked", "effect", re.effect.Name(), "panic", r)
		}
	}()
	re.effect.Apply(ctx, now)
	if e.log != nil {
		e.log.Debug("tick effect applied", "effect", re.effect.Name())
	}
}
