// Package spell applies catalog.SpellDef effects to a caster/target
// pair: a small table-driven dispatch over SpellEffectKind, mirroring
// the shape of the combat package's formula functions.
package spell

import (
	"fmt"
	"time"

	"github.com/tilerealm/worldserver/internal/catalog"
	"github.com/tilerealm/worldserver/internal/model"
)

// Result describes what a cast did, for the caller to broadcast.
type Result struct {
	DamageDealt  int32
	HealAmount   int32
	TargetNewHP  int32
	TargetKilled bool
	BuffApplied  bool
}

// Cast applies def's effect from caster onto target at now. target may
// equal caster for self-heal/self-buff spells.
func Cast(def catalog.SpellDef, caster *model.Player, target *model.Player, now time.Time) (Result, error) {
	if caster.Mana < def.ManaCost {
		return Result{}, fmt.Errorf("insufficient mana: have %d, need %d: %w", caster.Mana, def.ManaCost, model.ErrPreconditionFailed)
	}
	caster.Mana -= def.ManaCost

	switch def.Effect {
	case catalog.SpellDamage:
		return applyDamage(def, target), nil
	case catalog.SpellHeal:
		return applyHeal(def, target), nil
	case catalog.SpellBuff:
		return applyBuff(def, target, now), nil
	default:
		return Result{}, fmt.Errorf("unknown spell effect kind %q: %w", def.Effect, model.ErrInvalidArgument)
	}
}

func applyDamage(def catalog.SpellDef, target *model.Player) Result {
	dmg := def.Power
	if dmg < 0 {
		dmg = 0
	}
	newHP := target.HP - dmg
	if newHP < 0 {
		newHP = 0
	}
	target.HP = newHP
	killed := newHP == 0 && !target.Dead
	if killed {
		target.Kill()
	}
	return Result{DamageDealt: dmg, TargetNewHP: target.HP, TargetKilled: killed}
}

func applyHeal(def catalog.SpellDef, target *model.Player) Result {
	heal := def.Power
	if heal < 0 {
		heal = 0
	}
	newHP := target.HP + heal
	if newHP > target.MaxHP {
		newHP = target.MaxHP
	}
	target.HP = newHP
	return Result{HealAmount: heal, TargetNewHP: target.HP}
}

// applyBuff grants def.Power on def.BuffAttr for def.DurationS, replacing
// any buff already active on target (reverting its delta first) so
// re-casting never stacks a permanent bonus.
func applyBuff(def catalog.SpellDef, target *model.Player, now time.Time) Result {
	if target.Status.Buffed(now) {
		d := target.ActiveBuffDelta
		target.Attrs.STR -= d.STR
		target.Attrs.AGI -= d.AGI
		target.Attrs.INT -= d.INT
		target.Attrs.VIT -= d.VIT
		target.Attrs.CHA -= d.CHA
		target.ActiveBuffDelta = model.Attributes{}
	}

	target.Attrs.Add(def.BuffAttr, def.Power)
	target.ActiveBuffDelta.Add(def.BuffAttr, def.Power)
	target.Status.BuffedUntil = now.Add(time.Duration(def.DurationS * float64(time.Second)))
	return Result{BuffApplied: true}
}
