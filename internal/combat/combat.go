// Package combat implements player/NPC attack resolution, death
// handling, loot gold rolls, and respawn timing.
package combat

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tilerealm/worldserver/internal/model"
)

// Damage formula constants: 5% crit doubling damage, miss chance
// max(0, 5 - (attacker.AGI - target.AGI))%, ±15% damage jitter.
const (
	critChancePct = 5.0
	baseMissPct   = 5.0
	jitterPct     = 15.0
)

// AttackResult is the outcome of one resolved attack.
type AttackResult struct {
	Hit         bool
	Damage      int32
	TargetNewHP int32
	Killed      bool
}

// PlayerAttack resolves attacker's attack on target. Preconditions
// (attacker alive, melee range, target attackable, cooldown elapsed)
// are the caller's responsibility — this function only computes the
// outcome, it does not touch world state.
func PlayerAttack(attacker *model.Player, targetAGI, targetDefense, targetHP int32) AttackResult {
	return resolveAttack(attacker.Attrs.STR, attacker.Attrs.AGI, targetAGI, targetDefense, targetHP)
}

// NPCAttack resolves an NPC's attack on a player target.
func NPCAttack(npc *model.NPC, target *model.Player) AttackResult {
	return resolveAttack(npc.STR, 0, target.Attrs.AGI, target.Defense(), target.HP)
}

func resolveAttack(attackerSTR, attackerAGI, targetAGI, targetDefense, targetHP int32) AttackResult {
	missPct := baseMissPct - float64(attackerAGI-targetAGI)
	if missPct < 0 {
		missPct = 0
	}
	if rand.Float64()*100 < missPct {
		return AttackResult{Hit: false, TargetNewHP: targetHP}
	}

	raw := attackerSTR*2 - targetDefense
	if raw < 1 {
		raw = 1
	}
	damage := float64(raw)
	jitter := 1.0 + (rand.Float64()*2-1)*(jitterPct/100)
	damage *= jitter

	crit := rand.Float64()*100 < critChancePct
	if crit {
		damage *= 2
	}

	dmg := int32(damage)
	if dmg < 1 {
		dmg = 1
	}

	newHP := targetHP - dmg
	if newHP < 0 {
		newHP = 0
	}

	return AttackResult{Hit: true, Damage: dmg, TargetNewHP: newHP, Killed: newHP <= 0}
}

// RollGold returns a gold amount uniformly distributed in [min, max].
func RollGold(min, max int32) int64 {
	if max <= min {
		return int64(min)
	}
	return int64(min + int32(rand.IntN(int(max-min+1))))
}

// KillNPC marks an NPC dead and records the death time for the
// RespawnTimers tick effect. It does not touch world state —
// removal, respawn scheduling, and broadcast are the caller's job,
// since those require the world lock and the persistence layer.
func KillNPC(n *model.NPC, now time.Time) {
	n.HP = 0
	n.DiedAt = now
}

// ReadyToRespawn reports whether an NPC killed at n.DiedAt should be
// brought back at now, given its RespawnDelayS.
func ReadyToRespawn(n *model.NPC, now time.Time) bool {
	if n.DiedAt.IsZero() {
		return false
	}
	return now.Sub(n.DiedAt).Seconds() >= n.RespawnDelayS
}

// Respawn resets an NPC to full health at its spawn anchor, clearing
// the death marker.
func Respawn(n *model.NPC) {
	n.HP = n.MaxHP
	n.DiedAt = time.Time{}
	n.Location = model.Location{Map: n.Location.Map, X: n.Spawn.X, Y: n.Spawn.Y}
}

// KillPlayer marks a player dead: zero HP/stamina, cleared status,
// unequipped. Teleport to a map-defined death location, if any, is the
// caller's job since it needs the world lock to validate the
// destination tile.
func KillPlayer(p *model.Player) {
	p.Kill()
}

// ErrOutOfMeleeRange is returned by handlers validating an attack's
// preconditions before calling into this package.
var ErrOutOfMeleeRange = fmt.Errorf("target is not adjacent: %w", model.ErrPreconditionFailed)
