package model

import "time"

// NPC is the second (and, per the tagged-variant rule, last) entity
// variant. Behavior flags select which tick-effect and combat paths
// apply; there is no subclassing.
type NPC struct {
	CharIndex  uint32
	TemplateID int32
	Name       string

	Location Location
	Spawn    Tile // anchor tile; random walk and respawn are bounded to it

	HP, MaxHP int32
	STR       int32
	Defense   int32
	GoldMin   int32
	GoldMax   int32
	LootTable int32

	Hostile    bool
	Attackable bool
	Merchant   bool
	Banker     bool
	Static     bool // skips AI entirely (merchants, bankers, guards)

	AggroRange      int32
	AttackCooldownS float64
	LastAttackAt    time.Time

	DiedAt        time.Time
	RespawnDelayS float64
}

// IsDead reports whether the NPC's HP has reached zero. combat.KillNPC
// zeroes HP and records DiedAt on this struct, which the respawn
// registry then times against; combat.Respawn clears DiedAt again.
func (n *NPC) IsDead() bool { return n.HP <= 0 }

// CanAttack reports whether the NPC's attack cooldown has elapsed.
func (n *NPC) CanAttack(now time.Time) bool {
	return now.Sub(n.LastAttackAt).Seconds() >= n.AttackCooldownS
}
