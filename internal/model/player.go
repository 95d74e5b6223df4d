package model

import (
	"strings"
	"time"
)

// Inventory slot and spellbook slot bounds (packet codec validation
// catalog mirrors these exactly).
const (
	InventorySlots = 20
	SpellbookSlots = 35
	MaxQuantity    = 10000
)

// EquipSlot identifies one of the six fixed equipment slots.
type EquipSlot int

const (
	EquipWeapon EquipSlot = iota
	EquipShield
	EquipArmor
	EquipHelmet
	EquipRing
	EquipAmulet
	equipSlotCount
)

// Attributes holds the five primary stats.
type Attributes struct {
	STR, AGI, INT, VIT, CHA int32
}

// Add applies delta to the named field ("str", "agi", "int", "vit",
// "cha"; case-insensitive), defaulting to STR for an unrecognized name.
// Used to grant a buff; reverting one subtracts the recorded
// ActiveBuffDelta field by field rather than calling Add.
func (a *Attributes) Add(name string, delta int32) {
	switch strings.ToLower(name) {
	case "agi":
		a.AGI += delta
	case "int":
		a.INT += delta
	case "vit":
		a.VIT += delta
	case "cha":
		a.CHA += delta
	default:
		a.STR += delta
	}
}

// StatusTimers holds the expiry of every timed negative/positive status.
// A zero time.Time means "not active".
type StatusTimers struct {
	PoisonedUntil     time.Time
	ImmobilizedUntil  time.Time
	BlindedUntil      time.Time
	DumbUntil         time.Time
	InvisibleUntil    time.Time
	BuffedUntil       time.Time
}

// Poisoned reports whether the poison timer is still active at now.
func (s StatusTimers) Poisoned(now time.Time) bool { return now.Before(s.PoisonedUntil) }

// Immobilized reports whether movement is currently blocked by status.
func (s StatusTimers) Immobilized(now time.Time) bool { return now.Before(s.ImmobilizedUntil) }

// Blinded reports whether the blind status is currently active.
func (s StatusTimers) Blinded(now time.Time) bool { return now.Before(s.BlindedUntil) }

// Dumb reports whether the silence/dumb status is currently active.
func (s StatusTimers) Dumb(now time.Time) bool { return now.Before(s.DumbUntil) }

// Invisible reports whether the invisibility status is currently active.
func (s StatusTimers) Invisible(now time.Time) bool { return now.Before(s.InvisibleUntil) }

// Buffed reports whether a spell-granted buff is currently active.
func (s StatusTimers) Buffed(now time.Time) bool { return now.Before(s.BuffedUntil) }

// Player is one of the two fixed entity variants (see package doc).
// Every field is protected by the world lock; there is no per-player
// mutex — MapManager is the sole synchronization boundary.
type Player struct {
	UserID    int64
	CharIndex uint32
	Name      string
	Class     string

	Location Location

	Level          int32
	HP, MaxHP      int32
	Mana, MaxMana  int32
	Stamina, MaxSt int32
	Hunger, Thirst int32 // 0-100
	Gold           int64
	Attrs          Attributes

	Equipment [equipSlotCount]*ItemStack
	Inventory [InventorySlots]*ItemStack
	Spellbook [SpellbookSlots]int32 // 0 = empty slot

	Status          StatusTimers
	ActiveBuffDelta Attributes // temporary attribute bonus granted by a buff spell, reverted at Status.BuffedUntil
	Meditating      bool
	Resting         bool // standing still in a safe zone; adds RestingStaminaBonus to stamina regen
	Dead            bool

	PartyID int32 // 0 = none
	ClanID  int32 // 0 = none
}

// Resurrect clears death state and restores the player to a given
// location with minimum viable stats — the kill sequence run in
// reverse.
func (p *Player) Resurrect(loc Location) {
	p.Dead = false
	p.HP = max32(1, p.MaxHP/2)
	p.Mana = p.MaxMana
	p.Stamina = p.MaxSt
	p.Location = loc
	p.Status = StatusTimers{}
}

// Kill zeroes HP/stamina, sets Dead, clears status effects and unequips
// everything. A player at zero HP is always flagged dead.
func (p *Player) Kill() {
	p.HP = 0
	p.Stamina = 0
	p.Dead = true
	p.Status = StatusTimers{}
	for i := range p.Equipment {
		p.Equipment[i] = nil
	}
}

// Defense returns the player's physical defense value used by the
// combat damage formula, derived from VIT.
func (p *Player) Defense() int32 { return p.Attrs.VIT * 2 }

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
