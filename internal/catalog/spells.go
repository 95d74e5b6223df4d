package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// SpellEffectKind selects which table-driven applier a spell uses.
type SpellEffectKind string

const (
	SpellDamage SpellEffectKind = "damage"
	SpellHeal   SpellEffectKind = "heal"
	SpellBuff   SpellEffectKind = "buff"
)

// SpellDef is one static spell definition.
type SpellDef struct {
	ID        int32           `toml:"id"`
	Name      string          `toml:"name"`
	ManaCost  int32           `toml:"mana_cost"`
	Effect    SpellEffectKind `toml:"effect"`
	Power     int32           `toml:"power"`      // damage, heal, or buff delta amount
	DurationS float64         `toml:"duration_s"` // buff duration, 0 for instant
	BuffAttr  string          `toml:"buff_attr"`  // which Attributes field Power adds to; defaults to "str"
}

// SpellCatalog indexes every SpellDef by ID.
type SpellCatalog struct {
	Spells map[int32]SpellDef
}

type spellFile struct {
	Spell []SpellDef `toml:"spell"`
}

// LoadSpells parses a TOML spell table.
func LoadSpells(path string) (*SpellCatalog, error) {
	var f spellFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading spell catalog %s: %w", path, err)
	}
	cat := &SpellCatalog{Spells: make(map[int32]SpellDef, len(f.Spell))}
	for _, s := range f.Spell {
		cat.Spells[s.ID] = s
	}
	return cat, nil
}

// Get returns the spell definition for id, if present.
func (c *SpellCatalog) Get(id int32) (SpellDef, bool) {
	d, ok := c.Spells[id]
	return d, ok
}
