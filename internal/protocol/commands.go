package protocol

import (
	"fmt"

	"github.com/tilerealm/worldserver/internal/model"
)

// Field length limits from the validation catalog.
const (
	maxUsernameLen = 20
	maxPasswordLen = 32
	maxChatLen     = 255
)

// Command is any decoded client command.
type Command interface {
	isCommand()
}

// LoginCommand authenticates a connection.
type LoginCommand struct {
	Username string
	Password string
}

func (LoginCommand) isCommand() {}

// WalkCommand requests a single-tile step in the given heading.
type WalkCommand struct {
	Heading model.Heading
}

func (WalkCommand) isCommand() {}

// AttackCommand requests a melee attack in the player's facing direction.
type AttackCommand struct{}

func (AttackCommand) isCommand() {}

// PickupCommand requests picking up whatever ground item sits on the
// player's current tile.
type PickupCommand struct{}

func (PickupCommand) isCommand() {}

// DropCommand requests dropping a quantity of an inventory stack.
type DropCommand struct {
	Slot     int32
	Quantity int32
}

func (DropCommand) isCommand() {}

// ChatCommand carries a line of public chat text (command parsing and
// slash-command dispatch happens above the codec layer).
type ChatCommand struct {
	Text string
}

func (ChatCommand) isCommand() {}

// CastSpellCommand requests casting a spellbook slot at a target.
type CastSpellCommand struct {
	SpellbookSlot int32
	TargetIndex   uint32
}

func (CastSpellCommand) isCommand() {}

// CommerceBuyCommand requests buying one unit of an item from whatever
// merchant NPC the session has open.
type CommerceBuyCommand struct {
	ItemID int32
}

func (CommerceBuyCommand) isCommand() {}

// CommerceSellCommand requests selling an inventory slot to the open
// merchant.
type CommerceSellCommand struct {
	Slot int32
}

func (CommerceSellCommand) isCommand() {}

func validateSlot(slot int32, max int32) error {
	if slot < 1 || slot > max {
		return fmt.Errorf("%w: slot %d out of range 1..%d", ErrFieldRange, slot, max)
	}
	return nil
}

func validateQuantity(q int32) error {
	if q < 1 || q > model.MaxQuantity {
		return fmt.Errorf("%w: quantity %d out of range 1..%d", ErrFieldRange, q, model.MaxQuantity)
	}
	return nil
}

func validateHeading(h model.Heading) error {
	if h < model.North || h > model.West {
		return fmt.Errorf("%w: heading %d out of range 1..4", ErrFieldRange, h)
	}
	return nil
}

// DecodeCommand decodes a single client command payload given its
// opcode. Decoding is total: it either returns a fully validated typed
// Command or a well-typed error — never a partially-populated value.
func DecodeCommand(opcode byte, payload []byte) (Command, error) {
	r := NewReader(payload)
	switch opcode {
	case OpLogin:
		username, err := r.ReadString(maxUsernameLen)
		if err != nil {
			return nil, fmt.Errorf("decoding login username: %w", err)
		}
		password, err := r.ReadString(maxPasswordLen)
		if err != nil {
			return nil, fmt.Errorf("decoding login password: %w", err)
		}
		return LoginCommand{Username: username, Password: password}, nil

	case OpWalk:
		h, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("decoding walk heading: %w", err)
		}
		heading := model.Heading(h)
		if err := validateHeading(heading); err != nil {
			return nil, err
		}
		return WalkCommand{Heading: heading}, nil

	case OpAttack:
		return AttackCommand{}, nil

	case OpPickup:
		return PickupCommand{}, nil

	case OpDrop:
		slot, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("decoding drop slot: %w", err)
		}
		if err := validateSlot(slot, model.InventorySlots); err != nil {
			return nil, err
		}
		qty, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("decoding drop quantity: %w", err)
		}
		if err := validateQuantity(qty); err != nil {
			return nil, err
		}
		return DropCommand{Slot: slot, Quantity: qty}, nil

	case OpChat:
		text, err := r.ReadString(maxChatLen)
		if err != nil {
			return nil, fmt.Errorf("decoding chat text: %w", err)
		}
		return ChatCommand{Text: text}, nil

	case OpCastSpell:
		slot, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("decoding spell slot: %w", err)
		}
		if err := validateSlot(slot, model.SpellbookSlots); err != nil {
			return nil, err
		}
		target, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding spell target: %w", err)
		}
		return CastSpellCommand{SpellbookSlot: slot, TargetIndex: target}, nil

	case OpCommerceBuy:
		itemID, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("decoding commerce buy item: %w", err)
		}
		return CommerceBuyCommand{ItemID: itemID}, nil

	case OpCommerceSell:
		slot, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("decoding commerce sell slot: %w", err)
		}
		if err := validateSlot(slot, model.InventorySlots); err != nil {
			return nil, err
		}
		return CommerceSellCommand{Slot: slot}, nil

	default:
		return nil, fmt.Errorf("%w: unknown opcode %d", ErrFieldRange, opcode)
	}
}
