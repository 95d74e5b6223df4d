package protocol

import "github.com/tilerealm/worldserver/internal/model"

// EncodeLogged encodes the post-authentication acknowledgement.
func EncodeLogged() (byte, []byte) {
	return OpLogged, nil
}

// EncodeUserCharIndex tells the client its own char_index.
func EncodeUserCharIndex(charIndex uint32) (byte, []byte) {
	w := NewWriter(4)
	w.WriteUint32(charIndex)
	return OpUserCharIndex, w.Bytes()
}

// EncodeChangeMap tells the client which map it is now on.
func EncodeChangeMap(mapID int32) (byte, []byte) {
	w := NewWriter(4)
	w.WriteInt32(mapID)
	return OpChangeMap, w.Bytes()
}

// EncodePosUpdate tells the client its own authoritative position.
func EncodePosUpdate(x, y int32) (byte, []byte) {
	w := NewWriter(8)
	w.WriteInt32(x)
	w.WriteInt32(y)
	return OpPosUpdate, w.Bytes()
}

// EncodeCharacterCreate announces an entity's appearance at a tile.
func EncodeCharacterCreate(charIndex uint32, name string, x, y int32, heading model.Heading) (byte, []byte) {
	w := NewWriter(16 + len(name))
	w.WriteUint32(charIndex)
	w.WriteString(name)
	w.WriteInt32(x)
	w.WriteInt32(y)
	w.WriteByte(byte(heading))
	return OpCharacterCreate, w.Bytes()
}

// EncodeCharacterMove announces an entity's step to a new tile.
func EncodeCharacterMove(charIndex uint32, x, y int32, heading model.Heading) (byte, []byte) {
	w := NewWriter(13)
	w.WriteUint32(charIndex)
	w.WriteInt32(x)
	w.WriteInt32(y)
	w.WriteByte(byte(heading))
	return OpCharacterMove, w.Bytes()
}

// EncodeCharacterRemove announces an entity's departure from world state.
func EncodeCharacterRemove(charIndex uint32) (byte, []byte) {
	w := NewWriter(4)
	w.WriteUint32(charIndex)
	return OpCharacterRemove, w.Bytes()
}

// EncodeUpdateUserStats sends a player's core vitals.
func EncodeUpdateUserStats(hp, maxHP, mana, maxMana, stamina, maxStamina int32) (byte, []byte) {
	w := NewWriter(24)
	w.WriteInt32(hp)
	w.WriteInt32(maxHP)
	w.WriteInt32(mana)
	w.WriteInt32(maxMana)
	w.WriteInt32(stamina)
	w.WriteInt32(maxStamina)
	return OpUpdateUserStats, w.Bytes()
}

// EncodeUpdateHungerAndThirst sends the HungerThirst tick effect's output.
func EncodeUpdateHungerAndThirst(hunger, thirst int32) (byte, []byte) {
	w := NewWriter(8)
	w.WriteInt32(hunger)
	w.WriteInt32(thirst)
	return OpUpdateHungerAndThirst, w.Bytes()
}

// EncodeUpdateGold sends a player's current gold total.
func EncodeUpdateGold(gold int64) (byte, []byte) {
	w := NewWriter(8)
	w.WriteUint32(uint32(gold >> 32))
	w.WriteUint32(uint32(gold))
	return OpUpdateGold, w.Bytes()
}

// EncodeChangeInventorySlot sends the new contents (or emptiness) of one
// inventory slot.
func EncodeChangeInventorySlot(slot int32, itemID, quantity int32) (byte, []byte) {
	w := NewWriter(12)
	w.WriteInt32(slot)
	w.WriteInt32(itemID)
	w.WriteInt32(quantity)
	return OpChangeInventorySlot, w.Bytes()
}

// EncodeConsoleMsg sends a non-fatal informational line to the client.
// Used by default for precondition-failure reporting (see
// config.UseErrorMsgOpcode).
func EncodeConsoleMsg(text string) (byte, []byte) {
	w := NewWriter(2 + len(text))
	w.WriteString(text)
	return OpConsoleMsg, w.Bytes()
}

// EncodeErrorMsg sends the alternate error-reporting opcode, available
// for deployments that set config.UseErrorMsgOpcode.
func EncodeErrorMsg(text string) (byte, []byte) {
	w := NewWriter(2 + len(text))
	w.WriteString(text)
	return OpErrorMsg, w.Bytes()
}

// EncodePlayWave triggers a one-shot sound effect at an entity. No tick
// effect sends ambient NPC sounds with it.
func EncodePlayWave(charIndex uint32, waveID int32) (byte, []byte) {
	w := NewWriter(8)
	w.WriteUint32(charIndex)
	w.WriteInt32(waveID)
	return OpPlayWave, w.Bytes()
}

// EncodeCreateFX triggers a one-shot visual effect at an entity.
func EncodeCreateFX(charIndex uint32, fxID int32) (byte, []byte) {
	w := NewWriter(8)
	w.WriteUint32(charIndex)
	w.WriteInt32(fxID)
	return OpCreateFX, w.Bytes()
}

// EncodeCommerceInit opens a merchant trade window on the client.
func EncodeCommerceInit(merchantCharIndex uint32) (byte, []byte) {
	w := NewWriter(4)
	w.WriteUint32(merchantCharIndex)
	return OpCommerceInit, w.Bytes()
}

// EncodeCommerceEnd closes the trade window.
func EncodeCommerceEnd() (byte, []byte) {
	return OpCommerceEnd, nil
}

// EncodeObjectCreate announces a ground item's appearance.
func EncodeObjectCreate(x, y int32, itemID, quantity int32) (byte, []byte) {
	w := NewWriter(16)
	w.WriteInt32(x)
	w.WriteInt32(y)
	w.WriteInt32(itemID)
	w.WriteInt32(quantity)
	return OpObjectCreate, w.Bytes()
}

// EncodeBlockPosition tells the client its attempted move was rejected
// and restates its authoritative tile.
func EncodeBlockPosition(x, y int32) (byte, []byte) {
	w := NewWriter(8)
	w.WriteInt32(x)
	w.WriteInt32(y)
	return OpBlockPosition, w.Bytes()
}

// EncodeMultiMessage encodes one of the MULTI_MESSAGE sub-opcode
// notifications. args are sub-opcode-specific u32 fields (e.g. attacker
// and target char_index for the hit notifications).
func EncodeMultiMessage(sub byte, args ...uint32) (byte, []byte) {
	w := NewWriter(1 + 4*len(args))
	w.WriteByte(sub)
	for _, a := range args {
		w.WriteUint32(a)
	}
	return OpMultiMessage, w.Bytes()
}

// EncodeUserHitNPC encodes the MULTI_MESSAGE notification for a player
// landing a hit on an NPC.
func EncodeUserHitNPC(attacker, target uint32, damage int32) (byte, []byte) {
	return EncodeMultiMessage(SubUserHitNPC, attacker, target, uint32(damage))
}

// EncodeNPCHitUser encodes the MULTI_MESSAGE notification for an NPC
// landing a hit on a player.
func EncodeNPCHitUser(attacker, target uint32, damage int32) (byte, []byte) {
	return EncodeMultiMessage(SubNPCHitUser, attacker, target, uint32(damage))
}

// EncodeWorkRequestTarget encodes the MULTI_MESSAGE notification
// prompting the client to select a target (e.g. for a harvesting skill).
func EncodeWorkRequestTarget(requester uint32) (byte, []byte) {
	return EncodeMultiMessage(SubWorkRequestTarget, requester)
}
