package protocol

// Client command opcodes — the byte that begins every frame the server
// reads from a connection.
const (
	OpLogin        byte = 1
	OpWalk         byte = 2
	OpAttack       byte = 3
	OpPickup       byte = 4
	OpDrop         byte = 5
	OpChat         byte = 6
	OpCastSpell    byte = 7
	OpCommerceBuy  byte = 8
	OpCommerceSell byte = 9
)

// Server event opcodes — payloads the server sends to a connection.
const (
	OpChangeMap             byte = 20
	OpPosUpdate             byte = 21
	OpCharacterCreate       byte = 22
	OpCharacterMove         byte = 23
	OpConsoleMsg            byte = 24
	OpCharacterRemove       byte = 25
	OpUpdateUserStats       byte = 26
	OpUpdateHungerAndThirst byte = 27
	OpUpdateGold            byte = 28
	OpChangeInventorySlot   byte = 29
	OpPlayWave              byte = 30
	OpCreateFX              byte = 31
	OpCommerceInit          byte = 32
	OpCommerceEnd           byte = 33
	OpObjectCreate          byte = 34
	OpBlockPosition         byte = 35
	OpLogged                byte = 36
	OpUserCharIndex         byte = 37
	OpMultiMessage          byte = 38
	// ErrorMsg exists alongside ConsoleMsg per the configurable
	// UseErrorMsgOpcode choice (internal/config) rather than being
	// baked in as the only failure-report opcode.
	OpErrorMsg byte = 55
)

// MultiMessage sub-opcodes, multiplexed behind OpMultiMessage.
const (
	SubNPCHitUser        byte = 12
	SubUserHitNPC        byte = 13
	SubWorkRequestTarget byte = 17
)
