package persistence

import "fmt"

// Key-space helpers: every caller builds keys through these instead of
// hand-formatting strings so a rename touches one place.
const CountersAccounts = "accounts:counter"

func AccountData(username string) string        { return fmt.Sprintf("account:%s:data", username) }
func AccountUsernameIndex(username string) string { return fmt.Sprintf("account:username:%s", username) }

func PlayerStats(userID int64) string        { return fmt.Sprintf("player:%d:stats", userID) }
func PlayerPosition(userID int64) string     { return fmt.Sprintf("player:%d:position", userID) }
func PlayerSkills(userID int64) string       { return fmt.Sprintf("player:%d:skills", userID) }
func PlayerAttributes(userID int64) string   { return fmt.Sprintf("player:%d:attributes", userID) }
func PlayerStatus(userID int64) string       { return fmt.Sprintf("player:%d:status", userID) }
func PlayerHungerThirst(userID int64) string { return fmt.Sprintf("player:%d:hunger_thirst", userID) }

func InventorySlots(userID int64) string { return fmt.Sprintf("inventory:%d:slots", userID) }
func BankVault(userID int64) string      { return fmt.Sprintf("bank:%d:vault", userID) }
func Spellbook(userID int64) string      { return fmt.Sprintf("spellbook:%d", userID) }

func GroundItem(mapID, x, y int32) string { return fmt.Sprintf("ground:%d:%d:%d", mapID, x, y) }

const GroundIndex = "ground:index"
func NPCState(charIndex uint32) string    { return fmt.Sprintf("npc:%d", charIndex) }

func Party(id int32) string         { return fmt.Sprintf("party:%d", id) }
func PartyMembers(id int32) string  { return fmt.Sprintf("party:%d:members", id) }
func UserParty(userID int64) string { return fmt.Sprintf("user:%d:party", userID) }

const PartyIndex = "party:index"

func Clan(id int32) string         { return fmt.Sprintf("clan:%d", id) }
func ClanMembers(id int32) string  { return fmt.Sprintf("clan:%d:members", id) }
func UserClan(userID int64) string { return fmt.Sprintf("user:%d:clan", userID) }

const ClanIndex = "clan:index"

func EffectConfig(name string) string { return fmt.Sprintf("config:effects:%s", name) }

const (
	ServerConnectionsCount = "server:connections:count"
	ServerUptime           = "server:uptime"
)
