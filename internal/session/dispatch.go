package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tilerealm/worldserver/internal/broadcast"
	"github.com/tilerealm/worldserver/internal/catalog"
	"github.com/tilerealm/worldserver/internal/chatcmd"
	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/commerce"
	"github.com/tilerealm/worldserver/internal/config"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/persistence"
	"github.com/tilerealm/worldserver/internal/protocol"
	"github.com/tilerealm/worldserver/internal/spell"
	"github.com/tilerealm/worldserver/internal/world"
)

// Deps is every collaborator a handler may need — passed explicitly
// rather than reached for through a singleton, per the "no singletons"
// design note.
type Deps struct {
	World   *world.MapManager
	Store   persistence.Store
	Items   *catalog.ItemCatalog
	NPCs    *catalog.NPCCatalog
	Loot    *catalog.LootCatalog
	Spells  *catalog.SpellCatalog
	Fanout  *broadcast.Fanout
	Chat    *chatcmd.Table
	Cfg     config.Config
	Log     *slog.Logger
}

// Dispatcher routes decoded commands to handlers, one per opcode.
type Dispatcher struct {
	deps *Deps
}

// NewDispatcher builds a Dispatcher bound to deps.
func NewDispatcher(deps *Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Dispatch decodes and runs one command for sess. The caller (the
// worker pool) is responsible for holding sess's per-session lock
// around this call so commands from the same session never run
// concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, opcode byte, payload []byte) error {
	cmd, err := protocol.DecodeCommand(opcode, payload)
	if err != nil {
		return fmt.Errorf("decoding opcode %d: %w", opcode, err)
	}

	if opcode != protocol.OpLogin && !sess.Authenticated() {
		d.sendFailure(sess, "not logged in")
		return fmt.Errorf("opcode %d requires authentication: %w", opcode, model.ErrPreconditionFailed)
	}

	switch c := cmd.(type) {
	case protocol.LoginCommand:
		return d.handleLogin(ctx, sess, c)
	case protocol.WalkCommand:
		return d.handleWalk(sess, c)
	case protocol.AttackCommand:
		return d.handleAttack(ctx, sess)
	case protocol.PickupCommand:
		return d.handlePickup(ctx, sess)
	case protocol.DropCommand:
		return d.handleDrop(ctx, sess, c)
	case protocol.ChatCommand:
		return d.handleChat(sess, c)
	case protocol.CastSpellCommand:
		return d.handleCastSpell(sess, c)
	case protocol.CommerceBuyCommand:
		return d.handleCommerceBuy(ctx, sess, c)
	case protocol.CommerceSellCommand:
		return d.handleCommerceSell(ctx, sess, c)
	default:
		return fmt.Errorf("unhandled command type %T", cmd)
	}
}

// sendFailure reports a precondition/auth failure using whichever
// opcode config.UseErrorMsgOpcode selects.
func (d *Dispatcher) sendFailure(sess *Session, text string) {
	var opcode byte
	var payload []byte
	if d.deps.Cfg.UseErrorMsgOpcode {
		opcode, payload = protocol.EncodeErrorMsg(text)
	} else {
		opcode, payload = protocol.EncodeConsoleMsg(text)
	}
	_ = sess.SendEvent(opcode, payload)
}

func (d *Dispatcher) handleLogin(ctx context.Context, sess *Session, cmd protocol.LoginCommand) error {
	hash, ok, err := d.deps.Store.HashGet(ctx, persistence.AccountData(cmd.Username), "password_hash")
	if err != nil {
		return fmt.Errorf("reading account %s: %w", cmd.Username, model.ErrInternal)
	}
	if !ok || !persistence.VerifyPassword(hash, cmd.Password) {
		d.sendFailure(sess, "invalid username or password")
		return nil
	}

	userIDStr, _, err := d.deps.Store.HashGet(ctx, persistence.AccountData(cmd.Username), "user_id")
	if err != nil {
		return fmt.Errorf("reading user id for %s: %w", cmd.Username, model.ErrInternal)
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing user id for %s: %w", cmd.Username, model.ErrInternal)
	}

	p, err := d.loadPlayer(ctx, userID, cmd.Username)
	if err != nil {
		return err
	}
	p.CharIndex = d.deps.World.AllocatePlayerCharIndex()

	others, err := d.deps.World.AddPlayer(sess, p)
	if err != nil {
		d.sendFailure(sess, "your saved position is no longer available")
		return fmt.Errorf("spawning player %d: %w", userID, err)
	}
	sess.SetPlayer(p)

	// AddPlayer published p to the world; from here on tick effects can
	// mutate it concurrently, so snapshot everything under the lock
	// before encoding.
	type charSnapshot struct {
		idx  uint32
		name string
		loc  model.Location
	}
	var loc model.Location
	var hp, maxHP, mana, maxMana, stamina, maxSt int32
	var gold int64
	coLocated := make([]charSnapshot, 0, len(others))
	d.deps.World.WithLock(func() {
		loc = p.Location
		hp, maxHP, mana, maxMana, stamina, maxSt = p.HP, p.MaxHP, p.Mana, p.MaxMana, p.Stamina, p.MaxSt
		gold = p.Gold
		for _, e := range others {
			coLocated = append(coLocated, charSnapshot{idx: e.CharIndex, name: e.Name(), loc: e.Location()})
		}
	})

	opcode, payload := protocol.EncodeLogged()
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodeUserCharIndex(p.CharIndex)
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodeChangeMap(loc.Map)
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodePosUpdate(loc.X, loc.Y)
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodeUpdateUserStats(hp, maxHP, mana, maxMana, stamina, maxSt)
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodeUpdateGold(gold)
	_ = sess.SendEvent(opcode, payload)

	for _, c := range coLocated {
		opcode, payload = protocol.EncodeCharacterCreate(c.idx, c.name, c.loc.X, c.loc.Y, c.loc.Heading)
		_ = sess.SendEvent(opcode, payload)
	}

	createOpcode, createPayload := protocol.EncodeCharacterCreate(p.CharIndex, p.Name, loc.X, loc.Y, loc.Heading)
	d.broadcastMap(loc.Map, createOpcode, createPayload)
	return nil
}

func (d *Dispatcher) loadPlayer(ctx context.Context, userID int64, username string) (*model.Player, error) {
	posFields, err := d.deps.Store.HashGetAll(ctx, persistence.PlayerPosition(userID))
	if err != nil {
		return nil, fmt.Errorf("loading position for user %d: %w", userID, model.ErrInternal)
	}
	statFields, err := d.deps.Store.HashGetAll(ctx, persistence.PlayerStats(userID))
	if err != nil {
		return nil, fmt.Errorf("loading stats for user %d: %w", userID, model.ErrInternal)
	}

	p := &model.Player{
		UserID: userID,
		Name:   username,
		Location: model.Location{
			Map:     int32(atoiDefault(posFields["map"], 1)),
			X:       int32(atoiDefault(posFields["x"], 50)),
			Y:       int32(atoiDefault(posFields["y"], 50)),
			Heading: model.Heading(atoiDefault(posFields["heading"], int(model.South))),
		},
		HP:      int32(atoiDefault(statFields["hp"], 100)),
		MaxHP:   int32(atoiDefault(statFields["max_hp"], 100)),
		Mana:    int32(atoiDefault(statFields["mana"], 50)),
		MaxMana: int32(atoiDefault(statFields["max_mana"], 50)),
		Stamina: int32(atoiDefault(statFields["stamina"], 100)),
		MaxSt:   int32(atoiDefault(statFields["max_stamina"], 100)),
		Gold:    int64(atoiDefault(statFields["gold"], 0)),
		Attrs: model.Attributes{
			STR: int32(atoiDefault(statFields["str"], 10)),
			AGI: int32(atoiDefault(statFields["agi"], 10)),
			INT: int32(atoiDefault(statFields["int"], 10)),
			VIT: int32(atoiDefault(statFields["vit"], 10)),
			CHA: int32(atoiDefault(statFields["cha"], 10)),
		},
	}
	return p, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func (d *Dispatcher) broadcastMap(mapID int32, opcode byte, payload []byte) {
	framed, err := protocol.EncodeFrame(opcode, payload)
	if err != nil {
		if d.deps.Log != nil {
			d.deps.Log.Warn("encoding broadcast frame failed", "error", err)
		}
		return
	}
	d.deps.Fanout.Map(mapID, framed)
}

func (d *Dispatcher) handleWalk(sess *Session, cmd protocol.WalkCommand) error {
	p := sess.Player()

	var dead, immobilized bool
	var dst model.Location
	d.deps.World.WithLock(func() {
		dead = p.Dead
		immobilized = p.Status.Immobilized(timeNow())
		dx, dy := cmd.Heading.Delta()
		dst = model.Location{Map: p.Location.Map, X: p.Location.X + dx, Y: p.Location.Y + dy, Heading: cmd.Heading}
	})
	if dead {
		d.sendFailure(sess, "you are dead")
		return nil
	}
	if immobilized {
		d.sendFailure(sess, "you cannot move")
		return nil
	}

	prev, next, err := d.deps.World.MoveEntity(p.CharIndex, dst)
	if err != nil {
		if errors.Is(err, model.ErrTileBlocked) {
			opcode, payload := protocol.EncodeBlockPosition(prev.X, prev.Y)
			return sess.SendEvent(opcode, payload)
		}
		return fmt.Errorf("walking: %w", err)
	}

	// MoveEntity committed p.Location under the world lock; next is the
	// authoritative position from here on.
	opcode, payload := protocol.EncodeCharacterMove(p.CharIndex, next.X, next.Y, next.Heading)
	d.broadcastMap(next.Map, opcode, payload)

	if ex, ok := d.deps.World.GetExitTile(next.Map, next.X, next.Y); ok {
		return d.crossExit(sess, p, next, ex)
	}
	return nil
}

func (d *Dispatcher) crossExit(sess *Session, p *model.Player, from model.Location, ex world.Exit) error {
	removeOpcode, removePayload := protocol.EncodeCharacterRemove(p.CharIndex)
	d.broadcastMap(from.Map, removeOpcode, removePayload)

	dst := model.Location{Map: ex.DestMap, X: ex.DestX, Y: ex.DestY, Heading: from.Heading}
	_, next, err := d.deps.World.MoveEntity(p.CharIndex, dst)
	if err != nil {
		return fmt.Errorf("crossing exit: %w", err)
	}

	opcode, payload := protocol.EncodeChangeMap(next.Map)
	_ = sess.SendEvent(opcode, payload)
	opcode, payload = protocol.EncodePosUpdate(next.X, next.Y)
	_ = sess.SendEvent(opcode, payload)

	createOpcode, createPayload := protocol.EncodeCharacterCreate(p.CharIndex, p.Name, next.X, next.Y, next.Heading)
	d.broadcastMap(next.Map, createOpcode, createPayload)
	return nil
}

func (d *Dispatcher) handleAttack(ctx context.Context, sess *Session) error {
	p := sess.Player()

	var dead bool
	var loc model.Location
	d.deps.World.WithLock(func() {
		dead = p.Dead
		loc = p.Location
	})
	if dead {
		d.sendFailure(sess, "you are dead")
		return nil
	}
	dx, dy := loc.Heading.Delta()
	targetTile := model.Tile{X: loc.X + dx, Y: loc.Y + dy}

	entities := d.deps.World.ListEntitiesInMap(loc.Map)
	var target *model.Entity
	d.deps.World.WithLock(func() {
		for _, e := range entities {
			if e.Location().Tile() == targetTile && e.Alive() {
				target = e
				break
			}
		}
	})
	if target == nil {
		d.sendFailure(sess, "no target there")
		return nil
	}

	switch target.Kind {
	case model.KindNPC:
		return d.attackNPC(ctx, sess, p, target.NPC)
	case model.KindPlayer:
		d.sendFailure(sess, "pvp is not enabled")
		return nil
	}
	return nil
}

func (d *Dispatcher) attackNPC(ctx context.Context, sess *Session, p *model.Player, n *model.NPC) error {
	if !n.Attackable {
		d.sendFailure(sess, "that cannot be attacked")
		return nil
	}

	// The read-modify-write of n.HP must be atomic: two sessions
	// attacking the same NPC race on it otherwise, and both would see
	// the kill. Only the attacker that observes the HP transition to
	// zero removes the NPC and arms the respawn; a late arrival finds
	// it already dead and backs off.
	var result combat.AttackResult
	var gone bool
	var npcLoc model.Location
	d.deps.World.WithLock(func() {
		if n.IsDead() {
			gone = true
			return
		}
		npcLoc = n.Location
		result = combat.PlayerAttack(p, 0, n.Defense, n.HP)
		n.HP = result.TargetNewHP
		if result.Killed {
			combat.KillNPC(n, timeNow())
		}
	})
	if gone {
		d.sendFailure(sess, "no target there")
		return nil
	}

	if result.Hit {
		opcode, payload := protocol.EncodeUserHitNPC(p.CharIndex, n.CharIndex, result.Damage)
		d.broadcastMap(npcLoc.Map, opcode, payload)
	}

	if result.Killed {
		d.deps.World.RemoveEntity(n.CharIndex)
		d.deps.World.ScheduleRespawn(n)
		removeOpcode, removePayload := protocol.EncodeCharacterRemove(n.CharIndex)
		d.broadcastMap(npcLoc.Map, removeOpcode, removePayload)

		var stack model.ItemStack
		gold := combat.RollGold(n.GoldMin, n.GoldMax)
		switch {
		case gold > 0:
			stack = model.ItemStack{ItemID: 0, Quantity: int32(gold)}
		case d.deps.Loot != nil && n.LootTable != 0:
			if table, ok := d.deps.Loot.Tables[n.LootTable]; ok {
				if drops := catalog.Roll(table); len(drops) > 0 {
					stack = model.ItemStack{ItemID: drops[0].ItemID, Quantity: drops[0].Quantity}
				}
			}
		}

		if stack.Quantity > 0 {
			item := &model.GroundItem{Stack: stack, DroppedAt: timeNow()}
			if err := d.deps.World.AddGroundItem(npcLoc.Map, npcLoc.X, npcLoc.Y, item); err == nil {
				d.persistGroundAdd(ctx, npcLoc.Map, npcLoc.X, npcLoc.Y, item)
				objOpcode, objPayload := protocol.EncodeObjectCreate(npcLoc.X, npcLoc.Y, stack.ItemID, stack.Quantity)
				d.broadcastMap(npcLoc.Map, objOpcode, objPayload)
			}
		}
	}
	return nil
}

func (d *Dispatcher) handlePickup(ctx context.Context, sess *Session) error {
	p := sess.Player()

	var loc model.Location
	d.deps.World.WithLock(func() { loc = p.Location })

	item, ok := d.deps.World.GetGroundItem(loc.Map, loc.X, loc.Y)
	if !ok {
		d.sendFailure(sess, "nothing here to pick up")
		return nil
	}

	var gold int64
	var slot int
	var isGold, full bool
	d.deps.World.WithLock(func() {
		if item.Stack.ItemID == 0 {
			isGold = true
			p.Gold += int64(item.Stack.Quantity)
			gold = p.Gold
			return
		}
		var free bool
		slot, free = firstFreeInventorySlot(p)
		if !free {
			full = true
			return
		}
		p.Inventory[slot] = &model.ItemStack{ItemID: item.Stack.ItemID, Quantity: item.Stack.Quantity, Enchant: item.Stack.Enchant}
	})
	if full {
		d.sendFailure(sess, "inventory is full")
		return nil
	}

	if isGold {
		opcode, payload := protocol.EncodeUpdateGold(gold)
		_ = sess.SendEvent(opcode, payload)
	} else {
		opcode, payload := protocol.EncodeChangeInventorySlot(int32(slot+1), item.Stack.ItemID, item.Stack.Quantity)
		_ = sess.SendEvent(opcode, payload)
	}

	d.deps.World.RemoveGroundItem(loc.Map, loc.X, loc.Y)
	if err := persistence.DeleteGroundItem(ctx, d.deps.Store, loc.Map, loc.X, loc.Y); err != nil && d.deps.Log != nil {
		d.deps.Log.Warn("deleting persisted ground item failed", "error", err)
	}
	return nil
}

func firstFreeInventorySlot(p *model.Player) (int, bool) {
	for i, s := range p.Inventory {
		if s == nil {
			return i, true
		}
	}
	return 0, false
}

func (d *Dispatcher) handleDrop(ctx context.Context, sess *Session, cmd protocol.DropCommand) error {
	p := sess.Player()
	idx := cmd.Slot - 1

	var dropped *model.ItemStack
	var loc model.Location
	var slotItem, slotQty int32
	var empty, short bool
	d.deps.World.WithLock(func() {
		loc = p.Location
		stack := p.Inventory[idx]
		if stack == nil {
			empty = true
			return
		}
		var ok bool
		dropped, ok = stack.Split(cmd.Quantity)
		if !ok {
			short = true
			return
		}
		if stack.Quantity == 0 {
			p.Inventory[idx] = nil
		} else {
			slotItem, slotQty = stack.ItemID, stack.Quantity
		}
	})
	if empty {
		d.sendFailure(sess, "that slot is empty")
		return nil
	}
	if short {
		d.sendFailure(sess, "not enough in that stack")
		return nil
	}

	item := &model.GroundItem{Stack: *dropped, DroppedAt: timeNow()}
	if err := d.deps.World.AddGroundItem(loc.Map, loc.X, loc.Y, item); err != nil {
		d.deps.World.WithLock(func() {
			if s := p.Inventory[idx]; s != nil {
				s.Quantity += dropped.Quantity
			} else {
				p.Inventory[idx] = dropped
			}
		})
		d.sendFailure(sess, "there is already something on the ground here")
		return nil
	}
	d.persistGroundAdd(ctx, loc.Map, loc.X, loc.Y, item)

	opcode, payload := protocol.EncodeChangeInventorySlot(cmd.Slot, slotItem, slotQty)
	_ = sess.SendEvent(opcode, payload)

	objOpcode, objPayload := protocol.EncodeObjectCreate(loc.X, loc.Y, dropped.ItemID, dropped.Quantity)
	d.broadcastMap(loc.Map, objOpcode, objPayload)
	return nil
}

// persistGroundAdd mirrors a committed in-memory drop to the KV store
// so restarts preserve the ground. A write failure is logged, not
// surfaced — the in-memory world stays authoritative for this run.
func (d *Dispatcher) persistGroundAdd(ctx context.Context, mapID, x, y int32, item *model.GroundItem) {
	if err := persistence.SaveGroundItem(ctx, d.deps.Store, mapID, x, y, item); err != nil && d.deps.Log != nil {
		d.deps.Log.Warn("persisting ground item failed", "error", err)
	}
}

func (d *Dispatcher) handleChat(sess *Session, cmd protocol.ChatCommand) error {
	p := sess.Player()
	if parsed, ok := chatcmd.Parse(cmd.Text); ok {
		reply, handled, err := d.deps.Chat.Dispatch(p.UserID, parsed)
		if err != nil {
			d.sendFailure(sess, err.Error())
			return nil
		}
		if handled && reply != "" {
			opcode, payload := protocol.EncodeConsoleMsg(reply)
			return sess.SendEvent(opcode, payload)
		}
		if !handled {
			d.sendFailure(sess, fmt.Sprintf("unknown command /%s", parsed.Name))
		}
		return nil
	}

	opcode, payload := protocol.EncodeConsoleMsg(p.Name + ": " + cmd.Text)
	d.broadcastMap(p.Location.Map, opcode, payload)
	return nil
}

func (d *Dispatcher) handleCastSpell(sess *Session, cmd protocol.CastSpellCommand) error {
	p := sess.Player()
	slotIdx := cmd.SpellbookSlot - 1
	spellID := p.Spellbook[slotIdx]
	if spellID == 0 {
		d.sendFailure(sess, "no spell in that slot")
		return nil
	}
	def, ok := d.deps.Spells.Get(spellID)
	if !ok {
		d.sendFailure(sess, "unknown spell")
		return nil
	}

	target := p
	if cmd.TargetIndex != 0 && cmd.TargetIndex != p.CharIndex {
		e, ok := d.deps.World.GetEntity(cmd.TargetIndex)
		if !ok || e.Kind != model.KindPlayer {
			d.sendFailure(sess, "invalid target")
			return nil
		}
		target = e.Player
	}

	var res spell.Result
	var castErr error
	var hp, maxHP, mana, maxMana, stamina, maxSt int32
	d.deps.World.WithLock(func() {
		res, castErr = spell.Cast(def, p, target, timeNow())
		hp, maxHP, mana, maxMana, stamina, maxSt = target.HP, target.MaxHP, target.Mana, target.MaxMana, target.Stamina, target.MaxSt
	})
	if castErr != nil {
		d.sendFailure(sess, castErr.Error())
		return nil
	}

	if res.DamageDealt > 0 || res.HealAmount > 0 {
		opcode, payload := protocol.EncodeUpdateUserStats(hp, maxHP, mana, maxMana, stamina, maxSt)
		_ = sess.SendEvent(opcode, payload)
	}
	return nil
}

func (d *Dispatcher) handleCommerceBuy(ctx context.Context, sess *Session, cmd protocol.CommerceBuyCommand) error {
	p := sess.Player()
	item, ok := d.deps.Items.Get(cmd.ItemID)
	if !ok {
		d.sendFailure(sess, "no such item")
		return nil
	}
	if err := commerce.Buy(ctx, d.deps.Store, d.deps.World, p, item.ID, 0); err != nil {
		d.sendFailure(sess, "cannot buy that item")
		return nil
	}
	var gold int64
	d.deps.World.WithLock(func() { gold = p.Gold })
	opcode, payload := protocol.EncodeUpdateGold(gold)
	return sess.SendEvent(opcode, payload)
}

func (d *Dispatcher) handleCommerceSell(ctx context.Context, sess *Session, cmd protocol.CommerceSellCommand) error {
	p := sess.Player()
	if err := commerce.Sell(ctx, d.deps.World, p, int(cmd.Slot-1), 0); err != nil {
		d.sendFailure(sess, "cannot sell that")
		return nil
	}
	var gold int64
	d.deps.World.WithLock(func() { gold = p.Gold })
	opcode, payload := protocol.EncodeUpdateGold(gold)
	return sess.SendEvent(opcode, payload)
}

func timeNow() time.Time { return time.Now() }
