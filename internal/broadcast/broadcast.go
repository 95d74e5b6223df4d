// Package broadcast computes observer sets and fans encoded events out
// to their outbound buffers.
package broadcast

import (
	"log/slog"

	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/protocol"
	"github.com/tilerealm/worldserver/internal/world"
)

// Fanout enqueues an already-encoded payload on every observer returned
// by the world for (mapID, x, y). A slow or closed observer's error is
// logged and does not stop delivery to the rest — per-connection
// backpressure handling (closing the connection) lives in the
// connection layer, not here.
type Fanout struct {
	world *world.MapManager
	log   *slog.Logger
}

// NewFanout builds a Fanout bound to the given world manager.
func NewFanout(w *world.MapManager, log *slog.Logger) *Fanout {
	return &Fanout{world: w, log: log}
}

// Map broadcasts payload to every session on mapID — the whole-map
// strategy for movement, attack FX, public chat, and create/remove
// character events; clients cull to their own view range.
func (f *Fanout) Map(mapID int32, payload []byte) {
	for _, obs := range f.world.GetObservers(mapID, 0, 0, 0) {
		if err := obs.Send(payload); err != nil && f.log != nil {
			f.log.Warn("broadcast send failed", "char_index", obs.CharIndex(), "error", err)
		}
	}
}

// To enqueues payload on a single observer — used for private messages
// and any event whose recipient is known in advance. Returns the send
// error so the caller can surface "target offline" to the sender.
func (f *Fanout) To(obs world.Observer, payload []byte) error {
	return obs.Send(payload)
}

// ToMany enqueues payload on each observer in a precomputed set — used
// for clan chat (members) and party chat (party members), where the
// recipient set comes from the clan/party collaborator rather than
// from spatial proximity.
func (f *Fanout) ToMany(observers []world.Observer, payload []byte) {
	for _, obs := range observers {
		if err := obs.Send(payload); err != nil && f.log != nil {
			f.log.Warn("broadcast send failed", "char_index", obs.CharIndex(), "error", err)
		}
	}
}

// Events bridges the tick effects and NPC AI to the wire: it owns the
// frame-encoding step so neither package needs to import protocol
// itself for the handful of event types they broadcast or privately
// deliver. This is the implementation handed to ai.NewEffect as its
// Broadcaster and to each per-player tick effect as its Notifier.
type Events struct {
	fanout *Fanout
	world  *world.MapManager
	log    *slog.Logger
}

// NewEvents builds an Events bound to fanout and w.
func NewEvents(fanout *Fanout, w *world.MapManager, log *slog.Logger) *Events {
	return &Events{fanout: fanout, world: w, log: log}
}

func (e *Events) frame(opcode byte, payload []byte) ([]byte, bool) {
	framed, err := protocol.EncodeFrame(opcode, payload)
	if err != nil {
		if e.log != nil {
			e.log.Warn("encoding event frame failed", "opcode", opcode, "error", err)
		}
		return nil, false
	}
	return framed, true
}

// BroadcastMove announces an entity's new position to its map.
func (e *Events) BroadcastMove(mapID int32, charIndex uint32, from, to model.Location) {
	opcode, payload := protocol.EncodeCharacterMove(charIndex, to.X, to.Y, to.Heading)
	if framed, ok := e.frame(opcode, payload); ok {
		e.fanout.Map(mapID, framed)
	}
}

// BroadcastAttack announces an NPC's attack on a player. Misses produce
// no event, matching the player-attack handler's own convention.
func (e *Events) BroadcastAttack(mapID int32, attackerIdx, targetIdx uint32, result combat.AttackResult) {
	if !result.Hit {
		return
	}
	opcode, payload := protocol.EncodeNPCHitUser(attackerIdx, targetIdx, result.Damage)
	if framed, ok := e.frame(opcode, payload); ok {
		e.fanout.Map(mapID, framed)
	}
}

// BroadcastRemove announces an entity's removal from the world.
func (e *Events) BroadcastRemove(mapID int32, charIndex uint32) {
	opcode, payload := protocol.EncodeCharacterRemove(charIndex)
	if framed, ok := e.frame(opcode, payload); ok {
		e.fanout.Map(mapID, framed)
	}
}

// BroadcastCreate announces an entity's arrival — used by RespawnTimers
// once a killed NPC is reinstated at its spawn anchor.
func (e *Events) BroadcastCreate(mapID int32, charIndex uint32, name string, x, y int32, heading model.Heading) {
	opcode, payload := protocol.EncodeCharacterCreate(charIndex, name, x, y, heading)
	if framed, ok := e.frame(opcode, payload); ok {
		e.fanout.Map(mapID, framed)
	}
}

// Notify delivers an already-encoded-by-caller event privately to one
// player, looking the session sink up by charIndex. A missing or
// offline target is not an error — the player may have logged out
// between the tick snapshot and delivery.
func (e *Events) Notify(charIndex uint32, opcode byte, payload []byte) {
	obs, ok := e.world.GetObserver(charIndex)
	if !ok {
		return
	}
	framed, ok := e.frame(opcode, payload)
	if !ok {
		return
	}
	if err := e.fanout.To(obs, framed); err != nil && e.log != nil {
		e.log.Warn("notify failed", "char_index", charIndex, "error", err)
	}
}
