package ai

import (
	"context"
	"testing"
	"time"

	"github.com/tilerealm/worldserver/internal/combat"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

type fakeBroadcaster struct {
	moves   int
	attacks int
	removes int
}

func (f *fakeBroadcaster) BroadcastMove(int32, uint32, model.Location, model.Location)    { f.moves++ }
func (f *fakeBroadcaster) BroadcastAttack(int32, uint32, uint32, combat.AttackResult)      { f.attacks++ }
func (f *fakeBroadcaster) BroadcastRemove(int32, uint32)                                   { f.removes++ }

type fakeObserver struct{ idx uint32 }

func (f *fakeObserver) CharIndex() uint32         { return f.idx }
func (f *fakeObserver) Send(payload []byte) error { return nil }

func newTestWorld() *world.MapManager {
	m := world.NewMapManager()
	m.RegisterMap(world.NewMapDef(1))
	return m
}

func TestNPCAI_StaticNPCNeverMoves(t *testing.T) {
	w := newTestWorld()
	n := &model.NPC{CharIndex: w.AllocateNPCCharIndex(), Static: true, Location: model.Location{Map: 1, X: 10, Y: 10}, Spawn: model.Tile{X: 10, Y: 10}}
	if err := w.AddNPC(n); err != nil {
		t.Fatalf("AddNPC() error = %v", err)
	}

	bcast := &fakeBroadcaster{}
	eff := NewEffect(w, bcast, time.Second, nil)
	eff.Apply(context.Background(), time.Now())

	if bcast.moves != 0 {
		t.Errorf("moves = %d, want 0 for a static NPC", bcast.moves)
	}
}

func TestNPCAI_AttacksAdjacentHostileTarget(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 11, Y: 10}, HP: 100}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	n := &model.NPC{
		CharIndex: w.AllocateNPCCharIndex(), Hostile: true, STR: 1000, HP: 100,
		Location: model.Location{Map: 1, X: 10, Y: 10}, Spawn: model.Tile{X: 10, Y: 10},
		AggroRange: 5,
	}
	if err := w.AddNPC(n); err != nil {
		t.Fatalf("AddNPC() error = %v", err)
	}

	bcast := &fakeBroadcaster{}
	eff := NewEffect(w, bcast, time.Second, nil)
	eff.Apply(context.Background(), time.Now())

	if bcast.attacks != 1 {
		t.Errorf("attacks = %d, want 1", bcast.attacks)
	}
	if bcast.moves != 0 {
		t.Errorf("moves = %d, want 0 when attacking instead of moving", bcast.moves)
	}
}

func TestNPCAI_RespectsAttackCooldown(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 11, Y: 10}, HP: 100}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	now := time.Now()
	n := &model.NPC{
		CharIndex: w.AllocateNPCCharIndex(), Hostile: true, STR: 1, HP: 100,
		Location: model.Location{Map: 1, X: 10, Y: 10}, Spawn: model.Tile{X: 10, Y: 10},
		AggroRange: 5, AttackCooldownS: 60, LastAttackAt: now,
	}
	if err := w.AddNPC(n); err != nil {
		t.Fatalf("AddNPC() error = %v", err)
	}

	bcast := &fakeBroadcaster{}
	eff := NewEffect(w, bcast, time.Second, nil)
	eff.Apply(context.Background(), now.Add(time.Second))

	if bcast.attacks != 0 {
		t.Errorf("attacks = %d, want 0 while on cooldown", bcast.attacks)
	}
}
