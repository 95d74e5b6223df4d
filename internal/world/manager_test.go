package world

import (
	"errors"
	"testing"

	"github.com/tilerealm/worldserver/internal/model"
)

type fakeObserver struct {
	idx uint32
	out [][]byte
}

func (f *fakeObserver) CharIndex() uint32 { return f.idx }

func (f *fakeObserver) Send(payload []byte) error {
	f.out = append(f.out, payload)
	return nil
}

func newTestManager() *MapManager {
	m := NewMapManager()
	m.RegisterMap(NewMapDef(1))
	return m
}

func TestAddPlayer_OccupiesTileAndReturnsSnapshot(t *testing.T) {
	m := newTestManager()
	p1 := &model.Player{CharIndex: 1, Name: "a", Location: model.Location{Map: 1, X: 50, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 1}, p1); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	if m.CanMoveTo(1, 50, 50) {
		t.Error("CanMoveTo() on occupied tile = true, want false")
	}

	p2 := &model.Player{CharIndex: 2, Name: "b", Location: model.Location{Map: 1, X: 51, Y: 50}}
	snapshot, err := m.AddPlayer(&fakeObserver{idx: 2}, p2)
	if err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].CharIndex != 1 {
		t.Errorf("AddPlayer() snapshot = %+v, want [char 1]", snapshot)
	}
}

func TestAddPlayer_BlockedTileFails(t *testing.T) {
	m := newTestManager()
	p1 := &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 50, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 1}, p1); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	p2 := &model.Player{CharIndex: 2, Location: model.Location{Map: 1, X: 50, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 2}, p2); !errors.Is(err, model.ErrTileBlocked) {
		t.Errorf("AddPlayer() onto occupied tile error = %v, want ErrTileBlocked", err)
	}
}

func TestMoveEntity_FreesSourceClaimsDestination(t *testing.T) {
	m := newTestManager()
	p := &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 50, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 1}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	_, _, err := m.MoveEntity(1, model.Location{Map: 1, X: 51, Y: 50})
	if err != nil {
		t.Fatalf("MoveEntity() error = %v", err)
	}
	if !m.CanMoveTo(1, 50, 50) {
		t.Error("source tile still occupied after MoveEntity()")
	}
	if m.CanMoveTo(1, 51, 50) {
		t.Error("destination tile not occupied after MoveEntity()")
	}
}

func TestMoveEntity_RejectsBlockedDestination(t *testing.T) {
	m := newTestManager()
	p1 := &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 50, Y: 50}}
	p2 := &model.Player{CharIndex: 2, Location: model.Location{Map: 1, X: 51, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 1}, p1); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if _, err := m.AddPlayer(&fakeObserver{idx: 2}, p2); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	prev, next, err := m.MoveEntity(1, model.Location{Map: 1, X: 51, Y: 50})
	if !errors.Is(err, model.ErrTileBlocked) {
		t.Fatalf("MoveEntity() onto occupied tile error = %v, want ErrTileBlocked", err)
	}
	if prev != next {
		t.Errorf("MoveEntity() on failure prev=%v next=%v, want equal", prev, next)
	}
}

func TestRemoveEntity_FreesTileAndIsIdempotent(t *testing.T) {
	m := newTestManager()
	p := &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 50, Y: 50}}
	if _, err := m.AddPlayer(&fakeObserver{idx: 1}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	m.RemoveEntity(1)
	if !m.CanMoveTo(1, 50, 50) {
		t.Error("tile still occupied after RemoveEntity()")
	}
	m.RemoveEntity(1) // must not panic

	if _, ok := m.GetEntity(1); ok {
		t.Error("GetEntity() after RemoveEntity() still found entity")
	}
}

func TestGetObservers_ExcludesSessionlessEntities(t *testing.T) {
	m := newTestManager()
	p := &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 50, Y: 50}}
	obs := &fakeObserver{idx: 1}
	if _, err := m.AddPlayer(obs, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	n := &model.NPC{CharIndex: m.AllocateNPCCharIndex(), Location: model.Location{Map: 1, X: 52, Y: 50}}
	if err := m.AddNPC(n); err != nil {
		t.Fatalf("AddNPC() error = %v", err)
	}

	observers := m.GetObservers(1, 50, 50, 0)
	if len(observers) != 1 || observers[0].CharIndex() != 1 {
		t.Errorf("GetObservers() = %v, want [char 1]", observers)
	}
}

func TestGroundItem_AtMostOnePerTile(t *testing.T) {
	m := newTestManager()
	item := &model.GroundItem{Stack: model.ItemStack{ItemID: 5, Quantity: 1}}
	if err := m.AddGroundItem(1, 10, 10, item); err != nil {
		t.Fatalf("AddGroundItem() error = %v", err)
	}
	if err := m.AddGroundItem(1, 10, 10, item); !errors.Is(err, model.ErrConflict) {
		t.Errorf("AddGroundItem() on occupied tile error = %v, want ErrConflict", err)
	}

	got, ok := m.RemoveGroundItem(1, 10, 10)
	if !ok || got.Stack.ItemID != 5 {
		t.Errorf("RemoveGroundItem() = %v, %v, want the dropped stack", got, ok)
	}
	if _, ok := m.RemoveGroundItem(1, 10, 10); ok {
		t.Error("RemoveGroundItem() after removal found a stack")
	}
}

func TestDegradesToAllWalkableWhenMapNotRegistered(t *testing.T) {
	m := NewMapManager()
	if !m.CanMoveTo(999, 1, 1) {
		t.Error("CanMoveTo() on unregistered map = false, want degrade-to-walkable true")
	}
}
