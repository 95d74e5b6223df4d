package hungerthirst

import (
	"context"
	"testing"
	"time"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

type fakeNotifier struct{ calls int }

func (f *fakeNotifier) Notify(uint32, byte, []byte) { f.calls++ }

type fakeObserver struct{ idx uint32 }

func (f *fakeObserver) CharIndex() uint32         { return f.idx }
func (f *fakeObserver) Send(payload []byte) error { return nil }

func newTestWorld() *world.MapManager {
	w := world.NewMapManager()
	w.RegisterMap(world.NewMapDef(1))
	return w
}

func TestHungerThirst_DecrementsBothCounters(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 5, Y: 5}, Hunger: 50, Thirst: 50, HP: 100, MaxHP: 100}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	notifier := &fakeNotifier{}
	eff := NewEffect(w, notifier, time.Minute, 5, 10, nil)
	eff.Apply(context.Background(), time.Now())

	if p.Hunger != 45 || p.Thirst != 45 {
		t.Errorf("Hunger/Thirst = %d/%d, want 45/45", p.Hunger, p.Thirst)
	}
	if notifier.calls != 1 {
		t.Errorf("notify calls = %d, want 1", notifier.calls)
	}
}

func TestHungerThirst_StarvationDamagesHPAndNotifiesTwice(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 5, Y: 5}, Hunger: 0, Thirst: 20, HP: 100, MaxHP: 100}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	notifier := &fakeNotifier{}
	eff := NewEffect(w, notifier, time.Minute, 5, 10, nil)
	eff.Apply(context.Background(), time.Now())

	if p.HP != 90 {
		t.Errorf("HP = %d, want 90 after starvation damage", p.HP)
	}
	if notifier.calls != 2 {
		t.Errorf("notify calls = %d, want 2 (hunger/thirst push + stat push)", notifier.calls)
	}
}

func TestHungerThirst_KillsPlayerAtZeroHP(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 5, Y: 5}, Hunger: 0, Thirst: 20, HP: 3, MaxHP: 100}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	eff := NewEffect(w, &fakeNotifier{}, time.Minute, 5, 10, nil)
	eff.Apply(context.Background(), time.Now())

	if !p.Dead {
		t.Error("Dead = false, want true after lethal starvation damage")
	}
	if p.HP != 0 {
		t.Errorf("HP = %d, want 0 on death", p.HP)
	}
}

func TestHungerThirst_SkipsDeadPlayers(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 5, Y: 5}, Hunger: 50, Dead: true}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	notifier := &fakeNotifier{}
	eff := NewEffect(w, notifier, time.Minute, 5, 10, nil)
	eff.Apply(context.Background(), time.Now())

	if notifier.calls != 0 {
		t.Errorf("notify calls = %d, want 0 for a dead player", notifier.calls)
	}
}
