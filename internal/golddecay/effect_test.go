package golddecay

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

func TestGoldDecay_ReducesGoldByFraction(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 1, Y: 1}, Gold: 1000}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	notifier := &fakeNotifier{}
	eff := NewEffect(w, notifier, time.Minute, 0.1, nil)
	eff.Apply(context.Background(), time.Now())

	if p.Gold != 900 {
		t.Errorf("Gold = %d, want 900", p.Gold)
	}
	if notifier.calls != 1 {
		t.Errorf("notify calls = %d, want 1", notifier.calls)
	}
}

func TestGoldDecay_SkipsPlayersWithNoGold(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 1, Y: 1}, Gold: 0}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	notifier := &fakeNotifier{}
	eff := NewEffect(w, notifier, time.Minute, 0.1, nil)
	eff.Apply(context.Background(), time.Now())

	if notifier.calls != 0 {
		t.Errorf("notify calls = %d, want 0 for a broke player", notifier.calls)
	}
}

func TestGoldDecay_NeverGoesNegative(t *testing.T) {
	w := newTestWorld()
	p := &model.Player{CharIndex: w.AllocatePlayerCharIndex(), Location: model.Location{Map: 1, X: 1, Y: 1}, Gold: 1}
	if _, err := w.AddPlayer(&fakeObserver{idx: p.CharIndex}, p); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	eff := NewEffect(w, &fakeNotifier{}, time.Minute, 0.5, nil)
	eff.Apply(context.Background(), time.Now())

	if p.Gold < 0 {
		t.Errorf("Gold = %d, want >= 0", p.Gold)
	}
}
