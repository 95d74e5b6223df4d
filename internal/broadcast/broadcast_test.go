package broadcast

import (
	"testing"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/world"
)

type recordingObserver struct {
	idx     uint32
	sent    [][]byte
	failing bool
}

func (o *recordingObserver) CharIndex() uint32 { return o.idx }
func (o *recordingObserver) Send(payload []byte) error {
	if o.failing {
		return errSendFailed
	}
	o.sent = append(o.sent, payload)
	return nil
}

var errSendFailed = &sendError{}

type sendError struct{}

func (e *sendError) Error() string { return "send failed" }

func TestFanout_MapDeliversToEveryObserverOnMap(t *testing.T) {
	w := world.NewMapManager()
	w.RegisterMap(world.NewMapDef(1))

	obs1 := &recordingObserver{idx: 1}
	obs2 := &recordingObserver{idx: 2}
	if _, err := w.AddPlayer(obs1, &model.Player{CharIndex: 1, Location: model.Location{Map: 1, X: 10, Y: 10}}); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if _, err := w.AddPlayer(obs2, &model.Player{CharIndex: 2, Location: model.Location{Map: 1, X: 20, Y: 20}}); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	f := NewFanout(w, nil)
	f.Map(1, []byte("hello"))

	if len(obs1.sent) != 1 || len(obs2.sent) != 1 {
		t.Errorf("obs1.sent=%d obs2.sent=%d, want 1 each", len(obs1.sent), len(obs2.sent))
	}
}

func TestFanout_ToManyContinuesPastFailure(t *testing.T) {
	good := &recordingObserver{idx: 1}
	bad := &recordingObserver{idx: 2, failing: true}

	f := NewFanout(nil, nil)
	f.ToMany([]world.Observer{bad, good}, []byte("x"))

	if len(good.sent) != 1 {
		t.Errorf("good.sent = %d, want 1 despite bad observer failing", len(good.sent))
	}
}
