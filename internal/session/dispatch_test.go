package session

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tilerealm/worldserver/internal/broadcast"
	"github.com/tilerealm/worldserver/internal/catalog"
	"github.com/tilerealm/worldserver/internal/chatcmd"
	"github.com/tilerealm/worldserver/internal/config"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/persistence"
	"github.com/tilerealm/worldserver/internal/protocol"
	"github.com/tilerealm/worldserver/internal/world"
)

// memStore is a minimal in-memory persistence.Store double, enough to
// exercise login and commerce paths without a real KV backend.
type memStore struct {
	hashes map[string]map[string]string
}

func newMemStore() *memStore { return &memStore{hashes: make(map[string]map[string]string)} }

func (m *memStore) IncrCounter(ctx context.Context, key string) (int64, error) { return 1, nil }

func (m *memStore) HashSet(ctx context.Context, key, field, value string) error {
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *memStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	h, ok := m.hashes[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (m *memStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *memStore) HashDel(ctx context.Context, key, field string) error {
	delete(m.hashes[key], field)
	return nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error { return nil }
func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}
func (m *memStore) Del(ctx context.Context, keys ...string) error                { return nil }
func (m *memStore) SetAdd(ctx context.Context, key string, members ...string) error { return nil }
func (m *memStore) SetRemove(ctx context.Context, key string, members ...string) error {
	return nil
}
func (m *memStore) SetMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }
func (m *memStore) Pipeline(ctx context.Context, fn func(p persistence.Pipeliner) error) error {
	return nil
}

func testDeps(t *testing.T, store persistence.Store) (*Deps, *Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sess := NewSession(server, 16)
	go sess.WritePump()
	t.Cleanup(func() { sess.Close() })

	w := world.NewMapManager()
	deps := &Deps{
		World:  w,
		Store:  store,
		Items:  &catalog.ItemCatalog{Items: map[int32]catalog.ItemDef{1: {ID: 1, Name: "dagger"}}},
		Spells: &catalog.SpellCatalog{Spells: map[int32]catalog.SpellDef{}},
		Fanout: broadcast.NewFanout(w, nil),
		Chat:   chatcmd.NewTable(),
		Cfg:    config.Default(),
	}
	return deps, sess, client
}

func readFrame(t *testing.T, client net.Conn) (byte, []byte) {
	t.Helper()
	opcode, payload, err := protocol.ReadFrame(client, nil)
	require.NoError(t, err)
	return opcode, payload
}

func seedAccount(store *memStore, username, password string, userID int64) {
	hash, _ := persistence.HashPassword(password)
	store.HashSet(context.Background(), persistence.AccountData(username), "password_hash", hash)
	store.HashSet(context.Background(), persistence.AccountData(username), "user_id", "1")
	_ = userID
}

func TestDispatch_LoginSucceedsWithValidCredentials(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)

	loginPayload := func() []byte {
		w := protocol.NewWriter(16)
		w.WriteString("alice")
		w.WriteString("hunter2")
		return w.Bytes()
	}()

	err := d.Dispatch(context.Background(), sess, protocol.OpLogin, loginPayload)
	require.NoError(t, err)
	require.True(t, sess.Authenticated())

	opcode, _ := readFrame(t, client)
	require.Equal(t, protocol.OpLogged, opcode)
}

func TestDispatch_LoginRejectsBadPassword(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)

	loginPayload := func() []byte {
		w := protocol.NewWriter(16)
		w.WriteString("alice")
		w.WriteString("wrongpass")
		return w.Bytes()
	}()

	err := d.Dispatch(context.Background(), sess, protocol.OpLogin, loginPayload)
	require.NoError(t, err)
	require.False(t, sess.Authenticated())

	opcode, _ := readFrame(t, client)
	require.Equal(t, protocol.OpConsoleMsg, opcode)
}

func TestDispatch_RejectsUnauthenticatedCommand(t *testing.T) {
	store := newMemStore()
	deps, sess, _ := testDeps(t, store)
	d := NewDispatcher(deps)

	err := d.Dispatch(context.Background(), sess, protocol.OpAttack, nil)
	require.Error(t, err)
}

func loginAndDrainClient(t *testing.T, d *Dispatcher, sess *Session, client net.Conn) {
	t.Helper()
	w := protocol.NewWriter(16)
	w.WriteString("alice")
	w.WriteString("hunter2")
	require.NoError(t, d.Dispatch(context.Background(), sess, protocol.OpLogin, w.Bytes()))
	// drain every event the login sequence sent: 6 direct acks/stats plus
	// the arrival CharacterCreate the map-wide broadcast echoes back to
	// the new player itself (whole-map fan-out).
	for i := 0; i < 7; i++ {
		readFrame(t, client)
	}
}

func TestDispatch_WalkMovesPlayerAndBroadcasts(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)
	loginAndDrainClient(t, d, sess, client)

	before := sess.Player().Location

	w := protocol.NewWriter(1)
	w.WriteByte(byte(model.East))
	require.NoError(t, d.Dispatch(context.Background(), sess, protocol.OpWalk, w.Bytes()))

	opcode, payload := readFrame(t, client)
	require.Equal(t, protocol.OpCharacterMove, opcode)
	_ = payload

	after := sess.Player().Location
	require.Equal(t, before.X+1, after.X)
	require.Equal(t, before.Y, after.Y)
}

func TestDispatch_PickupCreditsGold(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)
	loginAndDrainClient(t, d, sess, client)

	p := sess.Player()
	err := deps.World.AddGroundItem(p.Location.Map, p.Location.X, p.Location.Y, &model.GroundItem{
		Stack: model.ItemStack{ItemID: 0, Quantity: 50},
	})
	require.NoError(t, err)

	goldBefore := p.Gold
	require.NoError(t, d.Dispatch(context.Background(), sess, protocol.OpPickup, nil))

	opcode, _ := readFrame(t, client)
	require.Equal(t, protocol.OpUpdateGold, opcode)
	require.Equal(t, goldBefore+50, sess.Player().Gold)
}

func TestDispatch_DropPlacesGroundItem(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)
	loginAndDrainClient(t, d, sess, client)

	p := sess.Player()
	p.Inventory[0] = &model.ItemStack{ItemID: 1, Quantity: 5}

	w := protocol.NewWriter(8)
	w.WriteInt32(1)
	w.WriteInt32(2)
	require.NoError(t, d.Dispatch(context.Background(), sess, protocol.OpDrop, w.Bytes()))

	opcode, _ := readFrame(t, client)
	require.Equal(t, protocol.OpChangeInventorySlot, opcode)

	item, ok := deps.World.GetGroundItem(p.Location.Map, p.Location.X, p.Location.Y)
	require.True(t, ok)
	require.Equal(t, int32(2), item.Stack.Quantity)
	require.Equal(t, int32(3), p.Inventory[0].Quantity)
}

// drainClient discards frames until the connection closes, so broadcast
// fan-out never fills a session's outbound buffer mid-test.
func drainClient(client net.Conn) {
	go func() {
		for {
			if _, _, err := protocol.ReadFrame(client, nil); err != nil {
				return
			}
		}
	}()
}

func addTestPlayer(t *testing.T, deps *Deps, sess *Session, userID int64, name string, x int32, heading model.Heading) *model.Player {
	t.Helper()
	p := &model.Player{
		UserID:    userID,
		Name:      name,
		CharIndex: deps.World.AllocatePlayerCharIndex(),
		Location:  model.Location{Map: 1, X: x, Y: 50, Heading: heading},
		HP:        100, MaxHP: 100,
		Attrs: model.Attributes{STR: 100, AGI: 10},
	}
	_, err := deps.World.AddPlayer(sess, p)
	require.NoError(t, err)
	sess.SetPlayer(p)
	return p
}

func TestDispatch_ConcurrentKillSchedulesSingleRespawn(t *testing.T) {
	store := newMemStore()
	deps, sess1, client1 := testDeps(t, store)
	d := NewDispatcher(deps)
	drainClient(client1)

	client2, server2 := net.Pipe()
	t.Cleanup(func() { client2.Close() })
	sess2 := NewSession(server2, 64)
	go sess2.WritePump()
	t.Cleanup(func() { sess2.Close() })
	drainClient(client2)

	addTestPlayer(t, deps, sess1, 1, "ana", 49, model.East)
	addTestPlayer(t, deps, sess2, 2, "bob", 51, model.West)

	npc := &model.NPC{
		CharIndex:     deps.World.AllocateNPCCharIndex(),
		Name:          "slime",
		Location:      model.Location{Map: 1, X: 50, Y: 50, Heading: model.South},
		Spawn:         model.Tile{X: 50, Y: 50},
		HP:            1,
		MaxHP:         1,
		Attackable:    true,
		GoldMin:       1,
		GoldMax:       1,
		RespawnDelayS: 30,
	}
	require.NoError(t, deps.World.AddNPC(npc))

	// Both sessions hammer the same 1-HP NPC from opposite sides on
	// separate goroutines. Exactly one attacker may observe the HP
	// transition to zero, so however the attacks interleave the NPC
	// must end up scheduled for respawn exactly once.
	var wg sync.WaitGroup
	for _, sess := range []*Session{sess1, sess2} {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, ok := deps.World.GetEntity(npc.CharIndex); !ok {
					return
				}
				_ = d.Dispatch(context.Background(), s, protocol.OpAttack, nil)
			}
		}(sess)
	}
	wg.Wait()

	_, ok := deps.World.GetEntity(npc.CharIndex)
	require.False(t, ok, "killed NPC should be removed from world state")

	pending := deps.World.PopReadyRespawns(func(*model.NPC) bool { return true })
	require.Len(t, pending, 1, "a doubly-scheduled respawn would duplicate the NPC")
}

func TestDispatch_AttackKillsNPCAndDropsGold(t *testing.T) {
	store := newMemStore()
	seedAccount(store, "alice", "hunter2", 1)
	deps, sess, client := testDeps(t, store)
	d := NewDispatcher(deps)
	loginAndDrainClient(t, d, sess, client)

	p := sess.Player()
	p.Attrs.STR = 100 // guarantee a one-shot kill regardless of jitter/crit
	p.Location.Heading = model.East

	npc := &model.NPC{
		CharIndex:  deps.World.AllocateNPCCharIndex(),
		Name:       "slime",
		Location:   model.Location{Map: p.Location.Map, X: p.Location.X + 1, Y: p.Location.Y, Heading: model.West},
		Spawn:      model.Tile{X: p.Location.X + 1, Y: p.Location.Y},
		HP:         1,
		MaxHP:      1,
		Attackable: true,
		GoldMin:    1,
		GoldMax:    1,
	}
	require.NoError(t, deps.World.AddNPC(npc))

	// A single swing can miss (base 5% miss chance); retry a bounded
	// number of times so the assertion isn't flaky. 1 HP means any hit
	// that lands kills it outright. Broadcast frames aren't drained here
	// since a miss produces none and a kill produces several — the
	// session's buffered outbound queue absorbs them regardless.
	for i := 0; i < 20; i++ {
		if _, ok := deps.World.GetEntity(npc.CharIndex); !ok {
			break
		}
		require.NoError(t, d.Dispatch(context.Background(), sess, protocol.OpAttack, nil))
	}

	_, ok := deps.World.GetEntity(npc.CharIndex)
	require.False(t, ok, "killed NPC should be removed from world state")

	// GoldMin = GoldMax = 1, so the kill leaves exactly 1 gold (item 0)
	// on the NPC's tile.
	item, ok := deps.World.GetGroundItem(npc.Location.Map, npc.Location.X, npc.Location.Y)
	require.True(t, ok, "killed NPC should drop its gold on its tile")
	require.Equal(t, int32(0), item.Stack.ItemID)
	require.Equal(t, int32(1), item.Stack.Quantity)
}
