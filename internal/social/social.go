// Package social wires the party and clan collaborators onto the
// public chat command table: /who, /party, /clan.
package social

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tilerealm/worldserver/internal/chatcmd"
	"github.com/tilerealm/worldserver/internal/clan"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/party"
	"github.com/tilerealm/worldserver/internal/world"
)

// Registry owns every live party and clan and indexes membership by
// user ID so a chat command can find "my party" or "my clan" without
// scanning every group.
type Registry struct {
	world *world.MapManager

	mu      sync.Mutex
	nextID  int32
	parties map[int32]*party.Party
	partyOf map[int64]*party.Party
	clans   map[int32]*clan.Clan
	clanOf  map[int64]*clan.Clan
}

// NewRegistry builds an empty registry. w is used to resolve a target
// player name (e.g. "/party invite Bob") to a live *model.Player.
func NewRegistry(w *world.MapManager) *Registry {
	return &Registry{
		world:   w,
		parties: make(map[int32]*party.Party),
		partyOf: make(map[int64]*party.Party),
		clans:   make(map[int32]*clan.Clan),
		clanOf:  make(map[int64]*clan.Clan),
	}
}

// Register binds /who, /party, /clan onto table.
func (r *Registry) Register(table *chatcmd.Table) {
	table.Register("who", r.who)
	table.Register("party", r.party)
	table.Register("clan", r.clan)
}

func (r *Registry) findPlayer(userID int64) (*model.Player, bool) {
	for _, p := range r.world.ListPlayers() {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) findPlayerByName(name string) (*model.Player, bool) {
	for _, p := range r.world.ListPlayers() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) who(_ int64, _ []string) (string, error) {
	players := r.world.ListPlayers()
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%d online: %s", len(names), strings.Join(names, ", ")), nil
}

func (r *Registry) party(userID int64, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /party <create|invite|leave>")
	}
	switch strings.ToLower(args[0]) {
	case "create":
		return r.partyCreate(userID)
	case "invite":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /party invite <name>")
		}
		return r.partyInvite(userID, args[1])
	case "leave":
		return r.partyLeave(userID)
	default:
		return "", fmt.Errorf("unknown /party subcommand %q", args[0])
	}
}

func (r *Registry) partyCreate(userID int64) (string, error) {
	leader, ok := r.findPlayer(userID)
	if !ok {
		return "", fmt.Errorf("player not online: %w", model.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, already := r.partyOf[userID]; already {
		return "", fmt.Errorf("already in a party: %w", model.ErrConflict)
	}
	r.nextID++
	p := party.New(r.nextID, leader)
	r.parties[p.ID()] = p
	r.partyOf[userID] = p
	return "party created", nil
}

func (r *Registry) partyInvite(userID int64, targetName string) (string, error) {
	target, ok := r.findPlayerByName(targetName)
	if !ok {
		return "", fmt.Errorf("player %q not online: %w", targetName, model.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partyOf[userID]
	if !ok {
		return "", fmt.Errorf("not in a party: %w", model.ErrPreconditionFailed)
	}
	if err := p.AddMember(target); err != nil {
		return "", err
	}
	r.partyOf[target.UserID] = p
	return fmt.Sprintf("%s joined the party", target.Name), nil
}

func (r *Registry) partyLeave(userID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partyOf[userID]
	if !ok {
		return "", fmt.Errorf("not in a party: %w", model.ErrPreconditionFailed)
	}
	delete(r.partyOf, userID)
	if p.RemoveMember(userID) {
		delete(r.parties, p.ID())
	}
	return "left the party", nil
}

func (r *Registry) clan(userID int64, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /clan <create|invite|leave> [name]")
	}
	switch strings.ToLower(args[0]) {
	case "create":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /clan create <name>")
		}
		return r.clanCreate(userID, args[1])
	case "invite":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /clan invite <name>")
		}
		return r.clanInvite(userID, args[1])
	case "leave":
		return r.clanLeave(userID)
	default:
		return "", fmt.Errorf("unknown /clan subcommand %q", args[0])
	}
}

func (r *Registry) clanCreate(userID int64, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, already := r.clanOf[userID]; already {
		return "", fmt.Errorf("already in a clan: %w", model.ErrConflict)
	}
	r.nextID++
	c := clan.New(r.nextID, name, userID)
	r.clans[c.ID()] = c
	r.clanOf[userID] = c
	return fmt.Sprintf("clan %q created", name), nil
}

func (r *Registry) clanInvite(userID int64, targetName string) (string, error) {
	target, ok := r.findPlayerByName(targetName)
	if !ok {
		return "", fmt.Errorf("player %q not online: %w", targetName, model.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clanOf[userID]
	if !ok {
		return "", fmt.Errorf("not in a clan: %w", model.ErrPreconditionFailed)
	}
	if err := c.AddMember(target.UserID); err != nil {
		return "", err
	}
	r.clanOf[target.UserID] = c
	return fmt.Sprintf("%s joined the clan", target.Name), nil
}

func (r *Registry) clanLeave(userID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clanOf[userID]
	if !ok {
		return "", fmt.Errorf("not in a clan: %w", model.ErrPreconditionFailed)
	}
	if err := c.RemoveMember(userID); err != nil {
		return "", err
	}
	delete(r.clanOf, userID)
	if c.MemberCount() == 0 {
		delete(r.clans, c.ID())
	}
	return "left the clan", nil
}
