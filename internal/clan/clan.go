// Package clan implements the clan collaborator: 1-50 members with
// exactly one LEADER rank.
package clan

import (
	"fmt"
	"sync"

	"github.com/tilerealm/worldserver/internal/model"
)

// MaxMembers is the clan size cap.
const MaxMembers = 50

// Rank identifies a member's standing within the clan.
type Rank int

const (
	RankMember Rank = iota
	RankOfficer
	RankLeader
)

// Clan is a persistent player organization, larger and longer-lived
// than a Party.
type Clan struct {
	mu      sync.RWMutex
	id      int32
	name    string
	members map[int64]Rank // userID -> rank
	leader  int64
}

// New creates a clan with founder as its sole LEADER member.
func New(id int32, name string, founderUserID int64) *Clan {
	return &Clan{
		id:      id,
		name:    name,
		members: map[int64]Rank{founderUserID: RankLeader},
		leader:  founderUserID,
	}
}

func (c *Clan) ID() int32     { return c.id }
func (c *Clan) Name() string  { return c.name }
func (c *Clan) LeaderID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leader
}

// MemberCount returns the current membership size.
func (c *Clan) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// RankOf returns the rank for userID, if a member.
func (c *Clan) RankOf(userID int64) (Rank, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.members[userID]
	return r, ok
}

// Members returns a snapshot of userID -> Rank.
func (c *Clan) Members() map[int64]Rank {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]Rank, len(c.members))
	for k, v := range c.members {
		out[k] = v
	}
	return out
}

// AddMember adds userID at RankMember, failing if the clan is full or
// userID is already a member.
func (c *Clan) AddMember(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.members) >= MaxMembers {
		return fmt.Errorf("clan %d is full (max %d): %w", c.id, MaxMembers, model.ErrPreconditionFailed)
	}
	if _, ok := c.members[userID]; ok {
		return fmt.Errorf("player %d already in clan %d: %w", userID, c.id, model.ErrConflict)
	}
	c.members[userID] = RankMember
	return nil
}

// RemoveMember removes userID. The LEADER rank may not be removed this
// way — transfer leadership first.
func (c *Clan) RemoveMember(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rank, ok := c.members[userID]
	if !ok {
		return fmt.Errorf("player %d not in clan %d: %w", userID, c.id, model.ErrNotFound)
	}
	if rank == RankLeader {
		return fmt.Errorf("cannot remove the clan leader without transferring leadership first: %w", model.ErrPreconditionFailed)
	}
	delete(c.members, userID)
	return nil
}

// TransferLeader promotes newLeaderUserID to RankLeader and demotes the
// previous leader to RankOfficer. Fails if newLeaderUserID is not a
// member.
func (c *Clan) TransferLeader(newLeaderUserID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.members[newLeaderUserID]; !ok {
		return fmt.Errorf("player %d not in clan %d: %w", newLeaderUserID, c.id, model.ErrNotFound)
	}
	c.members[c.leader] = RankOfficer
	c.members[newLeaderUserID] = RankLeader
	c.leader = newLeaderUserID
	return nil
}
