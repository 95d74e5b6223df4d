// Package party implements the party collaborator: 1-5 members,
// exactly one leader, leader transfer on request or when the leader
// leaves.
package party

import (
	"fmt"
	"sync"

	"github.com/tilerealm/worldserver/internal/model"
)

// MaxMembers is the party size cap.
const MaxMembers = 5

// Party is a small group of cooperating players. Safe for concurrent
// use; callers outside the world lock may read membership at any time.
type Party struct {
	mu      sync.RWMutex
	id      int32
	leader  *model.Player
	members []*model.Player
}

// New creates a party with leader as its sole initial member.
func New(id int32, leader *model.Player) *Party {
	return &Party{id: id, leader: leader, members: []*model.Player{leader}}
}

// ID returns the party's immutable ID.
func (p *Party) ID() int32 { return p.id }

// Leader returns the current leader.
func (p *Party) Leader() *model.Player {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leader
}

// Members returns a snapshot of the current membership in join order;
// a leader transfer does not move the new leader to the front.
func (p *Party) Members() []*model.Player {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*model.Player, len(p.members))
	copy(out, p.members)
	return out
}

// IsMember reports whether userID is currently a member.
func (p *Party) IsMember(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AddMember adds player, failing if the party is already at MaxMembers
// or player is already a member.
func (p *Party) AddMember(player *model.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.members) >= MaxMembers {
		return fmt.Errorf("party %d is full (max %d): %w", p.id, MaxMembers, model.ErrPreconditionFailed)
	}
	for _, m := range p.members {
		if m.UserID == player.UserID {
			return fmt.Errorf("player %d already in party %d: %w", player.UserID, p.id, model.ErrConflict)
		}
	}
	p.members = append(p.members, player)
	return nil
}

// RemoveMember removes userID. If the leader leaves, leadership passes
// to the next member in join order. Returns true if the party should
// be disbanded (zero members remain).
func (p *Party) RemoveMember(userID int64) (disband bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i, m := range p.members {
		if m.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p.members = append(p.members[:idx], p.members[idx+1:]...)

	if len(p.members) == 0 {
		return true
	}
	if p.leader.UserID == userID {
		p.leader = p.members[0]
	}
	return false
}

// TransferLeader moves leadership to userID, failing if userID is not
// a current member.
func (p *Party) TransferLeader(userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range p.members {
		if m.UserID == userID {
			p.leader = m
			return nil
		}
	}
	return fmt.Errorf("player %d is not in party %d: %w", userID, p.id, model.ErrNotFound)
}
