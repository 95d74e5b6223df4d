package clan

import (
	"errors"
	"testing"

	"github.com/tilerealm/worldserver/internal/model"
)

func TestAddMember_RejectsDuplicateAndFull(t *testing.T) {
	c := New(1, "Ember", 1)
	if err := c.AddMember(1); !errors.Is(err, model.ErrConflict) {
		t.Errorf("AddMember(founder) error = %v, want ErrConflict", err)
	}

	for i := int64(2); i <= MaxMembers; i++ {
		if err := c.AddMember(i); err != nil {
			t.Fatalf("AddMember(%d) error = %v", i, err)
		}
	}
	if err := c.AddMember(999); !errors.Is(err, model.ErrPreconditionFailed) {
		t.Errorf("AddMember() beyond max error = %v, want ErrPreconditionFailed", err)
	}
}

func TestRemoveMember_RejectsRemovingLeader(t *testing.T) {
	c := New(1, "Ember", 1)
	if err := c.RemoveMember(1); !errors.Is(err, model.ErrPreconditionFailed) {
		t.Errorf("RemoveMember(leader) error = %v, want ErrPreconditionFailed", err)
	}
}

func TestTransferLeader_DemotesPreviousLeaderToOfficer(t *testing.T) {
	c := New(1, "Ember", 1)
	if err := c.AddMember(2); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := c.TransferLeader(2); err != nil {
		t.Fatalf("TransferLeader() error = %v", err)
	}

	if c.LeaderID() != 2 {
		t.Errorf("LeaderID() = %d, want 2", c.LeaderID())
	}
	rank, ok := c.RankOf(1)
	if !ok || rank != RankOfficer {
		t.Errorf("RankOf(1) = %v, %v, want RankOfficer", rank, ok)
	}
	// exactly one LEADER rank
	leaders := 0
	for _, r := range c.Members() {
		if r == RankLeader {
			leaders++
		}
	}
	if leaders != 1 {
		t.Errorf("leader count = %d, want exactly 1", leaders)
	}
}
