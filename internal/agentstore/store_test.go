package agentstore

import (
	"testing"

	"github.com/concordhq/concord/internal/errors"
)

func TestMemStore_GetAgentByAlias(t *testing.T) {
	store := NewMemStore()
	store.Put(Agent{Alias: "@claude", Level: 10, XP: 950})

	agent, err := store.GetAgentByAlias("@claude")
	if err != nil {
		t.Fatalf("GetAgentByAlias() error = %v", err)
	}
	if agent.Level != 10 || agent.XP != 950 {
		t.Errorf("agent = %+v", agent)
	}

	_, err = store.GetAgentByAlias("@ghost")
	if !errors.Is(err, errors.ErrAgentNotFound) {
		t.Errorf("unknown alias error = %v", err)
	}
}

func TestMemStore_AwardXP(t *testing.T) {
	store := NewMemStore()
	store.Put(Agent{Alias: "@claude", Level: 10, XP: 950})

	res, err := store.AwardXP("@claude", 60, "won arbitration")
	if err != nil {
		t.Fatalf("AwardXP() error = %v", err)
	}
	if !res.LeveledUp {
		t.Error("950+60 XP should level up at 100 XP per level")
	}
	if res.XP != 1010 || res.NewLevel != 11 {
		t.Errorf("result = %+v", res)
	}

	// Negative awards floor at zero XP.
	store.Put(Agent{Alias: "@junior", Level: 1, XP: 10})
	res, err = store.AwardXP("@junior", -50, "penalty")
	if err != nil {
		t.Fatal(err)
	}
	if res.XP != 0 {
		t.Errorf("XP = %d, want floor 0", res.XP)
	}
}
