package workspace

import "testing"

func TestVoteXP_TierBounds(t *testing.T) {
	w := newTestWorkspace(t)

	// Worker at level 5: +10 max, -5 max.
	if res := w.VoteXP("@worker", 5, "@peer", 11, "great work"); res.OK {
		t.Error("worker +11 should be rejected")
	}
	if res := w.VoteXP("@worker", 5, "@peer", 10, "great work"); !res.OK {
		t.Errorf("worker +10 should succeed: %s", res.Reason)
	}
	if res := w.VoteXP("@worker", 5, "@peer", -6, "sloppy"); res.OK {
		t.Error("worker -6 should be rejected")
	}

	// Supervisor at level 50: +50 max.
	if res := w.VoteXP("@boss", 50, "@peer", 50, "exceptional"); !res.OK {
		t.Errorf("supervisor +50 should succeed: %s", res.Reason)
	}
}

func TestVoteXP_RejectsSelfVote(t *testing.T) {
	w := newTestWorkspace(t)

	if res := w.VoteXP("@claude", 10, "@Claude", 5, "I am great"); res.OK {
		t.Error("self-vote should be rejected even with different casing")
	}
}

func TestVoteXP_SessionCap(t *testing.T) {
	w := newTestWorkspace(t)

	for i := 0; i < 3; i++ {
		res := w.VoteXP("@claude", 10, "@gpt", 5, "good")
		if !res.OK {
			t.Fatalf("vote %d should succeed: %s", i+1, res.Reason)
		}
		if res.VotesRemaining != 2-i {
			t.Errorf("vote %d: VotesRemaining = %d, want %d", i+1, res.VotesRemaining, 2-i)
		}
	}

	// Fourth vote: rejected, counter stays at zero.
	if res := w.VoteXP("@claude", 10, "@gpt", 5, "good"); res.OK {
		t.Error("fourth vote should be rejected")
	}
	if got := w.VotesRemaining("@claude"); got != 0 {
		t.Errorf("VotesRemaining = %d, want 0", got)
	}

	// A rejected over-bounds vote must not consume the allowance.
	if got := w.VotesRemaining("@gpt"); got != 3 {
		t.Fatalf("fresh voter should have 3 votes, got %d", got)
	}
	w.VoteXP("@gpt", 5, "@claude", 99, "too much")
	if got := w.VotesRemaining("@gpt"); got != 3 {
		t.Errorf("rejected vote consumed allowance: remaining = %d", got)
	}
}

func TestResetVoteLimits(t *testing.T) {
	w := newTestWorkspace(t)

	for i := 0; i < 3; i++ {
		w.VoteXP("@claude", 10, "@gpt", 1, "x")
	}
	if w.VotesRemaining("@claude") != 0 {
		t.Fatal("cap should be spent")
	}

	w.ResetVoteLimits()

	if got := w.VotesRemaining("@claude"); got != 3 {
		t.Errorf("VotesRemaining after reset = %d, want 3", got)
	}
	if res := w.VoteXP("@claude", 10, "@gpt", 1, "x"); !res.OK {
		t.Errorf("vote after reset should succeed: %s", res.Reason)
	}
}

func TestVotes_StagedNotApplied(t *testing.T) {
	w := newTestWorkspace(t)

	res := w.VoteXP("@claude", 10, "@gpt", 5, "solid analysis")
	if !res.OK {
		t.Fatal(res.Reason)
	}
	if res.Vote.Applied {
		t.Error("new vote must be staged, not applied")
	}

	pending := w.GetPendingVotes()
	if len(pending) != 1 || pending[0].ID != res.Vote.ID {
		t.Fatalf("pending = %+v", pending)
	}

	if !w.MarkVoteApplied(res.Vote.ID) {
		t.Fatal("MarkVoteApplied should find the vote")
	}
	if w.MarkVoteApplied("vote-nope") {
		t.Error("unknown vote id should return false")
	}
	if len(w.GetPendingVotes()) != 0 {
		t.Error("applied vote should leave the pending set")
	}
}
