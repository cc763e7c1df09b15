package workspace

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/concordhq/concord/internal/event"
)

// VoteXP stages a peer-XP vote in the ledger. The vote is bounded by the
// voter's tier and by the per-session cap; rejections are soft results. The
// vote is not applied to the target's XP here: the external agent store
// drains the ledger through GetPendingVotes and MarkVoteApplied, and is
// responsible for tracking which vote ids it already applied.
func (w *Workspace) VoteXP(voter string, voterLevel int, target string, delta int, reason string) VoteResult {
	voter = NormalizeAlias(voter)
	target = NormalizeAlias(target)

	if voter == "" || target == "" {
		return VoteResult{Reason: "voter and target aliases are required"}
	}
	if voter == target {
		return VoteResult{Reason: "self-votes are not allowed"}
	}

	bounds := w.policy.VoteBoundsFor(voterLevel)

	w.mu.Lock()
	defer w.mu.Unlock()

	limit := w.doc.VoteLimits[voter]
	remaining := w.policy.MaxVotesPerSession - limit.VotesCast
	if remaining <= 0 {
		return VoteResult{
			Reason: fmt.Sprintf("vote limit reached: %d votes per session until reset",
				w.policy.MaxVotesPerSession),
		}
	}
	if !bounds.Allows(delta) {
		return VoteResult{
			Reason: fmt.Sprintf("delta %+d exceeds tier bounds (+%d/-%d)",
				delta, bounds.MaxUp, bounds.MaxDown),
			VotesRemaining: remaining,
		}
	}

	vote := Vote{
		ID:         "vote-" + uuid.NewString(),
		Voter:      voter,
		VoterLevel: voterLevel,
		Target:     target,
		Delta:      delta,
		Reason:     reason,
		Timestamp:  time.Now(),
	}

	w.commitLocked(func(doc *Document) {
		doc.XPVotes = append(doc.XPVotes, vote)
		l := doc.VoteLimits[voter]
		l.VotesCast++
		doc.VoteLimits[voter] = l
		doc.Metadata.TotalVotes++
	})

	if w.bus != nil {
		w.bus.Publish(event.NewVoteRecordedEvent(vote.ID, voter, target, delta))
	}
	w.log.Debug("xp vote staged", "id", vote.ID, "voter", voter, "target", target, "delta", delta)

	return VoteResult{OK: true, Vote: &vote, VotesRemaining: remaining - 1}
}

// VotesRemaining returns how many votes the alias may still cast this
// session.
func (w *Workspace) VotesRemaining(voter string) int {
	voter = NormalizeAlias(voter)

	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.policy.MaxVotesPerSession - w.doc.VoteLimits[voter].VotesCast
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetPendingVotes returns all staged votes not yet marked applied, oldest
// first. Delivery to the agent store is at-least-once: a vote stays pending
// until MarkVoteApplied succeeds, so the store must dedupe by vote id.
func (w *Workspace) GetPendingVotes() []Vote {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Vote
	for _, v := range w.doc.XPVotes {
		if !v.Applied {
			out = append(out, v)
		}
	}
	return out
}

// MarkVoteApplied flags a staged vote as applied. Returns false for unknown
// ids.
func (w *Workspace) MarkVoteApplied(voteID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	applied := false
	w.commitLocked(func(doc *Document) {
		applied = false
		for i := range doc.XPVotes {
			if doc.XPVotes[i].ID == voteID {
				doc.XPVotes[i].Applied = true
				applied = true
				return
			}
		}
	})
	return applied
}

// ResetVoteLimits clears every voter's session counter. Called at session
// boundaries.
func (w *Workspace) ResetVoteLimits() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.commitLocked(func(doc *Document) {
		for alias := range doc.VoteLimits {
			doc.VoteLimits[alias] = VoteLimit{VotesCast: 0, LastReset: now}
		}
	})
	w.log.Info("vote limits reset")
}
