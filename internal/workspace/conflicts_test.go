package workspace

import (
	"testing"
)

func TestDetectConflicts_LexiconMatch(t *testing.T) {
	w := newTestWorkspace(t)

	a := w.Broadcast("@claude", 10, CategoryFinding, "the session handler is safe to ship", BroadcastOptions{
		RelatedFile: "internal/auth/session.go",
	})
	b := w.Broadcast("@gpt", 12, CategoryFinding, "session handler is unsafe, fails under load", BroadcastOptions{
		RelatedFile: "internal/auth/session.go",
	})

	conflicts := w.DetectConflicts(10)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Term != "safe/unsafe" {
		t.Errorf("Term = %q", c.Term)
	}
	if c.Topic != "internal/auth/session.go" {
		t.Errorf("Topic = %q", c.Topic)
	}
	wantIDs := map[string]bool{a.Entry.ID: true, b.Entry.ID: true}
	for _, id := range c.BroadcastIDs {
		if !wantIDs[id] {
			t.Errorf("unexpected broadcast id %s", id)
		}
	}
}

func TestDetectConflicts_SharedTokenTopic(t *testing.T) {
	w := newTestWorkspace(t)

	w.Broadcast("@claude", 10, CategoryFinding, "approve the payment retry mechanism", BroadcastOptions{})
	w.Broadcast("@gpt", 12, CategoryFinding, "reject the payment retry mechanism", BroadcastOptions{})

	conflicts := w.DetectConflicts(10)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict via shared tokens, got %d", len(conflicts))
	}
	if conflicts[0].Term != "approve/reject" {
		t.Errorf("Term = %q", conflicts[0].Term)
	}
}

func TestDetectConflicts_SharedTokenTopicIsDeterministic(t *testing.T) {
	w := newTestWorkspace(t)

	w.Broadcast("@claude", 10, CategoryFinding, "keep the retry loop logic", BroadcastOptions{})
	w.Broadcast("@gpt", 12, CategoryFinding, "remove the retry loop logic", BroadcastOptions{})

	// Three shared tokens; the topic must always be the first two in sorted
	// order, not whatever map iteration yields.
	for i := 0; i < 10; i++ {
		conflicts := w.DetectConflicts(10)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d", len(conflicts))
		}
		if conflicts[0].Topic != "logic+loop" {
			t.Fatalf("Topic = %q, want %q", conflicts[0].Topic, "logic+loop")
		}
	}
}

func TestDetectConflicts_IgnoresSameSenderAndOffTopic(t *testing.T) {
	w := newTestWorkspace(t)

	// Same sender contradicting themselves: not a peer conflict.
	w.Broadcast("@claude", 10, CategoryFinding, "cache layer is safe", BroadcastOptions{RelatedFile: "cache.go"})
	w.Broadcast("@claude", 10, CategoryFinding, "cache layer is unsafe", BroadcastOptions{RelatedFile: "cache.go"})

	// Different senders, antonyms, but unrelated topics.
	w.Broadcast("@gpt", 12, CategoryFinding, "scheduler looks safe", BroadcastOptions{RelatedFile: "sched.go"})
	w.Broadcast("@grok", 25, CategoryFinding, "renderer output unsafe", BroadcastOptions{RelatedFile: "render.go"})

	if conflicts := w.DetectConflicts(10); len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", conflicts)
	}
}

func TestDetectConflicts_WindowBound(t *testing.T) {
	w := newTestWorkspace(t)

	w.Broadcast("@claude", 10, CategoryFinding, "parser is safe", BroadcastOptions{RelatedFile: "p.go"})
	// Push the first broadcast outside a window of 3.
	for i := 0; i < 3; i++ {
		w.Broadcast("@eve", 5, CategoryStatus, "filler update message", BroadcastOptions{})
	}
	w.Broadcast("@gpt", 12, CategoryFinding, "parser is unsafe", BroadcastOptions{RelatedFile: "p.go"})

	if conflicts := w.DetectConflicts(3); len(conflicts) != 0 {
		t.Errorf("conflict outside window should not be reported, got %+v", conflicts)
	}
	if conflicts := w.DetectConflicts(10); len(conflicts) != 1 {
		t.Errorf("conflict inside window should be reported, got %d", len(conflicts))
	}
}

func TestFlagConflict(t *testing.T) {
	w := newTestWorkspace(t)

	a := w.Broadcast("@claude", 10, CategoryFinding, "use sqlite", BroadcastOptions{})
	b := w.Broadcast("@gpt", 12, CategoryFinding, "use postgres", BroadcastOptions{})

	res := w.FlagConflict([]string{a.Entry.ID, b.Entry.ID}, "@grok", 25, "storage disagreement")
	if !res.OK {
		t.Fatalf("FlagConflict failed: %s", res.Reason)
	}
	if len(res.Conflict.Senders) != 2 {
		t.Errorf("Senders = %+v", res.Conflict.Senders)
	}

	// A CONFLICT broadcast must appear in the log.
	flagged, err := w.GetBroadcasts(Filter{Category: CategoryConflict})
	if err != nil {
		t.Fatal(err)
	}
	if len(flagged) != 1 || flagged[0].Sender != "@grok" {
		t.Errorf("CONFLICT broadcast = %+v", flagged)
	}
	if got := w.Snapshot().Metadata.TotalConflicts; got != 1 {
		t.Errorf("TotalConflicts = %d, want 1", got)
	}
}

func TestFlagConflict_Validation(t *testing.T) {
	w := newTestWorkspace(t)

	a := w.Broadcast("@claude", 10, CategoryFinding, "x", BroadcastOptions{})

	if res := w.FlagConflict([]string{a.Entry.ID}, "@grok", 25, "lonely"); res.OK {
		t.Error("single-id flag should be rejected")
	}
	if res := w.FlagConflict([]string{a.Entry.ID, "bc-ghost"}, "@grok", 25, "ghost"); res.OK {
		t.Error("unknown id should be rejected")
	}

	b := w.Broadcast("@gpt", 12, CategoryFinding, "y", BroadcastOptions{})
	if res := w.FlagConflict([]string{a.Entry.ID, b.Entry.ID}, "", 25, "anonymous"); res.OK {
		t.Error("blank flagger should be rejected")
	}

	// None of the failed flags may bump the counter.
	if got := w.Snapshot().Metadata.TotalConflicts; got != 0 {
		t.Errorf("TotalConflicts = %d after failed flags, want 0", got)
	}
}
