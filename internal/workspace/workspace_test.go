package workspace

import (
	"testing"
	"time"

	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/hierarchy"
)

func newTestWorkspace(t *testing.T, opts ...Option) *Workspace {
	t.Helper()
	w, err := New("", hierarchy.DefaultPolicy(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func TestBroadcast_Accepts(t *testing.T) {
	w := newTestWorkspace(t)

	res := w.Broadcast("@claude", 10, CategoryFinding, "auth layer looks safe", BroadcastOptions{
		RelatedFile: "internal/auth/session.go",
		Tags:        []string{"auth"},
	})

	if !res.OK {
		t.Fatalf("Broadcast rejected: %s", res.Reason)
	}
	if res.Entry.ID == "" || res.Entry.Timestamp.IsZero() {
		t.Error("entry should have id and timestamp assigned")
	}
	if res.Entry.Sender != "@claude" {
		t.Errorf("Sender = %q", res.Entry.Sender)
	}
	if w.TotalBroadcasts() != 1 {
		t.Errorf("TotalBroadcasts = %d", w.TotalBroadcasts())
	}
}

func TestBroadcast_NormalizesAlias(t *testing.T) {
	w := newTestWorkspace(t)

	res := w.Broadcast("Claude", 10, CategoryStatus, "hello", BroadcastOptions{})
	if !res.OK {
		t.Fatalf("Broadcast rejected: %s", res.Reason)
	}
	if res.Entry.Sender != "@claude" {
		t.Errorf("Sender = %q, want @claude", res.Entry.Sender)
	}
}

func TestBroadcast_RejectsUnknownCategory(t *testing.T) {
	w := newTestWorkspace(t)

	res := w.Broadcast("@claude", 10, Category("GOSSIP"), "psst", BroadcastOptions{})
	if res.OK {
		t.Fatal("unknown category should be rejected")
	}
	if res.Reason == "" {
		t.Error("rejection should carry a reason")
	}
	if w.TotalBroadcasts() != 0 {
		t.Error("rejected broadcast must not count")
	}
}

func TestBroadcast_DirectiveRequiresLevel(t *testing.T) {
	w := newTestWorkspace(t)

	if res := w.Broadcast("@worker", 5, CategoryDirective, "do it", BroadcastOptions{}); res.OK {
		t.Error("DIRECTIVE from level 5 should be rejected")
	}
	if res := w.Broadcast("@lead", 10, CategoryDirective, "do it", BroadcastOptions{}); !res.OK {
		t.Errorf("DIRECTIVE from level 10 should be accepted: %s", res.Reason)
	}
}

func TestBroadcast_RingBufferKeepsLifetimeCounter(t *testing.T) {
	w := newTestWorkspace(t, WithCapacity(3))

	for i := 0; i < 5; i++ {
		res := w.Broadcast("@claude", 10, CategoryStatus, "update", BroadcastOptions{})
		if !res.OK {
			t.Fatalf("broadcast %d rejected: %s", i, res.Reason)
		}
	}

	snap := w.Snapshot()
	if len(snap.Broadcasts) != 3 {
		t.Errorf("ring buffer length = %d, want 3", len(snap.Broadcasts))
	}
	if snap.Metadata.TotalBroadcasts != 5 {
		t.Errorf("TotalBroadcasts = %d, want 5", snap.Metadata.TotalBroadcasts)
	}
}

func TestBroadcast_PublishesEvent(t *testing.T) {
	bus := event.NewBus()
	w := newTestWorkspace(t, WithBus(bus))

	var got event.BroadcastPostedEvent
	bus.Subscribe("workspace.broadcast", func(ev event.Event) {
		got = ev.(event.BroadcastPostedEvent)
	})

	res := w.Broadcast("@claude", 10, CategoryBug, "nil deref in parser", BroadcastOptions{})
	if !res.OK {
		t.Fatal(res.Reason)
	}
	if got.BroadcastID != res.Entry.ID || got.Category != "BUG" {
		t.Errorf("event = %+v", got)
	}
}

func TestAcknowledge(t *testing.T) {
	w := newTestWorkspace(t)

	plain := w.Broadcast("@claude", 10, CategoryStatus, "fyi", BroadcastOptions{})
	acked := w.Broadcast("@claude", 10, CategoryDirective, "halt merges", BroadcastOptions{RequiresAck: true})

	if res := w.Acknowledge(plain.Entry.ID, "@gpt", ""); res.OK {
		t.Error("ack of a non-requires-ack broadcast should fail")
	}
	if res := w.Acknowledge("bc-nope", "@gpt", ""); res.OK {
		t.Error("ack of unknown broadcast should fail")
	}

	if res := w.Acknowledge(acked.Entry.ID, "@gpt", "understood"); !res.OK {
		t.Fatalf("first ack should succeed: %s", res.Reason)
	}
	if res := w.Acknowledge(acked.Entry.ID, "@gpt", "again"); res.OK {
		t.Error("second ack by the same agent should fail")
	}

	b, ok := w.Get(acked.Entry.ID)
	if !ok {
		t.Fatal("broadcast should exist")
	}
	if len(b.Acknowledgments) != 1 || b.Acknowledgments[0].Agent != "@gpt" {
		t.Errorf("acknowledgments = %+v", b.Acknowledgments)
	}
	if b.Acknowledgments[0].Comment != "understood" {
		t.Errorf("comment = %q", b.Acknowledgments[0].Comment)
	}
}

func TestGetBroadcasts_Filters(t *testing.T) {
	w := newTestWorkspace(t)

	w.Broadcast("@claude", 10, CategoryBug, "first", BroadcastOptions{RelatedFile: "parser/lex.go"})
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)
	w.Broadcast("@gpt", 12, CategoryBug, "second", BroadcastOptions{RelatedFile: "parser/ast.go"})
	w.Broadcast("@gpt", 12, CategoryStatus, "third", BroadcastOptions{RequiresAck: true})

	byCategory, err := w.GetBroadcasts(Filter{Category: CategoryBug})
	if err != nil {
		t.Fatal(err)
	}
	if len(byCategory) != 2 {
		t.Fatalf("category filter returned %d", len(byCategory))
	}
	// Newest first.
	if byCategory[0].Message != "second" || byCategory[1].Message != "first" {
		t.Errorf("ordering wrong: %q then %q", byCategory[0].Message, byCategory[1].Message)
	}

	bySender, err := w.GetBroadcasts(Filter{Sender: "gpt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySender) != 2 {
		t.Errorf("sender filter returned %d", len(bySender))
	}

	since, err := w.GetBroadcasts(Filter{Since: cutoff})
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 {
		t.Errorf("since filter returned %d", len(since))
	}

	ackOnly, err := w.GetBroadcasts(Filter{RequiresAckOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(ackOnly) != 1 || ackOnly[0].Message != "third" {
		t.Errorf("requires-ack filter returned %+v", ackOnly)
	}

	byGlob, err := w.GetBroadcasts(Filter{RelatedFileGlob: "parser/*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byGlob) != 2 {
		t.Errorf("glob filter returned %d", len(byGlob))
	}

	limited, err := w.GetBroadcasts(Filter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Message != "third" {
		t.Errorf("limit filter returned %+v", limited)
	}

	if _, err := w.GetBroadcasts(Filter{RelatedFileGlob: "[bad"}); err == nil {
		t.Error("invalid glob should be a caller error")
	}
}

func TestGetPendingAcks(t *testing.T) {
	w := newTestWorkspace(t)

	own := w.Broadcast("@gpt", 12, CategoryDirective, "own directive", BroadcastOptions{RequiresAck: true})
	other := w.Broadcast("@claude", 10, CategorySecurity, "rotate keys", BroadcastOptions{RequiresAck: true})
	done := w.Broadcast("@claude", 10, CategorySecurity, "patch CVE", BroadcastOptions{RequiresAck: true})
	w.Broadcast("@claude", 10, CategoryStatus, "no ack needed", BroadcastOptions{})

	if res := w.Acknowledge(done.Entry.ID, "@gpt", ""); !res.OK {
		t.Fatal(res.Reason)
	}

	pending := w.GetPendingAcks("@gpt")
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].ID != other.Entry.ID {
		t.Errorf("pending[0] = %s, want %s", pending[0].ID, other.Entry.ID)
	}
	_ = own
}

func TestWorkspace_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	policy := hierarchy.DefaultPolicy()

	w1, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}
	res := w1.Broadcast("@claude", 10, CategoryFinding, "durable", BroadcastOptions{})
	if !res.OK {
		t.Fatal(res.Reason)
	}
	w1.VoteXP("@claude", 10, "@gpt", 5, "helpful")

	w2, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w2.Get(res.Entry.ID); !ok {
		t.Error("broadcast should survive reopen")
	}
	if got := w2.VotesRemaining("@claude"); got != policy.MaxVotesPerSession-1 {
		t.Errorf("VotesRemaining = %d", got)
	}
	if len(w2.GetPendingVotes()) != 1 {
		t.Error("staged vote should survive reopen")
	}
}

func TestBroadcast_ConcurrentWritersMergeOnDisk(t *testing.T) {
	dir := t.TempDir()
	policy := hierarchy.DefaultPolicy()

	one, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}
	two, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}

	// Two writer processes over one session: each commit must carry the
	// other's entries forward, not overwrite them with its own stale view.
	first := one.Broadcast("@claude", 10, CategoryStatus, "starting", BroadcastOptions{})
	second := two.Broadcast("@gpt", 12, CategoryStatus, "also starting", BroadcastOptions{})
	third := one.Broadcast("@claude", 10, CategoryStatus, "still here", BroadcastOptions{})

	doc, err := NewStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	missing := map[string]bool{first.Entry.ID: true, second.Entry.ID: true, third.Entry.ID: true}
	for _, b := range doc.Broadcasts {
		delete(missing, b.ID)
	}
	if len(missing) != 0 {
		t.Errorf("persisted document lost broadcasts %v", missing)
	}
	if doc.Metadata.TotalBroadcasts != 3 {
		t.Errorf("TotalBroadcasts = %d, want 3", doc.Metadata.TotalBroadcasts)
	}

	// The committing workspace picks up the merged state too.
	if _, ok := one.Get(second.Entry.ID); !ok {
		t.Error("first workspace should see the second writer's broadcast after committing")
	}
}

func TestVoteXP_ConcurrentWritersShareSessionCap(t *testing.T) {
	dir := t.TempDir()
	policy := hierarchy.DefaultPolicy()

	one, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}
	two, err := New(dir, policy)
	if err != nil {
		t.Fatal(err)
	}

	if res := one.VoteXP("@claude", 10, "@gpt", 5, "helpful"); !res.OK {
		t.Fatal(res.Reason)
	}
	if res := two.VoteXP("@claude", 10, "@grok", 5, "thorough"); !res.OK {
		t.Fatal(res.Reason)
	}

	doc, err := NewStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.XPVotes) != 2 {
		t.Errorf("persisted votes = %d, want 2", len(doc.XPVotes))
	}
	if got := doc.VoteLimits["@claude"].VotesCast; got != 2 {
		t.Errorf("VotesCast = %d, want 2", got)
	}
}
