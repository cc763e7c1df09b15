// Package internal contains integration tests that verify the governance
// packages work together correctly. These tests ensure the event bus routes
// governance events between components and that a full conflict lifecycle
// runs end to end across package boundaries.
package internal

import (
	"sync"
	"testing"

	"github.com/concordhq/concord/internal/agentstore"
	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/governor"
	"github.com/concordhq/concord/internal/subsumption"
	"github.com/concordhq/concord/internal/workspace"
)

// TestEventBusIntegration tests that the event bus routes governance events
// from every component to subscribers, simulating an observer process.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus()

	var mu sync.Mutex
	received := make(map[string]int)
	record := func(e event.Event) {
		mu.Lock()
		received[e.EventType()]++
		mu.Unlock()
	}
	for _, eventType := range []string{
		"workspace.broadcast",
		"workspace.conflict",
		"subsumption.suppressed",
		"subsumption.expired",
		"arbitration.opened",
		"arbitration.resolved",
		"session.turn",
	} {
		bus.Subscribe(eventType, record)
	}

	store := agentstore.NewMemStore()
	for _, a := range []agentstore.Agent{
		{Alias: "@claude", Level: 10},
		{Alias: "@gpt", Level: 12},
		{Alias: "@grok", Level: 25},
		{Alias: "@worker", Level: 5},
	} {
		store.Put(a)
	}

	g, err := governor.New(governor.Config{
		SessionDir: t.TempDir(),
		Bus:        bus,
		Store:      store,
	})
	if err != nil {
		t.Fatalf("governor.New() error = %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	defer g.Stop()

	agents := []subsumption.Agent{
		{ID: "@claude", Level: 10},
		{ID: "@gpt", Level: 12},
		{ID: "@grok", Level: 25},
		{ID: "@worker", Level: 5},
	}

	// A full governance lifecycle: suppression, contradictory broadcasts,
	// arbitration, resolution, turn sweeps until the suppression decays.
	g.Apply(subsumption.Agent{ID: "@gpt", Level: 12}, "[[SUPPRESS:@worker:off topic]]")

	g.Workspace().Broadcast("@claude", 10, workspace.CategoryFinding,
		"the retry loop is correct", workspace.BroadcastOptions{RelatedFile: "internal/retry/retry.go"})
	winner := g.Workspace().Broadcast("@gpt", 12, workspace.CategoryFinding,
		"the retry loop is incorrect", workspace.BroadcastOptions{RelatedFile: "internal/retry/retry.go"})

	report := g.RunTurn(agents)
	if len(report.OpenedCases) != 1 {
		t.Fatalf("OpenedCases = %v, want one", report.OpenedCases)
	}

	results := g.Apply(subsumption.Agent{ID: "@grok", Level: 25},
		"[[ARBITRATE:"+report.OpenedCases[0]+":verified, the loop double-retries:"+winner.Entry.ID+"]]")
	if !results[0].OK {
		t.Fatalf("arbitration failed: %s", results[0].Reason)
	}

	// Default suppressions last three turns; two more sweeps expire it.
	g.RunTurn(agents)
	g.RunTurn(agents)

	mu.Lock()
	defer mu.Unlock()
	if received["workspace.broadcast"] < 2 {
		t.Errorf("workspace.broadcast events = %d, want at least 2", received["workspace.broadcast"])
	}
	if received["subsumption.suppressed"] != 1 {
		t.Errorf("subsumption.suppressed events = %d, want 1", received["subsumption.suppressed"])
	}
	if received["subsumption.expired"] != 1 {
		t.Errorf("subsumption.expired events = %d, want 1", received["subsumption.expired"])
	}
	if received["arbitration.opened"] != 1 || received["arbitration.resolved"] != 1 {
		t.Errorf("arbitration events = %d opened / %d resolved, want 1/1",
			received["arbitration.opened"], received["arbitration.resolved"])
	}
	if received["session.turn"] != 3 {
		t.Errorf("session.turn events = %d, want 3", received["session.turn"])
	}
}

// TestWorkspacePersistsAcrossGovernors verifies that a second governor over
// the same session directory sees the first one's broadcasts, simulating a
// process restart.
func TestWorkspacePersistsAcrossGovernors(t *testing.T) {
	dir := t.TempDir()

	first, err := governor.New(governor.Config{SessionDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	r := first.Workspace().Broadcast("@claude", 10, workspace.CategorySecurity,
		"token logged in plaintext", workspace.BroadcastOptions{RequiresAck: true})
	if !r.OK {
		t.Fatalf("broadcast rejected: %s", r.Reason)
	}

	second, err := governor.New(governor.Config{SessionDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := second.Workspace().Get(r.Entry.ID)
	if !ok {
		t.Fatal("broadcast not visible after reopen")
	}
	if got.Message != "token logged in plaintext" || !got.RequiresAck {
		t.Errorf("reloaded broadcast = %+v", got)
	}

	pending := second.Workspace().GetPendingAcks("@gpt")
	if len(pending) != 1 {
		t.Errorf("pending acks = %d, want 1", len(pending))
	}
}
