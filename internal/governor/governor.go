// Package governor wires the governance components together for a single
// session: the workspace, the subsumption controller, the arbitration
// protocol, and the optional archive. It owns the turn loop; within a turn,
// agents act sequentially in execution order, then Sweep advances the
// governance state.
package governor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/concordhq/concord/internal/agentstore"
	"github.com/concordhq/concord/internal/arbitration"
	"github.com/concordhq/concord/internal/archive"
	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/hierarchy"
	"github.com/concordhq/concord/internal/logging"
	"github.com/concordhq/concord/internal/subsumption"
	"github.com/concordhq/concord/internal/workspace"
)

// Config holds required dependencies for creating a Governor.
type Config struct {
	// SessionDir is where the workspace document and archive live. Empty
	// runs memory-only.
	SessionDir string

	// Policy is the numeric governance policy. The zero value means
	// hierarchy.DefaultPolicy().
	Policy *hierarchy.Policy

	// Bus receives governance events. Optional.
	Bus *event.Bus

	// Store is the external agent store used for XP awards and target
	// lookups. Optional.
	Store agentstore.Store
}

type govConfig struct {
	log            *logging.Logger
	archivePath    string
	conflictWindow int
	wsOpts         []workspace.Option
	ctrlOpts       []subsumption.Option
	protoOpts      []arbitration.Option
}

// Option configures a Governor beyond its required dependencies.
type Option func(*govConfig)

// WithLogger attaches a logger shared by every component.
func WithLogger(log *logging.Logger) Option {
	return func(c *govConfig) { c.log = log }
}

// WithArchive enables the sqlite archive at the given path.
func WithArchive(path string) Option {
	return func(c *govConfig) { c.archivePath = path }
}

// WithConflictWindow overrides how many recent broadcasts each sweep scans.
func WithConflictWindow(n int) Option {
	return func(c *govConfig) {
		if n > 0 {
			c.conflictWindow = n
		}
	}
}

// WithWorkspaceOptions forwards options to the workspace.
func WithWorkspaceOptions(opts ...workspace.Option) Option {
	return func(c *govConfig) { c.wsOpts = append(c.wsOpts, opts...) }
}

// WithControllerOptions forwards options to the subsumption controller.
func WithControllerOptions(opts ...subsumption.Option) Option {
	return func(c *govConfig) { c.ctrlOpts = append(c.ctrlOpts, opts...) }
}

// WithProtocolOptions forwards options to the arbitration protocol.
func WithProtocolOptions(opts ...arbitration.Option) Option {
	return func(c *govConfig) { c.protoOpts = append(c.protoOpts, opts...) }
}

// Governor coordinates governance for one session. Drive it from a single
// goroutine; the components it owns serialize their own state but the turn
// loop itself is not designed for concurrent callers.
type Governor struct {
	policy hierarchy.Policy
	bus    *event.Bus
	store  agentstore.Store
	log    *logging.Logger

	ws       *workspace.Workspace
	ctrl     *subsumption.Controller
	protocol *arbitration.Protocol
	arch     *archive.Archive

	conflictWindow int

	mu         sync.Mutex
	started    bool
	subIDs     []uint64
	roster     map[string]subsumption.Agent
	arbitrated map[string]bool // conflict key -> case already opened
}

// New creates a Governor and its components.
func New(cfg Config, opts ...Option) (*Governor, error) {
	gc := &govConfig{
		log:            logging.NopLogger(),
		conflictWindow: workspace.DefaultConflictWindow,
	}
	for _, opt := range opts {
		opt(gc)
	}

	policy := hierarchy.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	wsOpts := append([]workspace.Option{
		workspace.WithLogger(gc.log.WithComponent("workspace")),
	}, gc.wsOpts...)
	if cfg.Bus != nil {
		wsOpts = append(wsOpts, workspace.WithBus(cfg.Bus))
	}
	ws, err := workspace.New(cfg.SessionDir, policy, wsOpts...)
	if err != nil {
		return nil, fmt.Errorf("governor: workspace: %w", err)
	}

	ctrlOpts := append([]subsumption.Option{
		subsumption.WithNotifier(ws),
		subsumption.WithLogger(gc.log.WithComponent("subsumption")),
	}, gc.ctrlOpts...)
	protoOpts := append([]arbitration.Option{
		arbitration.WithBroadcaster(ws),
		arbitration.WithLogger(gc.log.WithComponent("arbitration")),
	}, gc.protoOpts...)
	if cfg.Bus != nil {
		ctrlOpts = append(ctrlOpts, subsumption.WithBus(cfg.Bus))
		protoOpts = append(protoOpts, arbitration.WithBus(cfg.Bus))
	}
	if cfg.Store != nil {
		protoOpts = append(protoOpts, arbitration.WithAgentStore(cfg.Store))
	}

	g := &Governor{
		policy:         policy,
		bus:            cfg.Bus,
		store:          cfg.Store,
		log:            gc.log,
		ws:             ws,
		ctrl:           subsumption.NewController(policy.Bounds, ctrlOpts...),
		protocol:       arbitration.NewProtocol(protoOpts...),
		conflictWindow: gc.conflictWindow,
		roster:         make(map[string]subsumption.Agent),
		arbitrated:     make(map[string]bool),
	}

	if gc.archivePath != "" {
		arch, err := archive.Open(gc.archivePath)
		if err != nil {
			// The archive is best-effort everywhere else too; a broken
			// archive downgrades the session rather than failing it.
			g.log.Warn("archive unavailable", "path", gc.archivePath, "error", err)
		} else {
			g.arch = arch
		}
	}
	return g, nil
}

// Workspace returns the session workspace.
func (g *Governor) Workspace() *workspace.Workspace { return g.ws }

// Controller returns the subsumption controller.
func (g *Governor) Controller() *subsumption.Controller { return g.ctrl }

// Arbitration returns the arbitration protocol.
func (g *Governor) Arbitration() *arbitration.Protocol { return g.protocol }

// Start subscribes the archive mirrors to the bus. Safe to call without an
// archive or bus; it then does nothing.
func (g *Governor) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errors.New("governor: already started")
	}
	g.started = true

	if g.arch != nil && g.bus != nil {
		id := g.bus.Subscribe("workspace.broadcast", func(ev event.Event) {
			posted, ok := ev.(event.BroadcastPostedEvent)
			if !ok {
				return
			}
			if b, ok := g.ws.Get(posted.BroadcastID); ok {
				if err := g.arch.SnapshotBroadcast(b); err != nil {
					g.log.Warn("broadcast snapshot failed", "id", b.ID, "error", err)
				}
			}
		})
		g.subIDs = append(g.subIDs, id)

		id = g.bus.Subscribe("arbitration.resolved", func(ev event.Event) {
			resolved, ok := ev.(event.ArbitrationResolvedEvent)
			if !ok {
				return
			}
			g.archiveCase(resolved.CaseID)
		})
		g.subIDs = append(g.subIDs, id)
	}
	return nil
}

// Stop unsubscribes from the bus and closes the archive. Idempotent.
func (g *Governor) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.started = false

	for _, id := range g.subIDs {
		g.bus.Unsubscribe(id)
	}
	g.subIDs = nil

	if g.arch != nil {
		if err := g.arch.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Governor) archiveCase(caseID string) {
	if g.arch == nil {
		return
	}
	for _, c := range g.protocol.Resolved() {
		if c.ID == caseID {
			if err := g.arch.SaveResolved(c); err != nil {
				g.log.Warn("case archive failed", "case", caseID, "error", err)
			}
			return
		}
	}
}

// TurnReport summarizes one sweep.
type TurnReport struct {
	Turn                int
	Order               []subsumption.Agent
	NewConflicts        []workspace.Conflict
	OpenedCases         []string
	EscalatedCases      []string
	ExpiredSuppressions []string
}

// RunTurn records the session roster, returns the execution order for the
// turn, and sweeps governance state: conflicts found in the recent broadcast
// window open arbitration cases, pending case deadlines are checked,
// suppressions decay, and the turn counter advances. Call once per turn
// after all agents have acted.
func (g *Governor) RunTurn(agents []subsumption.Agent) TurnReport {
	g.mu.Lock()
	for _, a := range agents {
		g.roster[workspace.NormalizeAlias(a.ID)] = a
	}
	g.mu.Unlock()

	report := TurnReport{Order: g.ctrl.ExecutionOrder(agents)}

	report.NewConflicts = g.openArbitrations()
	report.EscalatedCases = g.protocol.CheckDeadlines()
	report.ExpiredSuppressions = g.ctrl.Tick()
	report.Turn = g.protocol.IncrementTurn()

	for _, c := range g.protocol.GetPending(0) {
		for _, conflict := range report.NewConflicts {
			if conflictKey(conflict.BroadcastIDs) == conflictKey(c.ConflictingBroadcastIDs) {
				report.OpenedCases = append(report.OpenedCases, c.ID)
			}
		}
	}

	if g.bus != nil {
		g.bus.Publish(event.NewTurnAdvancedEvent(
			report.Turn, report.ExpiredSuppressions, report.EscalatedCases, len(report.NewConflicts)))
	}
	g.log.Info("turn advanced",
		"turn", report.Turn,
		"conflicts", len(report.NewConflicts),
		"escalated", len(report.EscalatedCases),
		"expired", len(report.ExpiredSuppressions))
	return report
}

// openArbitrations scans the recent broadcast window and opens a case for
// every conflict that does not already have one.
func (g *Governor) openArbitrations() []workspace.Conflict {
	var fresh []workspace.Conflict
	for _, conflict := range g.ws.DetectConflicts(g.conflictWindow) {
		key := conflictKey(conflict.BroadcastIDs)

		g.mu.Lock()
		seen := g.arbitrated[key]
		if !seen {
			g.arbitrated[key] = true
		}
		g.mu.Unlock()
		if seen {
			continue
		}

		var broadcasts []workspace.Broadcast
		for _, id := range conflict.BroadcastIDs {
			if b, ok := g.ws.Get(id); ok {
				broadcasts = append(broadcasts, b)
			}
		}
		if len(broadcasts) < 2 {
			// Evicted from the ring buffer between detection and here.
			continue
		}
		if _, err := g.protocol.Create(broadcasts, "@governor"); err != nil {
			g.log.Error("arbitration open failed", "key", key, "error", err)
			continue
		}
		fresh = append(fresh, conflict)
	}
	return fresh
}

func conflictKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// lookupLevel resolves a target alias to its level via the turn roster,
// falling back to the agent store.
func (g *Governor) lookupLevel(alias string) (int, bool) {
	alias = workspace.NormalizeAlias(alias)

	g.mu.Lock()
	a, ok := g.roster[alias]
	g.mu.Unlock()
	if ok {
		return a.Level, true
	}

	if g.store != nil {
		if agent, err := g.store.GetAgentByAlias(alias); err == nil {
			return agent.Level, true
		}
	}
	return 0, false
}
