package arbitration

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/concordhq/concord/internal/agentstore"
	"github.com/concordhq/concord/internal/errors"
	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/logging"
	"github.com/concordhq/concord/internal/workspace"
)

const (
	// DefaultLevelBump is added to the highest conflicting sender level to
	// compute the required arbitrator level, and again on every escalation.
	DefaultLevelBump = 10

	// DefaultDeadlineWindow is how many turns a case may stay pending
	// before the sweep escalates it.
	DefaultDeadlineWindow = 5
)

// Broadcaster posts governance broadcasts on the protocol's behalf; the
// workspace implements it. Best-effort: the implementation must swallow its
// own validation failures.
type Broadcaster interface {
	SystemBroadcast(sender string, senderLevel int, category workspace.Category, message string, metadata map[string]any)
}

// Protocol is the arbitration state machine for one session. Safe for
// concurrent use, though a session normally drives it from one goroutine.
type Protocol struct {
	levelBump      int
	deadlineWindow int
	autoEscalate   bool

	broadcaster Broadcaster
	store       agentstore.Store
	bus         *event.Bus
	log         *logging.Logger

	mu       sync.Mutex
	turn     int
	pending  map[string]*Case
	resolved []*Case
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithBroadcaster attaches a broadcast sink (the workspace).
func WithBroadcaster(b Broadcaster) Option {
	return func(p *Protocol) { p.broadcaster = b }
}

// WithAgentStore attaches the external store used for XP awards.
func WithAgentStore(store agentstore.Store) Option {
	return func(p *Protocol) { p.store = store }
}

// WithBus attaches an event bus.
func WithBus(bus *event.Bus) Option {
	return func(p *Protocol) { p.bus = bus }
}

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(log *logging.Logger) Option {
	return func(p *Protocol) { p.log = log }
}

// WithLevelBump overrides the escalation level increment.
func WithLevelBump(n int) Option {
	return func(p *Protocol) {
		if n > 0 {
			p.levelBump = n
		}
	}
}

// WithDeadlineWindow overrides the deadline window in turns.
func WithDeadlineWindow(n int) Option {
	return func(p *Protocol) {
		if n > 0 {
			p.deadlineWindow = n
		}
	}
}

// WithAutoEscalate toggles automatic escalation on deadline expiry.
func WithAutoEscalate(enabled bool) Option {
	return func(p *Protocol) { p.autoEscalate = enabled }
}

// NewProtocol creates a Protocol starting at turn 0 with auto-escalation
// enabled.
func NewProtocol(opts ...Option) *Protocol {
	p := &Protocol{
		levelBump:      DefaultLevelBump,
		deadlineWindow: DefaultDeadlineWindow,
		autoEscalate:   true,
		log:            logging.NopLogger(),
		pending:        make(map[string]*Case),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentTurn returns the protocol's turn counter.
func (p *Protocol) CurrentTurn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turn
}

// Create opens a pending case over the given conflicting broadcasts. The
// required arbitrator level is the highest conflicting sender level plus the
// level bump. Fewer than two broadcasts is a caller error.
func (p *Protocol) Create(conflicting []workspace.Broadcast, createdBy string) (*Case, error) {
	if len(conflicting) < 2 {
		return nil, errors.NewValidationError("conflicting", "a case needs at least two broadcasts")
	}

	maxLevel := 0
	ids := make([]string, 0, len(conflicting))
	parties := make([]Party, 0, len(conflicting))
	seen := make(map[string]bool)
	for _, b := range conflicting {
		ids = append(ids, b.ID)
		if b.SenderLevel > maxLevel {
			maxLevel = b.SenderLevel
		}
		if !seen[b.Sender] {
			seen[b.Sender] = true
			parties = append(parties, Party{Alias: b.Sender, Level: b.SenderLevel})
		}
	}

	p.mu.Lock()
	c := &Case{
		ID:                      "arb-" + uuid.NewString(),
		ConflictingBroadcastIDs: ids,
		Parties:                 parties,
		CreatedBy:               createdBy,
		CreatedTurn:             p.turn,
		DeadlineTurn:            p.turn + p.deadlineWindow,
		RequiredLevel:           maxLevel + p.levelBump,
		Status:                  StatusPending,
	}
	p.pending[c.ID] = c
	snapshot := c.clone()
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(event.NewArbitrationOpenedEvent(c.ID, snapshot.RequiredLevel, snapshot.DeadlineTurn))
	}
	p.broadcast(createdBy, workspace.CategoryArbitration,
		fmt.Sprintf("arbitration %s opened over %s: requires level %d by turn %d",
			snapshot.ID, strings.Join(ids, ", "), snapshot.RequiredLevel, snapshot.DeadlineTurn),
		map[string]any{"case_id": snapshot.ID, "required_level": snapshot.RequiredLevel})
	p.log.Info("arbitration opened",
		"case", snapshot.ID, "required_level", snapshot.RequiredLevel, "deadline_turn", snapshot.DeadlineTurn)

	return snapshot, nil
}

// GetArbitrator selects the arbitrator for a case by subsidiarity: among
// candidates that are not parties to the conflict and meet the required
// level, the one with the lowest level wins (ties broken by alias). Returns
// nil when nobody qualifies. Unknown case ids are a hard error.
func (p *Protocol) GetArbitrator(caseID string, candidates []Candidate) (*Candidate, error) {
	p.mu.Lock()
	c, ok := p.pending[caseID]
	if !ok {
		p.mu.Unlock()
		return nil, errors.NewNotFoundError("arbitration", caseID, errors.ErrArbitrationNotFound)
	}
	required := c.RequiredLevel
	snapshot := c.clone()
	p.mu.Unlock()

	var qualified []Candidate
	for _, cand := range candidates {
		if cand.Level >= required && !snapshot.Involves(cand.Alias) {
			qualified = append(qualified, cand)
		}
	}
	if len(qualified) == 0 {
		return nil, nil
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].Level != qualified[j].Level {
			return qualified[i].Level < qualified[j].Level
		}
		return qualified[i].Alias < qualified[j].Alias
	})
	chosen := qualified[0]
	return &chosen, nil
}

// SubmitResolution resolves a pending case. An arbitrator below the required
// level is a hard error, unlike the soft permission checks in the
// subsumption controller; this asymmetry matches the observed contract and
// must not be normalized. XP awards go through the agent store best-effort.
func (p *Protocol) SubmitResolution(caseID, arbitrator string, arbitratorLevel int, text, winningBroadcastID string, awards []XPAward) (*Case, error) {
	p.mu.Lock()
	c, ok := p.pending[caseID]
	if !ok {
		if p.isResolvedLocked(caseID) {
			p.mu.Unlock()
			return nil, fmt.Errorf("arbitration %s: %w", caseID, errors.ErrArbitrationResolved)
		}
		p.mu.Unlock()
		return nil, errors.NewNotFoundError("arbitration", caseID, errors.ErrArbitrationNotFound)
	}
	if arbitratorLevel < c.RequiredLevel {
		p.mu.Unlock()
		return nil, errors.NewAuthorizationError(arbitrator, arbitratorLevel, c.RequiredLevel,
			"resolve arbitration "+caseID)
	}

	c.Status = StatusResolved
	c.Resolution = &Resolution{
		Arbitrator:         arbitrator,
		ArbitratorLevel:    arbitratorLevel,
		Text:               text,
		WinningBroadcastID: winningBroadcastID,
		XPAwards:           append([]XPAward(nil), awards...),
		Turn:               p.turn,
		Time:               time.Now(),
	}
	delete(p.pending, caseID)
	p.resolved = append(p.resolved, c)
	snapshot := c.clone()
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(event.NewArbitrationResolvedEvent(caseID, arbitrator, winningBroadcastID))
	}
	p.broadcast(arbitrator, workspace.CategoryArbitrationResolved,
		fmt.Sprintf("arbitration %s resolved by %s: %s", caseID, arbitrator, text),
		map[string]any{"case_id": caseID, "winning_broadcast_id": winningBroadcastID})
	p.applyAwards(caseID, awards)
	p.log.Info("arbitration resolved", "case", caseID, "arbitrator", arbitrator, "winner", winningBroadcastID)

	return snapshot, nil
}

// Escalate raises a pending case's required level by the bump and restarts
// its deadline. Unknown case ids are a hard error.
func (p *Protocol) Escalate(caseID, reason string) (*Case, error) {
	return p.escalate(caseID, reason, false)
}

func (p *Protocol) escalate(caseID, reason string, automatic bool) (*Case, error) {
	p.mu.Lock()
	c, ok := p.pending[caseID]
	if !ok {
		p.mu.Unlock()
		return nil, errors.NewNotFoundError("arbitration", caseID, errors.ErrArbitrationNotFound)
	}

	from := c.RequiredLevel
	c.RequiredLevel += p.levelBump
	c.DeadlineTurn = p.turn + p.deadlineWindow
	c.EscalationCount++
	c.Escalations = append(c.Escalations, Escalation{
		Turn:      p.turn,
		FromLevel: from,
		ToLevel:   c.RequiredLevel,
		Reason:    reason,
		Automatic: automatic,
		Time:      time.Now(),
	})
	snapshot := c.clone()
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(event.NewArbitrationEscalatedEvent(caseID, snapshot.RequiredLevel, reason, automatic))
	}
	p.broadcast(snapshot.CreatedBy, workspace.CategoryArbitration,
		fmt.Sprintf("arbitration %s escalated to level %d: %s", caseID, snapshot.RequiredLevel, reason),
		map[string]any{"case_id": caseID, "required_level": snapshot.RequiredLevel})
	p.log.Info("arbitration escalated",
		"case", caseID, "required_level", snapshot.RequiredLevel, "automatic", automatic)

	return snapshot, nil
}

// IncrementTurn advances the protocol's turn counter and returns the new
// value. Call once per session turn, before CheckDeadlines.
func (p *Protocol) IncrementTurn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turn++
	return p.turn
}

// CheckDeadlines sweeps pending cases whose deadline has arrived and, when
// auto-escalation is on, escalates each. Returns the ids of expired cases
// either way. Call once per turn.
func (p *Protocol) CheckDeadlines() []string {
	p.mu.Lock()
	var due []string
	for id, c := range p.pending {
		if p.turn >= c.DeadlineTurn {
			due = append(due, id)
		}
	}
	auto := p.autoEscalate
	p.mu.Unlock()

	sort.Strings(due)
	if auto {
		for _, id := range due {
			// The case may have been resolved between the scan and here;
			// a vanished id is fine during the sweep.
			if _, err := p.escalate(id, "deadline expired", true); err != nil && !errors.IsNotFound(err) {
				p.log.Error("deadline escalation failed", "case", id, "error", err)
			}
		}
	}
	return due
}

// GetPending returns pending cases, oldest first. When minLevel is
// positive, only cases an agent of that level is senior enough to resolve
// are included.
func (p *Protocol) GetPending(minLevel int) []*Case {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Case, 0, len(p.pending))
	for _, c := range p.pending {
		if minLevel > 0 && c.RequiredLevel > minLevel {
			continue
		}
		out = append(out, c.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedTurn != out[j].CreatedTurn {
			return out[i].CreatedTurn < out[j].CreatedTurn
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolved returns the archive of resolved cases in resolution order.
func (p *Protocol) Resolved() []*Case {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Case, 0, len(p.resolved))
	for _, c := range p.resolved {
		out = append(out, c.clone())
	}
	return out
}

func (p *Protocol) isResolvedLocked(caseID string) bool {
	for _, c := range p.resolved {
		if c.ID == caseID {
			return true
		}
	}
	return false
}

// broadcast emits a governance broadcast, best-effort.
func (p *Protocol) broadcast(sender string, category workspace.Category, message string, metadata map[string]any) {
	if p.broadcaster == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("arbitration broadcast failed", "panic", r)
		}
	}()
	// Governance broadcasts carry the required authority implicitly; the
	// sender level here only gates DIRECTIVE, which arbitration never uses.
	p.broadcaster.SystemBroadcast(sender, 0, category, message, metadata)
}

// applyAwards pushes XP awards through the agent store. Store failures are
// logged, never propagated: the resolution already committed.
func (p *Protocol) applyAwards(caseID string, awards []XPAward) {
	if p.store == nil || len(awards) == 0 {
		return
	}
	for _, award := range awards {
		agent, err := p.store.GetAgentByAlias(award.Alias)
		if err != nil {
			p.log.Warn("xp award skipped", "case", caseID, "alias", award.Alias, "error", err)
			continue
		}
		if _, err := p.store.AwardXP(agent.ID, award.Delta, "arbitration "+caseID); err != nil {
			p.log.Warn("xp award failed", "case", caseID, "alias", award.Alias, "error", err)
		}
	}
}
