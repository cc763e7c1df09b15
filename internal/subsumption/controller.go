package subsumption

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/hierarchy"
	"github.com/concordhq/concord/internal/logging"
)

const (
	// DefaultTurns is the suppression duration when the caller passes none.
	DefaultTurns = 3

	// DefaultMaxTurns caps any single suppression. Requests above the cap
	// are clamped, not rejected.
	DefaultMaxTurns = 5
)

// Suppression is an active silencing of one agent by a higher-layer agent.
type Suppression struct {
	SuppressorID    string
	SuppressorLevel int
	TargetID        string
	TargetLevel     int
	Reason          string
	TurnsRemaining  int
	CreatedAt       time.Time
}

// Result reports the outcome of a suppress or release request. Failures are
// soft: the Reason is safe to show to the requesting agent.
type Result struct {
	OK     bool
	Reason string
}

// Agent identifies one session participant for execution ordering.
type Agent struct {
	ID    string
	Level int
}

// Notifier receives best-effort governance notices, usually the workspace.
// Notification failures are swallowed; they never fail the primary
// operation.
type Notifier interface {
	GovernanceNotice(sender string, senderLevel int, message string)
}

// Controller tracks active suppressions and computes execution order. Safe
// for concurrent use, though a session normally drives it from one
// goroutine.
type Controller struct {
	bounds       hierarchy.LayerBounds
	defaultTurns int
	maxTurns     int

	notifier Notifier
	bus      *event.Bus
	log      *logging.Logger

	mu     sync.RWMutex
	active map[string]Suppression // target id -> suppression
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier attaches a best-effort notice sink (the workspace).
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithBus attaches an event bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithMaxTurns overrides the suppression duration cap.
func WithMaxTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// WithDefaultTurns overrides the default suppression duration.
func WithDefaultTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaultTurns = n
		}
	}
}

// NewController creates a Controller using the given layer bounds.
func NewController(bounds hierarchy.LayerBounds, opts ...Option) *Controller {
	c := &Controller{
		bounds:       bounds,
		defaultTurns: DefaultTurns,
		maxTurns:     DefaultMaxTurns,
		log:          logging.NopLogger(),
		active:       make(map[string]Suppression),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LayerFor maps a level to its layer under the controller's bounds.
func (c *Controller) LayerFor(level int) hierarchy.Layer {
	return c.bounds.LayerFor(level)
}

// CanSuppress reports whether a suppressor level may suppress a target
// level: true iff the suppressor's layer is strictly higher.
func (c *Controller) CanSuppress(suppressorLevel, targetLevel int) bool {
	return c.bounds.LayerFor(suppressorLevel).Above(c.bounds.LayerFor(targetLevel))
}

// Suppress silences a target for the given number of turns. A non-positive
// turns value uses the default; anything above the cap is clamped. An
// existing suppression of the same target is overwritten. Permission
// failures are soft results.
func (c *Controller) Suppress(suppressorID string, suppressorLevel int, targetID string, targetLevel int, reason string, turns int) Result {
	if suppressorID == targetID {
		return Result{Reason: "an agent cannot suppress itself"}
	}
	if !c.CanSuppress(suppressorLevel, targetLevel) {
		return Result{Reason: fmt.Sprintf(
			"%s layer cannot suppress %s layer: a strictly higher layer is required",
			c.bounds.LayerFor(suppressorLevel), c.bounds.LayerFor(targetLevel))}
	}

	if turns <= 0 {
		turns = c.defaultTurns
	}
	if turns > c.maxTurns {
		turns = c.maxTurns
	}

	sup := Suppression{
		SuppressorID:    suppressorID,
		SuppressorLevel: suppressorLevel,
		TargetID:        targetID,
		TargetLevel:     targetLevel,
		Reason:          reason,
		TurnsRemaining:  turns,
		CreatedAt:       time.Now(),
	}

	c.mu.Lock()
	c.active[targetID] = sup
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(event.NewSuppressionCreatedEvent(suppressorID, targetID, turns, reason))
	}
	c.notify(suppressorID, suppressorLevel, fmt.Sprintf(
		"%s suppressed %s for %d turns: %s", suppressorID, targetID, turns, reason))
	c.log.Info("suppression created",
		"suppressor", suppressorID, "target", targetID, "turns", turns, "reason", reason)

	return Result{OK: true}
}

// Release lifts an active suppression. Only the original suppressor or an
// agent from a strictly higher layer than the suppressor may release; all
// other callers fail softly and the suppression stands.
func (c *Controller) Release(releaserID string, releaserLevel int, targetID string) Result {
	c.mu.Lock()
	sup, ok := c.active[targetID]
	if !ok {
		c.mu.Unlock()
		return Result{Reason: fmt.Sprintf("%s is not suppressed", targetID)}
	}

	allowed := releaserID == sup.SuppressorID ||
		c.bounds.LayerFor(releaserLevel).Above(c.bounds.LayerFor(sup.SuppressorLevel))
	if !allowed {
		c.mu.Unlock()
		return Result{Reason: fmt.Sprintf(
			"only %s or a higher layer may release this suppression", sup.SuppressorID)}
	}

	delete(c.active, targetID)
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(event.NewSuppressionReleasedEvent(releaserID, targetID))
	}
	c.notify(releaserID, releaserLevel, fmt.Sprintf("%s released %s", releaserID, targetID))
	c.log.Info("suppression released", "releaser", releaserID, "target", targetID)

	return Result{OK: true}
}

// Tick advances one turn: every active suppression loses one turn, and any
// reaching zero is removed and its target id reported expired.
func (c *Controller) Tick() []string {
	c.mu.Lock()
	var expired []string
	for target, sup := range c.active {
		sup.TurnsRemaining--
		if sup.TurnsRemaining <= 0 {
			delete(c.active, target)
			expired = append(expired, target)
			continue
		}
		c.active[target] = sup
	}
	c.mu.Unlock()

	sort.Strings(expired)
	for _, target := range expired {
		if c.bus != nil {
			c.bus.Publish(event.NewSuppressionExpiredEvent(target))
		}
		c.notify(target, 0, fmt.Sprintf("suppression of %s expired", target))
		c.log.Debug("suppression expired", "target", target)
	}
	return expired
}

// ExecutionOrder filters out suppressed agents and returns the rest in
// deterministic priority order: highest layer first, then highest level,
// then id.
func (c *Controller) ExecutionOrder(agents []Agent) []Agent {
	c.mu.RLock()
	out := make([]Agent, 0, len(agents))
	for _, a := range agents {
		if _, suppressed := c.active[a.ID]; !suppressed {
			out = append(out, a)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		li, lj := c.bounds.LayerFor(out[i].Level), c.bounds.LayerFor(out[j].Level)
		if li != lj {
			return li > lj
		}
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IsSuppressed reports whether the target has an active suppression.
func (c *Controller) IsSuppressed(targetID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.active[targetID]
	return ok
}

// InfoFor returns the active suppression for a target, if any.
func (c *Controller) InfoFor(targetID string) (Suppression, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sup, ok := c.active[targetID]
	return sup, ok
}

// Active returns all active suppressions sorted by target id.
func (c *Controller) Active() []Suppression {
	c.mu.RLock()
	out := make([]Suppression, 0, len(c.active))
	for _, sup := range c.active {
		out = append(out, sup)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

// notify delivers a best-effort governance notice. Panics from the sink are
// absorbed; a notice must never fail the primary operation.
func (c *Controller) notify(sender string, senderLevel int, message string) {
	if c.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("governance notice failed", "panic", r)
		}
	}()
	c.notifier.GovernanceNotice(sender, senderLevel, message)
}
