package event

import "time"

// Event is implemented by every event published on the Bus.
type Event interface {
	// EventType returns the "category.action" identifier for the event.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides the common fields. Embed in concrete event types.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Workspace events
// -----------------------------------------------------------------------------

// BroadcastPostedEvent is emitted when a broadcast is accepted into the
// workspace.
type BroadcastPostedEvent struct {
	baseEvent
	BroadcastID string
	Sender      string
	Category    string
	Message     string
}

// NewBroadcastPostedEvent creates a BroadcastPostedEvent.
func NewBroadcastPostedEvent(id, sender, category, message string) BroadcastPostedEvent {
	return BroadcastPostedEvent{
		baseEvent:   newBaseEvent("workspace.broadcast"),
		BroadcastID: id,
		Sender:      sender,
		Category:    category,
		Message:     message,
	}
}

// VoteRecordedEvent is emitted when an XP vote is staged in the ledger.
type VoteRecordedEvent struct {
	baseEvent
	VoteID string
	Voter  string
	Target string
	Delta  int
}

// NewVoteRecordedEvent creates a VoteRecordedEvent.
func NewVoteRecordedEvent(voteID, voter, target string, delta int) VoteRecordedEvent {
	return VoteRecordedEvent{
		baseEvent: newBaseEvent("workspace.vote"),
		VoteID:    voteID,
		Voter:     voter,
		Target:    target,
		Delta:     delta,
	}
}

// ConflictDetectedEvent is emitted when contradictory broadcasts are found,
// either by the lexicon scan or a manual flag.
type ConflictDetectedEvent struct {
	baseEvent
	BroadcastIDs []string
	Term         string // matched lexicon term, empty for manual flags
	FlaggedBy    string // non-empty for manual flags
}

// NewConflictDetectedEvent creates a ConflictDetectedEvent.
func NewConflictDetectedEvent(ids []string, term, flaggedBy string) ConflictDetectedEvent {
	return ConflictDetectedEvent{
		baseEvent:    newBaseEvent("workspace.conflict"),
		BroadcastIDs: ids,
		Term:         term,
		FlaggedBy:    flaggedBy,
	}
}

// -----------------------------------------------------------------------------
// Subsumption events
// -----------------------------------------------------------------------------

// SuppressionCreatedEvent is emitted when an agent is suppressed.
type SuppressionCreatedEvent struct {
	baseEvent
	Suppressor string
	Target     string
	Turns      int
	Reason     string
}

// NewSuppressionCreatedEvent creates a SuppressionCreatedEvent.
func NewSuppressionCreatedEvent(suppressor, target string, turns int, reason string) SuppressionCreatedEvent {
	return SuppressionCreatedEvent{
		baseEvent:  newBaseEvent("subsumption.suppressed"),
		Suppressor: suppressor,
		Target:     target,
		Turns:      turns,
		Reason:     reason,
	}
}

// SuppressionReleasedEvent is emitted when a suppression is lifted early.
type SuppressionReleasedEvent struct {
	baseEvent
	Releaser string
	Target   string
}

// NewSuppressionReleasedEvent creates a SuppressionReleasedEvent.
func NewSuppressionReleasedEvent(releaser, target string) SuppressionReleasedEvent {
	return SuppressionReleasedEvent{
		baseEvent: newBaseEvent("subsumption.released"),
		Releaser:  releaser,
		Target:    target,
	}
}

// SuppressionExpiredEvent is emitted when a suppression decays to zero turns.
type SuppressionExpiredEvent struct {
	baseEvent
	Target string
}

// NewSuppressionExpiredEvent creates a SuppressionExpiredEvent.
func NewSuppressionExpiredEvent(target string) SuppressionExpiredEvent {
	return SuppressionExpiredEvent{
		baseEvent: newBaseEvent("subsumption.expired"),
		Target:    target,
	}
}

// -----------------------------------------------------------------------------
// Arbitration events
// -----------------------------------------------------------------------------

// ArbitrationOpenedEvent is emitted when a conflict case is opened.
type ArbitrationOpenedEvent struct {
	baseEvent
	CaseID        string
	RequiredLevel int
	DeadlineTurn  int
}

// NewArbitrationOpenedEvent creates an ArbitrationOpenedEvent.
func NewArbitrationOpenedEvent(caseID string, requiredLevel, deadlineTurn int) ArbitrationOpenedEvent {
	return ArbitrationOpenedEvent{
		baseEvent:     newBaseEvent("arbitration.opened"),
		CaseID:        caseID,
		RequiredLevel: requiredLevel,
		DeadlineTurn:  deadlineTurn,
	}
}

// ArbitrationEscalatedEvent is emitted on manual or deadline escalation.
type ArbitrationEscalatedEvent struct {
	baseEvent
	CaseID        string
	RequiredLevel int
	Reason        string
	Automatic     bool
}

// NewArbitrationEscalatedEvent creates an ArbitrationEscalatedEvent.
func NewArbitrationEscalatedEvent(caseID string, requiredLevel int, reason string, automatic bool) ArbitrationEscalatedEvent {
	return ArbitrationEscalatedEvent{
		baseEvent:     newBaseEvent("arbitration.escalated"),
		CaseID:        caseID,
		RequiredLevel: requiredLevel,
		Reason:        reason,
		Automatic:     automatic,
	}
}

// ArbitrationResolvedEvent is emitted when an arbitrator resolves a case.
type ArbitrationResolvedEvent struct {
	baseEvent
	CaseID     string
	Arbitrator string
	WinnerID   string
}

// NewArbitrationResolvedEvent creates an ArbitrationResolvedEvent.
func NewArbitrationResolvedEvent(caseID, arbitrator, winnerID string) ArbitrationResolvedEvent {
	return ArbitrationResolvedEvent{
		baseEvent:  newBaseEvent("arbitration.resolved"),
		CaseID:     caseID,
		Arbitrator: arbitrator,
		WinnerID:   winnerID,
	}
}

// -----------------------------------------------------------------------------
// Session events
// -----------------------------------------------------------------------------

// TurnAdvancedEvent is emitted once per turn after the governor sweep.
type TurnAdvancedEvent struct {
	baseEvent
	Turn              int
	ExpiredTargets    []string
	EscalatedCaseIDs  []string
	DetectedConflicts int
}

// NewTurnAdvancedEvent creates a TurnAdvancedEvent.
func NewTurnAdvancedEvent(turn int, expired, escalated []string, conflicts int) TurnAdvancedEvent {
	return TurnAdvancedEvent{
		baseEvent:         newBaseEvent("session.turn"),
		Turn:              turn,
		ExpiredTargets:    expired,
		EscalatedCaseIDs:  escalated,
		DetectedConflicts: conflicts,
	}
}
