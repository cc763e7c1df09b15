package workspace

import (
	"strings"
	"time"
)

// Category classifies a broadcast. The vocabulary is fixed; unknown
// categories are rejected at broadcast time.
type Category string

const (
	CategorySecurity            Category = "SECURITY"
	CategoryBug                 Category = "BUG"
	CategoryOptimization        Category = "OPTIMIZATION"
	CategoryStatus              Category = "STATUS"
	CategoryFinding             Category = "FINDING"
	CategoryCodeQuality         Category = "CODE_QUALITY"
	CategoryDirective           Category = "DIRECTIVE"
	CategoryConflict            Category = "CONFLICT"
	CategoryArbitration         Category = "ARBITRATION"
	CategoryArbitrationResolved Category = "ARBITRATION_RESOLVED"
	CategoryXPVote              Category = "XP_VOTE"
)

// validCategories is the fixed broadcast vocabulary.
var validCategories = map[Category]bool{
	CategorySecurity:            true,
	CategoryBug:                 true,
	CategoryOptimization:        true,
	CategoryStatus:              true,
	CategoryFinding:             true,
	CategoryCodeQuality:         true,
	CategoryDirective:           true,
	CategoryConflict:            true,
	CategoryArbitration:         true,
	CategoryArbitrationResolved: true,
	CategoryXPVote:              true,
}

// ValidCategory reports whether c is part of the fixed vocabulary.
func ValidCategory(c Category) bool {
	return validCategories[c]
}

// Acknowledgment records one agent's ack of a requires-ack broadcast.
type Acknowledgment struct {
	Agent   string    `json:"agent"`
	Comment string    `json:"comment,omitempty"`
	Time    time.Time `json:"time"`
}

// Broadcast is a categorized message published to the workspace.
type Broadcast struct {
	ID              string           `json:"id"`
	Sender          string           `json:"sender"`
	SenderLevel     int              `json:"sender_level"`
	Category        Category         `json:"category"`
	Message         string           `json:"message"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	RelatedFile     string           `json:"related_file,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
	RequiresAck     bool             `json:"requires_ack"`
	Acknowledgments []Acknowledgment `json:"acknowledgments,omitempty"`
}

// AckedBy reports whether the given agent already acknowledged b.
func (b Broadcast) AckedBy(agent string) bool {
	agent = NormalizeAlias(agent)
	for _, ack := range b.Acknowledgments {
		if ack.Agent == agent {
			return true
		}
	}
	return false
}

// Vote is a staged peer-XP vote. Votes are not applied synchronously: the
// external agent store drains them via GetPendingVotes/MarkVoteApplied.
type Vote struct {
	ID         string    `json:"id"`
	Voter      string    `json:"voter"`
	VoterLevel int       `json:"voter_level"`
	Target     string    `json:"target"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	Applied    bool      `json:"applied"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoteLimit tracks one voter's spent votes for the current session.
type VoteLimit struct {
	VotesCast int       `json:"votes_cast"`
	LastReset time.Time `json:"last_reset"`
}

// Metadata holds lifetime counters that survive ring-buffer eviction.
type Metadata struct {
	TotalBroadcasts int `json:"total_broadcasts"`
	TotalVotes      int `json:"total_votes"`
	TotalConflicts  int `json:"total_conflicts"`
}

// Document is the full persisted workspace state. It is rewritten atomically
// on every mutation.
type Document struct {
	Version    int                  `json:"version"`
	Created    time.Time            `json:"created"`
	Broadcasts []Broadcast          `json:"broadcasts"`
	XPVotes    []Vote               `json:"xp_votes"`
	VoteLimits map[string]VoteLimit `json:"vote_limits"`
	Metadata   Metadata             `json:"metadata"`
}

// DocumentVersion is the current schema version of the persisted document.
const DocumentVersion = 1

// NewDocument returns an empty document stamped with the current time.
func NewDocument() Document {
	return Document{
		Version:    DocumentVersion,
		Created:    time.Now(),
		VoteLimits: make(map[string]VoteLimit),
	}
}

// NormalizeAlias lowercases an alias and guarantees a single leading "@".
func NormalizeAlias(alias string) string {
	alias = strings.TrimSpace(strings.ToLower(alias))
	alias = strings.TrimLeft(alias, "@")
	if alias == "" {
		return ""
	}
	return "@" + alias
}

// BroadcastResult reports the outcome of a Broadcast call. Validation
// failures set OK false with an agent-safe Reason; they are not errors.
type BroadcastResult struct {
	OK     bool
	Reason string
	Entry  *Broadcast
}

// AckResult reports the outcome of an Acknowledge call.
type AckResult struct {
	OK     bool
	Reason string
}

// VoteResult reports the outcome of a VoteXP call. VotesRemaining is the
// voter's remaining session allowance after the call.
type VoteResult struct {
	OK             bool
	Reason         string
	Vote           *Vote
	VotesRemaining int
}
