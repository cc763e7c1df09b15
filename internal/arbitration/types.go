package arbitration

import "time"

// Status is the lifecycle state of a case.
type Status string

const (
	// StatusPending means the case awaits a qualified arbitrator.
	StatusPending Status = "pending"

	// StatusResolved is terminal; resolved cases are immutable.
	StatusResolved Status = "resolved"
)

// Party is one side of a conflict: the sender of a conflicting broadcast.
type Party struct {
	Alias string `json:"alias"`
	Level int    `json:"level"`
}

// Escalation records one raise of a case's required level.
type Escalation struct {
	Turn      int       `json:"turn"`
	FromLevel int       `json:"from_level"`
	ToLevel   int       `json:"to_level"`
	Reason    string    `json:"reason"`
	Automatic bool      `json:"automatic"`
	Time      time.Time `json:"time"`
}

// XPAward is one XP delta granted as part of a resolution, keyed by alias.
type XPAward struct {
	Alias string `json:"alias"`
	Delta int    `json:"delta"`
}

// Resolution is the terminal record of a resolved case.
type Resolution struct {
	Arbitrator         string    `json:"arbitrator"`
	ArbitratorLevel    int       `json:"arbitrator_level"`
	Text               string    `json:"text"`
	WinningBroadcastID string    `json:"winning_broadcast_id,omitempty"`
	XPAwards           []XPAward `json:"xp_awards,omitempty"`
	Turn               int       `json:"turn"`
	Time               time.Time `json:"time"`
}

// Case is one conflict awaiting (or past) arbitration.
type Case struct {
	ID                      string       `json:"id"`
	ConflictingBroadcastIDs []string     `json:"conflicting_broadcast_ids"`
	Parties                 []Party      `json:"parties"`
	CreatedBy               string       `json:"created_by"`
	CreatedTurn             int          `json:"created_turn"`
	DeadlineTurn            int          `json:"deadline_turn"`
	RequiredLevel           int          `json:"required_level"`
	Status                  Status       `json:"status"`
	EscalationCount         int          `json:"escalation_count"`
	Escalations             []Escalation `json:"escalations,omitempty"`
	Resolution              *Resolution  `json:"resolution,omitempty"`
}

// Involves reports whether the alias is a party to the conflict.
func (c *Case) Involves(alias string) bool {
	for _, p := range c.Parties {
		if p.Alias == alias {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers can never mutate protocol state.
func (c *Case) clone() *Case {
	out := *c
	out.ConflictingBroadcastIDs = append([]string(nil), c.ConflictingBroadcastIDs...)
	out.Parties = append([]Party(nil), c.Parties...)
	out.Escalations = append([]Escalation(nil), c.Escalations...)
	if c.Resolution != nil {
		res := *c.Resolution
		res.XPAwards = append([]XPAward(nil), c.Resolution.XPAwards...)
		out.Resolution = &res
	}
	return &out
}

// Candidate is an agent considered for arbitrating a case.
type Candidate struct {
	Alias string
	Level int
}
