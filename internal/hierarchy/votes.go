package hierarchy

// VoteBounds caps a single XP vote for one tier. MaxUp and MaxDown are both
// positive magnitudes; a delta d is valid when -MaxDown <= d <= MaxUp.
type VoteBounds struct {
	MaxUp   int `mapstructure:"max_up"`
	MaxDown int `mapstructure:"max_down"`
}

// Allows reports whether a delta fits within the bounds. Zero deltas are
// never valid.
func (v VoteBounds) Allows(delta int) bool {
	if delta == 0 {
		return false
	}
	if delta > 0 {
		return delta <= v.MaxUp
	}
	return -delta <= v.MaxDown
}

// VoteTable maps each privilege tier to its vote bounds.
type VoteTable map[Tier]VoteBounds

// Policy bundles every numeric rule the governance components need: the
// layer/tier boundaries, the per-tier vote bounds, and the per-session vote
// cap. Construct once (usually from config) and treat as immutable.
type Policy struct {
	Bounds             LayerBounds
	Votes              VoteTable
	MaxVotesPerSession int
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() Policy {
	return Policy{
		Bounds: DefaultLayerBounds(),
		Votes: VoteTable{
			TierWorker:     {MaxUp: 10, MaxDown: 5},
			TierTeamLeader: {MaxUp: 20, MaxDown: 10},
			TierDeputy:     {MaxUp: 35, MaxDown: 20},
			TierSupervisor: {MaxUp: 50, MaxDown: 35},
		},
		MaxVotesPerSession: 3,
	}
}

// VoteBoundsFor returns the vote bounds for an agent level.
func (p Policy) VoteBoundsFor(level int) VoteBounds {
	return p.Votes[p.Bounds.TierFor(level)]
}
