package hierarchy

import "fmt"

// Tier is a privilege band. Tiers share the layer boundaries above Survival:
// Worker 1-9, TeamLeader 10-19, Deputy 20-39, Supervisor 40+.
type Tier string

const (
	TierWorker     Tier = "worker"
	TierTeamLeader Tier = "team_leader"
	TierDeputy     Tier = "deputy"
	TierSupervisor Tier = "supervisor"
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Command is a bracketed command prefix an agent may emit, e.g. "XP_VOTE".
// Planned commands are declared in the privilege table for documentation but
// always denied at validation time.
type Command struct {
	Prefix      string
	Description string
	Planned     bool
}

// Privileges describes what a tier is responsible for, empowered to do,
// forbidden from doing, and which command prefixes it may emit. Commands
// include everything inherited from lower tiers.
type Privileges struct {
	Tier             Tier
	Responsibilities []string
	Authorities      []string
	Restrictions     []string
	Commands         []Command
}

// tierTable lists per-tier privileges, lowest tier first. Command slices are
// the tier's own additions; inheritance is applied by PrivilegesFor.
var tierTable = []struct {
	tier             Tier
	responsibilities []string
	authorities      []string
	restrictions     []string
	commands         []Command
}{
	{
		tier:             TierWorker,
		responsibilities: []string{"execute assigned tasks", "report findings honestly"},
		authorities:      []string{"broadcast findings", "vote on peer contributions"},
		restrictions:     []string{"no directives", "no suppression", "no arbitration"},
		commands: []Command{
			{Prefix: "BROADCAST", Description: "publish a categorized message"},
			{Prefix: "XP_VOTE", Description: "vote XP for a peer"},
			{Prefix: "CONFLICT", Description: "flag contradictory broadcasts"},
		},
	},
	{
		tier:             TierTeamLeader,
		responsibilities: []string{"coordinate workers", "triage conflicts"},
		authorities:      []string{"issue directives", "suppress worker-layer agents"},
		restrictions:     []string{"no arbitration of strategic disputes"},
		commands: []Command{
			{Prefix: "SUPPRESS", Description: "silence a lower-layer agent"},
			{Prefix: "RELEASE", Description: "lift a suppression"},
		},
	},
	{
		tier:             TierDeputy,
		responsibilities: []string{"arbitrate escalated conflicts", "own cross-team outcomes"},
		authorities:      []string{"arbitrate conflicts", "suppress tactical-layer agents"},
		restrictions:     []string{"no session-wide policy changes"},
		commands: []Command{
			{Prefix: "ARBITRATE", Description: "submit an arbitration resolution"},
		},
	},
	{
		tier:             TierSupervisor,
		responsibilities: []string{"final authority for the session"},
		authorities:      []string{"suppress any lower layer", "resolve any arbitration"},
		restrictions:     []string{},
		commands: []Command{
			{Prefix: "POLICY", Description: "amend session policy", Planned: true},
		},
	},
}

// TierFor maps a level to its privilege tier under these bounds. Survival
// levels (below the Worker bound) fall back to TierWorker with no commands;
// they are handled by PrivilegesFor.
func (b LayerBounds) TierFor(level int) Tier {
	switch b.LayerFor(level) {
	case LayerExecutive:
		return TierSupervisor
	case LayerStrategic:
		return TierDeputy
	case LayerTactical:
		return TierTeamLeader
	default:
		return TierWorker
	}
}

// PrivilegesFor returns the full privilege set for a level, with every
// lower tier's commands inherited. Survival levels carry no commands at all.
func (b LayerBounds) PrivilegesFor(level int) Privileges {
	tier := b.TierFor(level)

	p := Privileges{Tier: tier}
	for _, row := range tierTable {
		p.Responsibilities = row.responsibilities
		p.Authorities = row.authorities
		p.Restrictions = row.restrictions
		p.Commands = append(p.Commands, row.commands...)
		if row.tier == tier {
			break
		}
	}
	if b.LayerFor(level) == LayerSurvival {
		p.Commands = nil
	}
	return p
}

// ValidateCommand reports whether an agent at the given level may emit a
// command with the given prefix. Planned commands are denied regardless of
// level. The reason string is safe to show back to the agent.
func (b LayerBounds) ValidateCommand(level int, prefix string) (bool, string) {
	p := b.PrivilegesFor(level)
	for _, cmd := range p.Commands {
		if cmd.Prefix != prefix {
			continue
		}
		if cmd.Planned {
			return false, fmt.Sprintf("command %s is planned but not yet available", prefix)
		}
		return true, ""
	}
	return false, fmt.Sprintf("command %s is not available to tier %s", prefix, p.Tier)
}
