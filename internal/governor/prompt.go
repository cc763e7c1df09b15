package governor

import (
	"fmt"
	"strings"

	"github.com/concordhq/concord/internal/hierarchy"
	"github.com/concordhq/concord/internal/workspace"
)

// FormatForPrompt renders one agent's governance standing as a markdown
// block for prompt injection: its layer, the suppression relations that
// apply to it, whether it is currently suppressed, and the pending
// arbitrations it is senior enough to resolve. Returns the block even when
// nothing is pending so agents always see their standing.
func (g *Governor) FormatForPrompt(alias string, level int) string {
	alias = workspace.NormalizeAlias(alias)
	layer := g.policy.Bounds.LayerFor(level)

	var b strings.Builder
	b.WriteString("## Governance standing\n\n")
	fmt.Fprintf(&b, "You are %s, level %d (%s layer).\n", alias, level, layer)

	if layer == hierarchy.LayerSurvival {
		b.WriteString("You may not suppress anyone; any higher layer may suppress you.\n")
	} else {
		fmt.Fprintf(&b, "You may suppress agents below the %s layer; agents above it may suppress you.\n", layer)
	}

	if info, ok := g.ctrl.InfoFor(alias); ok {
		fmt.Fprintf(&b, "\n**You are suppressed** by %s for %d more turn(s): %s\n",
			info.SuppressorID, info.TurnsRemaining, info.Reason)
	}

	if active := g.ctrl.Active(); len(active) > 0 {
		b.WriteString("\nActive suppressions:\n")
		for _, s := range active {
			fmt.Fprintf(&b, "- %s suppressed by %s (%d turn(s) left)\n",
				s.TargetID, s.SuppressorID, s.TurnsRemaining)
		}
	}

	var lines []string
	for _, c := range g.protocol.GetPending(level) {
		if c.Involves(alias) {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s over %s (required level %d, deadline turn %d)",
			c.ID, strings.Join(c.ConflictingBroadcastIDs, ", "), c.RequiredLevel, c.DeadlineTurn))
	}
	if len(lines) > 0 {
		b.WriteString("\nArbitrations you can resolve:\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
