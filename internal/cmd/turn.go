package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/arbitration"
	"github.com/concordhq/concord/internal/config"
	"github.com/concordhq/concord/internal/governor"
	"github.com/concordhq/concord/internal/subsumption"
	"github.com/concordhq/concord/internal/workspace"
)

var turnCmd = &cobra.Command{
	Use:   "turn [@alias:level ...]",
	Short: "Run one governance sweep over the session",
	Long: `Run one turn: scan the recent broadcast window for contradictions,
open arbitration cases for new ones, and print the execution order for the
given agents. Suppression and arbitration state live with the governing
process; this command's sweep covers the persisted workspace.`,
	RunE: runTurn,
}

func init() {
	rootCmd.AddCommand(turnCmd)
}

func runTurn(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	agents, err := parseAgents(args)
	if err != nil {
		return err
	}

	policy := cfg.Policy()
	opts := []governor.Option{
		governor.WithConflictWindow(cfg.Workspace.ConflictWindow),
		governor.WithWorkspaceOptions(
			workspace.WithCapacity(cfg.Workspace.Capacity),
			workspace.WithLexicon(cfg.Lexicon())),
		governor.WithProtocolOptions(
			arbitration.WithLevelBump(cfg.Arbitration.LevelBump),
			arbitration.WithDeadlineWindow(cfg.Arbitration.DeadlineWindow),
			arbitration.WithAutoEscalate(cfg.Arbitration.AutoEscalate)),
	}
	if cfg.Archive.Enabled {
		path := cfg.Archive.Path
		if path == "" {
			path = filepath.Join(sessionDir(), "archive.db")
		}
		opts = append(opts, governor.WithArchive(path))
	}

	g, err := governor.New(governor.Config{
		SessionDir: sessionDir(),
		Policy:     &policy,
	}, opts...)
	if err != nil {
		return err
	}
	if err := g.Start(); err != nil {
		return err
	}
	defer g.Stop()

	report := g.RunTurn(agents)

	if len(report.Order) > 0 {
		order := make([]string, len(report.Order))
		for i, a := range report.Order {
			order[i] = a.ID
		}
		fmt.Printf("Execution order: %s\n", strings.Join(order, ", "))
	}
	fmt.Printf("Conflicts found: %d\n", len(report.NewConflicts))
	for _, c := range report.NewConflicts {
		fmt.Printf("  %v disagree on %s\n", c.Senders, c.Topic)
	}
	for _, id := range report.OpenedCases {
		fmt.Printf("Opened arbitration %s\n", id)
	}
	return nil
}

// parseAgents converts "@alias:level" arguments to agents.
func parseAgents(args []string) ([]subsumption.Agent, error) {
	agents := make([]subsumption.Agent, 0, len(args))
	for _, arg := range args {
		alias, levelText, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("agent %q: want @alias:level", arg)
		}
		var level int
		if _, err := fmt.Sscanf(levelText, "%d", &level); err != nil {
			return nil, fmt.Errorf("agent %q: bad level: %w", arg, err)
		}
		agents = append(agents, subsumption.Agent{ID: workspace.NormalizeAlias(alias), Level: level})
	}
	return agents, nil
}
