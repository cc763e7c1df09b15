package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/config"
	"github.com/concordhq/concord/internal/workspace"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	categoryStyle = lipgloss.NewStyle().Bold(true)
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session's governance state",
	Long:  `Display the workspace document: recent broadcasts, pending XP votes, and counters.`,
	RunE:  runStatus,
}

var statusLimit int

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "how many recent broadcasts to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ws, err := workspace.New(sessionDir(), cfg.Policy(),
		workspace.WithCapacity(cfg.Workspace.Capacity),
		workspace.WithLexicon(cfg.Lexicon()))
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	doc := ws.Snapshot()
	fmt.Println(titleStyle.Render("Session " + sessionDir()))
	fmt.Printf("%s %s\n", labelStyle.Render("Created:"), doc.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("%s %d broadcast(s) lifetime, %d in buffer\n",
		labelStyle.Render("Activity:"), doc.Metadata.TotalBroadcasts, len(doc.Broadcasts))

	broadcasts, err := ws.GetBroadcasts(workspace.Filter{Limit: statusLimit})
	if err != nil {
		return err
	}
	if len(broadcasts) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Recent broadcasts"))
		for _, b := range broadcasts {
			style := categoryStyle
			if b.Category == workspace.CategoryConflict || b.Category == workspace.CategoryArbitration {
				style = alertStyle
			}
			fmt.Printf("[%s] %s %s (L%d): %s\n",
				b.Timestamp.Format("15:04:05"), style.Render(string(b.Category)),
				b.Sender, b.SenderLevel, b.Message)
		}
	}

	if conflicts := ws.DetectConflicts(cfg.Workspace.ConflictWindow); len(conflicts) > 0 {
		fmt.Println()
		fmt.Println(alertStyle.Render(fmt.Sprintf("%d unresolved contradiction(s)", len(conflicts))))
		for _, c := range conflicts {
			fmt.Printf("  %v disagree on %s\n", c.Senders, c.Topic)
		}
	}

	if votes := ws.GetPendingVotes(); len(votes) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Pending XP votes"))
		for _, v := range votes {
			fmt.Printf("  %s -> %s: %+d (%s)\n", v.Voter, v.Target, v.Delta, v.Reason)
		}
	}
	return nil
}
