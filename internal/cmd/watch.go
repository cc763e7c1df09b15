package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the session broadcast feed live",
	Long: `Open a live view of the workspace document. The feed refreshes
whenever another process rewrites the document.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := sessionDir()
	if _, err := os.Stat(filepath.Join(dir, "workspace.json")); err != nil {
		return fmt.Errorf("no session at %s; run `concord init` first", dir)
	}

	program := tea.NewProgram(tui.NewModel(dir), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
