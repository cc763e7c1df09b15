package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/config"
	"github.com/concordhq/concord/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new governed session",
	Long: `Create the session directory with an empty workspace document.
Running init on an existing session is an error; the workspace document
holds session history that init would discard.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := sessionDir()
	if _, err := os.Stat(filepath.Join(dir, "workspace.json")); err == nil {
		return fmt.Errorf("session already exists at %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	ws, err := workspace.New(dir, cfg.Policy(),
		workspace.WithCapacity(cfg.Workspace.Capacity),
		workspace.WithLexicon(cfg.Lexicon()))
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	// Seed the document on disk so other processes can watch it.
	r := ws.Broadcast("@system", cfg.Layers.Executive, workspace.CategoryStatus,
		"session initialized", workspace.BroadcastOptions{})
	if !r.OK {
		return fmt.Errorf("failed to seed workspace: %s", r.Reason)
	}

	fmt.Printf("Initialized session in %s\n", dir)
	return nil
}
