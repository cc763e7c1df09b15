package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/config"
	"github.com/concordhq/concord/internal/workspace"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <category> <message>",
	Short: "Post a broadcast to the session workspace",
	Long: `Post a broadcast as the given sender. The category must be part of
the fixed vocabulary; DIRECTIVE requires a tactical or higher sender level.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBroadcast,
}

var (
	broadcastSender string
	broadcastLevel  int
	broadcastFile   string
	broadcastTags   []string
	broadcastAck    bool
)

func init() {
	broadcastCmd.Flags().StringVar(&broadcastSender, "as", "@operator", "sender alias")
	broadcastCmd.Flags().IntVar(&broadcastLevel, "level", 1, "sender level")
	broadcastCmd.Flags().StringVar(&broadcastFile, "file", "", "related file path")
	broadcastCmd.Flags().StringSliceVar(&broadcastTags, "tag", nil, "topic tags")
	broadcastCmd.Flags().BoolVar(&broadcastAck, "ack", false, "require acknowledgment")
	rootCmd.AddCommand(broadcastCmd)
}

func runBroadcast(cmd *cobra.Command, args []string) error {
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

	category := workspace.Category(strings.ToUpper(args[0]))
	message := strings.Join(args[1:], " ")

	r := ws.Broadcast(broadcastSender, broadcastLevel, category, message, workspace.BroadcastOptions{
		RelatedFile: broadcastFile,
		Tags:        broadcastTags,
		RequiresAck: broadcastAck,
	})
	if !r.OK {
		return fmt.Errorf("broadcast rejected: %s", r.Reason)
	}

	fmt.Printf("Posted %s\n", r.Entry.ID)
	return nil
}
