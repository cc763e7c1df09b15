package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/concordhq/concord/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Session governance for multi-agent workspaces",
	Long: `Concord governs a shared multi-agent session: a broadcast workspace
with contradiction detection, layer-based suppression, XP votes, and an
arbitration protocol that escalates unresolved conflicts up the hierarchy.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/concord/config.yaml)")
	rootCmd.PersistentFlags().StringP("session", "s", ".concord", "session directory")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CONCORD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CONCORD_ARBITRATION_LEVEL_BUMP for arbitration.level_bump
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// sessionDir returns the configured session directory.
func sessionDir() string {
	return viper.GetString("session")
}
