package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/concordhq/concord/internal/hierarchy"
	"github.com/concordhq/concord/internal/workspace"
)

// Config represents the complete Concord configuration
type Config struct {
	Layers      LayersConfig      `mapstructure:"layers"`
	Votes       VotesConfig       `mapstructure:"votes"`
	Suppression SuppressionConfig `mapstructure:"suppression"`
	Arbitration ArbitrationConfig `mapstructure:"arbitration"`
	Workspace   WorkspaceConfig   `mapstructure:"workspace"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
}

// LayersConfig holds the inclusive lower level of each authority band.
// Levels below the worker bound map to the survival band.
type LayersConfig struct {
	Worker    int `mapstructure:"worker"`
	Tactical  int `mapstructure:"tactical"`
	Strategic int `mapstructure:"strategic"`
	Executive int `mapstructure:"executive"`
}

// VoteBoundsConfig is one tier's XP vote range.
type VoteBoundsConfig struct {
	// MaxUp is the largest positive delta the tier may cast
	MaxUp int `mapstructure:"max_up"`
	// MaxDown is the largest magnitude negative delta the tier may cast
	MaxDown int `mapstructure:"max_down"`
}

// VotesConfig controls the XP vote ledger
type VotesConfig struct {
	Worker     VoteBoundsConfig `mapstructure:"worker"`
	TeamLeader VoteBoundsConfig `mapstructure:"team_leader"`
	Deputy     VoteBoundsConfig `mapstructure:"deputy"`
	Supervisor VoteBoundsConfig `mapstructure:"supervisor"`
	// MaxPerSession is each voter's session allowance (default: 3)
	MaxPerSession int `mapstructure:"max_per_session"`
}

// SuppressionConfig controls the subsumption controller
type SuppressionConfig struct {
	// DefaultTurns is the suppression length when a request names none (default: 3)
	DefaultTurns int `mapstructure:"default_turns"`
	// MaxTurns caps requested suppression lengths (default: 5)
	MaxTurns int `mapstructure:"max_turns"`
}

// ArbitrationConfig controls the arbitration protocol
type ArbitrationConfig struct {
	// LevelBump is added to the highest conflicting level, and again per escalation (default: 10)
	LevelBump int `mapstructure:"level_bump"`
	// DeadlineWindow is how many turns a case may stay pending (default: 5)
	DeadlineWindow int `mapstructure:"deadline_window"`
	// AutoEscalate escalates overdue cases during the sweep (default: true)
	AutoEscalate bool `mapstructure:"auto_escalate"`
}

// WorkspaceConfig controls the shared broadcast workspace
type WorkspaceConfig struct {
	// Capacity is the broadcast ring buffer size (default: 200)
	Capacity int `mapstructure:"capacity"`
	// ConflictWindow is how many recent broadcasts each sweep scans (default: 20)
	ConflictWindow int `mapstructure:"conflict_window"`
	// MinDirectiveLevel gates DIRECTIVE broadcasts; 0 means the tactical bound
	MinDirectiveLevel int `mapstructure:"min_directive_level"`
	// Lexicon lists contradiction pairs as "term/antonym" entries.
	// Empty means the built-in lexicon.
	Lexicon []string `mapstructure:"lexicon"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// ArchiveConfig controls the sqlite archive of resolved cases
type ArchiveConfig struct {
	// Enabled turns the archive on (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the database location; empty means {sessionDir}/archive.db
	Path string `mapstructure:"path"`
}

// defaults is the baseline configuration all loading starts from
var defaults = Default()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layers: LayersConfig{Worker: 1, Tactical: 10, Strategic: 20, Executive: 40},
		Votes: VotesConfig{
			Worker:        VoteBoundsConfig{MaxUp: 10, MaxDown: 5},
			TeamLeader:    VoteBoundsConfig{MaxUp: 20, MaxDown: 10},
			Deputy:        VoteBoundsConfig{MaxUp: 35, MaxDown: 20},
			Supervisor:    VoteBoundsConfig{MaxUp: 50, MaxDown: 35},
			MaxPerSession: 3,
		},
		Suppression: SuppressionConfig{DefaultTurns: 3, MaxTurns: 5},
		Arbitration: ArbitrationConfig{LevelBump: 10, DeadlineWindow: 5, AutoEscalate: true},
		Workspace:   WorkspaceConfig{Capacity: 200, ConflictWindow: 20},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
		Archive:     ArchiveConfig{Enabled: true},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	viper.SetDefault("layers.worker", defaults.Layers.Worker)
	viper.SetDefault("layers.tactical", defaults.Layers.Tactical)
	viper.SetDefault("layers.strategic", defaults.Layers.Strategic)
	viper.SetDefault("layers.executive", defaults.Layers.Executive)

	viper.SetDefault("votes.worker.max_up", defaults.Votes.Worker.MaxUp)
	viper.SetDefault("votes.worker.max_down", defaults.Votes.Worker.MaxDown)
	viper.SetDefault("votes.team_leader.max_up", defaults.Votes.TeamLeader.MaxUp)
	viper.SetDefault("votes.team_leader.max_down", defaults.Votes.TeamLeader.MaxDown)
	viper.SetDefault("votes.deputy.max_up", defaults.Votes.Deputy.MaxUp)
	viper.SetDefault("votes.deputy.max_down", defaults.Votes.Deputy.MaxDown)
	viper.SetDefault("votes.supervisor.max_up", defaults.Votes.Supervisor.MaxUp)
	viper.SetDefault("votes.supervisor.max_down", defaults.Votes.Supervisor.MaxDown)
	viper.SetDefault("votes.max_per_session", defaults.Votes.MaxPerSession)

	viper.SetDefault("suppression.default_turns", defaults.Suppression.DefaultTurns)
	viper.SetDefault("suppression.max_turns", defaults.Suppression.MaxTurns)

	viper.SetDefault("arbitration.level_bump", defaults.Arbitration.LevelBump)
	viper.SetDefault("arbitration.deadline_window", defaults.Arbitration.DeadlineWindow)
	viper.SetDefault("arbitration.auto_escalate", defaults.Arbitration.AutoEscalate)

	viper.SetDefault("workspace.capacity", defaults.Workspace.Capacity)
	viper.SetDefault("workspace.conflict_window", defaults.Workspace.ConflictWindow)
	viper.SetDefault("workspace.min_directive_level", defaults.Workspace.MinDirectiveLevel)
	viper.SetDefault("workspace.lexicon", defaults.Workspace.Lexicon)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("archive.enabled", defaults.Archive.Enabled)
	viper.SetDefault("archive.path", defaults.Archive.Path)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Policy converts the configuration to the injected governance policy.
func (c *Config) Policy() hierarchy.Policy {
	return hierarchy.Policy{
		Bounds: hierarchy.LayerBounds{
			Worker:    c.Layers.Worker,
			Tactical:  c.Layers.Tactical,
			Strategic: c.Layers.Strategic,
			Executive: c.Layers.Executive,
		},
		Votes: hierarchy.VoteTable{
			hierarchy.TierWorker:     {MaxUp: c.Votes.Worker.MaxUp, MaxDown: c.Votes.Worker.MaxDown},
			hierarchy.TierTeamLeader: {MaxUp: c.Votes.TeamLeader.MaxUp, MaxDown: c.Votes.TeamLeader.MaxDown},
			hierarchy.TierDeputy:     {MaxUp: c.Votes.Deputy.MaxUp, MaxDown: c.Votes.Deputy.MaxDown},
			hierarchy.TierSupervisor: {MaxUp: c.Votes.Supervisor.MaxUp, MaxDown: c.Votes.Supervisor.MaxDown},
		},
		MaxVotesPerSession: c.Votes.MaxPerSession,
	}
}

// Lexicon converts the configured "term/antonym" entries to term pairs.
// Empty configuration means the built-in lexicon.
func (c *Config) Lexicon() []workspace.TermPair {
	if len(c.Workspace.Lexicon) == 0 {
		return workspace.DefaultLexicon()
	}
	pairs := make([]workspace.TermPair, 0, len(c.Workspace.Lexicon))
	for _, entry := range c.Workspace.Lexicon {
		term, antonym, ok := strings.Cut(entry, "/")
		if !ok {
			continue
		}
		pairs = append(pairs, workspace.TermPair{A: term, B: antonym})
	}
	return pairs
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "concord")
	}
	// Fall back to ~/.config/concord
	home, err := os.UserHomeDir()
	if err != nil {
		return ".concord"
	}
	return filepath.Join(home, ".config", "concord")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
