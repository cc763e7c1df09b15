package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "votes.max_per_session")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLayers()...)
	errors = append(errors, c.validateVotes()...)
	errors = append(errors, c.validateSuppression()...)
	errors = append(errors, c.validateArbitration()...)
	errors = append(errors, c.validateWorkspace()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateLayers() []ValidationError {
	var errors []ValidationError

	if c.Layers.Worker < 1 {
		errors = append(errors, ValidationError{
			Field:   "layers.worker",
			Value:   c.Layers.Worker,
			Message: "must be at least 1; levels below it map to the survival band",
		})
	}
	if c.Layers.Tactical <= c.Layers.Worker {
		errors = append(errors, ValidationError{
			Field:   "layers.tactical",
			Value:   c.Layers.Tactical,
			Message: "must be above layers.worker",
		})
	}
	if c.Layers.Strategic <= c.Layers.Tactical {
		errors = append(errors, ValidationError{
			Field:   "layers.strategic",
			Value:   c.Layers.Strategic,
			Message: "must be above layers.tactical",
		})
	}
	if c.Layers.Executive <= c.Layers.Strategic {
		errors = append(errors, ValidationError{
			Field:   "layers.executive",
			Value:   c.Layers.Executive,
			Message: "must be above layers.strategic",
		})
	}

	return errors
}

func (c *Config) validateVotes() []ValidationError {
	var errors []ValidationError

	tiers := []struct {
		name   string
		bounds VoteBoundsConfig
	}{
		{"votes.worker", c.Votes.Worker},
		{"votes.team_leader", c.Votes.TeamLeader},
		{"votes.deputy", c.Votes.Deputy},
		{"votes.supervisor", c.Votes.Supervisor},
	}
	for _, tier := range tiers {
		if tier.bounds.MaxUp <= 0 {
			errors = append(errors, ValidationError{
				Field:   tier.name + ".max_up",
				Value:   tier.bounds.MaxUp,
				Message: "must be positive",
			})
		}
		if tier.bounds.MaxDown <= 0 {
			errors = append(errors, ValidationError{
				Field:   tier.name + ".max_down",
				Value:   tier.bounds.MaxDown,
				Message: "must be positive; it is a magnitude, not a signed delta",
			})
		}
	}

	if c.Votes.MaxPerSession < 1 {
		errors = append(errors, ValidationError{
			Field:   "votes.max_per_session",
			Value:   c.Votes.MaxPerSession,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateSuppression() []ValidationError {
	var errors []ValidationError

	if c.Suppression.DefaultTurns < 1 {
		errors = append(errors, ValidationError{
			Field:   "suppression.default_turns",
			Value:   c.Suppression.DefaultTurns,
			Message: "must be at least 1",
		})
	}
	if c.Suppression.MaxTurns < c.Suppression.DefaultTurns {
		errors = append(errors, ValidationError{
			Field:   "suppression.max_turns",
			Value:   c.Suppression.MaxTurns,
			Message: "must be at least suppression.default_turns",
		})
	}

	return errors
}

func (c *Config) validateArbitration() []ValidationError {
	var errors []ValidationError

	if c.Arbitration.LevelBump < 1 {
		errors = append(errors, ValidationError{
			Field:   "arbitration.level_bump",
			Value:   c.Arbitration.LevelBump,
			Message: "must be at least 1",
		})
	}
	if c.Arbitration.DeadlineWindow < 1 {
		errors = append(errors, ValidationError{
			Field:   "arbitration.deadline_window",
			Value:   c.Arbitration.DeadlineWindow,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateWorkspace() []ValidationError {
	var errors []ValidationError

	if c.Workspace.Capacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "workspace.capacity",
			Value:   c.Workspace.Capacity,
			Message: "must be at least 1",
		})
	}
	if c.Workspace.ConflictWindow < 2 {
		errors = append(errors, ValidationError{
			Field:   "workspace.conflict_window",
			Value:   c.Workspace.ConflictWindow,
			Message: "must be at least 2; a conflict needs two broadcasts",
		})
	}
	if c.Workspace.MinDirectiveLevel < 0 {
		errors = append(errors, ValidationError{
			Field:   "workspace.min_directive_level",
			Value:   c.Workspace.MinDirectiveLevel,
			Message: "must not be negative",
		})
	}
	for _, entry := range c.Workspace.Lexicon {
		term, antonym, ok := strings.Cut(entry, "/")
		if !ok || term == "" || antonym == "" {
			errors = append(errors, ValidationError{
				Field:   "workspace.lexicon",
				Value:   entry,
				Message: "entries must be \"term/antonym\"",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
