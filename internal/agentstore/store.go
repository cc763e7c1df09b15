// Package agentstore defines the interface to the durable per-agent store.
// The store itself (XP and level persistence, sleep/break/spawn bookkeeping)
// lives outside the governance core; the core only reads agents and awards
// XP through this interface. MemStore provides an in-memory implementation
// for tests and single-process sessions.
package agentstore

import (
	"sort"
	"sync"

	"github.com/concordhq/concord/internal/errors"
)

// Agent is the externally owned identity of a session participant.
type Agent struct {
	ID     string
	Alias  string
	Level  int
	XP     int
	Status string
}

// AwardResult reports the effect of an XP award.
type AwardResult struct {
	LeveledUp bool
	OldLevel  int
	NewLevel  int
	XP        int
	NewTitle  string
}

// Store is the consumed interface to the external agent store.
type Store interface {
	// GetAgentByAlias returns the agent registered under the alias.
	// Unknown aliases report ErrAgentNotFound.
	GetAgentByAlias(alias string) (Agent, error)

	// AwardXP applies an XP delta to an agent and reports any level change.
	AwardXP(agentID string, delta int, reason string) (AwardResult, error)
}

// xpPerLevel is the flat XP cost of one level in the in-memory store.
const xpPerLevel = 100

// MemStore is an in-memory Store for tests and single-process sessions.
// Safe for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	agents  map[string]*Agent // id -> agent
	byAlias map[string]string // alias -> id
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		agents:  make(map[string]*Agent),
		byAlias: make(map[string]string),
	}
}

// Put registers or replaces an agent.
func (s *MemStore) Put(agent Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent.ID == "" {
		agent.ID = agent.Alias
	}
	copied := agent
	s.agents[agent.ID] = &copied
	s.byAlias[agent.Alias] = agent.ID
}

// GetAgentByAlias implements Store.
func (s *MemStore) GetAgentByAlias(alias string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAlias[alias]
	if !ok {
		return Agent{}, errors.NewNotFoundError("agent", alias, errors.ErrAgentNotFound)
	}
	return *s.agents[id], nil
}

// AwardXP implements Store. Levels advance every 100 XP; XP never drops
// below zero.
func (s *MemStore) AwardXP(agentID string, delta int, reason string) (AwardResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[agentID]
	if !ok {
		return AwardResult{}, errors.NewNotFoundError("agent", agentID, errors.ErrAgentNotFound)
	}

	oldLevel := agent.Level
	agent.XP += delta
	if agent.XP < 0 {
		agent.XP = 0
	}
	agent.Level = agent.XP/xpPerLevel + 1

	return AwardResult{
		LeveledUp: agent.Level > oldLevel,
		OldLevel:  oldLevel,
		NewLevel:  agent.Level,
		XP:        agent.XP,
	}, nil
}

// Agents returns all registered agents sorted by alias.
func (s *MemStore) Agents() []Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
