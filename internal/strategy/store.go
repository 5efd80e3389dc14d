// Package strategy is the per-user strategy store (C5): an in-memory
// mapping from user id to a pair of ordered tier tables {S1, S2}.
// Persistence to the external database is the orchestrator's job; this
// store is authoritative for the runtime.
package strategy

import (
	"fmt"
	"sync"

	"github.com/arthasyou/quantification/pkg/types"
)

// Store holds one StrategyConfig per user.
type Store struct {
	mu   sync.RWMutex
	byID map[string]types.StrategyConfig
}

// New returns an empty store.
func New() *Store {
	return &Store{byID: make(map[string]types.StrategyConfig)}
}

// Insert stores a user's strategy config as given, replacing any existing
// one. A zero-value cfg is stored as is; no default table is substituted.
func (s *Store) Insert(userID string, cfg types.StrategyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[userID] = cfg
}

// Update replaces a user's strategy config wholesale.
func (s *Store) Update(userID string, cfg types.StrategyConfig) {
	s.Insert(userID, cfg)
}

// Delete removes a user's strategy config.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, userID)
}

// Get returns a user's full strategy config.
func (s *Store) Get(userID string) (types.StrategyConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.byID[userID]
	return cfg, ok
}

// GetSpec returns a clone of the chosen tier table (1 -> S1, 2 -> S2) for
// the given user. Fails if the user has no stored config; callers must
// not substitute a default table for one the user never configured.
func (s *Store) GetSpec(userID string, specID int) ([]types.Tier, error) {
	s.mu.RLock()
	cfg, ok := s.byID[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("strategy: no config for user %s", userID)
	}

	switch specID {
	case 1:
		return types.CloneTiers(cfg.S1), nil
	case 2:
		return types.CloneTiers(cfg.S2), nil
	default:
		return nil, fmt.Errorf("strategy: unknown strategy_id %d", specID)
	}
}
