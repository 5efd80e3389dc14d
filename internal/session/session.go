// Package session holds the two in-memory per-user session stores (C7):
// venue credentials and a lightweight profile (agent id, balance).
package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/arthasyou/quantification/pkg/types"
)

// CredentialStore maps user id to venue API credentials. Inserted at
// login, removed at logout. No persistence: handlers re-fetch from the
// external DB on login.
type CredentialStore struct {
	mu   sync.RWMutex
	byID map[string]types.Credentials
}

// NewCredentialStore returns an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byID: make(map[string]types.Credentials)}
}

func (c *CredentialStore) Insert(creds types.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[creds.UserID] = creds
}

func (c *CredentialStore) Delete(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, userID)
}

func (c *CredentialStore) Get(userID string) (types.Credentials, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	creds, ok := c.byID[userID]
	return creds, ok
}

// ProfileStore maps user id to a profile record.
//
// AddBalance/SubBalance intentionally preserve a latent bug carried over
// from the system this was modeled on: they read the stored profile,
// compute a new balance on a local copy, and return it — but never write
// the mutated copy back into the map. This is flagged, not fixed, per an
// open design question about whether callers elsewhere rely on this
// behavior. Do not "fix" this without confirming with the store's owner.
type ProfileStore struct {
	mu   sync.RWMutex
	byID map[string]types.Profile
}

// NewProfileStore returns an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{byID: make(map[string]types.Profile)}
}

func (p *ProfileStore) Insert(profile types.Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[profile.UserID] = profile
}

func (p *ProfileStore) Delete(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, userID)
}

func (p *ProfileStore) Get(userID string) (types.Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.byID[userID]
	return profile, ok
}

// AddBalance returns profile.Balance + amount for userID, if present.
// See the non-atomic-update warning on ProfileStore: the result is NOT
// written back into the store.
func (p *ProfileStore) AddBalance(userID string, amount decimal.Decimal) (decimal.Decimal, bool) {
	p.mu.RLock()
	profile, ok := p.byID[userID]
	p.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	profile.Balance = profile.Balance.Add(amount)
	return profile.Balance, true
}

// SubBalance returns profile.Balance - amount for userID, if present.
// See the non-atomic-update warning on ProfileStore: the result is NOT
// written back into the store.
func (p *ProfileStore) SubBalance(userID string, amount decimal.Decimal) (decimal.Decimal, bool) {
	p.mu.RLock()
	profile, ok := p.byID[userID]
	p.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	profile.Balance = profile.Balance.Sub(amount)
	return profile.Balance, true
}

// GetAgentID returns the agent id attributed to userID's fees.
func (p *ProfileStore) GetAgentID(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.byID[userID]
	if !ok {
		return "", false
	}
	return profile.AgentID, true
}
