// Package cache keeps the advisory per-user identifiers sibling screens read
// without a network round trip. Nothing here is authoritative; the engine can
// always rebuild it from the marketplace.
package cache

import (
	"context"
	"sync"

	"seller-onboarding/internal/models"
)

// Entry is what the engine remembers for one user.
type Entry struct {
	BusinessID    string                   `json:"businessId,omitempty"`
	ApplicationID string                   `json:"applicationId,omitempty"`
	SellerStatus  models.ApplicationStatus `json:"sellerStatus,omitempty"`
	Skipped       models.SkipFlags         `json:"skipped"`
}

// IsZero reports whether e carries nothing.
func (e Entry) IsZero() bool {
	return e == Entry{}
}

type Cache interface {
	// Get returns the stored entry, or a zero Entry when nothing is stored.
	Get(ctx context.Context, userID string) (Entry, error)
	// Save replaces the whole entry for userID.
	Save(ctx context.Context, userID string, e Entry) error
	Clear(ctx context.Context, userID string) error
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]Entry{}}
}

func (m *Memory) Get(ctx context.Context, userID string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[userID], nil
}

func (m *Memory) Save(ctx context.Context, userID string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.IsZero() {
		delete(m.entries, userID)
		return nil
	}
	m.entries[userID] = e
	return nil
}

func (m *Memory) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}
