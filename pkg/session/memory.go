package session

import (
	"context"
	"sync"
	"time"

	"crosslake-dev/strait/pkg/gateway/types"
)

// MemoryStore is an in-memory Store used in tests and single-process
// development setups. It applies the same semantics as the SQLite store,
// including the unguarded create and last-writer-wins history replacement.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create stores a new session record.
func (m *MemoryStore) Create(_ context.Context, sessionID string, history []types.ChatMessage, ownerFingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	m.records[sessionID] = &Record{
		SessionID:        sessionID,
		History:          cloneHistory(history),
		OwnerFingerprint: ownerFingerprint,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return nil
}

// Load returns a copy of the stored record or ErrNotFound.
func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *record
	copied.History = cloneHistory(record.History)
	return &copied, nil
}

// ReplaceHistory overwrites the stored history.
func (m *MemoryStore) ReplaceHistory(_ context.Context, sessionID string, history []types.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[sessionID]
	if !ok {
		return ErrNotFound
	}
	record.History = cloneHistory(history)
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByOwner returns session ids owned by the fingerprint, oldest first.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerFingerprint string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Record
	for _, record := range m.records {
		if record.OwnerFingerprint == ownerFingerprint {
			matched = append(matched, record)
		}
	}

	// Insertion-order stability via created-at sort.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].CreatedAt.Before(matched[j-1].CreatedAt); j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}

	ids := make([]string, len(matched))
	for i, record := range matched {
		ids[i] = record.SessionID
	}
	return ids, nil
}

// PruneOlderThan deletes sessions last updated before cutoff.
func (m *MemoryStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, record := range m.records {
		if record.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

func cloneHistory(history []types.ChatMessage) []types.ChatMessage {
	if history == nil {
		return nil
	}
	copied := make([]types.ChatMessage, len(history))
	copy(copied, history)
	return copied
}
