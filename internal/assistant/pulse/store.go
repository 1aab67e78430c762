// Package pulse keeps per-user interaction telemetry: a counter, the last
// intent and an append-only intent log.
package pulse

import (
	"context"
	"sync"

	"realestate-assistant/internal/models"
)

// Store is the persistence port of the tracker. Get returns (nil, nil) for
// an unknown user.
type Store interface {
	Get(ctx context.Context, userID string) (*models.UserPulse, error)
	Put(ctx context.Context, pulse *models.UserPulse) error
	AppendLog(ctx context.Context, entry models.IntentLogEntry) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	pulses map[string]models.UserPulse
	log    []models.IntentLogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pulses: make(map[string]models.UserPulse)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*models.UserPulse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pulses[userID]
	if !ok {
		return nil, nil
	}
	p.Metadata = copyMetadata(p.Metadata)
	return &p, nil
}

func (s *MemoryStore) Put(_ context.Context, pulse *models.UserPulse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *pulse
	p.Metadata = copyMetadata(p.Metadata)
	s.pulses[p.UserID] = p
	return nil
}

func (s *MemoryStore) AppendLog(_ context.Context, entry models.IntentLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, entry)
	return nil
}

// Log returns a copy of the intent log in append order.
func (s *MemoryStore) Log() []models.IntentLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.IntentLogEntry, len(s.log))
	copy(out, s.log)
	return out
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
