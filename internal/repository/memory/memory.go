// Package memory keeps session state in process memory. It is used when no
// Redis is configured; state is lost on restart, matching a browser reload.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/farmbud/backend/internal/domain"
)

// PrefillSlot implements domain.PrefillSlot
type PrefillSlot struct {
	mu      sync.Mutex
	pending map[string]domain.Prefill
}

// NewPrefillSlot creates an empty slot per session
func NewPrefillSlot() *PrefillSlot {
	return &PrefillSlot{pending: make(map[string]domain.Prefill)}
}

// Put replaces the session's pending prefill
func (s *PrefillSlot) Put(ctx context.Context, sessionID string, p domain.Prefill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = domain.LayerPrefills(p)
	return nil
}

// Take returns and clears the session's pending prefill
func (s *PrefillSlot) Take(ctx context.Context, sessionID string) (*domain.Prefill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[sessionID]
	if !ok {
		return nil, nil
	}
	delete(s.pending, sessionID)
	return &p, nil
}

// WizardStore implements domain.WizardStore. States are stored as JSON so
// callers never share pointers with the store.
type WizardStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewWizardStore creates an empty store
func NewWizardStore() *WizardStore {
	return &WizardStore{states: make(map[string][]byte)}
}

// Load returns domain.ErrSessionNotFound for unknown sessions
func (s *WizardStore) Load(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	s.mu.RLock()
	raw, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var state domain.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("memory: failed to decode wizard state: %w", err)
	}
	return &state, nil
}

// Save stores a snapshot of state
func (s *WizardStore) Save(ctx context.Context, state *domain.WizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("memory: failed to encode wizard state: %w", err)
	}
	s.mu.Lock()
	s.states[state.SessionID] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes the session's wizard
func (s *WizardStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.states, sessionID)
	s.mu.Unlock()
	return nil
}
