package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmbud/backend/internal/domain"
)

const (
	prefillPrefix = "farmbud:prefill:"
	wizardPrefix  = "farmbud:wizard:"
)

// NewRedisClient creates a new Redis client and checks the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	return client, nil
}

// PrefillSlot implements domain.PrefillSlot on Redis. Take uses GETDEL so
// reading and clearing the slot is one atomic step even across replicas.
type PrefillSlot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPrefillSlot creates a slot whose entries expire after ttl
func NewPrefillSlot(client *redis.Client, ttl time.Duration) *PrefillSlot {
	return &PrefillSlot{client: client, ttl: ttl}
}

// Put stores the session's pending prefill, replacing any earlier one
func (s *PrefillSlot) Put(ctx context.Context, sessionID string, p domain.Prefill) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: failed to encode prefill: %w", err)
	}
	if err := s.client.Set(ctx, prefillPrefix+sessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to store prefill: %w", err)
	}
	return nil
}

// Take returns and clears the pending prefill; nil when none is waiting
func (s *PrefillSlot) Take(ctx context.Context, sessionID string) (*domain.Prefill, error) {
	raw, err := s.client.GetDel(ctx, prefillPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to take prefill: %w", err)
	}
	var p domain.Prefill
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("redis: failed to decode prefill: %w", err)
	}
	return &p, nil
}

// WizardStore implements domain.WizardStore on Redis
type WizardStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWizardStore creates a store whose sessions expire after ttl of inactivity
func NewWizardStore(client *redis.Client, ttl time.Duration) *WizardStore {
	return &WizardStore{client: client, ttl: ttl}
}

// Load returns domain.ErrSessionNotFound for unknown or expired sessions
func (s *WizardStore) Load(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	raw, err := s.client.Get(ctx, wizardPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to load wizard: %w", err)
	}
	var state domain.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("redis: failed to decode wizard: %w", err)
	}
	return &state, nil
}

// Save stores the wizard and refreshes its TTL
func (s *WizardStore) Save(ctx context.Context, state *domain.WizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: failed to encode wizard: %w", err)
	}
	if err := s.client.Set(ctx, wizardPrefix+state.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to save wizard: %w", err)
	}
	return nil
}

// Delete removes the session's wizard
func (s *WizardStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, wizardPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete wizard: %w", err)
	}
	return nil
}
