// Package device provides the stable per-installation device token attached
// to attendance submissions.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store persists a single device token. CreateIfAbsent must be idempotent:
// when a token already exists it returns that token and discards the
// candidate.
type Store interface {
	Load(ctx context.Context) (string, error)
	CreateIfAbsent(ctx context.Context, candidate string) (string, error)
}

// GetOrCreate returns the persisted device token, generating and storing a
// random UUID on first use. Concurrent first calls converge on one token.
func GetOrCreate(ctx context.Context, store Store) (string, error) {
	token, err := store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading device id: %w", err)
	}
	if token != "" {
		return token, nil
	}

	token, err = store.CreateIfAbsent(ctx, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("creating device id: %w", err)
	}
	return token, nil
}

// MemoryStore keeps the token in memory. Used when no durable store is
// configured; the token then lives only as long as the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, candidate string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		s.token = candidate
	}
	return s.token, nil
}
