// Package memory provides in-memory storage implementations for tests
// and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/storage"
)

// StateStore is an in-memory implementation of storage.StateStore.
type StateStore struct {
	mu    sync.RWMutex
	state *domain.State
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

var _ storage.StateStore = (*StateStore)(nil)

// Load returns a copy of the stored state, or ErrNotFound before the
// first Save.
func (s *StateStore) Load(_ context.Context) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, storage.ErrNotFound
	}

	return copyState(s.state), nil
}

// Save replaces the stored state with a copy of the given snapshot.
func (s *StateStore) Save(_ context.Context, state *domain.State) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = copyState(state)
	return nil
}

func copyState(in *domain.State) *domain.State {
	out := &domain.State{
		Wallets: make([]domain.Wallet, len(in.Wallets)),
		Trades:  make([]domain.Trade, len(in.Trades)),
	}
	copy(out.Wallets, in.Wallets)
	copy(out.Trades, in.Trades)
	return out
}
