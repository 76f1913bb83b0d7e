package storage

import (
	"context"

	"solana-copy-watch/internal/domain"
)

// StateStore persists the full ledger snapshot.
//
// Save replaces the previously stored snapshot; Load returns
// ErrNotFound when no snapshot has ever been saved. Implementations
// must tolerate frequent small saves (the ledger saves after every
// mutation).
type StateStore interface {
	// Load reads the persisted state.
	Load(ctx context.Context) (*domain.State, error)

	// Save writes the full state, replacing any previous snapshot.
	Save(ctx context.Context, state *domain.State) error
}

// EventArchive is an append-only sink for classified events, used for
// offline analysis. Writes are best-effort: the ingestion path logs
// and continues on archive failure.
type EventArchive interface {
	// Append records one classified event.
	Append(ctx context.Context, event *domain.ParsedEvent) error
}
