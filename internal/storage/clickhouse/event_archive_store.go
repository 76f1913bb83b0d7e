package clickhouse

import (
	"context"
	"fmt"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/storage"
)

// EventArchiveStore implements storage.EventArchive using ClickHouse.
// Events are kept append-only for offline analysis of watched wallet
// activity; the hot path never reads them back.
type EventArchiveStore struct {
	conn *Conn
}

// NewEventArchiveStore creates a new EventArchiveStore.
func NewEventArchiveStore(conn *Conn) *EventArchiveStore {
	return &EventArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchiveStore)(nil)

// Append records one classified event.
func (s *EventArchiveStore) Append(ctx context.Context, event *domain.ParsedEvent) error {
	if event == nil {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO wallet_events (
			signature, event_type, wallet_source, token_mint, token_symbol,
			amount_sol, destination_wallet, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		event.Signature, string(event.Type), event.WalletSource,
		event.TokenMint, event.TokenSymbol,
		event.AmountSol, event.DestinationWallet, uint64(event.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}
