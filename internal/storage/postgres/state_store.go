package postgres

import (
	"context"
	"fmt"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/storage"
)

// StateStore implements storage.StateStore using PostgreSQL.
//
// The ledger state is stored normalized across wallets and trades
// tables; Save replaces both inside one transaction so readers never
// observe a half-written snapshot. A single-row ledger_meta table
// distinguishes "never saved" from "saved empty".
type StateStore struct {
	pool *Pool
}

// NewStateStore creates a new StateStore.
func NewStateStore(pool *Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StateStore = (*StateStore)(nil)

// Load reads the persisted state. Returns ErrNotFound if no snapshot
// was ever saved.
func (s *StateStore) Load(ctx context.Context) (*domain.State, error) {
	var savedAt int64
	err := s.pool.QueryRow(ctx, `SELECT saved_at FROM ledger_meta WHERE id = 1`).Scan(&savedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query ledger meta: %w", err)
	}

	state := &domain.State{}

	rows, err := s.pool.Query(ctx, `
		SELECT address, kind, added_at, active
		FROM wallets
		ORDER BY added_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w domain.Wallet
		var kind string
		if err := rows.Scan(&w.Address, &kind, &w.AddedAt, &w.Active); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		w.Kind = domain.WalletKind(kind)
		state.Wallets = append(state.Wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	rows.Close()

	rows, err = s.pool.Query(ctx, `
		SELECT id, wallet_source, token_mint, token_symbol, type, status,
		       amount_sol, tp_percent, sl_percent, mode,
		       buy_price, sell_price, pnl, pnl_percent, ts
		FROM trades
		ORDER BY ts ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Trade
		var typ, status, mode string
		err := rows.Scan(
			&t.ID, &t.WalletSource, &t.TokenMint, &t.TokenSymbol, &typ, &status,
			&t.AmountSol, &t.TPPercent, &t.SLPercent, &mode,
			&t.BuyPrice, &t.SellPrice, &t.Pnl, &t.PnlPercent, &t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Type = domain.TradeType(typ)
		t.Status = domain.TradeStatus(status)
		t.Mode = domain.TradeMode(mode)
		state.Trades = append(state.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return state, nil
}

// Save replaces the stored snapshot atomically.
func (s *StateStore) Save(ctx context.Context, state *domain.State) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("clear trades: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM wallets`); err != nil {
		return fmt.Errorf("clear wallets: %w", err)
	}

	for _, w := range state.Wallets {
		_, err := tx.Exec(ctx, `
			INSERT INTO wallets (address, kind, added_at, active)
			VALUES ($1, $2, $3, $4)
		`, w.Address, string(w.Kind), w.AddedAt, w.Active)
		if err != nil {
			return fmt.Errorf("insert wallet %s: %w", w.Address, err)
		}
	}

	for _, t := range state.Trades {
		_, err := tx.Exec(ctx, `
			INSERT INTO trades (
				id, wallet_source, token_mint, token_symbol, type, status,
				amount_sol, tp_percent, sl_percent, mode,
				buy_price, sell_price, pnl, pnl_percent, ts
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10,
				$11, $12, $13, $14, $15
			)
		`,
			t.ID, t.WalletSource, t.TokenMint, t.TokenSymbol, string(t.Type), string(t.Status),
			t.AmountSol, t.TPPercent, t.SLPercent, string(t.Mode),
			t.BuyPrice, t.SellPrice, t.Pnl, t.PnlPercent, t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_meta (id, saved_at)
		VALUES (1, (extract(epoch from now()) * 1000)::bigint)
		ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at
	`)
	if err != nil {
		return fmt.Errorf("update ledger meta: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
