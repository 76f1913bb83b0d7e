// Package ledger is the durable registry of watched wallets and trade
// records. It is the single writer of persisted state: every mutation
// is saved through the configured StateStore before the call returns.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/observability"
	"solana-copy-watch/internal/storage"
	"solana-copy-watch/internal/tradeid"
)

// TradeParams carries caller-supplied fields for a new trade. ID,
// status and timestamp are assigned by the ledger.
type TradeParams struct {
	WalletSource string
	TokenMint    string
	TokenSymbol  string
	Type         domain.TradeType
	AmountSol    float64
	TPPercent    float64
	SLPercent    float64
	Mode         domain.TradeMode
}

// TradePatch is a merge-patch for UpdateTrade. Nil fields are left
// untouched.
type TradePatch struct {
	Status     *domain.TradeStatus
	AmountSol  *float64
	BuyPrice   *float64
	SellPrice  *float64
	Pnl        *float64
	PnlPercent *float64
}

// Ledger owns the wallet and trade collections.
//
// All methods are safe for concurrent use. Reads hand out copies so
// callers can never mutate internal state.
type Ledger struct {
	store  storage.StateStore
	log    *zap.Logger
	master string

	mu        sync.Mutex
	wallets   []domain.Wallet
	walletIdx map[string]int
	trades    []domain.Trade
	tradeIdx  map[string]int
}

// New creates a ledger persisting through store. masterAddress is the
// operator's own wallet; it is forced into the watch set on load and
// can never be removed.
func New(store storage.StateStore, masterAddress string, log *zap.Logger) *Ledger {
	return &Ledger{
		store:     store,
		log:       log,
		master:    masterAddress,
		walletIdx: make(map[string]int),
		tradeIdx:  make(map[string]int),
	}
}

// LoadState reads persisted wallets and trades. Read or parse failures
// are logged, never fatal: the ledger starts from whatever loaded, and
// the Master wallet is injected (or forced back to kind Master) so the
// watch set is never empty.
func (l *Ledger) LoadState(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		l.log.Info("no persisted state, starting fresh")
		state = &domain.State{}
	case err != nil:
		l.log.Error("failed to load state, starting fresh", zap.Error(err))
		state = &domain.State{}
	}

	l.wallets = l.wallets[:0]
	l.walletIdx = make(map[string]int, len(state.Wallets))
	for _, w := range state.Wallets {
		if _, ok := l.walletIdx[w.Address]; ok {
			continue
		}
		if w.Address == l.master && w.Kind != domain.WalletKindMaster {
			l.log.Warn("master wallet kind altered in persisted state, forcing back",
				zap.String("address", w.Address), zap.String("kind", string(w.Kind)))
			w.Kind = domain.WalletKindMaster
		}
		l.walletIdx[w.Address] = len(l.wallets)
		l.wallets = append(l.wallets, w)
	}

	if _, ok := l.walletIdx[l.master]; !ok {
		l.walletIdx[l.master] = len(l.wallets)
		l.wallets = append(l.wallets, domain.Wallet{
			Address: l.master,
			Kind:    domain.WalletKindMaster,
			AddedAt: time.Now().UnixMilli(),
			Active:  true,
		})
		l.log.Info("master wallet injected into state", zap.String("address", l.master))
	}

	l.trades = l.trades[:0]
	l.tradeIdx = make(map[string]int, len(state.Trades))
	for _, t := range state.Trades {
		if _, ok := l.tradeIdx[t.ID]; ok {
			continue
		}
		l.tradeIdx[t.ID] = len(l.trades)
		l.trades = append(l.trades, t)
	}

	l.log.Info("state loaded",
		zap.Int("wallets", len(l.wallets)),
		zap.Int("trades", len(l.trades)))
	l.updateFollowedGauge()
}

// SaveState persists the current snapshot. Used by the periodic sweep;
// mutations save automatically. A write failure is logged, not fatal.
func (l *Ledger) SaveState(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) {
	state := l.snapshotLocked()
	if err := l.store.Save(ctx, state); err != nil {
		observability.RecordStateSaveError()
		l.log.Error("failed to save state", zap.Error(err))
	}
}

func (l *Ledger) snapshotLocked() *domain.State {
	state := &domain.State{
		Wallets: make([]domain.Wallet, len(l.wallets)),
		Trades:  make([]domain.Trade, len(l.trades)),
	}
	copy(state.Wallets, l.wallets)
	copy(state.Trades, l.trades)
	return state
}

// AddWallet registers or updates a wallet. Re-adding an existing
// address updates kind and active in place, keeping the original
// addedAt.
func (l *Ledger) AddWallet(ctx context.Context, address string, kind domain.WalletKind, active bool) domain.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx, ok := l.walletIdx[address]; ok {
		l.wallets[idx].Kind = kind
		l.wallets[idx].Active = active
		l.saveLocked(ctx)
		l.updateFollowedGauge()
		return l.wallets[idx]
	}

	w := domain.Wallet{
		Address: address,
		Kind:    kind,
		AddedAt: time.Now().UnixMilli(),
		Active:  active,
	}
	l.walletIdx[address] = len(l.wallets)
	l.wallets = append(l.wallets, w)
	l.saveLocked(ctx)
	l.updateFollowedGauge()

	l.log.Info("wallet added",
		zap.String("address", address),
		zap.String("kind", string(kind)),
		zap.Bool("active", active))
	return w
}

// RemoveWallet deletes a wallet. Removing the Master wallet is refused
// with a warning.
func (l *Ledger) RemoveWallet(ctx context.Context, address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if address == l.master {
		l.log.Warn("refusing to remove master wallet", zap.String("address", address))
		return false
	}

	idx, ok := l.walletIdx[address]
	if !ok {
		return false
	}

	l.wallets = append(l.wallets[:idx], l.wallets[idx+1:]...)
	delete(l.walletIdx, address)
	for i := idx; i < len(l.wallets); i++ {
		l.walletIdx[l.wallets[i].Address] = i
	}

	l.saveLocked(ctx)
	l.updateFollowedGauge()
	l.log.Info("wallet removed", zap.String("address", address))
	return true
}

// ToggleWalletActive flips the active flag. Returns the new value and
// whether the wallet was found.
func (l *Ledger) ToggleWalletActive(ctx context.Context, address string) (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.walletIdx[address]
	if !ok {
		return false, false
	}

	l.wallets[idx].Active = !l.wallets[idx].Active
	l.saveLocked(ctx)
	l.updateFollowedGauge()
	return l.wallets[idx].Active, true
}

// IsWalletFollowed reports whether the address is registered and
// active. O(1); gates all trade and discovery routing.
func (l *Ledger) IsWalletFollowed(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.walletIdx[address]
	return ok && l.wallets[idx].Active
}

// FollowedAddresses returns every active wallet address. The result is
// the watch set for the log subscription.
func (l *Ledger) FollowedAddresses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	addrs := make([]string, 0, len(l.wallets))
	for _, w := range l.wallets {
		if w.Active {
			addrs = append(addrs, w.Address)
		}
	}
	return addrs
}

// Wallets returns a copy of all registered wallets.
func (l *Ledger) Wallets() []domain.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Wallet, len(l.wallets))
	copy(out, l.wallets)
	return out
}

// CreateTrade records a new trade. The trade starts Pending with a
// fresh unique id and the current timestamp.
func (l *Ledger) CreateTrade(ctx context.Context, params TradeParams) domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	symbol := params.TokenSymbol
	if symbol == "" {
		symbol = "MOCK"
	}

	t := domain.Trade{
		ID:           tradeid.New(),
		WalletSource: params.WalletSource,
		TokenMint:    params.TokenMint,
		TokenSymbol:  symbol,
		Type:         params.Type,
		Status:       domain.TradeStatusPending,
		AmountSol:    params.AmountSol,
		TPPercent:    params.TPPercent,
		SLPercent:    params.SLPercent,
		Mode:         params.Mode,
		Timestamp:    time.Now().UnixMilli(),
	}

	l.tradeIdx[t.ID] = len(l.trades)
	l.trades = append(l.trades, t)
	l.saveLocked(ctx)

	observability.RecordTradeCreated(string(t.Type))
	l.log.Info("trade created",
		zap.String("id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("wallet", t.WalletSource),
		zap.String("mint", t.TokenMint),
		zap.Float64("amount_sol", t.AmountSol))
	return t
}

// UpdateTrade merge-patches an existing trade. Unknown ids are a
// no-op returning false.
func (l *Ledger) UpdateTrade(ctx context.Context, id string, patch TradePatch) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.tradeIdx[id]
	if !ok {
		return false
	}

	t := &l.trades[idx]
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.AmountSol != nil {
		t.AmountSol = *patch.AmountSol
	}
	if patch.BuyPrice != nil {
		t.BuyPrice = patch.BuyPrice
	}
	if patch.SellPrice != nil {
		t.SellPrice = patch.SellPrice
	}
	if patch.Pnl != nil {
		t.Pnl = *patch.Pnl
	}
	if patch.PnlPercent != nil {
		t.PnlPercent = patch.PnlPercent
	}

	l.saveLocked(ctx)
	return true
}

// GetTrade returns a trade by id.
func (l *Ledger) GetTrade(id string) (domain.Trade, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.tradeIdx[id]
	if !ok {
		return domain.Trade{}, false
	}
	return l.trades[idx], true
}

// ActiveTrades returns all trades currently in Active status.
func (l *Ledger) ActiveTrades() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Trade
	for _, t := range l.trades {
		if t.Status == domain.TradeStatusActive {
			out = append(out, t)
		}
	}
	return out
}

// Stats aggregates trade counters. Win rate is winners over closed
// trades; zero when nothing has closed yet.
func (l *Ledger) Stats() domain.TradeStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := domain.TradeStats{TotalTrades: len(l.trades)}

	var closed, winners int
	for _, t := range l.trades {
		switch t.Status {
		case domain.TradeStatusActive:
			stats.ActivePositions++
		case domain.TradeStatusClosed:
			closed++
			stats.TotalPnl += t.Pnl
			if t.Pnl > 0 {
				winners++
			}
		}
	}

	if closed > 0 {
		stats.WinRate = float64(winners) / float64(closed) * 100
	}
	return stats
}

func (l *Ledger) updateFollowedGauge() {
	n := 0
	for _, w := range l.wallets {
		if w.Active {
			n++
		}
	}
	observability.UpdateWalletsFollowed(n)
}
