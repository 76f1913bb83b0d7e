package ledger

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/storage/memory"
)

const (
	masterAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	otherAddr  = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(memory.NewStateStore(), masterAddr, zap.NewNop())
	l.LoadState(context.Background())
	return l
}

func TestLoadState_FreshStoreHasMaster(t *testing.T) {
	l := newTestLedger(t)

	wallets := l.Wallets()
	if len(wallets) != 1 {
		t.Fatalf("expected 1 wallet, got %d", len(wallets))
	}
	if wallets[0].Address != masterAddr || wallets[0].Kind != domain.WalletKindMaster {
		t.Errorf("unexpected master wallet: %+v", wallets[0])
	}
	if !l.IsWalletFollowed(masterAddr) {
		t.Error("master wallet should be followed after fresh load")
	}
}

func TestLoadState_ForcesMasterKindBack(t *testing.T) {
	store := memory.NewStateStore()
	ctx := context.Background()

	altered := &domain.State{Wallets: []domain.Wallet{
		{Address: masterAddr, Kind: domain.WalletKindManual, AddedAt: 1, Active: true},
	}}
	if err := store.Save(ctx, altered); err != nil {
		t.Fatal(err)
	}

	l := New(store, masterAddr, zap.NewNop())
	l.LoadState(ctx)

	wallets := l.Wallets()
	if len(wallets) != 1 || wallets[0].Kind != domain.WalletKindMaster {
		t.Fatalf("master kind not forced back: %+v", wallets)
	}
}

func TestAddWallet_UpsertIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first := l.AddWallet(ctx, otherAddr, domain.WalletKindDiscovered, true)
	second := l.AddWallet(ctx, otherAddr, domain.WalletKindManual, true)

	if len(l.Wallets()) != 2 {
		t.Fatalf("expected 2 wallets after double add, got %d", len(l.Wallets()))
	}
	if second.Kind != domain.WalletKindManual {
		t.Errorf("kind not updated on re-add: %q", second.Kind)
	}
	if second.AddedAt != first.AddedAt {
		t.Errorf("addedAt changed on re-add: %d -> %d", first.AddedAt, second.AddedAt)
	}
	if !l.IsWalletFollowed(otherAddr) {
		t.Error("wallet should be followed after add")
	}
}

func TestRemoveWallet_MasterRefused(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if l.RemoveWallet(ctx, masterAddr) {
		t.Fatal("master wallet must not be removable")
	}
	if !l.IsWalletFollowed(masterAddr) {
		t.Fatal("master wallet lost after refused removal")
	}

	l.AddWallet(ctx, otherAddr, domain.WalletKindManual, true)
	if !l.RemoveWallet(ctx, otherAddr) {
		t.Fatal("expected removal of non-master wallet to succeed")
	}
	if l.IsWalletFollowed(otherAddr) {
		t.Fatal("removed wallet still followed")
	}
}

func TestToggleWalletActive(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.AddWallet(ctx, otherAddr, domain.WalletKindManual, true)

	active, ok := l.ToggleWalletActive(ctx, otherAddr)
	if !ok || active {
		t.Fatalf("toggle = (%v, %v), want (false, true)", active, ok)
	}
	if l.IsWalletFollowed(otherAddr) {
		t.Error("inactive wallet reported as followed")
	}

	if _, ok := l.ToggleWalletActive(ctx, "unknown"); ok {
		t.Error("toggle of unknown wallet should report not found")
	}
}

func TestCreateTrade_DefaultsAndUniqueness(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		trade := l.CreateTrade(ctx, TradeParams{
			WalletSource: masterAddr,
			TokenMint:    "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			Type:         domain.TradeTypeBuy,
			AmountSol:    0.1,
			Mode:         domain.TradeModeTest,
		})
		if trade.Status != domain.TradeStatusPending {
			t.Fatalf("new trade status = %q, want Pending", trade.Status)
		}
		if _, dup := seen[trade.ID]; dup {
			t.Fatalf("duplicate trade id %q at iteration %d", trade.ID, i)
		}
		seen[trade.ID] = struct{}{}
	}
}

func TestCreateTrade_SymbolFallback(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	unnamed := l.CreateTrade(ctx, TradeParams{
		WalletSource: masterAddr,
		TokenMint:    "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Type:         domain.TradeTypeBuy,
	})
	if unnamed.TokenSymbol != "MOCK" {
		t.Errorf("token symbol = %q, want MOCK when none observed", unnamed.TokenSymbol)
	}

	named := l.CreateTrade(ctx, TradeParams{
		WalletSource: masterAddr,
		TokenMint:    "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenSymbol:  "USDC",
		Type:         domain.TradeTypeBuy,
	})
	if named.TokenSymbol != "USDC" {
		t.Errorf("token symbol = %q, want USDC preserved", named.TokenSymbol)
	}
}

func TestUpdateTrade_MergePatch(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	trade := l.CreateTrade(ctx, TradeParams{
		WalletSource: masterAddr,
		TokenMint:    "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Type:         domain.TradeTypeBuy,
		AmountSol:    0.1,
	})

	status := domain.TradeStatusActive
	buyPrice := 0.000021
	if !l.UpdateTrade(ctx, trade.ID, TradePatch{Status: &status, BuyPrice: &buyPrice}) {
		t.Fatal("UpdateTrade returned false for known id")
	}

	got, ok := l.GetTrade(trade.ID)
	if !ok {
		t.Fatal("trade vanished after update")
	}
	if got.Status != domain.TradeStatusActive {
		t.Errorf("status = %q, want Active", got.Status)
	}
	if got.BuyPrice == nil || *got.BuyPrice != buyPrice {
		t.Errorf("buy price = %v, want %v", got.BuyPrice, buyPrice)
	}
	if got.AmountSol != 0.1 {
		t.Errorf("untouched field changed: amountSol = %v", got.AmountSol)
	}

	if l.UpdateTrade(ctx, "T0000000000000deadbeef", TradePatch{Status: &status}) {
		t.Error("UpdateTrade returned true for unknown id")
	}
}

func TestStats_NoClosedTrades(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.CreateTrade(ctx, TradeParams{WalletSource: masterAddr, TokenMint: "m", Type: domain.TradeTypeBuy})

	stats := l.Stats()
	if stats.WinRate != 0 {
		t.Errorf("win rate with zero closed trades = %v, want 0", stats.WinRate)
	}
	if stats.TotalTrades != 1 {
		t.Errorf("total trades = %d, want 1", stats.TotalTrades)
	}
}

func TestStats_WinRateOverClosed(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	closed := domain.TradeStatusClosed
	active := domain.TradeStatusActive

	winner := l.CreateTrade(ctx, TradeParams{WalletSource: masterAddr, TokenMint: "m", Type: domain.TradeTypeBuy})
	pnl := 0.5
	l.UpdateTrade(ctx, winner.ID, TradePatch{Status: &closed, Pnl: &pnl})

	loser := l.CreateTrade(ctx, TradeParams{WalletSource: masterAddr, TokenMint: "m", Type: domain.TradeTypeBuy})
	loss := -0.2
	l.UpdateTrade(ctx, loser.ID, TradePatch{Status: &closed, Pnl: &loss})

	open := l.CreateTrade(ctx, TradeParams{WalletSource: masterAddr, TokenMint: "m", Type: domain.TradeTypeBuy})
	l.UpdateTrade(ctx, open.ID, TradePatch{Status: &active})

	stats := l.Stats()
	if stats.WinRate != 50 {
		t.Errorf("win rate = %v, want 50", stats.WinRate)
	}
	if stats.ActivePositions != 1 {
		t.Errorf("active positions = %d, want 1", stats.ActivePositions)
	}
	if got := stats.TotalPnl; got != 0.3 && (got < 0.2999999 || got > 0.3000001) {
		t.Errorf("total pnl = %v, want 0.3", got)
	}

	if trades := l.ActiveTrades(); len(trades) != 1 || trades[0].ID != open.ID {
		t.Errorf("unexpected active trades: %+v", trades)
	}
}

func TestRoundTrip_FreshInstanceReproducesState(t *testing.T) {
	store := memory.NewStateStore()
	ctx := context.Background()

	first := New(store, masterAddr, zap.NewNop())
	first.LoadState(ctx)
	first.AddWallet(ctx, otherAddr, domain.WalletKindDiscovered, true)
	trade := first.CreateTrade(ctx, TradeParams{
		WalletSource: otherAddr,
		TokenMint:    "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenSymbol:  "USDC",
		Type:         domain.TradeTypeBuy,
		AmountSol:    0.25,
		TPPercent:    50,
		SLPercent:    20,
		Mode:         domain.TradeModeReal,
	})

	second := New(store, masterAddr, zap.NewNop())
	second.LoadState(ctx)

	wantWallets := walletSet(first.Wallets())
	gotWallets := walletSet(second.Wallets())
	if len(wantWallets) != len(gotWallets) {
		t.Fatalf("wallet sets differ: %v vs %v", wantWallets, gotWallets)
	}
	for addr, w := range wantWallets {
		if gotWallets[addr] != w {
			t.Errorf("wallet %s differs after round trip: %+v vs %+v", addr, w, gotWallets[addr])
		}
	}

	got, ok := second.GetTrade(trade.ID)
	if !ok {
		t.Fatalf("trade %s missing after round trip", trade.ID)
	}
	if got != trade {
		t.Errorf("trade differs after round trip: %+v vs %+v", got, trade)
	}
}

func walletSet(ws []domain.Wallet) map[string]domain.Wallet {
	m := make(map[string]domain.Wallet, len(ws))
	for _, w := range ws {
		m[w.Address] = w
	}
	return m
}
