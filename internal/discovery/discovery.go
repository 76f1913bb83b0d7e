// Package discovery tracks wallets observed through qualifying SOL
// transfers that are not yet followed. Records live in memory only;
// they do not survive a restart.
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-copy-watch/internal/config"
	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/notify"
	"solana-copy-watch/internal/observability"
)

// WalletRegistry is the slice of the ledger discovery needs.
type WalletRegistry interface {
	IsWalletFollowed(address string) bool
	AddWallet(ctx context.Context, address string, kind domain.WalletKind, active bool) domain.Wallet
}

// WatchSet mutates the live log subscription.
type WatchSet interface {
	AddWallet(ctx context.Context, address string) error
}

// Service owns the DiscoveredWallet collection.
type Service struct {
	registry WalletRegistry
	watch    WatchSet
	notifier notify.Notifier
	runtime  *config.Runtime
	log      *zap.Logger

	mu       sync.Mutex
	running  bool
	records  map[string]*domain.DiscoveredWallet
	promoted map[string]struct{}
}

// New creates a stopped discovery service. Call Start to begin
// processing transfers.
func New(registry WalletRegistry, watch WatchSet, notifier notify.Notifier, runtime *config.Runtime, log *zap.Logger) *Service {
	return &Service{
		registry: registry,
		watch:    watch,
		notifier: notifier,
		runtime:  runtime,
		log:      log,
		records:  make(map[string]*domain.DiscoveredWallet),
		promoted: make(map[string]struct{}),
	}
}

// Start enables transfer processing. Already-accumulated records are
// kept.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.log.Info("wallet discovery started")
}

// Stop disables transfer processing without dropping records.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.log.Info("wallet discovery stopped")
}

// Running reports whether transfers are currently processed.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ProcessTransfer handles one observed SOL transfer. It is a no-op
// when the service is stopped, the amount falls outside the configured
// range, or the destination is already followed. A repeat transfer to
// a known destination only raises the recorded running-maximum amount;
// first-seen source and discovery time are immutable.
func (s *Service) ProcessTransfer(ctx context.Context, from, to string, amountSol float64, signature string) {
	policy := s.runtime.Policy()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if amountSol < policy.MinSolTransfer || amountSol > policy.MaxSolTransfer {
		return
	}
	if s.registry.IsWalletFollowed(to) {
		return
	}

	if rec, ok := s.records[to]; ok {
		if amountSol > rec.TransferAmount {
			rec.TransferAmount = amountSol
		}
		return
	}

	rec := &domain.DiscoveredWallet{
		Address:        to,
		DiscoveredAt:   time.Now().UnixMilli(),
		TransferAmount: amountSol,
		FromWallet:     from,
	}
	s.records[to] = rec
	observability.RecordWalletDiscovered()

	s.log.Info("wallet discovered",
		zap.String("address", to),
		zap.String("from", from),
		zap.Float64("amount_sol", amountSol),
		zap.String("signature", signature))

	if policy.DiscoveryEnabled {
		s.notifier.NotifyWalletDiscovered(ctx, to, amountSol)
		rec.Notified = true
	}
}

// AddDiscoveredWalletToFollow promotes a discovery record into a
// followed Ledger wallet. Returns false if the address was never
// discovered or is already followed. This is the only promotion path.
func (s *Service) AddDiscoveredWalletToFollow(ctx context.Context, address string) bool {
	s.mu.Lock()
	rec, ok := s.records[address]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if s.registry.IsWalletFollowed(address) {
		s.mu.Unlock()
		return false
	}
	s.promoted[address] = struct{}{}
	amount := rec.TransferAmount
	s.mu.Unlock()

	s.registry.AddWallet(ctx, address, domain.WalletKindDiscovered, true)
	if err := s.watch.AddWallet(ctx, address); err != nil {
		s.log.Error("failed to add promoted wallet to watch set",
			zap.String("address", address), zap.Error(err))
	}
	s.notifier.NotifyWalletDiscovered(ctx, address, amount)

	observability.RecordWalletPromoted()
	s.log.Info("discovered wallet promoted to followed", zap.String("address", address))
	return true
}

// ClearOldDiscoveries purges records older than maxAge. Promoted
// records are purged like any other; the Ledger entry is what matters
// once a wallet is followed. Returns the number of purged records.
func (s *Service) ClearOldDiscoveries(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for addr, rec := range s.records {
		// <= so a zero maxAge purges records created this millisecond.
		if rec.DiscoveredAt <= cutoff {
			delete(s.records, addr)
			delete(s.promoted, addr)
			purged++
		}
	}

	if purged > 0 {
		observability.RecordDiscoveriesPurged(purged)
		s.log.Info("old discoveries purged", zap.Int("count", purged))
	}
	return purged
}

// Records returns a copy of all current discovery records.
func (s *Service) Records() []domain.DiscoveredWallet {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DiscoveredWallet, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// Stats summarizes the current discovery state.
func (s *Service) Stats() domain.DiscoveryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for addr := range s.records {
		if _, ok := s.promoted[addr]; !ok {
			pending++
		}
	}

	return domain.DiscoveryStats{
		TotalDiscoveries: len(s.records),
		AddedToFollow:    len(s.promoted),
		PendingReview:    pending,
		Running:          s.running,
	}
}
