// Package watcher maintains the live log subscription for the current
// watch set and routes classified events to the ledger and discovery.
package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-copy-watch/internal/classifier"
	"solana-copy-watch/internal/config"
	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/ledger"
	"solana-copy-watch/internal/notify"
	"solana-copy-watch/internal/observability"
	"solana-copy-watch/internal/solana"
	"solana-copy-watch/internal/storage"
)

// Dialer opens a fresh log stream connection. Called once per connect
// attempt; the watcher owns the returned stream.
type Dialer func(ctx context.Context) (solana.LogStream, error)

var errStreamLost = errors.New("stream disconnected")

// Ledger is the slice of the ledger the watcher needs.
type Ledger interface {
	IsWalletFollowed(address string) bool
	FollowedAddresses() []string
	CreateTrade(ctx context.Context, params ledger.TradeParams) domain.Trade
}

// DiscoverySink receives observed transfers to unfollowed wallets.
type DiscoverySink interface {
	ProcessTransfer(ctx context.Context, from, to string, amountSol float64, signature string)
}

// Options tune reconnect behavior.
type Options struct {
	// MaxReconnectAttempts bounds consecutive failed connects before
	// the watcher gives up and reports itself inactive.
	MaxReconnectAttempts int

	// BaseDelay is the first backoff delay; it doubles per attempt up
	// to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultOptions returns the standard reconnect policy.
func DefaultOptions() Options {
	return Options{
		MaxReconnectAttempts: 10,
		BaseDelay:            time.Second,
		MaxDelay:             30 * time.Second,
	}
}

// Watcher is the subscription manager. It holds exactly one live
// stream connection reflecting the current watch set, reconnecting
// with bounded exponential backoff and resubscribing whenever the
// watch set changes.
type Watcher struct {
	dialer     Dialer
	classifier *classifier.Classifier
	ledger     Ledger
	discovery  DiscoverySink
	notifier   notify.Notifier
	runtime    *config.Runtime
	archive    storage.EventArchive
	opts       Options
	log        *zap.Logger

	mu      sync.Mutex
	watch   map[string]struct{}
	stream  solana.LogStream
	subID   int64
	active  bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a watcher. disc may be nil at construction and wired in
// later with SetDiscovery, which breaks the construction cycle between
// the watcher and the discovery service. archive may be nil to disable
// event archiving.
func New(dialer Dialer, cls *classifier.Classifier, led Ledger, disc DiscoverySink,
	notifier notify.Notifier, runtime *config.Runtime, archive storage.EventArchive,
	opts Options, log *zap.Logger) *Watcher {
	return &Watcher{
		dialer:     dialer,
		classifier: cls,
		ledger:     led,
		discovery:  disc,
		notifier:   notifier,
		runtime:    runtime,
		archive:    archive,
		opts:       opts,
		log:        log,
		watch:      make(map[string]struct{}),
	}
}

// SetDiscovery wires the discovery sink. Must be called before Start.
func (w *Watcher) SetDiscovery(d DiscoverySink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.discovery = d
}

// Start seeds the watch set from the ledger and begins the
// connect/consume loop. Returns an error if already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.stopped = make(chan struct{})
	w.watch = make(map[string]struct{})
	for _, addr := range w.ledger.FollowedAddresses() {
		w.watch[addr] = struct{}{}
	}
	stopped := w.stopped
	w.mu.Unlock()

	go func() {
		defer close(stopped)
		defer w.markStopped()
		w.run(runCtx)
	}()
	return nil
}

// markStopped releases the started state when the run loop exits, so
// an explicit Start can bring an exhausted watcher back.
func (w *Watcher) markStopped() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Stop tears down the stream and cancels any pending backoff. The
// watcher can be restarted with Start afterwards.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	stopped := w.stopped
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// Active reports whether a subscription is currently live.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// AddWallet adds an address to the watch set, resubscribing if a
// stream is live.
func (w *Watcher) AddWallet(ctx context.Context, address string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watch[address]; ok {
		return nil
	}
	w.watch[address] = struct{}{}
	return w.resubscribeLocked(ctx)
}

// RemoveWallet removes an address from the watch set, resubscribing if
// a stream is live.
func (w *Watcher) RemoveWallet(ctx context.Context, address string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watch[address]; !ok {
		return nil
	}
	delete(w.watch, address)
	return w.resubscribeLocked(ctx)
}

// resubscribeLocked re-issues the subscription so the live filter
// matches the watch set. A stale filter would silently miss wallets.
func (w *Watcher) resubscribeLocked(ctx context.Context) error {
	if w.stream == nil {
		return nil
	}

	if err := w.stream.UnsubscribeLogs(ctx, w.subID); err != nil {
		w.log.Warn("unsubscribe before resubscribe failed", zap.Error(err))
	}

	subID, err := w.stream.SubscribeLogs(ctx, solana.LogsFilter{Mentions: w.watchListLocked()})
	if err != nil {
		return err
	}
	w.subID = subID
	observability.RecordResubscribe()
	w.log.Info("resubscribed", zap.Int("watched", len(w.watch)))
	return nil
}

func (w *Watcher) watchListLocked() []string {
	addrs := make([]string, 0, len(w.watch))
	for addr := range w.watch {
		addrs = append(addrs, addr)
	}
	return addrs
}

func (w *Watcher) isWatched(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watch[address]
	return ok
}

func (w *Watcher) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := w.connect(ctx)
		if err == nil {
			connectedAt := time.Now()
			w.setActive(true)
			w.consume(ctx, stream)
			w.setActive(false)

			w.mu.Lock()
			w.stream = nil
			w.subID = 0
			w.mu.Unlock()
			stream.Close()

			if ctx.Err() != nil {
				return
			}
			// A connection that outlived the backoff ceiling earns a
			// fresh retry budget; one that died right away does not,
			// or a flapping stream would redial at full speed forever.
			if time.Since(connectedAt) >= w.opts.MaxDelay {
				attempt = 0
			}
			err = errStreamLost
		}

		attempt++
		observability.RecordReconnectAttempt()
		if attempt >= w.opts.MaxReconnectAttempts {
			w.log.Error("reconnect attempts exhausted, subscription inactive",
				zap.Int("attempts", attempt), zap.Error(err))
			return
		}

		delay := w.backoffDelay(attempt)
		w.log.Warn("stream lost, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if !w.sleep(ctx, delay) {
			return
		}
	}
}

func (w *Watcher) connect(ctx context.Context) (solana.LogStream, error) {
	stream, err := w.dialer(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	mentions := w.watchListLocked()
	w.mu.Unlock()

	subID, err := stream.SubscribeLogs(ctx, solana.LogsFilter{Mentions: mentions})
	if err != nil {
		stream.Close()
		return nil, err
	}

	w.mu.Lock()
	w.stream = stream
	w.subID = subID
	w.mu.Unlock()

	w.log.Info("log subscription established",
		zap.Int64("subscription", subID),
		zap.Int("watched", len(mentions)))
	return stream, nil
}

func (w *Watcher) consume(ctx context.Context, stream solana.LogStream) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-stream.Notifications():
			if !ok {
				return
			}
			w.dispatch(ctx, n)
		}
	}
}

// dispatch classifies one raw log and routes the result.
func (w *Watcher) dispatch(ctx context.Context, n solana.LogNotification) {
	observability.RecordLogReceived()

	event := w.classifier.Classify(classifier.RawLog{
		Signature: n.Signature,
		Err:       n.Err,
		Logs:      n.Logs,
	}, w.isWatched, time.Now().UnixMilli())

	observability.RecordEventClassified(string(event.Type))

	if event.Type != domain.EventTypeUnknown && w.archive != nil {
		if err := w.archive.Append(ctx, &event); err != nil {
			observability.RecordArchiveError()
			w.log.Warn("event archive write failed", zap.Error(err))
		}
	}

	switch event.Type {
	case domain.EventTypeUnknown:
		observability.RecordEventDropped("unknown")

	case domain.EventTypeTransfer:
		if w.ledger.IsWalletFollowed(event.DestinationWallet) {
			observability.RecordEventDropped("transfer_to_followed")
			return
		}
		if w.discovery != nil {
			w.discovery.ProcessTransfer(ctx, event.WalletSource, event.DestinationWallet, event.AmountSol, event.Signature)
		}

	case domain.EventTypeBuy, domain.EventTypeSell:
		if !w.ledger.IsWalletFollowed(event.WalletSource) {
			observability.RecordEventDropped("unfollowed_source")
			return
		}
		if event.TokenMint == "" {
			observability.RecordEventDropped("missing_token")
			w.log.Warn("malformed trade event dropped, no token identifier",
				zap.String("signature", event.Signature),
				zap.String("wallet", event.WalletSource))
			return
		}
		w.mirrorTrade(ctx, event)
	}
}

// mirrorTrade records a Pending trade for a followed wallet's buy or
// sell. The recorded size comes from the runtime policy; the observed
// on-chain amount is only a fallback when no size is configured.
func (w *Watcher) mirrorTrade(ctx context.Context, event domain.ParsedEvent) {
	policy := w.runtime.Policy()

	amount := policy.TradeSize
	if amount == 0 {
		amount = event.AmountSol
	}

	mode := domain.TradeModeTest
	if policy.AutoCopy {
		mode = domain.TradeModeReal
	}

	tradeType := domain.TradeTypeBuy
	if event.Type == domain.EventTypeSell {
		tradeType = domain.TradeTypeSell
	}

	trade := w.ledger.CreateTrade(ctx, ledger.TradeParams{
		WalletSource: event.WalletSource,
		TokenMint:    event.TokenMint,
		TokenSymbol:  event.TokenSymbol,
		Type:         tradeType,
		AmountSol:    amount,
		TPPercent:    policy.TPPercent,
		SLPercent:    policy.SLPercent,
		Mode:         mode,
	})

	w.notifier.NotifyTradeDetected(ctx, trade)
}

func (w *Watcher) setActive(active bool) {
	w.mu.Lock()
	w.active = active
	w.mu.Unlock()
	observability.SetSubscriptionActive(active)
}

func (w *Watcher) backoffDelay(attempt int) time.Duration {
	delay := w.opts.BaseDelay << (attempt - 1)
	if delay > w.opts.MaxDelay || delay <= 0 {
		delay = w.opts.MaxDelay
	}
	return delay
}

// sleep waits for d or until ctx is cancelled. Reports whether the
// full delay elapsed.
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
