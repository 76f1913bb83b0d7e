// Package notify delivers operator notifications. Delivery is
// fire-and-forget: callers never block on or depend on success, and a
// failed send is logged and counted, nothing more.
package notify

import (
	"context"

	"solana-copy-watch/internal/domain"
)

// Notifier is the outbound notification surface consumed by the core.
type Notifier interface {
	// NotifyWalletDiscovered reports a newly discovered wallet and the
	// transfer amount that qualified it.
	NotifyWalletDiscovered(ctx context.Context, address string, amountSol float64)

	// NotifyTradeDetected reports a freshly mirrored trade.
	NotifyTradeDetected(ctx context.Context, trade domain.Trade)

	// NotifyPositionClosed reports a closed trade and the close reason.
	NotifyPositionClosed(ctx context.Context, trade domain.Trade, reason string)
}
