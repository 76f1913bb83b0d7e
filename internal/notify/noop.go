package notify

import (
	"context"

	"solana-copy-watch/internal/domain"
)

// Noop discards all notifications. Used when no notifier is configured
// and in tests.
type Noop struct{}

var _ Notifier = Noop{}

func (Noop) NotifyWalletDiscovered(context.Context, string, float64)    {}
func (Noop) NotifyTradeDetected(context.Context, domain.Trade)          {}
func (Noop) NotifyPositionClosed(context.Context, domain.Trade, string) {}
