package solana

import "context"

// LogStream is a single live connection to a Solana log subscription
// endpoint. Implementations do not reconnect on their own: when the
// connection drops, the notification channel is closed and the owner
// decides whether and when to dial again.
type LogStream interface {
	// SubscribeLogs subscribes to logs mentioning any address in the
	// filter and returns the subscription ID.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (int64, error)

	// UnsubscribeLogs cancels an active subscription.
	UnsubscribeLogs(ctx context.Context, subID int64) error

	// Notifications returns the stream of log notifications. The
	// channel is closed when the connection is lost or Close is called.
	Notifications() <-chan LogNotification

	// Close tears down the connection.
	Close() error
}

// LogsFilter selects which logs a subscription receives.
type LogsFilter struct {
	// Mentions filters logs that mention any of these addresses.
	Mentions []string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
