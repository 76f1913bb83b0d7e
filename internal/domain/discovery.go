package domain

// DiscoveredWallet is an address observed receiving SOL transfers that
// is not yet followed. TransferAmount tracks the largest single
// transfer seen; FromWallet and DiscoveredAt are fixed at first sight.
type DiscoveredWallet struct {
	Address        string
	DiscoveredAt   int64 // unix millis
	TransferAmount float64
	FromWallet     string
	Notified       bool
}

// DiscoveryStats summarizes the discovery subsystem.
type DiscoveryStats struct {
	TotalDiscoveries int
	AddedToFollow    int
	PendingReview    int
	Running          bool
}
