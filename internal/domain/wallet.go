package domain

// WalletKind records how a wallet entered the ledger.
type WalletKind string

const (
	// WalletKindMaster is the operator's primary wallet, fixed at startup.
	WalletKindMaster WalletKind = "master"
	// WalletKindDiscovered marks wallets promoted from discovery.
	WalletKindDiscovered WalletKind = "discovered"
	// WalletKindManual marks wallets added explicitly by the operator.
	WalletKindManual WalletKind = "manual"
)

// Wallet is a watched blockchain address.
// Only active wallets are followed for trade detection.
type Wallet struct {
	Address string     `json:"address"`
	Kind    WalletKind `json:"kind"`
	AddedAt int64      `json:"addedAt"` // unix millis of first registration
	Active  bool       `json:"active"`
}
