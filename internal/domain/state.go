package domain

// State is the full persisted snapshot of the ledger: every watched
// wallet and every trade record. It is written after each mutation and
// on a periodic timer, and read once at startup.
type State struct {
	Wallets []Wallet `json:"wallets"`
	Trades  []Trade  `json:"trades"`
}
