package domain

// EventType classifies a transaction log against the watch set.
type EventType string

const (
	EventTypeBuy      EventType = "BUY"
	EventTypeSell     EventType = "SELL"
	EventTypeTransfer EventType = "TRANSFER"
	EventTypeUnknown  EventType = "UNKNOWN"
)

// ParsedEvent is the classifier output for one transaction log.
// WalletSource is always a syntactically valid address for any type
// other than Unknown.
type ParsedEvent struct {
	Type              EventType
	WalletSource      string
	TokenMint         string
	TokenSymbol       string
	AmountSol         float64
	DestinationWallet string
	Signature         string
	Timestamp         int64 // unix millis
}
