package domain

// TradeType is the direction of a detected trade.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// TradeStatus is the lifecycle state of a mirrored trade.
// Transitions are one-directional: Pending -> Active -> Closed.
type TradeStatus string

const (
	TradeStatusPending TradeStatus = "PENDING"
	TradeStatusActive  TradeStatus = "ACTIVE"
	TradeStatusClosed  TradeStatus = "CLOSED"
)

// TradeMode separates paper trades from real ones.
type TradeMode string

const (
	TradeModeTest TradeMode = "TEST"
	TradeModeReal TradeMode = "REAL"
)

// Trade is a mirrored trade record. The execution engine owns status
// transitions past Pending; the ledger only records and reports them.
type Trade struct {
	ID           string      `json:"id"`
	WalletSource string      `json:"walletSource"`
	TokenMint    string      `json:"tokenMint"`
	TokenSymbol  string      `json:"tokenSymbol,omitempty"`
	Type         TradeType   `json:"type"`
	Status       TradeStatus `json:"status"`
	AmountSol    float64     `json:"amountSol"`
	TPPercent    float64     `json:"tpPercent"`
	SLPercent    float64     `json:"slPercent"`
	Mode         TradeMode   `json:"mode"`
	BuyPrice     *float64    `json:"buyPrice,omitempty"`
	SellPrice    *float64    `json:"sellPrice,omitempty"`
	Pnl          float64     `json:"pnl"`
	PnlPercent   *float64    `json:"pnlPercent,omitempty"`
	Timestamp    int64       `json:"timestamp"` // unix millis
}

// TradeStats aggregates ledger trade outcomes.
type TradeStats struct {
	ActivePositions int
	TotalTrades     int
	TotalPnl        float64
	WinRate         float64 // winners/closed*100, 0 when no closed trades
}
