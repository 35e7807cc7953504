package domain

// TradeReport is the external-facing output of one reconstruction run.
type TradeReport struct {
	WalletAddress string           `json:"wallet_address"`
	SyncTimestamp string           `json:"sync_timestamp"` // ISO-8601
	Positions     []PositionRecord `json:"positions"`
}

// PositionRecord is the wire shape of one reconstructed position lifecycle.
// Exit fields are omitted while the position is still active.
type PositionRecord struct {
	TradeID         string        `json:"trade_id"`
	PositionKey     string        `json:"position_key"`
	Symbol          string        `json:"symbol"`
	Direction       string        `json:"direction"` // long | short
	Status          string        `json:"status"`    // active | closed | liquidated
	CollateralToken string        `json:"collateral_token"`
	SizeUsd         float64       `json:"size_usd"`
	CollateralUsd   float64       `json:"collateral_usd"`
	Leverage        float64       `json:"leverage"`
	EntryPrice      float64       `json:"entry_price"`
	ExitPrice       *float64      `json:"exit_price,omitempty"`
	RealizedPnl     *float64      `json:"realized_pnl,omitempty"`
	TotalFees       float64       `json:"total_fees"`
	EntryTime       string        `json:"entry_time"`
	ExitTime        string        `json:"exit_time,omitempty"`
	Warning         string        `json:"warning,omitempty"`
	Events          []EventRecord `json:"events"`
}

// EventRecord is the wire shape of one event inside a position record.
type EventRecord struct {
	Timestamp            string  `json:"timestamp"`
	TransactionSignature string  `json:"transaction_signature"`
	EventName            string  `json:"event_name"`
	Action               string  `json:"action"` // buy | sell
	Type                 string  `json:"type"`   // market | limit | stop-loss | take-profit | liquidation
	SizeUsd              float64 `json:"size_usd"`
	Price                float64 `json:"price"`
	FeeUsd               float64 `json:"fee_usd"`
}
