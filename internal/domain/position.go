package domain

// PositionStatus is the lifecycle state of a reconstructed position.
type PositionStatus string

const (
	StatusActive     PositionStatus = "active"
	StatusClosed     PositionStatus = "closed"
	StatusLiquidated PositionStatus = "liquidated"
)

// Warning codes attached to lifecycles with data-consistency problems.
// A warned lifecycle is still reported; the rest of the report stays valid.
const (
	WarnOverDecrease = "decrease exceeds open size"
	WarnNoOpenEvent  = "no opening event observed for this position generation"
)

// PositionLifecycle is the ordered history of one position generation, from
// its first event to a terminal event (or the end of the input when still
// active). Position accounts are reused by the exchange, so the same key can
// produce multiple generations.
type PositionLifecycle struct {
	PositionKey string
	Generation  int // 1-based, increments on key reuse

	Symbol          string
	Side            Side
	CollateralToken string
	Status          PositionStatus

	Events []*PerpEvent

	// Aggregates in USD. SizeUsd and CollateralUsd reflect the current open
	// exposure (zero once terminal); MaxSizeUsd is the peak exposure reached.
	SizeUsd         float64
	CollateralUsd   float64
	MaxSizeUsd      float64
	CollateralAtMax float64

	AvgEntryPrice float64
	ExitPrice     float64 // zero while active
	RealizedPnl   float64 // net of fees, meaningful once terminal
	TotalFees     float64

	EntryTime     int64 // Unix ms
	ExitTime      int64 // Unix ms, zero while active
	LastEventTime int64

	Warning string // non-empty on data-consistency errors
}

// Terminal reports whether the lifecycle can no longer be mutated.
func (p *PositionLifecycle) Terminal() bool {
	return p.Status == StatusClosed || p.Status == StatusLiquidated
}

// Leverage is size at peak exposure over collateral at that point.
func (p *PositionLifecycle) Leverage() float64 {
	if p.CollateralAtMax <= 0 {
		return 0
	}
	return p.MaxSizeUsd / p.CollateralAtMax
}
