package domain

// Fixed-point scale used by the exchange program for USD amounts and prices.
const (
	UsdDecimals = 6
	UsdScale    = 1_000_000
)

// UsdToFloat converts an exchange-native fixed-point amount to USD.
func UsdToFloat(v uint64) float64 {
	return float64(v) / UsdScale
}

// EventKind identifies the program event type carried by a PerpEvent.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventOpen
	EventIncrease
	EventDecrease
	EventInstantIncrease
	EventInstantDecrease
	EventLiquidate
	EventRequestCreated
	EventRequestCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventIncrease:
		return "increase"
	case EventDecrease:
		return "decrease"
	case EventInstantIncrease:
		return "instant_increase"
	case EventInstantDecrease:
		return "instant_decrease"
	case EventLiquidate:
		return "liquidate"
	case EventRequestCreated:
		return "request_created"
	case EventRequestCancelled:
		return "request_cancelled"
	default:
		return "unknown"
	}
}

// Increases reports whether the event adds exposure to a position.
func (k EventKind) Increases() bool {
	return k == EventOpen || k == EventIncrease || k == EventInstantIncrease
}

// Decreases reports whether the event removes exposure from a position.
func (k EventKind) Decreases() bool {
	return k == EventDecrease || k == EventInstantDecrease
}

// Audit reports whether the event is a non-mutating request audit entry.
func (k EventKind) Audit() bool {
	return k == EventRequestCreated || k == EventRequestCancelled
}

// Side is the direction of a position, fixed at entry.
type Side int

const (
	SideUnknown Side = iota
	SideLong
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "unknown"
	}
}

// Sign returns +1 for long, -1 for short, 0 otherwise.
func (s Side) Sign() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// RequestType classifies the request account that originated an event.
type RequestType int

const (
	RequestMarket RequestType = iota
	RequestLimit
	RequestStopLoss
	RequestTakeProfit
	RequestLiquidation
)

func (t RequestType) String() string {
	switch t {
	case RequestLimit:
		return "limit"
	case RequestStopLoss:
		return "stop-loss"
	case RequestTakeProfit:
		return "take-profit"
	case RequestLiquidation:
		return "liquidation"
	default:
		return "market"
	}
}

// PerpEvent is one decoded program event attributed to a position account.
// Immutable once decoded.
type PerpEvent struct {
	PositionKey string // position account (base58)
	TxSignature string
	Slot        int64
	Timestamp   int64 // Unix milliseconds (block time)
	LogIndex    int   // index of the log line within the transaction

	Kind EventKind
	Side Side

	SizeUsdDelta    uint64 // fixed-point USD notional, UsdDecimals
	Price           uint64 // fixed-point
	FeeUsd          uint64 // fixed-point
	CollateralDelta int64  // fixed-point, signed

	RequestKey  string // originating request account, empty when none
	RequestType RequestType

	// Attribution stamped by the decoder from the discovered address set.
	Symbol          string
	CollateralToken string
}
