// Package report maps reconstructed lifecycles into the external-facing
// trade report: a pure formatting and ordering step.
package report

import (
	"sort"
	"time"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/idhash"
)

// Assembler builds trade reports with an injectable clock for deterministic
// output.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates a report assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Assemble produces the report for one wallet: most-recent-activity-first,
// stable ordering, exit fields omitted while a position is active.
func (a *Assembler) Assemble(wallet string, lifecycles []*domain.PositionLifecycle) *domain.TradeReport {
	sorted := make([]*domain.PositionLifecycle, len(lifecycles))
	copy(sorted, lifecycles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LastEventTime != sorted[j].LastEventTime {
			return sorted[i].LastEventTime > sorted[j].LastEventTime
		}
		if sorted[i].PositionKey != sorted[j].PositionKey {
			return sorted[i].PositionKey < sorted[j].PositionKey
		}
		return sorted[i].Generation > sorted[j].Generation
	})

	positions := make([]domain.PositionRecord, 0, len(sorted))
	for _, lc := range sorted {
		positions = append(positions, buildRecord(lc))
	}

	return &domain.TradeReport{
		WalletAddress: wallet,
		SyncTimestamp: a.now().Format(time.RFC3339),
		Positions:     positions,
	}
}

func buildRecord(lc *domain.PositionLifecycle) domain.PositionRecord {
	rec := domain.PositionRecord{
		TradeID:         idhash.ComputeTradeID(lc.PositionKey, lc.Generation, lc.EntryTime),
		PositionKey:     lc.PositionKey,
		Symbol:          lc.Symbol,
		Direction:       lc.Side.String(),
		Status:          string(lc.Status),
		CollateralToken: lc.CollateralToken,
		SizeUsd:         lc.SizeUsd,
		CollateralUsd:   lc.CollateralUsd,
		Leverage:        lc.Leverage(),
		EntryPrice:      lc.AvgEntryPrice,
		TotalFees:       lc.TotalFees,
		EntryTime:       formatTime(lc.EntryTime),
		Warning:         lc.Warning,
		Events:          buildEvents(lc.Events),
	}

	if lc.Terminal() {
		// Terminal positions report their peak exposure; current size is zero
		// by definition once closed.
		rec.SizeUsd = lc.MaxSizeUsd
		rec.CollateralUsd = lc.CollateralAtMax
		exitPrice := lc.ExitPrice
		realized := lc.RealizedPnl
		rec.ExitPrice = &exitPrice
		rec.RealizedPnl = &realized
		rec.ExitTime = formatTime(lc.ExitTime)
	}

	return rec
}

func buildEvents(events []*domain.PerpEvent) []domain.EventRecord {
	out := make([]domain.EventRecord, 0, len(events))
	for _, ev := range events {
		out = append(out, domain.EventRecord{
			Timestamp:            formatTime(ev.Timestamp),
			TransactionSignature: ev.TxSignature,
			EventName:            ev.Kind.String(),
			Action:               action(ev),
			Type:                 ev.RequestType.String(),
			SizeUsd:              domain.UsdToFloat(ev.SizeUsdDelta),
			Price:                domain.UsdToFloat(ev.Price),
			FeeUsd:               domain.UsdToFloat(ev.FeeUsd),
		})
	}
	return out
}

// action maps an event to the trade direction a user would recognize:
// adding long exposure or cutting short exposure is a buy, the inverse a sell.
func action(ev *domain.PerpEvent) string {
	buy := ev.Kind.Increases()
	if ev.Side == domain.SideShort {
		buy = !buy
	}
	if buy {
		return "buy"
	}
	return "sell"
}

func formatTime(unixMs int64) string {
	if unixMs == 0 {
		return ""
	}
	return time.UnixMilli(unixMs).UTC().Format(time.RFC3339)
}
