// Package lifecycle reassembles decoded events into position lifecycles.
// Reconstruction is a pure function over its input: no I/O, deterministic,
// and safe to run repeatedly on the same event sequence.
package lifecycle

import (
	"sort"

	"solana-perp-history/internal/domain"
)

// Reconstruct groups events by position key, restores chronological order and
// folds each group through the position state machine. Terminal lifecycles
// are never mutated again; a later event for the same key opens a new
// generation, since the exchange reuses position accounts.
func Reconstruct(events []*domain.PerpEvent) []*domain.PositionLifecycle {
	sorted := make([]*domain.PerpEvent, len(events))
	copy(sorted, events)
	sortEvents(sorted)

	groups := make(map[string][]*domain.PerpEvent)
	var keyOrder []string
	for _, ev := range sorted {
		if _, ok := groups[ev.PositionKey]; !ok {
			keyOrder = append(keyOrder, ev.PositionKey)
		}
		groups[ev.PositionKey] = append(groups[ev.PositionKey], ev)
	}

	var out []*domain.PositionLifecycle
	for _, key := range keyOrder {
		out = append(out, foldKey(key, groups[key])...)
	}
	return out
}

// sortEvents orders by (timestamp, signature, log index): a stable,
// deterministic tie-break for same-timestamp events.
func sortEvents(events []*domain.PerpEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		if events[i].TxSignature != events[j].TxSignature {
			return events[i].TxSignature < events[j].TxSignature
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

// folder accumulates one position generation. Sizes, collateral and fees are
// tracked in exchange-native fixed point so the zero-exposure check is exact;
// price averaging and PnL use float64.
type folder struct {
	lc *domain.PositionLifecycle

	sizeRaw            uint64
	collateralRaw      int64
	maxSizeRaw         uint64
	collateralAtMaxRaw int64
	feesRaw            uint64
	grossPnl           float64
	avgEntry           float64
}

// foldKey runs the state machine over one key's events, producing one
// lifecycle per generation.
func foldKey(key string, events []*domain.PerpEvent) []*domain.PositionLifecycle {
	var out []*domain.PositionLifecycle
	var cur *folder
	gen := 0

	for _, ev := range events {
		if ev.Kind.Audit() {
			// Request bookkeeping: recorded on the open lifecycle, never
			// mutates exposure. Dropped when no lifecycle is open.
			if cur != nil {
				cur.lc.Events = append(cur.lc.Events, ev)
				cur.lc.LastEventTime = ev.Timestamp
			}
			continue
		}

		if cur == nil {
			gen++
			cur = newFolder(key, gen, ev)
			out = append(out, cur.lc)
		}

		cur.apply(ev)

		if cur.lc.Terminal() {
			cur.finish()
			cur = nil
		}
	}

	if cur != nil {
		cur.finish()
	}
	return out
}

// newFolder opens a generation. The first event establishes side, entry
// price, entry time and market attribution. A group that starts with a
// decrease or liquidation has lost its opening history (e.g. a from-date cut
// inside a lifecycle); it is reported with a warning, not dropped.
func newFolder(key string, gen int, first *domain.PerpEvent) *folder {
	lc := &domain.PositionLifecycle{
		PositionKey:     key,
		Generation:      gen,
		Symbol:          first.Symbol,
		Side:            first.Side,
		CollateralToken: first.CollateralToken,
		Status:          domain.StatusActive,
		EntryTime:       first.Timestamp,
	}

	f := &folder{lc: lc, avgEntry: domain.UsdToFloat(first.Price)}

	if !first.Kind.Increases() {
		lc.Warning = domain.WarnNoOpenEvent
	}
	return f
}

func (f *folder) apply(ev *domain.PerpEvent) {
	lc := f.lc
	lc.Events = append(lc.Events, ev)
	lc.LastEventTime = ev.Timestamp
	f.feesRaw += ev.FeeUsd

	switch {
	case ev.Kind.Increases():
		f.increase(ev)
	case ev.Kind.Decreases():
		f.decrease(ev, false)
	case ev.Kind == domain.EventLiquidate:
		f.decrease(ev, true)
	}
}

// increase grows exposure and re-weights the average entry price.
func (f *folder) increase(ev *domain.PerpEvent) {
	oldSize := domain.UsdToFloat(f.sizeRaw)
	delta := domain.UsdToFloat(ev.SizeUsdDelta)
	price := domain.UsdToFloat(ev.Price)

	if oldSize+delta > 0 {
		f.avgEntry = (f.avgEntry*oldSize + price*delta) / (oldSize + delta)
	}

	f.sizeRaw += ev.SizeUsdDelta
	f.collateralRaw += ev.CollateralDelta
	if f.collateralRaw < 0 {
		f.collateralRaw = 0
	}

	if f.sizeRaw > f.maxSizeRaw {
		f.maxSizeRaw = f.sizeRaw
		f.collateralAtMaxRaw = f.collateralRaw
	}
}

// decrease realizes PnL on the closed portion against the running average
// entry price. A liquidation closes whatever remains regardless of the
// event's own delta.
func (f *folder) decrease(ev *domain.PerpEvent, liquidation bool) {
	lc := f.lc

	closedRaw := ev.SizeUsdDelta
	if liquidation || closedRaw > f.sizeRaw {
		if !liquidation && lc.Warning == "" {
			lc.Warning = domain.WarnOverDecrease
		}
		closedRaw = f.sizeRaw
	}

	price := domain.UsdToFloat(ev.Price)
	if f.avgEntry > 0 {
		closedUsd := domain.UsdToFloat(closedRaw)
		f.grossPnl += lc.Side.Sign() * closedUsd * (price - f.avgEntry) / f.avgEntry
	}

	f.sizeRaw -= closedRaw
	f.collateralRaw += ev.CollateralDelta
	if f.collateralRaw < 0 {
		f.collateralRaw = 0
	}

	switch {
	case liquidation:
		lc.Status = domain.StatusLiquidated
	case f.sizeRaw == 0:
		lc.Status = domain.StatusClosed
	}

	if lc.Terminal() {
		lc.ExitPrice = price
		lc.ExitTime = ev.Timestamp
		f.sizeRaw = 0
		f.collateralRaw = 0
	}
}

// finish materializes the accumulated fixed-point state onto the lifecycle.
func (f *folder) finish() {
	lc := f.lc
	lc.SizeUsd = domain.UsdToFloat(f.sizeRaw)
	lc.CollateralUsd = domain.UsdToFloat(uint64(f.collateralRaw))
	lc.MaxSizeUsd = domain.UsdToFloat(f.maxSizeRaw)
	lc.CollateralAtMax = domain.UsdToFloat(uint64(f.collateralAtMaxRaw))
	lc.AvgEntryPrice = f.avgEntry
	lc.TotalFees = domain.UsdToFloat(f.feesRaw)
	if lc.Terminal() {
		lc.RealizedPnl = f.grossPnl - lc.TotalFees
	}
}
