package decode

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"solana-perp-history/internal/discovery"
	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/fetch"
	"solana-perp-history/internal/retrieval"
	"solana-perp-history/internal/solana"
)

// Decoder fetches transaction bodies in bounded-concurrency batches and
// decodes them into events attributed to the discovered position set.
type Decoder struct {
	rpc    solana.RPCClient
	ex     *fetch.Executor
	oracle Oracle
	addrs  *discovery.AddressSet
	log    logrus.FieldLogger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Decoder) {
		d.log = log
	}
}

// NewDecoder creates a transaction decoder.
func NewDecoder(rpc solana.RPCClient, ex *fetch.Executor, oracle Oracle, addrs *discovery.AddressSet, opts ...Option) *Decoder {
	d := &Decoder{
		rpc:    rpc,
		ex:     ex,
		oracle: oracle,
		addrs:  addrs,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats counts item-level outcomes of one decode pass.
type Stats struct {
	Fetched    int
	FetchFails int
	Decoded    int
}

// Decode fetches and decodes the given signatures. Fetch completion order is
// arbitrary; the result is re-sorted by (timestamp, signature, log index)
// before return, which the reconstruction stage depends on. Item-level
// failures are skipped; everything decoded so far is returned even when the
// context is cancelled mid-batch.
func (d *Decoder) Decode(ctx context.Context, sigs []retrieval.SignatureRef) ([]*domain.PerpEvent, Stats, error) {
	results := fetch.Map(ctx, d.ex, sigs, func(ctx context.Context, ref retrieval.SignatureRef) (*solana.Transaction, error) {
		return d.rpc.GetTransaction(ctx, ref.Signature)
	})

	var events []*domain.PerpEvent
	var stats Stats
	for i, res := range results {
		if res.Err != nil {
			stats.FetchFails++
			d.log.WithFields(logrus.Fields{
				"signature": sigs[i].Signature,
				"error":     res.Err,
			}).Warn("transaction fetch failed, skipping")
			continue
		}
		stats.Fetched++
		tx := res.Value
		if tx == nil {
			// Unknown to the provider; pruned history is not an error.
			continue
		}

		for _, ev := range d.oracle.DecodeTransaction(tx) {
			meta, ok := d.addrs.Position(ev.PositionKey)
			if !ok {
				// Event for a position this wallet does not own.
				continue
			}
			d.attribute(ev, meta)
			events = append(events, ev)
			stats.Decoded++
		}
	}

	if len(sigs) > 0 && stats.FetchFails == len(sigs) && ctx.Err() == nil {
		return nil, stats, fmt.Errorf("all %d transaction fetches failed", len(sigs))
	}

	sortEvents(events)
	return events, stats, ctx.Err()
}

// attribute stamps market metadata and the request classification onto an
// event. Events without request metadata default to market orders;
// liquidations are always classified as such.
func (d *Decoder) attribute(ev *domain.PerpEvent, meta discovery.PositionMeta) {
	ev.Symbol = meta.Symbol
	ev.CollateralToken = meta.CollateralToken
	if ev.Side == domain.SideUnknown {
		ev.Side = meta.Side
	}

	switch {
	case ev.Kind == domain.EventLiquidate:
		ev.RequestType = domain.RequestLiquidation
	case ev.RequestKey != "":
		if rt, ok := d.addrs.RequestType(ev.RequestKey); ok {
			ev.RequestType = rt
		}
	}
}

// sortEvents restores true chronological order regardless of fetch
// completion order.
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
