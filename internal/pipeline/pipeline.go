// Package pipeline wires the full reconstruction flow for one wallet:
// discovery → signature retrieval → transaction decoding → lifecycle
// reconstruction → report assembly. Each run is stateless and re-derives
// everything from the RPC provider.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-perp-history/internal/decode"
	"solana-perp-history/internal/discovery"
	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/fetch"
	"solana-perp-history/internal/lifecycle"
	"solana-perp-history/internal/report"
	"solana-perp-history/internal/retrieval"
	"solana-perp-history/internal/solana"
)

// ErrInvalidInput is returned for a bad wallet address or date range,
// before any network call is made.
var ErrInvalidInput = errors.New("invalid input")

// Attribution decides how a transaction touching several positions is
// credited.
type Attribution int

const (
	// AttributeAll credits every affected lifecycle (default).
	AttributeAll Attribution = iota
	// AttributePrimary credits only the first position in the transaction.
	AttributePrimary
)

// Options configures one pipeline run.
type Options struct {
	RPC      solana.RPCClient
	Executor *fetch.Executor // optional; a default executor is built when nil
	Oracle   decode.Oracle   // optional; DefaultSchema oracle when nil

	From *time.Time // inclusive lower bound
	To   *time.Time // exclusive upper bound

	PageLimit   int
	Attribution Attribution
	Clock       func() time.Time // optional; report timestamp
	Logger      logrus.FieldLogger
}

// Run reconstructs the full trading history of one wallet.
// Zero on-chain activity yields an empty report, not an error; an entirely
// unreachable provider is fatal.
func Run(ctx context.Context, wallet string, opts Options) (*domain.TradeReport, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return nil, fmt.Errorf("%w: to-date %s before from-date %s",
			ErrInvalidInput, opts.To.Format(time.DateOnly), opts.From.Format(time.DateOnly))
	}

	addrs, err := discovery.Derive(wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	log.WithFields(logrus.Fields{"wallet": wallet, "addresses": addrs.Len()}).
		Info("derived candidate addresses")

	ex := opts.Executor
	if ex == nil {
		ex = fetch.NewExecutor(
			fetch.WithPolicy(fetch.DefaultPolicy(solana.IsRetriable)),
			fetch.WithLogger(log),
		)
	}

	retriever := retrieval.NewRetriever(opts.RPC, ex,
		retrieval.WithLogger(log), retrieval.WithPageLimit(opts.PageLimit))
	sigs, err := retriever.Retrieve(ctx, addrs.Addresses(), opts.From, opts.To)
	if err != nil {
		return nil, fmt.Errorf("retrieve signatures: %w", err)
	}
	log.WithField("signatures", len(sigs)).Info("merged candidate transactions")

	oracle := opts.Oracle
	if oracle == nil {
		oracle = decode.NewSchemaOracle(decode.DefaultSchema())
	}

	decoder := decode.NewDecoder(opts.RPC, ex, oracle, addrs, decode.WithLogger(log))
	events, stats, err := decoder.Decode(ctx, sigs)
	if err != nil && len(events) == 0 {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	if err != nil {
		// Degrade rather than discard: report what was decoded before the
		// cut-off.
		log.WithField("error", err).Warn("decoding incomplete, assembling partial report")
	}

	if opts.Attribution == AttributePrimary {
		events = primaryOnly(events)
	}

	lifecycles := lifecycle.Reconstruct(events)

	log.WithFields(logrus.Fields{
		"fetched":     stats.Fetched,
		"fetch_fails": stats.FetchFails,
		"events":      stats.Decoded,
		"positions":   len(lifecycles),
	}).Info("reconstruction complete")

	assembler := report.NewAssembler()
	if opts.Clock != nil {
		assembler = assembler.WithClock(opts.Clock)
	}
	return assembler.Assemble(wallet, lifecycles), nil
}

// primaryOnly keeps, per transaction, only events for the first position the
// transaction touches.
func primaryOnly(events []*domain.PerpEvent) []*domain.PerpEvent {
	primary := make(map[string]string)
	out := events[:0]
	for _, ev := range events {
		key, ok := primary[ev.TxSignature]
		if !ok {
			primary[ev.TxSignature] = ev.PositionKey
			key = ev.PositionKey
		}
		if ev.PositionKey != key {
			continue
		}
		out = append(out, ev)
	}
	return out
}
