// Package retrieval pulls transaction signatures for a set of addresses,
// paging backwards from the most recent entry, and merges them into one
// deduplicated, chronologically ascending candidate list.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-perp-history/internal/fetch"
	"solana-perp-history/internal/solana"
)

// DefaultPageLimit is the signature page size. Larger pages cut call count
// but widen the blast radius of a single failed call; ~300 is the observed
// local optimum.
const DefaultPageLimit = 300

// SignatureRef is one candidate transaction in the merged list.
type SignatureRef struct {
	Signature string
	Slot      int64
	BlockTime int64 // Unix seconds
}

// Retriever pages signatures per address through the shared executor.
type Retriever struct {
	rpc       solana.RPCClient
	ex        *fetch.Executor
	pageLimit int
	log       logrus.FieldLogger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithPageLimit sets the per-call signature page size.
func WithPageLimit(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.pageLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Retriever) {
		r.log = log
	}
}

// NewRetriever creates a signature retriever.
func NewRetriever(rpc solana.RPCClient, ex *fetch.Executor, opts ...Option) *Retriever {
	r := &Retriever{
		rpc:       rpc,
		ex:        ex,
		pageLimit: DefaultPageLimit,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the deduplicated, time-ascending signature list for the
// given addresses. The from bound is inclusive; the to bound is exclusive and
// applied as a filter since pagination is backward-only. Failed transactions
// are skipped. A single failing address degrades the result; only all
// addresses failing is fatal.
func (r *Retriever) Retrieve(ctx context.Context, addrs []string, from, to *time.Time) ([]SignatureRef, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		merged  []SignatureRef
		failed  int
		lastErr error
	)

	var wg sync.WaitGroup
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			sigs, err := r.retrieveForAddress(ctx, addr, from)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				r.log.WithFields(logrus.Fields{"address": addr, "error": err}).
					Warn("signature retrieval failed for address")
			}
			// Pages fetched before the failure are still usable.
			merged = append(merged, sigs...)
		}(addr)
	}
	wg.Wait()

	if failed == len(addrs) && lastErr != nil {
		return nil, fmt.Errorf("signature retrieval failed for all %d addresses: %w", len(addrs), lastErr)
	}

	merged = dedupe(merged)
	if to != nil {
		merged = filterBefore(merged, to.Unix())
	}
	sortAscending(merged)

	return merged, nil
}

// retrieveForAddress pages backwards until an empty page or until a page's
// oldest entry predates the from bound.
func (r *Retriever) retrieveForAddress(ctx context.Context, addr string, from *time.Time) ([]SignatureRef, error) {
	var out []SignatureRef
	var before string

	for {
		var page []solana.SignatureInfo
		err := r.ex.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.rpc.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{
				Before: before,
				Limit:  r.pageLimit,
			})
			return err
		})
		if err != nil {
			return out, err
		}
		if len(page) == 0 {
			return out, nil
		}

		pastFrom := false
		for _, si := range page {
			if si.BlockTime == nil {
				continue
			}
			bt := *si.BlockTime
			if from != nil && bt < from.Unix() {
				// Inclusive boundary: an entry exactly at from is kept.
				pastFrom = true
				continue
			}
			if si.Err != nil {
				// Failed transactions carry no program events.
				continue
			}
			out = append(out, SignatureRef{
				Signature: si.Signature,
				Slot:      si.Slot,
				BlockTime: bt,
			})
		}

		if pastFrom {
			return out, nil
		}
		before = page[len(page)-1].Signature
	}
}

// dedupe removes duplicate signatures; the same transaction can touch several
// discovered addresses.
func dedupe(refs []SignatureRef) []SignatureRef {
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if _, ok := seen[ref.Signature]; ok {
			continue
		}
		seen[ref.Signature] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// filterBefore drops entries at or after the exclusive upper bound.
func filterBefore(refs []SignatureRef, toUnix int64) []SignatureRef {
	out := refs[:0]
	for _, ref := range refs {
		if ref.BlockTime >= toUnix {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// sortAscending orders by (block time, slot, signature) for deterministic
// chronological processing.
func sortAscending(refs []SignatureRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].BlockTime != refs[j].BlockTime {
			return refs[i].BlockTime < refs[j].BlockTime
		}
		if refs[i].Slot != refs[j].Slot {
			return refs[i].Slot < refs[j].Slot
		}
		return refs[i].Signature < refs[j].Signature
	})
}
