// Package decode turns raw transaction bodies into typed perpetuals events.
// The event encoding is described by a Schema supplied externally; the
// decoder treats it as a fixed, versioned oracle and skips anything it does
// not recognize, since logs from unrelated instructions are expected noise.
package decode

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/mr-tron/base58"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/solana"
)

// Oracle extracts zero or more typed events from a transaction.
type Oracle interface {
	DecodeTransaction(tx *solana.Transaction) []*domain.PerpEvent
}

// Schema maps anchor event discriminators to event kinds.
type Schema struct {
	Version        string
	Discriminators map[[8]byte]domain.EventKind
}

// DefaultSchema returns the current program event schema. Anchor derives
// each discriminator as sha256("event:<Name>")[:8].
func DefaultSchema() Schema {
	names := map[string]domain.EventKind{
		"OpenPositionEvent":            domain.EventOpen,
		"IncreasePositionEvent":        domain.EventIncrease,
		"DecreasePositionEvent":        domain.EventDecrease,
		"InstantIncreasePositionEvent": domain.EventInstantIncrease,
		"InstantDecreasePositionEvent": domain.EventInstantDecrease,
		"LiquidateFullPositionEvent":   domain.EventLiquidate,
		"CreatePositionRequestEvent":   domain.EventRequestCreated,
		"ClosePositionRequestEvent":    domain.EventRequestCancelled,
	}

	discs := make(map[[8]byte]domain.EventKind, len(names))
	for name, kind := range names {
		discs[discriminator(name)] = kind
	}
	return Schema{Version: "v1", Discriminators: discs}
}

func discriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], hash[:8])
	return d
}

// Event payload layout after the 8-byte discriminator, little-endian:
// position key (32) | side (1) | size delta u64 | price u64 | fee u64 |
// collateral delta i64 | request key (32, zeroed when absent).
const payloadSize = 32 + 1 + 8 + 8 + 8 + 8 + 32

const programDataPrefix = "Program data: "

// SchemaOracle decodes anchor "Program data:" log lines against a Schema.
type SchemaOracle struct {
	schema Schema
}

// NewSchemaOracle creates an oracle for the given schema.
func NewSchemaOracle(schema Schema) *SchemaOracle {
	return &SchemaOracle{schema: schema}
}

// DecodeTransaction extracts every recognizable event from the transaction's
// log output. Undecodable lines are skipped, not failed.
func (o *SchemaOracle) DecodeTransaction(tx *solana.Transaction) []*domain.PerpEvent {
	if tx == nil || tx.Meta == nil {
		return nil
	}

	var events []*domain.PerpEvent
	for i, line := range tx.Meta.LogMessages {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line[len(programDataPrefix):]))
		if err != nil || len(raw) < 8+payloadSize {
			continue
		}

		var disc [8]byte
		copy(disc[:], raw[:8])
		kind, ok := o.schema.Discriminators[disc]
		if !ok {
			continue
		}

		ev := parsePayload(kind, raw[8:])
		ev.TxSignature = tx.Signature
		ev.Slot = tx.Slot
		ev.Timestamp = tx.BlockTime * 1000
		ev.LogIndex = i
		events = append(events, ev)
	}

	return events
}

func parsePayload(kind domain.EventKind, raw []byte) *domain.PerpEvent {
	ev := &domain.PerpEvent{
		Kind:        kind,
		PositionKey: base58.Encode(raw[:32]),
	}

	switch raw[32] {
	case 1:
		ev.Side = domain.SideLong
	case 2:
		ev.Side = domain.SideShort
	}

	ev.SizeUsdDelta = binary.LittleEndian.Uint64(raw[33:41])
	ev.Price = binary.LittleEndian.Uint64(raw[41:49])
	ev.FeeUsd = binary.LittleEndian.Uint64(raw[49:57])
	ev.CollateralDelta = int64(binary.LittleEndian.Uint64(raw[57:65]))

	reqKey := raw[65:97]
	if !allZero(reqKey) {
		ev.RequestKey = base58.Encode(reqKey)
	}

	return ev
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

var _ Oracle = (*SchemaOracle)(nil)
