package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TradeIDLength is the length of the short hex identifier.
const TradeIDLength = 16

// ComputeTradeID computes a short, stable trade identifier.
// Formula: SHA256(position_key|generation|entry_time), truncated to
// TradeIDLength hex characters. Stable across runs for the same lifecycle.
func ComputeTradeID(positionKey string, generation int, entryTime int64) string {
	data := fmt.Sprintf("%s|%d|%d", positionKey, generation, entryTime)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:TradeIDLength]
}
