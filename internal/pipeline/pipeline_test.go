package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-perp-history/internal/discovery"
	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/fetch"
	"solana-perp-history/internal/solana"
	"solana-perp-history/internal/solana/stub"
)

const testWallet = "11111111111111111111111111111111"

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testOptions(rpc solana.RPCClient) Options {
	return Options{
		RPC: rpc,
		Executor: fetch.NewExecutor(
			fetch.WithMinDelay(0),
			fetch.WithPolicy(fetch.Policy{
				MaxAttempts: 2,
				BaseDelay:   time.Millisecond,
				MaxDelay:    time.Millisecond,
				Factor:      1.0,
				Retriable:   solana.IsRetriable,
			}),
		),
		Clock:  func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
		Logger: quietLogger(),
	}
}

// eventLog builds one anchor event log line the way the program emits it.
func eventLog(t *testing.T, name, positionKey string, side byte, size, price, fee uint64, coll int64) string {
	t.Helper()

	hash := sha256.Sum256([]byte("event:" + name))
	raw := append([]byte(nil), hash[:8]...)

	keyBytes, err := base58.Decode(positionKey)
	require.NoError(t, err)
	raw = append(raw, keyBytes...)

	raw = append(raw, side)
	raw = binary.LittleEndian.AppendUint64(raw, size*domain.UsdScale)
	raw = binary.LittleEndian.AppendUint64(raw, price*domain.UsdScale)
	raw = binary.LittleEndian.AppendUint64(raw, fee*domain.UsdScale)
	raw = binary.LittleEndian.AppendUint64(raw, uint64(coll*domain.UsdScale))
	raw = append(raw, make([]byte, 32)...) // no request account

	return "Program data: " + base64.StdEncoding.EncodeToString(raw)
}

func firstPosition(t *testing.T) string {
	t.Helper()
	addrs, err := discovery.Derive(testWallet)
	require.NoError(t, err)
	for _, addr := range addrs.Addresses() {
		if _, ok := addrs.Position(addr); ok {
			return addr
		}
	}
	t.Fatal("no position address derived")
	return ""
}

func TestRunEndToEnd(t *testing.T) {
	posKey := firstPosition(t)

	rpc := stub.NewRPCClient()
	rpc.Signatures[posKey] = []solana.SignatureInfo{
		{Signature: "sigClose", Slot: 20, BlockTime: int64Ptr(2000)},
		{Signature: "sigOpen", Slot: 10, BlockTime: int64Ptr(1000)},
	}
	rpc.Transactions["sigOpen"] = &solana.Transaction{
		Slot: 10, Signature: "sigOpen", BlockTime: 1000,
		Meta: &solana.TransactionMeta{LogMessages: []string{
			eventLog(t, "OpenPositionEvent", posKey, 1, 1000, 100, 1, 200),
		}},
	}
	rpc.Transactions["sigClose"] = &solana.Transaction{
		Slot: 20, Signature: "sigClose", BlockTime: 2000,
		Meta: &solana.TransactionMeta{LogMessages: []string{
			eventLog(t, "DecreasePositionEvent", posKey, 1, 1000, 110, 1, -200),
		}},
	}

	rep, err := Run(context.Background(), testWallet, testOptions(rpc))
	require.NoError(t, err)

	assert.Equal(t, testWallet, rep.WalletAddress)
	assert.Equal(t, "2026-08-01T12:00:00Z", rep.SyncTimestamp)
	require.Len(t, rep.Positions, 1)

	p := rep.Positions[0]
	assert.Equal(t, "closed", p.Status)
	assert.Equal(t, "SOL", p.Symbol)
	assert.Equal(t, "long", p.Direction)
	assert.Equal(t, 1000.0, p.SizeUsd)
	assert.Equal(t, 5.0, p.Leverage)
	require.NotNil(t, p.RealizedPnl)
	assert.InDelta(t, 98.0, *p.RealizedPnl, 1e-9)
	require.Len(t, p.Events, 2)
}

func TestRunEmptyWallet(t *testing.T) {
	rep, err := Run(context.Background(), testWallet, testOptions(stub.NewRPCClient()))
	require.NoError(t, err, "a wallet with no activity is not an error")

	assert.Equal(t, testWallet, rep.WalletAddress)
	assert.Empty(t, rep.Positions)
}

func TestRunInvalidWallet(t *testing.T) {
	_, err := Run(context.Background(), "not-a-wallet", testOptions(stub.NewRPCClient()))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunInvalidDateRange(t *testing.T) {
	opts := testOptions(stub.NewRPCClient())
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.From = &from
	opts.To = &to

	_, err := Run(context.Background(), testWallet, opts)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunDateWindowFilters(t *testing.T) {
	posKey := firstPosition(t)

	rpc := stub.NewRPCClient()
	rpc.Signatures[posKey] = []solana.SignatureInfo{
		{Signature: "sigLate", Slot: 30, BlockTime: int64Ptr(3000)},
		{Signature: "sigOpen", Slot: 10, BlockTime: int64Ptr(1000)},
	}
	rpc.Transactions["sigOpen"] = &solana.Transaction{
		Slot: 10, Signature: "sigOpen", BlockTime: 1000,
		Meta: &solana.TransactionMeta{LogMessages: []string{
			eventLog(t, "OpenPositionEvent", posKey, 1, 100, 100, 0, 50),
		}},
	}

	opts := testOptions(rpc)
	to := time.Unix(2000, 0) // exclusive; sigLate falls outside
	opts.To = &to

	rep, err := Run(context.Background(), testWallet, opts)
	require.NoError(t, err)

	require.Len(t, rep.Positions, 1)
	assert.Equal(t, "active", rep.Positions[0].Status)
	assert.Zero(t, rpc.Calls["getTransaction"]-1, "the out-of-window transaction must not be fetched")
}

func TestRunPrimaryAttribution(t *testing.T) {
	addrs, err := discovery.Derive(testWallet)
	require.NoError(t, err)

	var positions []string
	for _, addr := range addrs.Addresses() {
		if _, ok := addrs.Position(addr); ok {
			positions = append(positions, addr)
		}
	}
	require.GreaterOrEqual(t, len(positions), 2)

	// One transaction opens two positions.
	rpc := stub.NewRPCClient()
	rpc.Signatures[positions[0]] = []solana.SignatureInfo{
		{Signature: "sigBoth", Slot: 10, BlockTime: int64Ptr(1000)},
	}
	rpc.Transactions["sigBoth"] = &solana.Transaction{
		Slot: 10, Signature: "sigBoth", BlockTime: 1000,
		Meta: &solana.TransactionMeta{LogMessages: []string{
			eventLog(t, "OpenPositionEvent", positions[0], 1, 100, 100, 0, 50),
			eventLog(t, "OpenPositionEvent", positions[1], 2, 200, 100, 0, 60),
		}},
	}

	opts := testOptions(rpc)
	rep, err := Run(context.Background(), testWallet, opts)
	require.NoError(t, err)
	assert.Len(t, rep.Positions, 2, "default attribution credits every position")

	opts = testOptions(rpc)
	opts.Attribution = AttributePrimary
	rep, err = Run(context.Background(), testWallet, opts)
	require.NoError(t, err)
	require.Len(t, rep.Positions, 1)
	assert.Equal(t, positions[0], rep.Positions[0].PositionKey)
}

func int64Ptr(v int64) *int64 { return &v }
