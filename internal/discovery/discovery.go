// Package discovery derives the deterministic set of on-chain addresses a
// wallet can own on the perpetuals exchange: one position account per
// (market custody, collateral custody, side) combination plus the pending
// request accounts attached to each position. Derivation is pure; an address
// that never existed on-chain simply yields no signatures downstream.
package discovery

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-perp-history/internal/domain"
)

// ErrInvalidWallet is returned when the wallet key is not a valid public key.
var ErrInvalidWallet = errors.New("invalid wallet address")

// PositionMeta describes the market a derived position account belongs to.
type PositionMeta struct {
	Symbol          string
	Side            domain.Side
	CollateralToken string
}

// AddressSet is the deduplicated result of discovery for one wallet.
type AddressSet struct {
	positions map[string]PositionMeta
	requests  map[string]domain.RequestType
	ordered   []string
}

// Addresses returns every discovered address (positions first, then request
// accounts) in stable derivation order.
func (s *AddressSet) Addresses() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Position returns metadata for a position address.
func (s *AddressSet) Position(addr string) (PositionMeta, bool) {
	m, ok := s.positions[addr]
	return m, ok
}

// RequestType returns the request classification for a request address.
func (s *AddressSet) RequestType(addr string) (domain.RequestType, bool) {
	t, ok := s.requests[addr]
	return t, ok
}

// Len returns the number of discovered addresses.
func (s *AddressSet) Len() int {
	return len(s.ordered)
}

// Request account variants derived per position. Liquidations carry no
// request account, so they are not part of the derived set.
var requestVariants = []domain.RequestType{
	domain.RequestMarket,
	domain.RequestLimit,
	domain.RequestStopLoss,
	domain.RequestTakeProfit,
}

// Derive computes the full candidate address set for a wallet.
func Derive(wallet string) (*AddressSet, error) {
	walletBytes, err := base58.Decode(wallet)
	if err != nil || len(walletBytes) != 32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}

	poolBytes, err := base58.Decode(LiquidityPool)
	if err != nil {
		return nil, fmt.Errorf("decode pool address: %w", err)
	}
	programBytes, err := base58.Decode(PerpProgramID)
	if err != nil {
		return nil, fmt.Errorf("decode program id: %w", err)
	}

	set := &AddressSet{
		positions: make(map[string]PositionMeta),
		requests:  make(map[string]domain.RequestType),
	}

	for _, market := range marketCustodies {
		custodyBytes, err := base58.Decode(market.Address)
		if err != nil {
			return nil, fmt.Errorf("decode custody %s: %w", market.Symbol, err)
		}

		// Long: collateral is the market custody itself.
		set.addPosition(derivePosition(walletBytes, poolBytes, custodyBytes, custodyBytes, sideTagLong, programBytes), PositionMeta{
			Symbol:          market.Symbol,
			Side:            domain.SideLong,
			CollateralToken: market.Symbol,
		}, programBytes)

		// Short: one position per stablecoin collateral.
		for _, stable := range stableCustodies {
			stableBytes, err := base58.Decode(stable.Address)
			if err != nil {
				return nil, fmt.Errorf("decode custody %s: %w", stable.Symbol, err)
			}
			set.addPosition(derivePosition(walletBytes, poolBytes, custodyBytes, stableBytes, sideTagShort, programBytes), PositionMeta{
				Symbol:          market.Symbol,
				Side:            domain.SideShort,
				CollateralToken: stable.Symbol,
			}, programBytes)
		}
	}

	return set, nil
}

// addPosition records a position address and derives its request accounts.
func (s *AddressSet) addPosition(addr string, meta PositionMeta, programBytes []byte) {
	if addr == "" {
		return
	}
	if _, exists := s.positions[addr]; exists {
		return
	}
	s.positions[addr] = meta
	s.ordered = append(s.ordered, addr)

	posBytes, err := base58.Decode(addr)
	if err != nil {
		return
	}
	for _, rt := range requestVariants {
		reqAddr := derivePDA([][]byte{[]byte(seedRequest), posBytes, {byte(rt)}}, programBytes)
		if reqAddr == "" {
			continue
		}
		if _, exists := s.requests[reqAddr]; exists {
			continue
		}
		s.requests[reqAddr] = rt
		s.ordered = append(s.ordered, reqAddr)
	}
}

// derivePosition derives the position PDA for one market combination.
// Seeds: ["position", wallet, pool, custody, collateral_custody, side]
func derivePosition(wallet, pool, custody, collateral []byte, side byte, programBytes []byte) string {
	seeds := [][]byte{
		[]byte(seedPosition),
		wallet,
		pool,
		custody,
		collateral,
		{side},
	}
	return derivePDA(seeds, programBytes)
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), taking the
// highest bump that lands off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
