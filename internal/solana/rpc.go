package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the pipeline needs.
// Implementations perform a single attempt per call and classify failures
// into the transport error taxonomy; retries belong to the fetch layer.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) when the transaction is unknown to the provider.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest
	// first, with before-cursor pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}
