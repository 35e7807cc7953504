package stub

import (
	"context"
	"sync"

	"solana-perp-history/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Signature lists are
// stored newest-first, matching the provider's ordering. Safe for concurrent
// use once populated.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	Accounts     map[string]*solana.AccountInfo

	// Errs, when set for a signature or address, is returned once per call.
	Errs map[string]error

	// Persistent errors are returned on every call for the given key.
	Persistent map[string]error

	// Calls counts RPC invocations per method for assertions.
	Calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Accounts:     make(map[string]*solana.AccountInfo),
		Errs:         make(map[string]error),
		Persistent:   make(map[string]error),
		Calls:        make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getTransaction"]++
	if err, ok := c.Persistent[signature]; ok {
		return nil, err
	}
	if err, ok := c.Errs[signature]; ok {
		delete(c.Errs, signature)
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetSignaturesForAddress pages backwards through the stored signature list.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getSignaturesForAddress"]++
	if err, ok := c.Persistent[address]; ok {
		return nil, err
	}
	if err, ok := c.Errs[address]; ok {
		delete(c.Errs, address)
		return nil, err
	}

	sigs := c.Signatures[address]
	start := 0
	if opts != nil && opts.Before != "" {
		start = len(sigs)
		for i, si := range sigs {
			if si.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}
	if start >= len(sigs) {
		return nil, nil
	}

	end := len(sigs)
	if opts != nil && opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	page := make([]solana.SignatureInfo, end-start)
	copy(page, sigs[start:end])
	return page, nil
}

// GetAccountInfo retrieves account info from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["getAccountInfo"]++
	if err, ok := c.Errs[pubkey]; ok {
		delete(c.Errs, pubkey)
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
