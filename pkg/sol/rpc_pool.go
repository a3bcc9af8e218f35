package sol

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCPool spreads read requests across several RPC endpoints. Transactions are
// always sent and confirmed through the primary (first) endpoint.
type RPCPool struct {
	endpoints []string
	clients   []*Client
	index     uint64
}

// NewRPCPool creates a new RPC pool with the given endpoints
func NewRPCPool(ctx context.Context, endpoints []string, jitoRpc string, reqLimitPerSecond int, opts ...Option) (*RPCPool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpc pool needs at least one endpoint")
	}

	pool := &RPCPool{
		endpoints: endpoints,
		clients:   make([]*Client, 0, len(endpoints)),
	}

	// Create a client for each endpoint
	for _, endpoint := range endpoints {
		client, err := NewClient(ctx, endpoint, jitoRpc, reqLimitPerSecond, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for %s: %w", endpoint, err)
		}
		pool.clients = append(pool.clients, client)
	}

	return pool, nil
}

// GetClient returns the next client in round-robin fashion
func (p *RPCPool) GetClient() *Client {
	if len(p.clients) == 1 {
		return p.clients[0]
	}

	idx := atomic.AddUint64(&p.index, 1) % uint64(len(p.clients))
	return p.clients[idx]
}

// Primary is the client used for submissions and confirmations.
func (p *RPCPool) Primary() *Client {
	return p.clients[0]
}

// Size returns the number of clients in the pool
func (p *RPCPool) Size() int {
	return len(p.clients)
}

func (p *RPCPool) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	return p.GetClient().GetProgramAccountsWithOpts(ctx, programID, opts)
}

func (p *RPCPool) GetTokenAccountsByMint(ctx context.Context, owner, mint solana.PublicKey) ([]solana.PublicKey, error) {
	return p.GetClient().GetTokenAccountsByMint(ctx, owner, mint)
}

// GetBalance reads through the primary so before/after swap balances come from the same node.
func (p *RPCPool) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return p.Primary().GetBalance(ctx, account)
}

// SignTransaction fetches the blockhash from the primary, which also confirms
// the transaction, so expiry is judged against the same node.
func (p *RPCPool) SignTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*SignedTx, error) {
	return p.Primary().SignTransaction(ctx, instructions, payer, signers...)
}

func (p *RPCPool) SendSigned(ctx context.Context, signed *SignedTx) (solana.Signature, error) {
	return p.Primary().SendSigned(ctx, signed)
}

func (p *RPCPool) SendTransaction(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error) {
	return p.Primary().SendTransaction(ctx, tx, signers...)
}
