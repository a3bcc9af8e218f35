package sweep

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"feesweep/pkg/sol"
	"feesweep/pkg/swap"
)

// Chain is the slice of the RPC client the job uses. *sol.Client and
// *sol.RPCPool both satisfy it.
type Chain interface {
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetTokenAccountsByMint(ctx context.Context, owner, mint solana.PublicKey) ([]solana.PublicKey, error)
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	SignTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*sol.SignedTx, error)
	SendSigned(ctx context.Context, signed *sol.SignedTx) (solana.Signature, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error)
}

// Aggregator quotes and builds swaps.
type Aggregator interface {
	Quote(ctx context.Context, req swap.QuoteRequest) (*swap.Quote, error)
	BuildTransactions(ctx context.Context, quote *swap.Quote, req swap.BuildRequest) ([]*solana.Transaction, error)
}
