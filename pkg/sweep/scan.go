package sweep

import (
	"context"
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"feesweep/pkg/token2022"
)

var ErrNoInputAccount = errors.New("fee vault has no token account for the mint")

// ScannedAccount is a decoded token account of the mint.
type ScannedAccount struct {
	Pubkey solana.PublicKey
	token2022.Account
}

// WithholdingAccount is an account holding fees that can be withdrawn.
type WithholdingAccount struct {
	Pubkey         solana.PublicKey
	WithheldAmount uint64
}

// Snapshot is the single point-in-time scan a cycle works from. Holder
// shares are computed from it even after the swap.
type Snapshot struct {
	Accounts    []ScannedAccount
	Withholding []WithholdingAccount
	TotalFee    uint64
}

func (c *cycle) scan(ctx context.Context) (*Snapshot, error) {
	result, err := c.chain.GetProgramAccountsWithOpts(ctx, token2022.ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: token2022.MintOffset,
					Bytes:  c.cfg.Mint[:],
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan token accounts: %w", err)
	}

	snapshot, err := buildSnapshot(result, c.log)
	if err != nil {
		return nil, err
	}

	c.log.Info("scanned token accounts",
		zap.Int("accounts", len(snapshot.Accounts)),
		zap.Int("withholding", len(snapshot.Withholding)),
		zap.Uint64("total_fee", snapshot.TotalFee))
	return snapshot, nil
}

func buildSnapshot(result rpc.GetProgramAccountsResult, log *zap.Logger) (*Snapshot, error) {
	snapshot := &Snapshot{
		Accounts: make([]ScannedAccount, 0, len(result)),
	}
	total := cosmath.ZeroInt()

	for _, keyed := range result {
		if keyed == nil || keyed.Account == nil || keyed.Account.Data == nil {
			continue
		}
		var acc token2022.Account
		if err := acc.Decode(keyed.Account.Data.GetBinary()); err != nil {
			log.Debug("skipping undecodable account",
				zap.String("account", keyed.Pubkey.String()), zap.Error(err))
			continue
		}

		snapshot.Accounts = append(snapshot.Accounts, ScannedAccount{Pubkey: keyed.Pubkey, Account: acc})
		if acc.WithheldAmount > 0 {
			snapshot.Withholding = append(snapshot.Withholding, WithholdingAccount{
				Pubkey:         keyed.Pubkey,
				WithheldAmount: acc.WithheldAmount,
			})
			total = total.Add(cosmath.NewIntFromUint64(acc.WithheldAmount))
		}
	}

	if !total.IsUint64() {
		return nil, fmt.Errorf("withheld total %s overflows u64", total)
	}
	snapshot.TotalFee = total.Uint64()
	return snapshot, nil
}

// findVault returns the fee vault's token account for the mint.
func (c *cycle) findVault(ctx context.Context) (solana.PublicKey, error) {
	accounts, err := c.chain.GetTokenAccountsByMint(ctx, c.cfg.FeeVault.PublicKey(), c.cfg.Mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(accounts) == 0 {
		return solana.PublicKey{}, ErrNoInputAccount
	}
	return accounts[0], nil
}

// ensureVault finds the vault token account, creating the associated token
// account when the vault has none yet.
func (c *cycle) ensureVault(ctx context.Context) (solana.PublicKey, error) {
	vault, err := c.findVault(ctx)
	if err == nil {
		return vault, nil
	}
	if !errors.Is(err, ErrNoInputAccount) {
		return solana.PublicKey{}, fmt.Errorf("failed to look up vault token account: %w", err)
	}

	owner := c.cfg.FeeVault.PublicKey()
	ata, err := token2022.FindAssociatedTokenAddress(owner, c.cfg.Mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	inst := token2022.NewCreateIdempotentInstruction(owner, ata, owner, c.cfg.Mint)
	if _, err := c.sendBatch(ctx, "create_vault", 0, []solana.Instruction{inst}, c.cfg.FeeVault); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to create vault token account: %w", err)
	}

	c.log.Info("created vault token account", zap.String("vault", ata.String()))
	return ata, nil
}
