package sweep

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"feesweep/pkg/token2022"
)

// withdraw moves withheld fees into vault batch by batch and returns how much
// the successful batches collected.
func (c *cycle) withdraw(ctx context.Context, accounts []WithholdingAccount, vault solana.PublicKey) uint64 {
	authority := c.cfg.WithdrawAuthority
	var collected uint64

	for i, batch := range Chunk(accounts, BatchSize) {
		if ctx.Err() != nil {
			break
		}

		sources := make([]solana.PublicKey, 0, len(batch))
		var amount uint64
		for _, acc := range batch {
			sources = append(sources, acc.Pubkey)
			amount += acc.WithheldAmount
		}

		inst, err := token2022.NewWithdrawWithheldInstruction(c.cfg.Mint, vault, authority.PublicKey(), sources)
		if err != nil {
			c.log.Error("failed to build withdraw instruction", zap.Int("batch", i), zap.Error(err))
			c.report.FailedBatches++
			continue
		}

		sig, err := c.sendBatch(ctx, "withdraw", i, []solana.Instruction{inst}, authority)
		if err != nil {
			continue
		}

		collected += amount
		c.log.Info("withdrew withheld fees",
			zap.Int("batch", i),
			zap.Int("accounts", len(batch)),
			zap.Uint64("amount", amount),
			zap.String("signature", sig.String()))
	}
	return collected
}
