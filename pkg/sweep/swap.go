package sweep

import (
	"context"

	"go.uber.org/zap"

	"feesweep/pkg/swap"
)

// swap sells amount tokens for SOL and returns the lamports gained. Every
// failure is logged and reported as zero proceeds.
func (c *cycle) swap(ctx context.Context, amount uint64) uint64 {
	if amount == 0 {
		return 0
	}
	vaultOwner := c.cfg.FeeVault.PublicKey()

	inputAccount, err := c.findVault(ctx)
	if err != nil {
		c.log.Warn("no input account for swap", zap.Error(err))
		return 0
	}

	before, err := c.chain.GetBalance(ctx, vaultOwner)
	if err != nil {
		c.log.Warn("failed to read balance before swap", zap.Error(err))
		return 0
	}

	quote, err := c.aggregator.Quote(ctx, swap.QuoteRequest{
		InputMint:   c.cfg.Mint.String(),
		OutputMint:  swap.NATIVE_MINT,
		Amount:      amount,
		SlippageBps: SwapSlippageBps,
	})
	if err != nil {
		c.log.Warn("swap quote failed", zap.Uint64("amount", amount), zap.Error(err))
		return 0
	}

	txs, err := c.aggregator.BuildTransactions(ctx, quote, swap.BuildRequest{
		Wallet:                        vaultOwner.String(),
		InputAccount:                  inputAccount.String(),
		ComputeUnitPriceMicroLamports: SwapComputeUnitPriceStr,
		WrapSol:                       false,
		UnwrapSol:                     true,
	})
	if err != nil {
		c.log.Warn("swap build failed", zap.Error(err))
		return 0
	}

	sent := 0
	for i, tx := range txs {
		sig, err := c.chain.SendTransaction(ctx, tx, c.cfg.FeeVault)
		if err != nil {
			c.log.Warn("swap transaction failed", zap.Int("index", i), zap.Error(err))
			continue
		}
		sent++
		c.log.Info("swap transaction confirmed", zap.Int("index", i), zap.String("signature", sig.String()))
	}
	if sent == 0 {
		return 0
	}

	if err := sleep(ctx, c.cfg.SettleDelay); err != nil {
		return 0
	}

	after, err := c.chain.GetBalance(ctx, vaultOwner)
	if err != nil {
		c.log.Warn("failed to read balance after swap", zap.Error(err))
		return 0
	}
	if after <= before {
		c.log.Info("swap produced no proceeds", zap.Uint64("before", before), zap.Uint64("after", after))
		return 0
	}

	proceeds := after - before
	c.log.Info("swapped fees for SOL",
		zap.Uint64("amount", amount),
		zap.Uint64("proceeds", proceeds))
	return proceeds
}
