package sweep

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"feesweep/pkg/token2022"
)

func (c *cycle) burn(ctx context.Context, vault solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}

	owner := c.cfg.FeeVault
	inst := token2022.NewBurnCheckedInstruction(amount, TokenDecimals, vault, c.cfg.Mint, owner.PublicKey())

	sig, err := c.sendBatch(ctx, "burn", 0, []solana.Instruction{inst}, owner)
	if err != nil {
		return fmt.Errorf("failed to burn %d tokens: %w", amount, err)
	}

	c.log.Info("burned tokens", zap.Uint64("amount", amount), zap.String("signature", sig.String()))
	return nil
}
