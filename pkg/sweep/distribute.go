package sweep

import (
	"context"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"
)

// distribute pays the owner cut and the holder airdrop out of proceeds.
func (c *cycle) distribute(ctx context.Context, snapshot *Snapshot, proceeds uint64) {
	ownerCut, pool, ok := SplitProceeds(proceeds, GasReserveLamports)
	if !ok {
		c.log.Info("proceeds below gas reserve, skipping distribution",
			zap.Uint64("proceeds", proceeds),
			zap.Uint64("gas_reserve", GasReserveLamports))
		return
	}
	c.report.OwnerPayout = ownerCut
	c.report.HolderPool = pool

	holders := EligibleHolders(snapshot.Accounts)
	shares, planned := ComputeShares(holders, pool, MinTransferLamports)
	c.log.Info("computed holder shares",
		zap.Int("holders", len(holders)),
		zap.Int("recipients", len(shares)),
		zap.Uint64("owner_payout", ownerCut),
		zap.Uint64("holder_pool", pool),
		zap.Uint64("planned", planned))

	transfers := make([]Share, 0, len(shares)+1)
	if ownerCut > 0 {
		transfers = append(transfers, Share{Recipient: c.cfg.Owner, Lamports: ownerCut})
	}
	transfers = append(transfers, shares...)

	payer := c.cfg.FeeVault
	for i, batch := range Chunk(transfers, BatchSize) {
		if ctx.Err() != nil {
			break
		}

		sig, err := c.sendBatch(ctx, "distribute", i, transferInstructions(payer.PublicKey(), batch), payer)
		if err != nil {
			continue
		}

		for _, t := range batch {
			c.report.Distributed += t.Lamports
		}
		c.report.Recipients += len(batch)
		c.log.Info("sent distribution batch",
			zap.Int("batch", i),
			zap.Int("transfers", len(batch)),
			zap.String("signature", sig.String()))
	}
}

// transferInstructions prefixes a batch of transfers with the priority fee.
func transferInstructions(from solana.PublicKey, batch []Share) []solana.Instruction {
	instructions := make([]solana.Instruction, 0, len(batch)+1)
	instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(PriorityFeeMicroLamports).Build())
	for _, t := range batch {
		instructions = append(instructions, system.NewTransferInstruction(t.Lamports, from, t.Recipient).Build())
	}
	return instructions
}
