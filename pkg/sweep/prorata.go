package sweep

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// HolderRecord is one token account's stake in the airdrop.
type HolderRecord struct {
	Address solana.PublicKey
	Amount  uint64
}

// Share is the lamport payout owed to one recipient.
type Share struct {
	Recipient solana.PublicKey
	Lamports  uint64
}

// SplitFee returns the amount to burn and the amount to swap.
func SplitFee(total uint64) (burn, swapInput uint64) {
	t := cosmath.NewIntFromUint64(total)
	b := t.QuoRaw(BurnDivisor)
	return b.Uint64(), t.Sub(b).Uint64()
}

// SplitProceeds carves the gas reserve out of proceeds and splits the surplus
// between the owner and the holder pool. ok is false when proceeds do not
// cover the reserve.
func SplitProceeds(proceeds, gasReserve uint64) (owner, pool uint64, ok bool) {
	if proceeds < gasReserve {
		return 0, 0, false
	}

	surplus := cosmath.NewIntFromUint64(proceeds).Sub(cosmath.NewIntFromUint64(gasReserve))
	ownerCut := surplus.MulRaw(OwnerShareNumerator).QuoRaw(OwnerShareDenominator)
	return ownerCut.Uint64(), surplus.Sub(ownerCut).Uint64(), true
}

// EligibleHolders keeps accounts with a positive balance whose owner is a
// regular wallet. Program-derived owners cannot receive lamports usefully.
func EligibleHolders(accounts []ScannedAccount) []HolderRecord {
	holders := make([]HolderRecord, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Amount == 0 || !acc.Owner.IsOnCurve() {
			continue
		}
		holders = append(holders, HolderRecord{Address: acc.Owner, Amount: acc.Amount})
	}
	return holders
}

// ComputeShares splits pool pro-rata over holders, flooring each share and
// dropping shares below minTransfer. It returns the kept shares and their sum.
func ComputeShares(holders []HolderRecord, pool, minTransfer uint64) ([]Share, uint64) {
	total := cosmath.ZeroInt()
	for _, h := range holders {
		total = total.Add(cosmath.NewIntFromUint64(h.Amount))
	}
	if !total.IsPositive() || pool == 0 {
		return nil, 0
	}

	shares := make([]Share, 0, len(holders))
	var distributed uint64
	for _, h := range holders {
		lamports := proRata(h.Amount, pool, total)
		if lamports < minTransfer {
			continue
		}
		shares = append(shares, Share{Recipient: h.Address, Lamports: lamports})
		distributed += lamports
	}
	return shares, distributed
}

// proRata computes floor(amount * pool / total). amount <= total, so the
// result never exceeds pool.
func proRata(amount, pool uint64, total cosmath.Int) uint64 {
	product := uint128.From64(amount).Mul64(pool)
	if total.IsUint64() {
		return product.Div64(total.Uint64()).Lo
	}
	return cosmath.NewIntFromBigInt(product.Big()).Quo(total).Uint64()
}
