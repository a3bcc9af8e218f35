package sweep

// Fixed economics of a sweep cycle
const (
	// BatchSize bounds withdraw sources and transfers per transaction.
	BatchSize = 15

	BurnDivisor   = 25
	TokenDecimals = 6

	// Owner receives OwnerShareNumerator/OwnerShareDenominator of the surplus.
	OwnerShareNumerator   = 20
	OwnerShareDenominator = 24

	// GasReserveLamports stays in the vault to pay for the next cycles.
	GasReserveLamports uint64 = 300_000_000

	// Holder shares below this are not worth a transfer.
	MinTransferLamports uint64 = 1_000_000

	PriorityFeeMicroLamports uint64 = 3_000_000

	SwapSlippageBps         = 9900
	SwapComputeUnitPriceStr = "1000000"
)
