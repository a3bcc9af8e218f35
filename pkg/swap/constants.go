package swap

// Raydium trade API
const (
	RAYDIUM_SWAP_HOST = "https://transaction-v1.raydium.io"

	computePath = "/compute/swap-base-in"
	buildPath   = "/transaction/swap-base-in"

	TxVersionV0 = "V0"
)

// Wrapped SOL mint used as the swap output
const (
	NATIVE_MINT = "So11111111111111111111111111111111111111112"
)
