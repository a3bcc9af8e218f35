package sweep

import "time"

// CycleReport summarises one run. Amounts are token base units for the fee
// side and lamports for the payout side.
type CycleReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	TotalFee  uint64 `json:"total_fee"`
	Collected uint64 `json:"collected"`
	Burned    uint64 `json:"burned"`
	SwapInput uint64 `json:"swap_input"`
	Proceeds  uint64 `json:"proceeds"`

	OwnerPayout uint64 `json:"owner_payout"`
	HolderPool  uint64 `json:"holder_pool"`
	Distributed uint64 `json:"distributed"`
	Recipients  int    `json:"recipients"`

	FailedBatches int    `json:"failed_batches"`
	Err           string `json:"error,omitempty"`
}
