package swap

import "encoding/json"

// QuoteRequest describes an exact-in swap.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// Quote is the compute response. Raw is passed back to the build endpoint
// untouched, the aggregator validates it there.
type Quote struct {
	ID      string
	Success bool
	Raw     json.RawMessage
}

type quoteEnvelope struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
}

// BuildRequest carries the wallet specific part of a swap build.
type BuildRequest struct {
	Wallet                        string
	InputAccount                  string
	ComputeUnitPriceMicroLamports string
	WrapSol                       bool
	UnwrapSol                     bool
}

type buildBody struct {
	ComputeUnitPriceMicroLamports string          `json:"computeUnitPriceMicroLamports"`
	SwapResponse                  json.RawMessage `json:"swapResponse"`
	TxVersion                     string          `json:"txVersion"`
	Wallet                        string          `json:"wallet"`
	WrapSol                       bool            `json:"wrapSol"`
	UnwrapSol                     bool            `json:"unwrapSol"`
	InputAccount                  string          `json:"inputAccount,omitempty"`
}

type buildResponse struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
	Data    []struct {
		Transaction string `json:"transaction"`
	} `json:"data"`
}
