package token2022

import "github.com/gagliardetto/solana-go"

// Token-2022 program ID
const (
	TOKEN_2022_PROGRAM_ID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

var (
	ProgramID = solana.MustPublicKeyFromBase58(TOKEN_2022_PROGRAM_ID)
)

// Base account layout (shared with the legacy token program)
const (
	AccountSize  = 165
	MintOffset   = 0
	OwnerOffset  = 32
	AmountOffset = 64
	StateOffset  = 108

	// AccountTypeOffset is the first byte after the base layout when extensions are present
	AccountTypeOffset = AccountSize
	TLVOffset         = AccountSize + 1
)

// Account types stored at AccountTypeOffset
const (
	AccountTypeUninitialized = 0
	AccountTypeMint          = 1
	AccountTypeAccount       = 2
)

// Account states
const (
	StateUninitialized = 0
	StateInitialized   = 1
)

// Extension types
const (
	ExtensionUninitialized     uint16 = 0
	ExtensionTransferFeeConfig uint16 = 1
	ExtensionTransferFeeAmount uint16 = 2
)

// Instruction discriminators
const (
	InstructionBurnChecked          uint8 = 15
	InstructionTransferFeeExtension uint8 = 26

	// sub-instructions of InstructionTransferFeeExtension
	TransferFeeWithdrawWithheldTokensFromAccounts uint8 = 3

	// associated token account program
	AssociatedCreateIdempotent uint8 = 1
)
