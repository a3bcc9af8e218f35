package token2022

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// FindAssociatedTokenAddress derives the Token-2022 associated token account of wallet for mint.
func FindAssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		wallet[:],
		ProgramID[:],
		mint[:],
	}, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return addr, nil
}

// WithdrawWithheldInstruction moves withheld fees from source accounts into destination.
type WithdrawWithheldInstruction struct {
	NumSources              uint8
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewWithdrawWithheldInstruction(
	mint solana.PublicKey,
	destination solana.PublicKey,
	authority solana.PublicKey,
	sources []solana.PublicKey,
) (*WithdrawWithheldInstruction, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("withdraw needs at least one source account")
	}
	// the source count is encoded as a single byte
	if len(sources) > math.MaxUint8 {
		return nil, fmt.Errorf("too many source accounts: %d", len(sources))
	}

	inst := &WithdrawWithheldInstruction{
		NumSources:       uint8(len(sources)),
		AccountMetaSlice: make(solana.AccountMetaSlice, 0, 3+len(sources)),
	}
	inst.AccountMetaSlice.Append(solana.NewAccountMeta(mint, false, false))
	inst.AccountMetaSlice.Append(solana.NewAccountMeta(destination, true, false))
	inst.AccountMetaSlice.Append(solana.NewAccountMeta(authority, false, true))
	for _, source := range sources {
		inst.AccountMetaSlice.Append(solana.NewAccountMeta(source, true, false))
	}
	return inst, nil
}

func (inst *WithdrawWithheldInstruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *WithdrawWithheldInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *WithdrawWithheldInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(InstructionTransferFeeExtension); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.WriteUint8(TransferFeeWithdrawWithheldTokensFromAccounts); err != nil {
		return nil, fmt.Errorf("failed to write sub-instruction: %w", err)
	}
	if err := enc.WriteUint8(inst.NumSources); err != nil {
		return nil, fmt.Errorf("failed to encode source count: %w", err)
	}
	return buf.Bytes(), nil
}

// BurnCheckedInstruction burns Amount base units from a token account.
type BurnCheckedInstruction struct {
	Amount                  uint64
	Decimals                uint8
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewBurnCheckedInstruction(
	amount uint64,
	decimals uint8,
	account solana.PublicKey,
	mint solana.PublicKey,
	owner solana.PublicKey,
) *BurnCheckedInstruction {
	return &BurnCheckedInstruction{
		Amount:   amount,
		Decimals: decimals,
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(account, true, false),
			solana.NewAccountMeta(mint, true, false),
			solana.NewAccountMeta(owner, false, true),
		},
	}
}

func (inst *BurnCheckedInstruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *BurnCheckedInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *BurnCheckedInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(InstructionBurnChecked); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount: %w", err)
	}
	if err := enc.WriteUint8(inst.Decimals); err != nil {
		return nil, fmt.Errorf("failed to encode decimals: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateIdempotentInstruction creates the associated token account if it does not exist yet.
type CreateIdempotentInstruction struct {
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewCreateIdempotentInstruction(
	payer solana.PublicKey,
	associatedAccount solana.PublicKey,
	wallet solana.PublicKey,
	mint solana.PublicKey,
) *CreateIdempotentInstruction {
	return &CreateIdempotentInstruction{
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(associatedAccount, true, false),
			solana.NewAccountMeta(wallet, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(ProgramID, false, false),
		},
	}
}

func (inst *CreateIdempotentInstruction) ProgramID() solana.PublicKey {
	return solana.SPLAssociatedTokenAccountProgramID
}

func (inst *CreateIdempotentInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *CreateIdempotentInstruction) Data() ([]byte, error) {
	return []byte{AssociatedCreateIdempotent}, nil
}
