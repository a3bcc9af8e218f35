package token2022

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountData(mint, owner solana.PublicKey, amount uint64, extensions ...[]byte) []byte {
	data := make([]byte, AccountSize)
	copy(data[MintOffset:], mint[:])
	copy(data[OwnerOffset:], owner[:])
	binary.LittleEndian.PutUint64(data[AmountOffset:], amount)
	data[StateOffset] = StateInitialized
	if len(extensions) == 0 {
		return data
	}
	data = append(data, AccountTypeAccount)
	for _, ext := range extensions {
		data = append(data, ext...)
	}
	return data
}

func tlv(extType uint16, value []byte) []byte {
	out := make([]byte, 4, 4+len(value))
	binary.LittleEndian.PutUint16(out[0:2], extType)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(value)))
	return append(out, value...)
}

func withheld(amount uint64) []byte {
	v := make([]byte, 8)
	binary.LittleEndian.PutUint64(v, amount)
	return tlv(ExtensionTransferFeeAmount, v)
}

func TestAccountDecode(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	tests := []struct {
		name         string
		data         []byte
		wantWithheld uint64
		wantErr      bool
	}{
		{
			name: "base layout only",
			data: newAccountData(mint, owner, 42),
		},
		{
			name:         "transfer fee amount",
			data:         newAccountData(mint, owner, 42, withheld(1_234)),
			wantWithheld: 1_234,
		},
		{
			name:         "fee amount after another extension",
			data:         newAccountData(mint, owner, 42, tlv(7, []byte{1, 2, 3}), withheld(99)),
			wantWithheld: 99,
		},
		{
			name: "padding stops the walk",
			data: newAccountData(mint, owner, 42, make([]byte, 12)),
		},
		{
			name:    "truncated extension",
			data:    newAccountData(mint, owner, 42, tlv(ExtensionTransferFeeAmount, []byte{1, 2, 3, 4, 5, 6, 7, 8})[:8]),
			wantErr: true,
		},
		{
			name: "uninitialized",
			data: func() []byte {
				data := newAccountData(mint, owner, 42)
				data[StateOffset] = StateUninitialized
				return data
			}(),
			wantErr: true,
		},
		{
			name:    "too short",
			data:    make([]byte, 100),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Account
			err := acc.Decode(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, mint, acc.Mint)
			assert.Equal(t, owner, acc.Owner)
			assert.Equal(t, uint64(42), acc.Amount)
			assert.Equal(t, tt.wantWithheld, acc.WithheldAmount)
		})
	}
}

func TestAccountDecodeRejectsMint(t *testing.T) {
	data := make([]byte, AccountSize+1)
	data[StateOffset] = StateInitialized
	data[AccountTypeOffset] = AccountTypeMint
	var acc Account
	err := acc.Decode(data)
	require.Error(t, err)
}

func TestWithdrawWithheldInstruction(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	sources := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}

	inst, err := NewWithdrawWithheldInstruction(mint, dest, authority, sources)
	require.NoError(t, err)
	assert.Equal(t, ProgramID, inst.ProgramID())

	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{26, 3, 2}, data)

	accounts := inst.Accounts()
	require.Len(t, accounts, 5)
	assert.False(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsWritable)
	assert.True(t, accounts[2].IsSigner)
	assert.Equal(t, sources[1], accounts[4].PublicKey)
	assert.True(t, accounts[4].IsWritable)

	_, err = NewWithdrawWithheldInstruction(mint, dest, authority, nil)
	require.Error(t, err)
	_, err = NewWithdrawWithheldInstruction(mint, dest, authority, make([]solana.PublicKey, 256))
	require.Error(t, err)
}

func TestBurnCheckedInstruction(t *testing.T) {
	account := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	inst := NewBurnCheckedInstruction(400_000_000, 6, account, mint, owner)
	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 10)
	assert.Equal(t, InstructionBurnChecked, data[0])
	assert.Equal(t, uint64(400_000_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint8(6), data[9])
	assert.True(t, inst.Accounts()[2].IsSigner)
}

func TestCreateIdempotentInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ata, err := FindAssociatedTokenAddress(payer, mint)
	require.NoError(t, err)
	assert.False(t, ata.IsOnCurve())

	inst := NewCreateIdempotentInstruction(payer, ata, payer, mint)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, inst.ProgramID())
	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
	assert.Equal(t, ProgramID, inst.Accounts()[5].PublicKey)
}
