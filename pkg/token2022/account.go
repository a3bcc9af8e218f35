package token2022

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account is the subset of a Token-2022 token account the sweeper reads.
type Account struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64

	// WithheldAmount comes from the TransferFeeAmount extension, zero without it.
	WithheldAmount uint64
}

// Decode parses the base token account layout followed by the TLV extension area.
func (a *Account) Decode(data []byte) error {
	if len(data) < AccountSize {
		return fmt.Errorf("data too short for token account: got %d bytes", len(data))
	}
	if data[StateOffset] == StateUninitialized {
		return fmt.Errorf("token account is not initialized")
	}

	copy(a.Mint[:], data[MintOffset:MintOffset+32])
	copy(a.Owner[:], data[OwnerOffset:OwnerOffset+32])
	a.Amount = binary.LittleEndian.Uint64(data[AmountOffset : AmountOffset+8])
	a.WithheldAmount = 0

	if len(data) == AccountSize {
		return nil
	}
	if data[AccountTypeOffset] != AccountTypeAccount {
		return fmt.Errorf("unexpected account type %d", data[AccountTypeOffset])
	}

	value, ok, err := findExtension(data[TLVOffset:], ExtensionTransferFeeAmount)
	if err != nil {
		return err
	}
	if ok {
		if len(value) < 8 {
			return fmt.Errorf("transfer fee amount extension too short: %d bytes", len(value))
		}
		a.WithheldAmount = binary.LittleEndian.Uint64(value[:8])
	}
	return nil
}

// findExtension walks type(u16) | length(u16) | value entries.
func findExtension(tlv []byte, want uint16) ([]byte, bool, error) {
	offset := 0
	for offset+4 <= len(tlv) {
		extType := binary.LittleEndian.Uint16(tlv[offset : offset+2])
		length := int(binary.LittleEndian.Uint16(tlv[offset+2 : offset+4]))
		offset += 4

		if extType == ExtensionUninitialized {
			// zero padding marks the end of the extension area
			return nil, false, nil
		}
		if offset+length > len(tlv) {
			return nil, false, fmt.Errorf("extension %d overruns account data", extType)
		}
		if extType == want {
			return tlv[offset : offset+length], true, nil
		}
		offset += length
	}
	return nil, false, nil
}
