package database

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccountID identifies the account that signs a transaction or receives
// value and fees. It is held in the EIP-55 checksum form.
type AccountID string

// ToAccountID validates a hex-encoded account and converts it to the
// checksum form so the same account always compares equal.
func ToAccountID(hex string) (AccountID, error) {
	if !common.IsHexAddress(hex) {
		return "", fmt.Errorf("invalid account format %q", hex)
	}

	return AccountID(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).Hex())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	return common.IsHexAddress(string(a))
}
