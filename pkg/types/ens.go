package types

import (
	"strings"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseDomain splits "name.mylogin.eth" into its label "name" and domain "mylogin.eth".
func ParseDomain(ensName string) (string, string, error) {
	parts := strings.Split(ensName, ".")
	if len(parts) < 3 {
		return "", "", sdkErrors.NewInvalidAddress(ensName)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", sdkErrors.NewInvalidAddress(ensName)
		}
	}
	return parts[0], strings.Join(parts[1:], "."), nil
}

// IsProperAddress accepts only 0x-prefixed 20 byte hex addresses.
func IsProperAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ParseAddress validates address and returns it, failing with InvalidAddress.
func ParseAddress(address string) (common.Address, error) {
	if !IsProperAddress(address) {
		return common.Address{}, sdkErrors.NewInvalidAddress(address)
	}
	return common.HexToAddress(address), nil
}

// LabelHash is keccak256 of a single ENS label.
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// Namehash implements the recursive ENS name hash (EIP-137).
func Namehash(name string) common.Hash {
	node := common.Hash{}
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := LabelHash(labels[i])
		node = crypto.Keccak256Hash(node.Bytes(), labelHash.Bytes())
	}
	return node
}
