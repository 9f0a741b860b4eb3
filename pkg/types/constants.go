package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Key purposes as stored by the wallet contract.
const (
	ManagementKey uint64 = 1
	ActionKey     uint64 = 2
	ClaimKey      uint64 = 3
	EncryptionKey uint64 = 4
)

// Operation types understood by the wallet contract's executeSigned.
const (
	OperationCall         uint8 = 0
	OperationDelegateCall uint8 = 1
	OperationCreate       uint8 = 2
)

var (
	DefaultGasPrice = big.NewInt(10_000_000_000)
	DefaultGasLimit = big.NewInt(500_000)
)

// EtherNativeToken stands for plain ETH wherever a token address is expected.
var EtherNativeToken = SupportedToken{
	Address:       common.Address{},
	Symbol:        "ETH",
	Name:          "ether",
	MinimalAmount: big.NewInt(0),
}

// MessageDefaults fills the fields a caller left unset in a PartialMessage.
func MessageDefaults() Message {
	return Message{
		Value:         big.NewInt(0),
		Data:          []byte{},
		GasPrice:      new(big.Int).Set(DefaultGasPrice),
		GasLimit:      new(big.Int).Set(DefaultGasLimit),
		GasToken:      EtherNativeToken.Address,
		OperationType: OperationCall,
	}
}
