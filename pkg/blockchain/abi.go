package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	EventKeyAdded   = "KeyAdded"
	EventKeyRemoved = "KeyRemoved"
)

// WalletContractABI covers the key management surface of the wallet contract.
const WalletContractABI = `[
	{"type":"function","name":"addKey","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"purpose","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"addKeys","stateMutability":"nonpayable","inputs":[{"name":"keys","type":"address[]"},{"name":"purposes","type":"uint256[]"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"removeKey","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"purpose","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"setRequiredSignatures","stateMutability":"nonpayable","inputs":[{"name":"requiredSignatures","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"requiredSignatures","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lastNonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"keyExist","stateMutability":"view","inputs":[{"name":"key","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"initializeWithENS","stateMutability":"nonpayable","inputs":[{"name":"key","type":"address"},{"name":"hashLabel","type":"bytes32"},{"name":"name","type":"string"},{"name":"node","type":"bytes32"},{"name":"ens","type":"address"},{"name":"gasPrice","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"KeyAdded","anonymous":false,"inputs":[{"name":"key","type":"address","indexed":true},{"name":"purpose","type":"uint256","indexed":true}]},
	{"type":"event","name":"KeyRemoved","anonymous":false,"inputs":[{"name":"key","type":"address","indexed":true},{"name":"purpose","type":"uint256","indexed":true}]}
]`

// ERC20ABI is the part of ERC-20 the SDK calls.
const ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	WalletABI = mustParseABI(WalletContractABI)
	TokenABI  = mustParseABI(ERC20ABI)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %v", err))
	}
	return parsed
}
