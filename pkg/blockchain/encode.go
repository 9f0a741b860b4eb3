package blockchain

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

func EncodeAddKey(key common.Address, purpose uint64) ([]byte, error) {
	return WalletABI.Pack("addKey", key, new(big.Int).SetUint64(purpose))
}

// EncodeAddKeys packs addKeys giving every key the same purpose.
func EncodeAddKeys(keys []common.Address, purpose uint64) ([]byte, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one key is required")
	}
	purposes := make([]*big.Int, len(keys))
	for i := range keys {
		purposes[i] = new(big.Int).SetUint64(purpose)
	}
	return WalletABI.Pack("addKeys", keys, purposes)
}

func EncodeRemoveKey(key common.Address, purpose uint64) ([]byte, error) {
	return WalletABI.Pack("removeKey", key, new(big.Int).SetUint64(purpose))
}

func EncodeSetRequiredSignatures(required uint64) ([]byte, error) {
	return WalletABI.Pack("setRequiredSignatures", new(big.Int).SetUint64(required))
}

func EncodeTokenTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return TokenABI.Pack("transfer", to, amount)
}

// EncodeInitializeWithENS packs the payload a counterfactual wallet is
// initialized with on deployment.
func EncodeInitializeWithENS(key common.Address, label string, ensName string, ens common.Address, gasPrice *big.Int) ([]byte, error) {
	labelHash := [32]byte(types.LabelHash(label))
	node := [32]byte(types.Namehash(ensName))
	return WalletABI.Pack("initializeWithENS", key, labelHash, ensName, node, ens, gasPrice)
}
