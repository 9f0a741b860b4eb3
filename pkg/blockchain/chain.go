package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// IChainReader is the subset of the JSON-RPC surface the SDK uses.
type IChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethereumTypes.Log, error)
	SendTransaction(ctx context.Context, tx *ethereumTypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethereumTypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethereumTypes.Transaction, bool, error)
}

var _ IChainReader = (*ethclient.Client)(nil)
