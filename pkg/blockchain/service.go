package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// BlockchainService reads wallet and token state through an IChainReader.
type BlockchainService struct {
	chain  IChainReader
	logger *zap.Logger
}

func NewBlockchainService(chain IChainReader, logger *zap.Logger) *BlockchainService {
	return &BlockchainService{
		chain:  chain,
		logger: logger,
	}
}

func (s *BlockchainService) Chain() IChainReader {
	return s.chain
}

func (s *BlockchainService) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := s.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err)
	}

	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result from %s", method, to.Hex())
	}
	return values, nil
}

// GetLastNonce returns the wallet's lastNonce(), the nonce the next message must use.
func (s *BlockchainService) GetLastNonce(ctx context.Context, wallet common.Address) (*big.Int, error) {
	values, err := s.call(ctx, WalletABI, wallet, "lastNonce")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (s *BlockchainService) GetRequiredSignatures(ctx context.Context, wallet common.Address) (*big.Int, error) {
	values, err := s.call(ctx, WalletABI, wallet, "requiredSignatures")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (s *BlockchainService) KeyExist(ctx context.Context, wallet, key common.Address) (bool, error) {
	values, err := s.call(ctx, WalletABI, wallet, "keyExist", key)
	if err != nil {
		return false, err
	}
	return values[0].(bool), nil
}

// GetBalance returns the balance of owner in token; the zero address means ETH.
func (s *BlockchainService) GetBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	if token == types.EtherNativeToken.Address {
		balance, err := s.chain.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get ETH balance of %s: %w", owner.Hex(), err)
		}
		return balance, nil
	}

	values, err := s.call(ctx, TokenABI, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// GetCode returns the deployed bytecode at address, empty if none.
func (s *BlockchainService) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := s.chain.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	return code, nil
}
