package sdkSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/execution"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// IExecutor submits wallet messages.
type IExecutor interface {
	Execute(ctx context.Context, message types.PartialMessage, privateKey *ecdsa.PrivateKey) (*execution.Execution, error)
}

// ITransactionReader fetches mined transactions.
type ITransactionReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethereumTypes.Transaction, bool, error)
}

var _ IExecutor = (*execution.Coordinator)(nil)

// ISigner is the signing surface an application uses in place of an EOA signer.
type ISigner interface {
	// GetAddress returns the address of the signing key, not of the wallet
	GetAddress() common.Address

	// SignMessage produces a personal signature over data
	SignMessage(data []byte) ([]byte, error)

	// SendTransaction relays request through the wallet and waits for it to be mined
	SendTransaction(ctx context.Context, request *TransactionRequest) (*ethereumTypes.Transaction, error)
}

// TransactionRequest is an EOA-style transaction. Nil fields take the wallet defaults.
type TransactionRequest struct {
	To       *common.Address
	Data     []byte
	GasLimit *big.Int
	GasPrice *big.Int
	Value    *big.Int
}

// Signer makes a wallet contract look like a regular transaction signer.
type Signer struct {
	executor        IExecutor
	chain           ITransactionReader
	contractAddress common.Address
	privateKey      *ecdsa.PrivateKey
	logger          *zap.Logger
}

var _ ISigner = (*Signer)(nil)

func New(
	executor IExecutor,
	chain ITransactionReader,
	contractAddress common.Address,
	privateKey *ecdsa.PrivateKey,
	logger *zap.Logger,
) (*Signer, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain reader is required")
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if contractAddress == (common.Address{}) {
		return nil, sdkErrors.NewInvalidAddress(contractAddress.Hex())
	}

	return &Signer{
		executor:        executor,
		chain:           chain,
		contractAddress: contractAddress,
		privateKey:      privateKey,
		logger:          logger,
	}, nil
}

func (s *Signer) GetAddress() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

// ContractAddress returns the wallet the signer acts for.
func (s *Signer) ContractAddress() common.Address {
	return s.contractAddress
}

func (s *Signer) SignMessage(data []byte) ([]byte, error) {
	return messages.SignPersonal(data, s.privateKey)
}

func (s *Signer) SendTransaction(ctx context.Context, request *TransactionRequest) (*ethereumTypes.Transaction, error) {
	if request == nil {
		return nil, fmt.Errorf("transaction request cannot be nil")
	}

	message := types.PartialMessage{
		From:     &s.contractAddress,
		To:       request.To,
		Value:    request.Value,
		GasLimit: request.GasLimit,
		GasPrice: request.GasPrice,
	}
	if request.Data != nil {
		message.Data = request.Data
	}

	pending, err := s.executor.Execute(ctx, message, s.privateKey)
	if err != nil {
		return nil, err
	}

	status, err := pending.WaitToBeMined(ctx)
	if err != nil {
		return nil, err
	}
	if status == nil || status.TransactionHash == nil {
		return nil, sdkErrors.NewTransactionHashNotFound()
	}

	tx, _, err := s.chain.TransactionByHash(ctx, *status.TransactionHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", status.TransactionHash.Hex(), err)
	}

	s.logger.Sugar().Debugw("Transaction relayed",
		"wallet", s.contractAddress.Hex(),
		"messageHash", pending.MessageHash.Hex(),
		"transactionHash", tx.Hash().Hex(),
	)
	return tx, nil
}
