package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// gas limit of a plain value transfer
const transferGas uint64 = 21000

// PrivateKeySigner implements ITransactionSigner with a locally held ECDSA key
type PrivateKeySigner struct {
	backend     IBackend
	logger      *zap.Logger
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	signer      types.Signer
}

// NewPrivateKeySigner parses a hex private key, with or without 0x prefix, and
// resolves the chain id from the backend.
func NewPrivateKeySigner(ctx context.Context, privateKeyHex string, backend IBackend, logger *zap.Logger) (*PrivateKeySigner, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &PrivateKeySigner{
		backend:     backend,
		logger:      logger,
		chainID:     chainID,
		privateKey:  privateKey,
		fromAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		signer:      types.LatestSignerForChainID(chainID),
	}, nil
}

// GetFromAddress returns the address that will be used for signing
func (s *PrivateKeySigner) GetFromAddress() common.Address {
	return s.fromAddress
}

// EstimateGasPriceAndLimit returns the suggested gas price and the estimated gas
// limit with a 20% buffer.
func (s *PrivateKeySigner) EstimateGasPriceAndLimit(ctx context.Context, tx *types.Transaction) (*big.Int, uint64, error) {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	if len(tx.Data()) == 0 && tx.To() != nil {
		return gasPrice, transferGas, nil
	}

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     s.fromAddress,
		To:       tx.To(),
		GasPrice: gasPrice,
		Value:    tx.Value(),
		Data:     tx.Data(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gasPrice, addGasBuffer(gasLimit), nil
}

// SendValue transfers amount wei to the given address
func (s *PrivateKeySigner) SendValue(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("recipient cannot be the zero address")
	}
	return s.SignAndSendTransaction(ctx, types.NewTx(&types.LegacyTx{
		To:    &to,
		Value: amount,
	}))
}

// SignAndSendTransaction signs a transaction and sends it to the network
func (s *PrivateKeySigner) SignAndSendTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	gasPrice, gasLimit, err := s.EstimateGasPriceAndLimit(ctx, tx)
	if err != nil {
		return nil, err
	}

	// the incoming nonce cannot be trusted, zero is a valid value
	nonce, err := s.backend.PendingNonceAt(ctx, s.fromAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	signedTx, err := types.SignNewTx(s.privateKey, s.signer, &types.LegacyTx{
		Nonce:    nonce,
		To:       tx.To(),
		Value:    tx.Value(),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     tx.Data(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	s.logger.Sugar().Infow("SignAndSendTransaction: sending transaction",
		"from", s.fromAddress.String(),
		"to", addressString(tx.To()),
		"value", tx.Value().String(),
		"gasPrice", gasPrice.String(),
		"gasLimit", gasLimit,
		"nonce", nonce,
	)

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.backend, signedTx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction receipt: %w", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.logger.Sugar().Errorw("SignAndSendTransaction: transaction failed",
			"txHash", receipt.TxHash.String(),
			"status", receipt.Status,
			"gasUsed", receipt.GasUsed,
		)
		return nil, fmt.Errorf("transaction failed with status %d", receipt.Status)
	}

	s.logger.Sugar().Infow("SignAndSendTransaction: transaction succeeded",
		"txHash", receipt.TxHash.String(),
		"gasUsed", receipt.GasUsed,
		"blockNumber", receipt.BlockNumber,
	)
	return receipt, nil
}

func addGasBuffer(gasLimit uint64) uint64 {
	return gasLimit + gasLimit/5
}

func addressString(a *common.Address) string {
	if a == nil {
		return "<contract creation>"
	}
	return a.String()
}
