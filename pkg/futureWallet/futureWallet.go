package futureWallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// BalanceDetails is the funding that made a future wallet deployable.
type BalanceDetails struct {
	ContractAddress common.Address
	TokenAddress    common.Address
	Amount          *big.Int
}

// FutureWallet is a wallet whose address is known before it exists on chain.
type FutureWallet struct {
	ContractAddress common.Address
	PrivateKey      *ecdsa.PrivateKey

	factory *Factory

	mu      sync.Mutex
	record  persistence.FutureWalletRecord
	funding *BalanceDetails
}

func newFutureWallet(factory *Factory, contractAddress common.Address, privateKey *ecdsa.PrivateKey, record *persistence.FutureWalletRecord) *FutureWallet {
	return &FutureWallet{
		ContractAddress: contractAddress,
		PrivateKey:      privateKey,
		factory:         factory,
		record:          *record,
	}
}

// Funding returns the balance that satisfied WaitForBalance, nil before that.
func (w *FutureWallet) Funding() *BalanceDetails {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.funding
}

// WaitForBalance blocks until the wallet holds at least the minimal amount of
// any supported token and returns the first such token in configured order.
// Only one wait per wallet may run at a time.
func (w *FutureWallet) WaitForBalance(ctx context.Context) (*BalanceDetails, error) {
	release, err := w.factory.claim(w.ContractAddress)
	if err != nil {
		return nil, err
	}
	defer release()

	return w.waitForBalance(ctx)
}

func (w *FutureWallet) waitForBalance(ctx context.Context) (*BalanceDetails, error) {
	f := w.factory
	ctx, cancel := f.bind(ctx)
	defer cancel()

	ticker := time.NewTicker(f.config.BalancePollInterval)
	defer ticker.Stop()

	for {
		details, err := w.checkBalances(ctx)
		if err != nil && ctx.Err() == nil {
			f.logger.Sugar().Warnw("Failed to read balance, retrying",
				"contractAddress", w.ContractAddress.Hex(),
				"error", err,
			)
		}
		if details != nil {
			w.setFunding(details)
			return details, nil
		}

		select {
		case <-ctx.Done():
			return nil, f.cancelled(ctx)
		case <-ticker.C:
		}
	}
}

func (w *FutureWallet) checkBalances(ctx context.Context) (*BalanceDetails, error) {
	for _, token := range w.factory.config.SupportedTokens {
		balance, err := w.factory.chain.GetBalance(ctx, w.ContractAddress, token.Address)
		if err != nil {
			return nil, err
		}
		if meetsThreshold(balance, token) {
			return &BalanceDetails{
				ContractAddress: w.ContractAddress,
				TokenAddress:    token.Address,
				Amount:          balance,
			}, nil
		}
	}
	return nil, nil
}

func (w *FutureWallet) setFunding(details *BalanceDetails) {
	w.mu.Lock()
	w.funding = details
	w.record.FundedToken = persistence.NormalizeAddress(details.TokenAddress.Hex())
	w.record.FundedAmount = details.Amount.String()
	record := w.record
	w.mu.Unlock()

	if err := w.factory.store.SaveFutureWallet(&record); err != nil {
		w.factory.logger.Sugar().Warnw("Failed to persist wallet funding",
			"contractAddress", w.ContractAddress.Hex(),
			"error", err,
		)
	}
	w.factory.logger.Sugar().Infow("Future wallet funded",
		"contractAddress", w.ContractAddress.Hex(),
		"token", details.TokenAddress.Hex(),
		"amount", details.Amount.String(),
	)
}

// Deploy asks the relayer to deploy the wallet bound to ensName and waits for
// its code to appear. Funding is awaited first if it was not observed yet.
// Calling Deploy on an already deployed wallet only verifies its bytecode.
func (w *FutureWallet) Deploy(ctx context.Context, ensName string, gasPrice *big.Int) error {
	label, _, err := types.ParseDomain(ensName)
	if err != nil {
		return err
	}
	if gasPrice == nil {
		gasPrice = types.DefaultGasPrice
	}

	release, err := w.factory.claim(w.ContractAddress)
	if err != nil {
		return err
	}
	defer release()

	f := w.factory
	code, err := f.chain.GetCode(ctx, w.ContractAddress)
	if err != nil {
		return err
	}
	if len(code) > 0 {
		return w.finishDeployment(code)
	}

	if w.Funding() == nil {
		if _, err := w.waitForBalance(ctx); err != nil {
			return err
		}
	}

	signer := privateKeyAddress(w.PrivateKey)
	initData, err := blockchain.EncodeInitializeWithENS(signer, label, ensName, f.config.ChainSpec.EnsAddress, gasPrice)
	if err != nil {
		return fmt.Errorf("failed to encode initialize call: %w", err)
	}
	signature, err := messages.SignPersonal(crypto.Keccak256(initData), w.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to sign deployment: %w", err)
	}

	w.mu.Lock()
	w.record.EnsName = ensName
	record := w.record
	w.mu.Unlock()
	if err := f.store.SaveFutureWallet(&record); err != nil {
		return fmt.Errorf("failed to persist future wallet: %w", err)
	}

	args := &types.DeployArgs{
		PublicKey: signer,
		EnsName:   ensName,
		GasPrice:  gasPrice.String(),
		Signature: hexutil.Encode(signature),
	}
	if err := f.deployer.Deploy(ctx, args); err != nil {
		return err
	}
	f.logger.Sugar().Infow("Deployment requested",
		"contractAddress", w.ContractAddress.Hex(),
		"ensName", ensName,
	)

	code, err = w.waitForCode(ctx)
	if err != nil {
		return err
	}
	return w.finishDeployment(code)
}

func (w *FutureWallet) waitForCode(ctx context.Context) ([]byte, error) {
	f := w.factory
	ctx, cancel := f.bind(ctx)
	defer cancel()

	deadline := time.NewTimer(f.config.DeployTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(f.config.BalancePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, f.cancelled(ctx)
		case <-deadline.C:
			return nil, sdkErrors.NewTimeoutError()
		case <-ticker.C:
		}

		code, err := f.chain.GetCode(ctx, w.ContractAddress)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Sugar().Warnw("Failed to read wallet code, retrying",
					"contractAddress", w.ContractAddress.Hex(),
					"error", err,
				)
			}
			continue
		}
		if len(code) > 0 {
			return code, nil
		}
	}
}

// finishDeployment checks deployed code against the proxy whitelist and drops
// the persisted record.
func (w *FutureWallet) finishDeployment(code []byte) error {
	f := w.factory
	if !f.isWhitelisted(code) {
		return sdkErrors.NewUnsupportedBytecode()
	}
	if err := f.store.DeleteFutureWallet(persistence.NormalizeAddress(w.ContractAddress.Hex())); err != nil {
		f.logger.Sugar().Warnw("Failed to remove deployed wallet from store",
			"contractAddress", w.ContractAddress.Hex(),
			"error", err,
		)
	}
	f.logger.Sugar().Infow("Future wallet deployed", "contractAddress", w.ContractAddress.Hex())
	return nil
}
