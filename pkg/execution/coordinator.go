package execution

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/clients/relayerApi"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// IWalletReader is the wallet state the coordinator reads from the chain.
type IWalletReader interface {
	GetLastNonce(ctx context.Context, wallet common.Address) (*big.Int, error)
	GetRequiredSignatures(ctx context.Context, wallet common.Address) (*big.Int, error)
	KeyExist(ctx context.Context, wallet, key common.Address) (bool, error)
}

var _ IWalletReader = (*blockchain.BlockchainService)(nil)

// TransferDetails describes an ETH or ERC-20 transfer out of a wallet. A zero
// TransferToken means ETH.
type TransferDetails struct {
	To            common.Address
	Amount        *big.Int
	TransferToken common.Address
	GasPrice      *big.Int
	GasToken      *common.Address
}

// Coordinator signs messages, submits them to the relayer and tracks them
// until they are mined. At most one authorisation-changing message per wallet
// is in flight at a time.
type Coordinator struct {
	relayer relayerApi.IRelayerApi
	wallets IWalletReader
	config  config.ExecutionConfig
	logger  *zap.Logger

	locksMu  sync.Mutex
	inFlight map[common.Address]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// stopMu orders watcher registration against Stop.
	stopMu  sync.Mutex
	stopped bool
}

func NewCoordinator(
	cfg *config.ExecutionConfig,
	relayer relayerApi.IRelayerApi,
	wallets IWalletReader,
	logger *zap.Logger,
) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("execution config cannot be nil")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("execution poll interval must be positive")
	}
	if cfg.MineTimeout <= 0 {
		return nil, fmt.Errorf("mine timeout must be positive")
	}
	if relayer == nil {
		return nil, fmt.Errorf("relayer client is required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet reader is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		relayer:  relayer,
		wallets:  wallets,
		config:   *cfg,
		logger:   logger,
		inFlight: make(map[common.Address]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Execute fills unspecified fields with defaults, signs the message with
// privateKey and submits it. The returned Execution resolves when the
// relayer reports the message mined with enough confirmations.
func (c *Coordinator) Execute(ctx context.Context, message types.PartialMessage, privateKey *ecdsa.PrivateKey) (*Execution, error) {
	return c.execute(ctx, message, privateKey, func() {})
}

func (c *Coordinator) execute(ctx context.Context, partial types.PartialMessage, privateKey *ecdsa.PrivateKey, release func()) (*Execution, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}
	if partial.From == nil || *partial.From == (common.Address{}) {
		return nil, sdkErrors.NewInvalidAddress(common.Address{}.Hex())
	}

	message := partial.Complete(types.MessageDefaults())
	if partial.Nonce == nil {
		nonce, err := c.wallets.GetLastNonce(ctx, message.From)
		if err != nil {
			return nil, fmt.Errorf("failed to read nonce of %s: %w", message.From.Hex(), err)
		}
		message.Nonce = nonce
	}

	signed, err := messages.CreateSignedMessage(message, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	messageHash, err := c.relayer.Execute(ctx, signed)
	if err != nil {
		return nil, err
	}

	c.logger.Sugar().Infow("Message submitted",
		"wallet", message.From.Hex(),
		"to", message.To.Hex(),
		"nonce", message.Nonce.String(),
		"messageHash", messageHash.Hex(),
	)

	execution := newExecution(messageHash)

	c.stopMu.Lock()
	if c.stopped {
		c.stopMu.Unlock()
		release()
		execution.resolve(nil, context.Canceled)
		return execution, nil
	}
	c.wg.Add(1)
	c.stopMu.Unlock()

	go func() {
		defer c.wg.Done()
		c.watch(execution, release)
	}()
	return execution, nil
}

// watch polls the relayer until the execution resolves. release runs before
// the execution resolves so waiters can start the next change right away.
func (c *Coordinator) watch(execution *Execution, release func()) {
	ctx, cancel := context.WithTimeout(c.ctx, c.config.MineTimeout)
	defer cancel()

	resolve := func(status *types.MessageStatus, err error) {
		release()
		execution.resolve(status, err)
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if c.ctx.Err() != nil {
				resolve(nil, context.Canceled)
			} else {
				c.logger.Sugar().Warnw("Message not mined before timeout",
					"messageHash", execution.MessageHash.Hex(),
					"timeout", c.config.MineTimeout,
				)
				resolve(nil, sdkErrors.NewTimeoutError())
			}
			return
		case <-ticker.C:
		}

		status, err := c.relayer.GetStatus(ctx, execution.MessageHash)
		if err != nil {
			if sdkErrors.IsCategory(err, sdkErrors.CategoryNotFound) {
				resolve(nil, err)
				return
			}
			if ctx.Err() == nil {
				c.logger.Sugar().Warnw("Failed to get message status, retrying",
					"messageHash", execution.MessageHash.Hex(),
					"error", err,
				)
			}
			continue
		}

		switch status.State {
		case types.MessageStateError:
			resolve(status, &MessageError{MessageHash: execution.MessageHash, Reason: status.Error})
			return
		case types.MessageStateSuccess:
			if status.Confirmations >= c.config.RequiredConfirmations {
				c.logger.Sugar().Infow("Message mined",
					"messageHash", execution.MessageHash.Hex(),
					"confirmations", status.Confirmations,
				)
				resolve(status, nil)
				return
			}
		}
	}
}

// lock claims the single-flight slot of wallet.
func (c *Coordinator) lock(wallet common.Address) (func(), error) {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	if _, busy := c.inFlight[wallet]; busy {
		return nil, sdkErrors.NewConcurrentAuthorisation()
	}
	c.inFlight[wallet] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.locksMu.Lock()
			defer c.locksMu.Unlock()
			delete(c.inFlight, wallet)
		})
	}, nil
}

// InFlight reports whether an authorisation change is pending for wallet.
func (c *Coordinator) InFlight(wallet common.Address) bool {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	_, busy := c.inFlight[wallet]
	return busy
}

// executeAuthorisation runs an authorisation-changing call on wallet, holding
// its slot until the execution resolves.
func (c *Coordinator) executeAuthorisation(ctx context.Context, wallet common.Address, data []byte, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*Execution, error) {
	release, err := c.lock(wallet)
	if err != nil {
		return nil, err
	}

	details.From = &wallet
	details.To = &wallet
	details.Data = data
	details.Value = nil

	execution, err := c.execute(ctx, details, privateKey, release)
	if err != nil {
		release()
		return nil, err
	}
	return execution, nil
}

// AddKey adds key as a management key of wallet.
func (c *Coordinator) AddKey(ctx context.Context, wallet, key common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*Execution, error) {
	data, err := blockchain.EncodeAddKey(key, types.ManagementKey)
	if err != nil {
		return nil, err
	}
	return c.executeAuthorisation(ctx, wallet, data, privateKey, details)
}

// AddKeys adds every key as a management key of wallet in one message.
func (c *Coordinator) AddKeys(ctx context.Context, wallet common.Address, keys []common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*Execution, error) {
	data, err := blockchain.EncodeAddKeys(keys, types.ManagementKey)
	if err != nil {
		return nil, err
	}
	return c.executeAuthorisation(ctx, wallet, data, privateKey, details)
}

func (c *Coordinator) RemoveKey(ctx context.Context, wallet, key common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*Execution, error) {
	data, err := blockchain.EncodeRemoveKey(key, types.ManagementKey)
	if err != nil {
		return nil, err
	}
	return c.executeAuthorisation(ctx, wallet, data, privateKey, details)
}

func (c *Coordinator) SetRequiredSignatures(ctx context.Context, wallet common.Address, required uint64, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*Execution, error) {
	data, err := blockchain.EncodeSetRequiredSignatures(required)
	if err != nil {
		return nil, err
	}
	return c.executeAuthorisation(ctx, wallet, data, privateKey, details)
}

// Transfer sends ETH or an ERC-20 token out of wallet.
func (c *Coordinator) Transfer(ctx context.Context, wallet common.Address, privateKey *ecdsa.PrivateKey, details TransferDetails) (*Execution, error) {
	if details.Amount == nil || details.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	if details.To == (common.Address{}) {
		return nil, sdkErrors.NewInvalidAddress(details.To.Hex())
	}

	message := types.PartialMessage{
		From:     &wallet,
		GasPrice: details.GasPrice,
		GasToken: details.GasToken,
	}
	if details.TransferToken == types.EtherNativeToken.Address {
		message.To = &details.To
		message.Value = details.Amount
	} else {
		data, err := blockchain.EncodeTokenTransfer(details.To, details.Amount)
		if err != nil {
			return nil, err
		}
		token := details.TransferToken
		message.To = &token
		message.Data = data
	}
	return c.Execute(ctx, message, privateKey)
}

func (c *Coordinator) GetNonce(ctx context.Context, wallet common.Address) (*big.Int, error) {
	return c.wallets.GetLastNonce(ctx, wallet)
}

func (c *Coordinator) KeyExist(ctx context.Context, wallet, key common.Address) (bool, error) {
	return c.wallets.KeyExist(ctx, wallet, key)
}

func (c *Coordinator) GetRequiredSignatures(ctx context.Context, wallet common.Address) (*big.Int, error) {
	return c.wallets.GetRequiredSignatures(ctx, wallet)
}

// Stop rejects every pending execution with context.Canceled and waits for
// their watchers to exit. Later calls to Execute fail the same way; a message
// the relayer accepts while Stop runs comes back already rejected.
func (c *Coordinator) Stop() {
	c.stopMu.Lock()
	c.stopped = true
	c.stopMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// IsCanceled reports whether err is the outcome of Stop.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
