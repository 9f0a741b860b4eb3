package sdk

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchainObserver"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/clients/relayerApi"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/execution"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/futureWallet"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkSigner"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/securityCodes"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// WalletSDK wires every client component behind a single entry point.
type WalletSDK struct {
	config *config.SDKConfig
	logger *zap.Logger

	relayer   relayerApi.IRelayerApi
	chain     blockchain.IChainReader
	service   *blockchain.BlockchainService
	store     persistence.IWalletPersistence
	observer  *blockchainObserver.Observer
	execution *execution.Coordinator

	mu            sync.Mutex
	relayerConfig *types.PublicRelayerConfig
	factory       *futureWallet.Factory
	stopped       bool
}

// Dial connects to the configured RPC endpoint and builds an SDK on top of it.
func Dial(cfg *config.SDKConfig, logger *zap.Logger) (*WalletSDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ethClient := ethereum.NewEthereumClient(&ethereum.EthereumClientConfig{
		BaseUrl:   cfg.RpcUrl,
		BlockType: ethereum.BlockType_Latest,
	}, logger)

	l1Client, err := ethClient.GetEthereumContractCaller()
	if err != nil {
		return nil, fmt.Errorf("failed to get Ethereum contract caller: %w", err)
	}
	return New(cfg, l1Client, logger)
}

// New builds an SDK over an existing chain reader.
func New(cfg *config.SDKConfig, chain blockchain.IChainReader, logger *zap.Logger) (*WalletSDK, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sdk config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if chain == nil {
		return nil, fmt.Errorf("chain reader is required")
	}

	relayer, err := relayerApi.NewRelayerApi(&relayerApi.Config{
		BaseURL: cfg.RelayerURL,
		Retry:   relayerApi.DefaultRetryConfig(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create relayer client: %w", err)
	}

	store, err := NewPersistence(&cfg.Persistence, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	service := blockchain.NewBlockchainService(chain, logger)

	observer, err := blockchainObserver.NewObserver(&cfg.Observer, chain, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create observer: %w", err)
	}

	coordinator, err := execution.NewCoordinator(&cfg.Execution, relayer, service, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create execution coordinator: %w", err)
	}

	return &WalletSDK{
		config:    cfg,
		logger:    logger,
		relayer:   relayer,
		chain:     chain,
		service:   service,
		store:     store,
		observer:  observer,
		execution: coordinator,
	}, nil
}

// Start begins polling the chain for wallet events.
func (s *WalletSDK) Start(ctx context.Context) error {
	return s.observer.Start(ctx)
}

// Stop halts the observer, rejects pending executions and balance waits with
// context.Canceled, and closes the store. Idempotent.
func (s *WalletSDK) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	factory := s.factory
	s.mu.Unlock()

	s.observer.Stop()
	s.execution.Stop()
	if factory != nil {
		factory.Stop()
	}
	return s.store.Close()
}

func (s *WalletSDK) Observer() *blockchainObserver.Observer {
	return s.observer
}

func (s *WalletSDK) Execution() *execution.Coordinator {
	return s.execution
}

func (s *WalletSDK) Store() persistence.IWalletPersistence {
	return s.store
}

// FetchRelayerConfig loads the relayer's public config and caches it.
func (s *WalletSDK) FetchRelayerConfig(ctx context.Context) (*types.PublicRelayerConfig, error) {
	relayerConfig, err := s.relayer.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.relayerConfig = relayerConfig
	s.mu.Unlock()

	s.logger.Sugar().Infow("Loaded relayer config",
		"factory", relayerConfig.FactoryAddress.Hex(),
		"chain", relayerConfig.ChainSpec.Name,
		"supportedTokens", len(relayerConfig.SupportedTokens),
	)
	return relayerConfig, nil
}

// GetRelayerConfig returns the cached relayer config, failing with
// MissingConfiguration before FetchRelayerConfig succeeded.
func (s *WalletSDK) GetRelayerConfig() (*types.PublicRelayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relayerConfig == nil {
		return nil, sdkErrors.NewMissingConfiguration()
	}
	return s.relayerConfig, nil
}

// FutureWalletFactory returns the factory, building it from the relayer
// config on first use.
func (s *WalletSDK) FutureWalletFactory(ctx context.Context) (*futureWallet.Factory, error) {
	s.mu.Lock()
	factory, relayerConfig, stopped := s.factory, s.relayerConfig, s.stopped
	s.mu.Unlock()

	if stopped {
		return nil, context.Canceled
	}
	if factory != nil {
		return factory, nil
	}

	if relayerConfig == nil {
		var err error
		if relayerConfig, err = s.FetchRelayerConfig(ctx); err != nil {
			return nil, err
		}
	}

	factoryConfig, err := futureWallet.NewConfig(relayerConfig, &s.config.FutureWallet)
	if err != nil {
		return nil, err
	}
	factory, err = futureWallet.NewFactory(factoryConfig, s.service, s.relayer, s.store, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		factory.Stop()
		return nil, context.Canceled
	}
	if s.factory != nil {
		factory.Stop()
		return s.factory, nil
	}
	s.factory = factory
	return factory, nil
}

func (s *WalletSDK) CreateFutureWallet(ctx context.Context) (*futureWallet.FutureWallet, error) {
	factory, err := s.FutureWalletFactory(ctx)
	if err != nil {
		return nil, err
	}
	return factory.CreateFutureWallet(ctx)
}

// RestoreFutureWallets returns wallets created earlier but not deployed yet.
func (s *WalletSDK) RestoreFutureWallets(ctx context.Context) ([]*futureWallet.FutureWallet, error) {
	factory, err := s.FutureWalletFactory(ctx)
	if err != nil {
		return nil, err
	}
	return factory.Restore(ctx)
}

func (s *WalletSDK) Execute(ctx context.Context, message types.PartialMessage, privateKey *ecdsa.PrivateKey) (*execution.Execution, error) {
	return s.execution.Execute(ctx, message, privateKey)
}

func (s *WalletSDK) AddKey(ctx context.Context, contractAddress, key common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*execution.Execution, error) {
	return s.execution.AddKey(ctx, contractAddress, key, privateKey, details)
}

func (s *WalletSDK) AddKeys(ctx context.Context, contractAddress common.Address, keys []common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*execution.Execution, error) {
	return s.execution.AddKeys(ctx, contractAddress, keys, privateKey, details)
}

func (s *WalletSDK) RemoveKey(ctx context.Context, contractAddress, key common.Address, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*execution.Execution, error) {
	return s.execution.RemoveKey(ctx, contractAddress, key, privateKey, details)
}

func (s *WalletSDK) SetRequiredSignatures(ctx context.Context, contractAddress common.Address, required uint64, privateKey *ecdsa.PrivateKey, details types.PartialMessage) (*execution.Execution, error) {
	return s.execution.SetRequiredSignatures(ctx, contractAddress, required, privateKey, details)
}

func (s *WalletSDK) Transfer(ctx context.Context, contractAddress common.Address, privateKey *ecdsa.PrivateKey, details execution.TransferDetails) (*execution.Execution, error) {
	return s.execution.Transfer(ctx, contractAddress, privateKey, details)
}

func (s *WalletSDK) GetNonce(ctx context.Context, contractAddress common.Address) (*big.Int, error) {
	return s.execution.GetNonce(ctx, contractAddress)
}

func (s *WalletSDK) KeyExist(ctx context.Context, contractAddress, key common.Address) (bool, error) {
	return s.execution.KeyExist(ctx, contractAddress, key)
}

func (s *WalletSDK) GetRequiredSignatures(ctx context.Context, contractAddress common.Address) (*big.Int, error) {
	return s.execution.GetRequiredSignatures(ctx, contractAddress)
}

// GetBalance returns the balance of owner in token; the zero address means ETH.
func (s *WalletSDK) GetBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	return s.service.GetBalance(ctx, owner, token)
}

// Subscribe registers callback for KeyAdded or KeyRemoved events.
func (s *WalletSDK) Subscribe(eventName string, filter blockchainObserver.EventFilter, callback blockchainObserver.Callback) (*blockchainObserver.Subscription, error) {
	return s.observer.Subscribe(eventName, filter, callback)
}

// NewSigner returns a signer that relays transactions through contractAddress.
func (s *WalletSDK) NewSigner(contractAddress common.Address, privateKey *ecdsa.PrivateKey) (*sdkSigner.Signer, error) {
	return sdkSigner.New(s.execution, s.chain, contractAddress, privateKey, s.logger)
}

// Connect asks the owners of contractAddress to add key.
func (s *WalletSDK) Connect(ctx context.Context, contractAddress, key common.Address) error {
	return s.relayer.ConnectDevice(ctx, contractAddress, key)
}

// GetPendingAuthorisations lists connection requests for contractAddress with
// the security code each requesting device shows.
func (s *WalletSDK) GetPendingAuthorisations(ctx context.Context, contractAddress common.Address, privateKey *ecdsa.PrivateKey) ([]securityCodes.NotificationWithCode, error) {
	request, err := messages.SignGetAuthorisationRequest(contractAddress, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign authorisation request: %w", err)
	}
	notifications, err := s.relayer.GetPendingAuthorisations(ctx, request)
	if err != nil {
		return nil, err
	}
	return securityCodes.AddCodesToNotifications(notifications), nil
}

// CancelRequest withdraws the connection request made by privateKey.
func (s *WalletSDK) CancelRequest(ctx context.Context, contractAddress common.Address, privateKey *ecdsa.PrivateKey) error {
	request, err := messages.SignCancelAuthorisationRequest(contractAddress, privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign cancel request: %w", err)
	}
	return s.relayer.DenyConnection(ctx, request)
}
