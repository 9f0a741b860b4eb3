package futureWallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// IChainService reads balances and code of counterfactual wallets.
type IChainService interface {
	GetBalance(ctx context.Context, owner, token common.Address) (*big.Int, error)
	GetCode(ctx context.Context, address common.Address) ([]byte, error)
}

// IDeployer asks the relayer to deploy a funded wallet.
type IDeployer interface {
	Deploy(ctx context.Context, args *types.DeployArgs) error
}

var _ IChainService = (*blockchain.BlockchainService)(nil)

// Factory creates counterfactual wallets and drives them through funding and
// deployment.
type Factory struct {
	config   Config
	chain    IChainService
	deployer IDeployer
	store    persistence.IFutureWalletPersistence
	logger   *zap.Logger

	mu     sync.Mutex
	busy   map[common.Address]struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func NewFactory(
	cfg *Config,
	chain IChainService,
	deployer IDeployer,
	store persistence.IFutureWalletPersistence,
	logger *zap.Logger,
) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("factory config cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if chain == nil || deployer == nil || store == nil {
		return nil, fmt.Errorf("chain service, deployer and store are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Factory{
		config:   *cfg,
		chain:    chain,
		deployer: deployer,
		store:    store,
		logger:   logger,
		busy:     make(map[common.Address]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// ComputeContractAddress returns the CREATE2 address a wallet owned by key
// gets when deployed by factory.
func ComputeContractAddress(factory, key common.Address, proxyInitCode []byte) common.Address {
	salt := crypto.Keccak256Hash(key.Bytes())
	return crypto.CreateAddress2(factory, salt, crypto.Keccak256(proxyInitCode))
}

// CreateFutureWallet generates a fresh key and returns the wallet it will own
// once deployed. The wallet is persisted so it survives restarts.
func (f *Factory) CreateFutureWallet(ctx context.Context) (*FutureWallet, error) {
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	signer := crypto.PubkeyToAddress(privateKey.PublicKey)
	contractAddress := ComputeContractAddress(f.config.FactoryAddress, signer, f.config.ProxyInitCode)

	record := &persistence.FutureWalletRecord{
		ContractAddress: persistence.NormalizeAddress(contractAddress.Hex()),
		PrivateKey:      hexutil.Encode(crypto.FromECDSA(privateKey)),
		FactoryAddress:  persistence.NormalizeAddress(f.config.FactoryAddress.Hex()),
		CreatedAt:       time.Now().Unix(),
	}
	if err := f.store.SaveFutureWallet(record); err != nil {
		return nil, fmt.Errorf("failed to persist future wallet: %w", err)
	}

	f.logger.Sugar().Infow("Future wallet created",
		"contractAddress", contractAddress.Hex(),
		"signer", signer.Hex(),
	)
	return newFutureWallet(f, contractAddress, privateKey, record), nil
}

// Restore returns every persisted wallet that has not been deployed yet.
func (f *Factory) Restore(ctx context.Context) ([]*FutureWallet, error) {
	records, err := f.store.ListFutureWallets()
	if err != nil {
		return nil, fmt.Errorf("failed to list future wallets: %w", err)
	}

	wallets := make([]*FutureWallet, 0, len(records))
	for _, record := range records {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(record.PrivateKey, "0x"))
		if err != nil {
			f.logger.Sugar().Warnw("Skipping future wallet with unreadable key",
				"contractAddress", record.ContractAddress,
				"error", err,
			)
			continue
		}
		wallet := newFutureWallet(f, common.HexToAddress(record.ContractAddress), privateKey, record)
		if record.FundedAmount != "" {
			amount, ok := new(big.Int).SetString(record.FundedAmount, 10)
			if ok {
				wallet.funding = &BalanceDetails{
					ContractAddress: wallet.ContractAddress,
					TokenAddress:    common.HexToAddress(record.FundedToken),
					Amount:          amount,
				}
			}
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

// Stop cancels every pending balance or deployment wait with context.Canceled.
func (f *Factory) Stop() {
	f.cancel()
}

func (f *Factory) claim(contractAddress common.Address) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.busy[contractAddress]; busy {
		return nil, sdkErrors.NewConcurrentDeployment()
	}
	f.busy[contractAddress] = struct{}{}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.busy, contractAddress)
	}, nil
}

// bind derives a context that also ends when the factory stops.
func (f *Factory) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// cancelled maps a finished context to the error reported to callers.
func (f *Factory) cancelled(ctx context.Context) error {
	if f.ctx.Err() != nil {
		return context.Canceled
	}
	return ctx.Err()
}

func (f *Factory) isWhitelisted(code []byte) bool {
	codeHash := crypto.Keccak256Hash(code)
	for _, accepted := range f.config.ContractWhiteList.Proxy {
		if accepted == codeHash {
			return true
		}
	}
	return false
}

// meetsThreshold treats a missing minimal amount as "any positive balance".
func meetsThreshold(balance *big.Int, token types.SupportedToken) bool {
	if balance == nil {
		return false
	}
	if token.MinimalAmount == nil || token.MinimalAmount.Sign() == 0 {
		return balance.Sign() > 0
	}
	return balance.Cmp(token.MinimalAmount) >= 0
}

// privateKeyAddress is the signer that owns a future wallet.
func privateKeyAddress(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}
