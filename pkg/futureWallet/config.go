package futureWallet

import (
	"fmt"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Config is everything the factory needs to compute, fund and deploy
// counterfactual wallets.
type Config struct {
	FactoryAddress    common.Address
	SupportedTokens   []types.SupportedToken
	ContractWhiteList types.ContractWhiteList
	ChainSpec         types.ChainSpec
	ProxyInitCode     []byte

	BalancePollInterval time.Duration
	DeployTimeout       time.Duration
}

// NewConfig combines the relayer's public config with local settings.
func NewConfig(relayerConfig *types.PublicRelayerConfig, cfg *config.FutureWalletConfig) (*Config, error) {
	if relayerConfig == nil || relayerConfig.FactoryAddress == (common.Address{}) {
		return nil, sdkErrors.NewMissingConfiguration()
	}
	if cfg == nil {
		return nil, fmt.Errorf("future wallet config cannot be nil")
	}

	initCode, err := hexutil.Decode(cfg.ProxyInitCode)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy init code: %w", err)
	}

	return &Config{
		FactoryAddress:      relayerConfig.FactoryAddress,
		SupportedTokens:     relayerConfig.SupportedTokens,
		ContractWhiteList:   relayerConfig.ContractWhiteList,
		ChainSpec:           relayerConfig.ChainSpec,
		ProxyInitCode:       initCode,
		BalancePollInterval: cfg.BalancePollInterval,
		DeployTimeout:       cfg.DeployTimeout,
	}, nil
}

func (c *Config) validate() error {
	if c.FactoryAddress == (common.Address{}) {
		return sdkErrors.NewMissingConfiguration()
	}
	if len(c.SupportedTokens) == 0 {
		return fmt.Errorf("at least one supported token is required")
	}
	if len(c.ProxyInitCode) == 0 {
		return fmt.Errorf("proxy init code is required")
	}
	if c.BalancePollInterval <= 0 {
		return fmt.Errorf("balance poll interval must be positive")
	}
	if c.DeployTimeout <= 0 {
		return fmt.Errorf("deploy timeout must be positive")
	}
	return nil
}
