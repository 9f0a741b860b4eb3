package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for SDK configuration
const (
	EnvRelayerURL            = "WALLET_SDK_RELAYER_URL"
	EnvRPCURL                = "WALLET_SDK_RPC_URL"
	EnvChainID               = "WALLET_SDK_CHAIN_ID"
	EnvVerbose               = "WALLET_SDK_VERBOSE"
	EnvObserverStep          = "WALLET_SDK_OBSERVER_STEP"
	EnvObserverPollInterval  = "WALLET_SDK_OBSERVER_POLL_INTERVAL"
	EnvMineTimeout           = "WALLET_SDK_MINE_TIMEOUT"
	EnvRequiredConfirmations = "WALLET_SDK_REQUIRED_CONFIRMATIONS"
	EnvProxyInitCode         = "WALLET_SDK_PROXY_INIT_CODE"
	EnvPersistenceType       = "WALLET_SDK_PERSISTENCE_TYPE"
	EnvBadgerDataPath        = "WALLET_SDK_BADGER_DATA_PATH"
	EnvRedisAddress          = "WALLET_SDK_REDIS_ADDRESS"
	EnvRedisPassword         = "WALLET_SDK_REDIS_PASSWORD"
	EnvRedisDB               = "WALLET_SDK_REDIS_DB"
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}

// GetDefaultPollIntervalForChain roughly matches block time so each poll sees a new block.
func GetDefaultPollIntervalForChain(chainId ChainId) time.Duration {
	switch chainId {
	case ChainId_EthereumMainnet, ChainId_EthereumSepolia:
		return 12 * time.Second
	case ChainId_EthereumAnvil:
		return 1 * time.Second
	default:
		return 12 * time.Second
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

type PersistenceType string

const (
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

type PersistenceConfig struct {
	Type           PersistenceType `json:"type" yaml:"type"`
	BadgerDataPath string          `json:"badgerDataPath" yaml:"badgerDataPath"`
	RedisAddress   string          `json:"redisAddress" yaml:"redisAddress"`
	RedisPassword  string          `json:"redisPassword" yaml:"redisPassword"`
	RedisDB        int             `json:"redisDb" yaml:"redisDb"`
	RedisKeyPrefix string          `json:"redisKeyPrefix" yaml:"redisKeyPrefix"`
}

type ObserverConfig struct {
	// Step is the number of blocks scanned per poll.
	Step uint64 `json:"step" yaml:"step"`
	// PollInterval is the delay between two scans.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	// RequestsPerSecond caps RPC calls made by the observer. Zero disables the limit.
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
}

type ExecutionConfig struct {
	PollInterval          time.Duration `json:"pollInterval" yaml:"pollInterval"`
	MineTimeout           time.Duration `json:"mineTimeout" yaml:"mineTimeout"`
	RequiredConfirmations uint64        `json:"requiredConfirmations" yaml:"requiredConfirmations"`
}

type FutureWalletConfig struct {
	BalancePollInterval time.Duration `json:"balancePollInterval" yaml:"balancePollInterval"`
	DeployTimeout       time.Duration `json:"deployTimeout" yaml:"deployTimeout"`
	// ProxyInitCode is the hex creation code of the wallet proxy, used to
	// compute counterfactual addresses.
	ProxyInitCode string `json:"proxyInitCode" yaml:"proxyInitCode"`
}

// SDKConfig is the complete configuration of an SDK instance.
type SDKConfig struct {
	RelayerURL string  `json:"relayerUrl" yaml:"relayerUrl"`
	RpcUrl     string  `json:"rpcUrl" yaml:"rpcUrl"`
	ChainID    ChainId `json:"chainId" yaml:"chainId"`
	Debug      bool    `json:"debug" yaml:"debug"`

	Observer     ObserverConfig     `json:"observer" yaml:"observer"`
	Execution    ExecutionConfig    `json:"execution" yaml:"execution"`
	FutureWallet FutureWalletConfig `json:"futureWallet" yaml:"futureWallet"`
	Persistence  PersistenceConfig  `json:"persistence" yaml:"persistence"`
}

const (
	DefaultObserverStep          = 100
	DefaultExecutionPollInterval = 1 * time.Second
	DefaultMineTimeout           = 10 * time.Minute
	DefaultRequiredConfirmations = 1
	DefaultBalancePollInterval   = 1 * time.Second
	DefaultDeployTimeout         = 10 * time.Minute
)

// NewDefaultSDKConfig returns a config with every tunable at its default value.
func NewDefaultSDKConfig(relayerURL, rpcURL string, chainId ChainId) *SDKConfig {
	return &SDKConfig{
		RelayerURL: relayerURL,
		RpcUrl:     rpcURL,
		ChainID:    chainId,
		Observer: ObserverConfig{
			Step:         DefaultObserverStep,
			PollInterval: GetDefaultPollIntervalForChain(chainId),
		},
		Execution: ExecutionConfig{
			PollInterval:          DefaultExecutionPollInterval,
			MineTimeout:           DefaultMineTimeout,
			RequiredConfirmations: DefaultRequiredConfirmations,
		},
		FutureWallet: FutureWalletConfig{
			BalancePollInterval: DefaultBalancePollInterval,
			DeployTimeout:       DefaultDeployTimeout,
		},
		Persistence: PersistenceConfig{
			Type: PersistenceType_Memory,
		},
	}
}

func validateURL(path *field.Path, value string) *field.Error {
	if value == "" {
		return field.Required(path, "url is required")
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return field.Invalid(path, value, "must be an absolute URL")
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *SDKConfig) Validate() error {
	var allErrors field.ErrorList

	if err := validateURL(field.NewPath("relayerUrl"), c.RelayerURL); err != nil {
		allErrors = append(allErrors, err)
	}
	if err := validateURL(field.NewPath("rpcUrl"), c.RpcUrl); err != nil {
		allErrors = append(allErrors, err)
	}
	if c.ChainID == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	}

	observer := field.NewPath("observer")
	if c.Observer.Step == 0 {
		allErrors = append(allErrors, field.Invalid(observer.Child("step"), c.Observer.Step, "must be greater than 0"))
	}
	if c.Observer.PollInterval <= 0 {
		allErrors = append(allErrors, field.Invalid(observer.Child("pollInterval"), c.Observer.PollInterval.String(), "must be positive"))
	}
	if c.Observer.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(observer.Child("requestsPerSecond"), c.Observer.RequestsPerSecond, "must not be negative"))
	}

	execution := field.NewPath("execution")
	if c.Execution.PollInterval <= 0 {
		allErrors = append(allErrors, field.Invalid(execution.Child("pollInterval"), c.Execution.PollInterval.String(), "must be positive"))
	}
	if c.Execution.MineTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(execution.Child("mineTimeout"), c.Execution.MineTimeout.String(), "must be positive"))
	}

	futureWallet := field.NewPath("futureWallet")
	if c.FutureWallet.BalancePollInterval <= 0 {
		allErrors = append(allErrors, field.Invalid(futureWallet.Child("balancePollInterval"), c.FutureWallet.BalancePollInterval.String(), "must be positive"))
	}
	if c.FutureWallet.DeployTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(futureWallet.Child("deployTimeout"), c.FutureWallet.DeployTimeout.String(), "must be positive"))
	}
	if c.FutureWallet.ProxyInitCode != "" {
		if _, err := hexutil.Decode(c.FutureWallet.ProxyInitCode); err != nil {
			allErrors = append(allErrors, field.Invalid(futureWallet.Child("proxyInitCode"), c.FutureWallet.ProxyInitCode, "must be 0x-prefixed hex"))
		}
	}

	persistence := field.NewPath("persistence")
	switch c.Persistence.Type {
	case PersistenceType_Memory, "":
	case PersistenceType_Badger:
		if c.Persistence.BadgerDataPath == "" {
			allErrors = append(allErrors, field.Required(persistence.Child("badgerDataPath"), "required for badger persistence"))
		}
	case PersistenceType_Redis:
		if c.Persistence.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(persistence.Child("redisAddress"), "required for redis persistence"))
		}
		if c.Persistence.RedisDB < 0 || c.Persistence.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(persistence.Child("redisDb"), c.Persistence.RedisDB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(persistence.Child("type"), c.Persistence.Type,
			[]PersistenceType{PersistenceType_Memory, PersistenceType_Badger, PersistenceType_Redis}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
