package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type SupportedToken struct {
	Address       common.Address `json:"address"`
	Symbol        string         `json:"symbol,omitempty"`
	Name          string         `json:"name,omitempty"`
	MinimalAmount *big.Int       `json:"minimalAmount"`
}

// ContractWhiteList holds keccak256 hashes of accepted deployed bytecode.
type ContractWhiteList struct {
	WalletMaster []common.Hash `json:"wallet"`
	Proxy        []common.Hash `json:"proxy"`
}

type ChainSpec struct {
	EnsAddress common.Address `json:"ensAddress"`
	ChainID    uint64         `json:"chainId"`
	Name       string         `json:"name"`
}

// PublicRelayerConfig is what GET /config returns.
type PublicRelayerConfig struct {
	ChainSpec         ChainSpec         `json:"chainSpec"`
	SupportedTokens   []SupportedToken  `json:"supportedTokens"`
	FactoryAddress    common.Address    `json:"factoryAddress"`
	ContractWhiteList ContractWhiteList `json:"contractWhiteList"`
	EnsRegistrars     []string          `json:"ensRegistrars"`
}

// DeployArgs is the body of a counterfactual deployment request.
type DeployArgs struct {
	PublicKey common.Address `json:"publicKey"`
	EnsName   string         `json:"ensName"`
	GasPrice  string         `json:"gasPrice"`
	Signature string         `json:"signature"`
}

// Notification and DeviceInfo are passed through from the relayer untouched.
type DeviceInfo struct {
	IPAddress string `json:"ipAddress"`
	Name      string `json:"name"`
	City      string `json:"city"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
	Time      string `json:"time"`
}

type Notification struct {
	ID         int        `json:"id"`
	Key        string     `json:"key"`
	WalletAddr string     `json:"walletContractAddress"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
}

// GetAuthorisationRequest asks the relayer for pending connection requests of a wallet.
type GetAuthorisationRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	Signature       string         `json:"signature"`
}

// CancelAuthorisationRequest withdraws a pending connection request for a key.
type CancelAuthorisationRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	Key             common.Address `json:"key"`
	Signature       string         `json:"signature"`
}
