package persistence

import "strings"

// ObserverState is the blockchain observer cursor.
type ObserverState struct {
	// LastBlock is the first block the next scan will read.
	LastBlock uint64 `json:"lastBlock"`

	// Step is the number of blocks read per scan.
	Step uint64 `json:"step"`

	// UpdatedAt is the Unix timestamp of the last successful scan.
	UpdatedAt int64 `json:"updatedAt"`
}

// FutureWalletRecord is a counterfactual wallet that has not been deployed yet.
type FutureWalletRecord struct {
	// ContractAddress is the CREATE2 address, lowercase hex.
	ContractAddress string `json:"contractAddress"`

	// PrivateKey is the hex-encoded key owning the wallet.
	PrivateKey string `json:"privateKey"`

	// FactoryAddress is the factory the address was computed against.
	FactoryAddress string `json:"factoryAddress"`

	// FundedToken and FundedAmount are set once a balance satisfied the threshold.
	FundedToken  string `json:"fundedToken,omitempty"`
	FundedAmount string `json:"fundedAmount,omitempty"`

	// EnsName is set when deployment was requested.
	EnsName string `json:"ensName,omitempty"`

	CreatedAt int64 `json:"createdAt"`
}

// NormalizeAddress is the key format used by every backend.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
