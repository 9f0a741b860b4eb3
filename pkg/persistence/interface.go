package persistence

// IObserverPersistence stores the blockchain observer cursor.
type IObserverPersistence interface {
	// SaveObserverState persists the observer cursor. Overwrites any existing state.
	SaveObserverState(state *ObserverState) error

	// LoadObserverState retrieves the observer cursor.
	// Returns nil state if none exists (first run), error only on storage failure.
	LoadObserverState() (*ObserverState, error)
}

// IFutureWalletPersistence stores counterfactual wallets until they are deployed.
type IFutureWalletPersistence interface {
	// SaveFutureWallet persists a counterfactual wallet indexed by its contract address.
	// Overwrites any existing record for the same address.
	SaveFutureWallet(wallet *FutureWalletRecord) error

	// LoadFutureWallet retrieves a counterfactual wallet by contract address.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadFutureWallet(contractAddress string) (*FutureWalletRecord, error)

	// ListFutureWallets returns all persisted wallets sorted by creation time (ascending).
	ListFutureWallets() ([]*FutureWalletRecord, error)

	// DeleteFutureWallet removes a wallet once it is deployed.
	// Idempotent - returns nil if the wallet doesn't exist.
	DeleteFutureWallet(contractAddress string) error
}

// IWalletPersistence persists SDK state across restarts.
// All implementations must be thread-safe.
type IWalletPersistence interface {
	IObserverPersistence
	IFutureWalletPersistence

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
