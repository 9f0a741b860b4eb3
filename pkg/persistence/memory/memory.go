package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IWalletPersistence.
//
// All data is lost when the process exits. Records are copied on the way in
// and out so callers cannot mutate stored state.
type MemoryPersistence struct {
	mu sync.RWMutex

	observerState *persistence.ObserverState

	// contract address (lowercase) -> record
	wallets map[string]*persistence.FutureWalletRecord

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		wallets: make(map[string]*persistence.FutureWalletRecord),
	}
}

// SaveObserverState persists the observer cursor.
func (m *MemoryPersistence) SaveObserverState(state *persistence.ObserverState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil ObserverState")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	copied := *state
	m.observerState = &copied
	return nil
}

// LoadObserverState retrieves the observer cursor.
func (m *MemoryPersistence) LoadObserverState() (*persistence.ObserverState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	if m.observerState == nil {
		return nil, nil
	}
	copied := *m.observerState
	return &copied, nil
}

// SaveFutureWallet persists a counterfactual wallet.
func (m *MemoryPersistence) SaveFutureWallet(wallet *persistence.FutureWalletRecord) error {
	if wallet == nil {
		return fmt.Errorf("cannot save nil FutureWalletRecord")
	}
	if wallet.ContractAddress == "" {
		return fmt.Errorf("cannot save FutureWalletRecord without contract address")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	copied := *wallet
	m.wallets[persistence.NormalizeAddress(wallet.ContractAddress)] = &copied
	return nil
}

// LoadFutureWallet retrieves a counterfactual wallet by contract address.
func (m *MemoryPersistence) LoadFutureWallet(contractAddress string) (*persistence.FutureWalletRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	wallet, exists := m.wallets[persistence.NormalizeAddress(contractAddress)]
	if !exists {
		return nil, nil
	}
	copied := *wallet
	return &copied, nil
}

// ListFutureWallets returns all wallets sorted by creation time.
func (m *MemoryPersistence) ListFutureWallets() ([]*persistence.FutureWalletRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	wallets := make([]*persistence.FutureWalletRecord, 0, len(m.wallets))
	for _, w := range m.wallets {
		copied := *w
		wallets = append(wallets, &copied)
	}

	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt == wallets[j].CreatedAt {
			return wallets[i].ContractAddress < wallets[j].ContractAddress
		}
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})

	return wallets, nil
}

// DeleteFutureWallet removes a wallet.
func (m *MemoryPersistence) DeleteFutureWallet(contractAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.wallets, persistence.NormalizeAddress(contractAddress))
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
