package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPersistence_ObserverState(t *testing.T) {
	mp := NewMemoryPersistence()

	state, err := mp.LoadObserverState()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, mp.SaveObserverState(&persistence.ObserverState{LastBlock: 100, Step: 50}))

	state, err = mp.LoadObserverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(100), state.LastBlock)

	// Mutating the returned copy does not affect stored state
	state.LastBlock = 1
	again, err := mp.LoadObserverState()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), again.LastBlock)

	assert.Error(t, mp.SaveObserverState(nil))
}

func TestMemoryPersistence_FutureWallets(t *testing.T) {
	mp := NewMemoryPersistence()

	require.NoError(t, mp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xBBB", CreatedAt: 2}))
	require.NoError(t, mp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xaaa", CreatedAt: 1}))

	loaded, err := mp.LoadFutureWallet("0xbbb")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(2), loaded.CreatedAt)

	list, err := mp.ListFutureWallets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xaaa", list[0].ContractAddress)

	require.NoError(t, mp.DeleteFutureWallet("0xBBB"))
	require.NoError(t, mp.DeleteFutureWallet("0xBBB"))

	missing, err := mp.LoadFutureWallet("0xbbb")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, mp.SaveFutureWallet(&persistence.FutureWalletRecord{}))
}

func TestMemoryPersistence_Closed(t *testing.T) {
	mp := NewMemoryPersistence()
	require.NoError(t, mp.HealthCheck())
	require.NoError(t, mp.Close())
	require.NoError(t, mp.Close())

	assert.Error(t, mp.HealthCheck())
	assert.Error(t, mp.SaveObserverState(&persistence.ObserverState{}))
	_, err := mp.LoadObserverState()
	assert.Error(t, err)
	_, err = mp.ListFutureWallets()
	assert.Error(t, err)
}

func TestMemoryPersistence_ConcurrentAccess(t *testing.T) {
	mp := NewMemoryPersistence()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("0x%040d", i)
			assert.NoError(t, mp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: addr, CreatedAt: int64(i)}))
			assert.NoError(t, mp.SaveObserverState(&persistence.ObserverState{LastBlock: uint64(i)}))
		}(i)
	}
	wg.Wait()

	list, err := mp.ListFutureWallets()
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
