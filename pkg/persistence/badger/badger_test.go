package badger

import (
	"testing"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence_ObserverState(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	state, err := bp.LoadObserverState()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, bp.SaveObserverState(&persistence.ObserverState{LastBlock: 1200, Step: 50, UpdatedAt: 99}))

	state, err = bp.LoadObserverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(1200), state.LastBlock)
	assert.Equal(t, uint64(50), state.Step)
	assert.Equal(t, int64(99), state.UpdatedAt)
}

func TestBadgerPersistence_FutureWallets(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xBEEF", PrivateKey: "0x02", CreatedAt: 20}))
	require.NoError(t, bp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xcafe", PrivateKey: "0x01", CreatedAt: 10}))

	w, err := bp.LoadFutureWallet("0xbeef")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "0x02", w.PrivateKey)

	list, err := bp.ListFutureWallets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xcafe", list[0].ContractAddress)
	assert.Equal(t, "0xBEEF", list[1].ContractAddress)

	require.NoError(t, bp.DeleteFutureWallet("0xBeEf"))
	w, err = bp.LoadFutureWallet("0xbeef")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestBadgerPersistence_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	bp := newTestPersistence(t, dir)
	require.NoError(t, bp.SaveObserverState(&persistence.ObserverState{LastBlock: 77, Step: 5}))
	require.NoError(t, bp.Close())

	reopened := newTestPersistence(t, dir)
	defer func() { _ = reopened.Close() }()

	state, err := reopened.LoadObserverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(77), state.LastBlock)
}

func TestBadgerPersistence_Closed(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	require.NoError(t, bp.HealthCheck())
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())

	assert.Error(t, bp.HealthCheck())
	assert.Error(t, bp.SaveObserverState(&persistence.ObserverState{}))
	_, err := bp.LoadFutureWallet("0x1")
	assert.Error(t, err)
}
