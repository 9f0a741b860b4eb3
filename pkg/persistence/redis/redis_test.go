package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireRedis connects to REDIS_TEST_ADDRESS or skips the test.
// Each test gets its own key prefix so runs do not collide.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	rp, err := NewRedisPersistence(&RedisConfig{
		Address:   addr,
		DB:        15,
		KeyPrefix: fmt.Sprintf("test-%s-%d:", t.Name(), time.Now().UnixNano()),
	}, testLogger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = rp.Close() })
	return rp
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	assert.Error(t, err)
}

func TestRedisPersistence_ObserverState(t *testing.T) {
	rp := requireRedis(t)

	state, err := rp.LoadObserverState()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, rp.SaveObserverState(&persistence.ObserverState{LastBlock: 10, Step: 3}))

	state, err = rp.LoadObserverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(10), state.LastBlock)
	assert.Equal(t, uint64(3), state.Step)
}

func TestRedisPersistence_FutureWallets(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xAA", CreatedAt: 2}))
	require.NoError(t, rp.SaveFutureWallet(&persistence.FutureWalletRecord{ContractAddress: "0xbb", CreatedAt: 1}))

	list, err := rp.ListFutureWallets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xbb", list[0].ContractAddress)

	require.NoError(t, rp.DeleteFutureWallet("0xaa"))

	w, err := rp.LoadFutureWallet("0xAA")
	require.NoError(t, err)
	assert.Nil(t, w)

	list, err = rp.ListFutureWallets()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRedisPersistence_HealthCheckAndClose(t *testing.T) {
	rp := requireRedis(t)

	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close())
	assert.Error(t, rp.HealthCheck())
}
