package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKConfig_Validate(t *testing.T) {
	valid := func() *SDKConfig {
		return NewDefaultSDKConfig("http://localhost:3311", "http://localhost:8545", ChainId_EthereumAnvil)
	}

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	tests := []struct {
		name        string
		mutate      func(c *SDKConfig)
		expectedErr string
	}{
		{
			name:        "missing relayer url",
			mutate:      func(c *SDKConfig) { c.RelayerURL = "" },
			expectedErr: "relayerUrl",
		},
		{
			name:        "relative rpc url",
			mutate:      func(c *SDKConfig) { c.RpcUrl = "localhost" },
			expectedErr: "rpcUrl",
		},
		{
			name:        "zero step",
			mutate:      func(c *SDKConfig) { c.Observer.Step = 0 },
			expectedErr: "observer.step",
		},
		{
			name:        "zero mine timeout",
			mutate:      func(c *SDKConfig) { c.Execution.MineTimeout = 0 },
			expectedErr: "execution.mineTimeout",
		},
		{
			name:        "proxy init code not hex",
			mutate:      func(c *SDKConfig) { c.FutureWallet.ProxyInitCode = "6080" },
			expectedErr: "futureWallet.proxyInitCode",
		},
		{
			name:        "badger without path",
			mutate:      func(c *SDKConfig) { c.Persistence.Type = PersistenceType_Badger },
			expectedErr: "persistence.badgerDataPath",
		},
		{
			name:        "redis without address",
			mutate:      func(c *SDKConfig) { c.Persistence.Type = PersistenceType_Redis },
			expectedErr: "persistence.redisAddress",
		},
		{
			name:        "unknown persistence",
			mutate:      func(c *SDKConfig) { c.Persistence.Type = "sqlite" },
			expectedErr: "persistence.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		c := valid()
		c.RelayerURL = ""
		c.Observer.Step = 0
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relayerUrl")
		assert.Contains(t, err.Error(), "observer.step")
	})
}

func TestGetDefaultPollIntervalForChain(t *testing.T) {
	assert.Equal(t, time.Second, GetDefaultPollIntervalForChain(ChainId_EthereumAnvil))
	assert.Equal(t, 12*time.Second, GetDefaultPollIntervalForChain(ChainId_EthereumMainnet))
	assert.Equal(t, 12*time.Second, GetDefaultPollIntervalForChain(ChainId(999)))
}
