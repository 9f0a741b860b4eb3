package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockHandler"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChainPoller(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	chain := NewFakeChain()
	chain.SetHead(10)

	bh := blockHandler.NewBlockHandler(testLogger)
	poller := NewMockChainPoller([]blockHandler.IBlockHandler{bh}, chain, testLogger)

	assert.Error(t, poller.EmitBlock(), "emitting before Start should fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, poller.Start(ctx))

	received := make(chan uint64, 10)
	reorgs := make(chan uint64, 1)
	go bh.Listen(ctx, func(block *ethereum.EthereumBlock) {
		received <- block.Number.Value()
	}, func(blockNumber uint64) {
		reorgs <- blockNumber
	})

	require.NoError(t, poller.EmitBlock())
	require.NoError(t, poller.EmitBlock())

	for _, expected := range []uint64{11, 12} {
		select {
		case n := <-received:
			assert.Equal(t, expected, n)
		case <-ctx.Done():
			t.Fatal("timed out waiting for block")
		}
	}
	assert.Equal(t, uint64(12), chain.Head())
	assert.Equal(t, uint64(12), poller.GetCurrentBlock())

	poller.EmitReorg(11)
	select {
	case n := <-reorgs:
		assert.Equal(t, uint64(11), n)
	case <-ctx.Done():
		t.Fatal("timed out waiting for reorg")
	}

	poller.Stop()
}
