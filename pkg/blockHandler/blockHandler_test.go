package blockHandler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBlock(number uint64) *ethereum.EthereumBlock {
	return &ethereum.EthereumBlock{
		Number:    ethereum.EthereumQuantity(number),
		Hash:      ethereum.EthereumHexString("0x123"),
		Timestamp: ethereum.EthereumQuantity(time.Now().Unix()),
	}
}

func Test_BlockHandler(t *testing.T) {
	t.Run("BlockOrdering", func(t *testing.T) {
		bh := NewBlockHandler(zap.NewNop())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		expected := []uint64{1, 2, 3, 5, 10, 15}
		for _, n := range expected {
			require.NoError(t, bh.HandleBlock(ctx, testBlock(n)))
		}

		var mu sync.Mutex
		var received []uint64
		done := make(chan struct{})

		go bh.Listen(ctx, func(block *ethereum.EthereumBlock) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, block.Number.Value())
			if len(received) == len(expected) {
				close(done)
			}
		}, nil)

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatal("timed out waiting for blocks")
		}

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, expected, received)
	})

	t.Run("ChannelFullDropsBlocks", func(t *testing.T) {
		bh := NewBlockHandlerWithCapacity(3, zap.NewNop())
		ctx := context.Background()

		for i := 0; i < 10; i++ {
			require.NoError(t, bh.HandleBlock(ctx, testBlock(uint64(i))))
		}
		assert.Len(t, bh.BlockChannel, 3)
	})

	t.Run("ReorgsAreForwarded", func(t *testing.T) {
		bh := NewBlockHandler(zap.NewNop())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		reorgs := make(chan uint64, 1)
		go bh.Listen(ctx, func(*ethereum.EthereumBlock) {}, func(blockNumber uint64) {
			reorgs <- blockNumber
		})

		bh.HandleReorgBlock(ctx, 42)

		select {
		case n := <-reorgs:
			assert.Equal(t, uint64(42), n)
		case <-ctx.Done():
			t.Fatal("timed out waiting for reorg")
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		bh := NewBlockHandler(zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())

		stopped := make(chan struct{})
		go func() {
			bh.Listen(ctx, func(*ethereum.EthereumBlock) {}, nil)
			close(stopped)
		}()

		cancel()

		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop after context cancellation")
		}
	})

	t.Run("HandleLogIsNoop", func(t *testing.T) {
		bh := NewBlockHandler(zap.NewNop())
		assert.NoError(t, bh.HandleLog(context.Background(), nil))
	})
}
