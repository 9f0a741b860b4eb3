package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockHandler"
	"go.uber.org/zap"
)

// MockChainPoller feeds blocks to block handlers on demand instead of polling
// an RPC node. When paired with a FakeChain, emitted blocks follow its head.
type MockChainPoller struct {
	blockHandlers []blockHandler.IBlockHandler
	chain         *FakeChain
	logger        *zap.Logger
	currentBlock  uint64
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
}

func NewMockChainPoller(
	blockHandlers []blockHandler.IBlockHandler,
	chain *FakeChain,
	logger *zap.Logger,
) *MockChainPoller {
	return &MockChainPoller{
		blockHandlers: blockHandlers,
		chain:         chain,
		logger:        logger,
	}
}

func (m *MockChainPoller) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	return nil
}

func (m *MockChainPoller) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// EmitBlock mines one block on the paired chain (if any) and broadcasts it.
func (m *MockChainPoller) EmitBlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.chain != nil {
		m.chain.MineBlocks(1)
		m.currentBlock = m.chain.Head()
	} else {
		m.currentBlock++
	}
	return m.emitLocked(m.currentBlock)
}

// EmitBlockAtNumber broadcasts a block with a specific number without touching the chain.
func (m *MockChainPoller) EmitBlockAtNumber(blockNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentBlock = blockNumber
	return m.emitLocked(blockNumber)
}

// EmitReorg notifies handlers that blocks from blockNumber onwards were replaced.
func (m *MockChainPoller) EmitReorg(blockNumber uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return
	}
	for _, handler := range m.blockHandlers {
		handler.HandleReorgBlock(m.ctx, blockNumber)
	}
}

func (m *MockChainPoller) GetCurrentBlock() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBlock
}

func (m *MockChainPoller) emitLocked(blockNumber uint64) error {
	if m.ctx == nil {
		return fmt.Errorf("mock chain poller not started")
	}

	block := &ethereum.EthereumBlock{
		Number:       ethereum.EthereumQuantity(blockNumber),
		Hash:         ethereum.EthereumHexString(fmt.Sprintf("0x%064x", blockNumber)),
		ParentHash:   ethereum.EthereumHexString(fmt.Sprintf("0x%064x", blockNumber-1)),
		Timestamp:    ethereum.EthereumQuantity(time.Now().Unix()),
		Transactions: []*ethereum.EthereumTransaction{},
	}

	for i, handler := range m.blockHandlers {
		if err := handler.HandleBlock(m.ctx, block); err != nil {
			m.logger.Sugar().Warnw("Failed to send block to handler", "blockNumber", blockNumber, "handler", i, "error", err)
		}
	}
	return nil
}
