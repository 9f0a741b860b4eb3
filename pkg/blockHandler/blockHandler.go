package blockHandler

import (
	"context"

	chainPoller "github.com/Layr-Labs/chain-indexer/pkg/chainPollers"
	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"go.uber.org/zap"
)

const defaultChannelCapacity = 100

// IBlockHandler receives blocks from a chain-indexer poller and hands them to
// a single listener, typically the blockchain observer.
type IBlockHandler interface {
	chainPoller.IBlockHandler
	Listen(ctx context.Context, onBlock func(*ethereum.EthereumBlock), onReorg func(blockNumber uint64))
}

type BlockHandler struct {
	BlockChannel chan *ethereum.EthereumBlock
	ReorgChannel chan uint64
	logger       *zap.Logger
}

var _ IBlockHandler = (*BlockHandler)(nil)

func NewBlockHandler(logger *zap.Logger) *BlockHandler {
	return NewBlockHandlerWithCapacity(defaultChannelCapacity, logger)
}

// NewBlockHandlerWithCapacity sizes the block buffer. Blocks arriving while the
// buffer is full are dropped; the observer scans by range so a dropped block
// only delays delivery until the next one.
func NewBlockHandlerWithCapacity(capacity int, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{
		BlockChannel: make(chan *ethereum.EthereumBlock, capacity),
		ReorgChannel: make(chan uint64, capacity),
		logger:       logger,
	}
}

// Listen dispatches buffered blocks and reorgs until ctx is done. onReorg may be nil.
func (h *BlockHandler) Listen(ctx context.Context, onBlock func(*ethereum.EthereumBlock), onReorg func(blockNumber uint64)) {
	for {
		select {
		case block := <-h.BlockChannel:
			h.logger.Sugar().Debugw("BlockHandler dispatching block", "blockNumber", block.Number.Value())
			onBlock(block)
		case blockNumber := <-h.ReorgChannel:
			h.logger.Sugar().Infow("BlockHandler dispatching reorg", "blockNumber", blockNumber)
			if onReorg != nil {
				onReorg(blockNumber)
			}
		case <-ctx.Done():
			h.logger.Sugar().Debug("BlockHandler listener exiting due to context done")
			return
		}
	}
}

func (h *BlockHandler) HandleBlock(ctx context.Context, block *ethereum.EthereumBlock) error {
	select {
	case h.BlockChannel <- block:
	case <-ctx.Done():
		h.logger.Sugar().Warnw("Context done before queueing block", "blockNumber", block.Number.Value())
	default:
		h.logger.Sugar().Warnw("Block channel is full, dropping block", "blockNumber", block.Number.Value())
	}
	return nil
}

// HandleLog is a no-op; wallet events are read by the observer's own range scan.
func (h *BlockHandler) HandleLog(ctx context.Context, logWithBlock *chainPoller.LogWithBlock) error {
	return nil
}

func (h *BlockHandler) HandleReorgBlock(ctx context.Context, blockNumber uint64) {
	select {
	case h.ReorgChannel <- blockNumber:
	case <-ctx.Done():
	default:
		h.logger.Sugar().Warnw("Reorg channel is full, dropping reorg", "blockNumber", blockNumber)
	}
}
