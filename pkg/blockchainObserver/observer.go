package blockchainObserver

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockHandler"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	goEthereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Cursor is the observer's scan position. LastBlock is the first block the
// next scan reads; Step is how far past it a single scan reaches.
type Cursor struct {
	LastBlock uint64
	Step      uint64
}

// Observer polls the chain for wallet key events and delivers them to subscribers.
type Observer struct {
	chain        blockchain.IChainReader
	store        persistence.IObserverPersistence
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       *zap.Logger

	// deliverMu serializes scans including callback delivery. scanMu guards
	// the cursor and is never held while callbacks run.
	deliverMu   sync.Mutex
	scanMu      sync.Mutex
	cursor      Cursor
	initialized bool

	subsMu        sync.RWMutex
	subscriptions map[uint64]*Subscription
	nextID        uint64

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewObserver creates an observer. store may be nil; when it holds a cursor
// the observer resumes from it.
func NewObserver(
	cfg *config.ObserverConfig,
	chain blockchain.IChainReader,
	store persistence.IObserverPersistence,
	logger *zap.Logger,
) (*Observer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observer config cannot be nil")
	}
	if cfg.Step == 0 {
		return nil, fmt.Errorf("observer step must be greater than 0")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("observer poll interval must be positive")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain reader is required")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	o := &Observer{
		chain:         chain,
		store:         store,
		limiter:       rate.NewLimiter(limit, 1),
		pollInterval:  cfg.PollInterval,
		logger:        logger,
		cursor:        Cursor{Step: cfg.Step},
		subscriptions: make(map[uint64]*Subscription),
	}

	if store != nil {
		state, err := store.LoadObserverState()
		if err != nil {
			return nil, fmt.Errorf("failed to load observer state: %w", err)
		}
		if state != nil {
			o.cursor.LastBlock = state.LastBlock
			if state.Step > 0 {
				o.cursor.Step = state.Step
			}
			o.initialized = true
			logger.Sugar().Infow("Restored observer cursor", "lastBlock", state.LastBlock, "step", o.cursor.Step)
		}
	}

	return o, nil
}

// Subscribe registers callback for eventName ("KeyAdded" or "KeyRemoved")
// events matching filter.
func (o *Observer) Subscribe(eventName string, filter EventFilter, callback Callback) (*Subscription, error) {
	if _, ok := supportedEvents[eventName]; !ok {
		return nil, sdkErrors.NewInvalidEvent(eventName)
	}
	normalized, err := filter.normalize()
	if err != nil {
		return nil, err
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}

	o.subsMu.Lock()
	defer o.subsMu.Unlock()

	o.nextID++
	sub := &Subscription{
		id:        o.nextID,
		eventName: eventName,
		filter:    normalized,
		callback:  callback,
		observer:  o,
	}
	o.subscriptions[sub.id] = sub

	o.logger.Sugar().Debugw("Subscribed to wallet event",
		"event", eventName,
		"contract", normalized.ContractAddress,
		"key", normalized.Key,
	)
	return sub, nil
}

func (o *Observer) removeSubscription(id uint64) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	delete(o.subscriptions, id)
}

// SubscriptionCount returns the number of active subscriptions.
func (o *Observer) SubscriptionCount() int {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	return len(o.subscriptions)
}

// snapshot returns active subscriptions ordered by registration.
func (o *Observer) snapshot() []*Subscription {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()

	subs := make([]*Subscription, 0, len(o.subscriptions))
	for _, sub := range o.subscriptions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

// Configure resets the cursor. Step must be greater than zero.
func (o *Observer) Configure(lastBlock, step uint64) error {
	if step == 0 {
		return fmt.Errorf("observer step must be greater than 0")
	}

	o.scanMu.Lock()
	defer o.scanMu.Unlock()

	o.cursor = Cursor{LastBlock: lastBlock, Step: step}
	o.initialized = true
	o.persistCursor()
	return nil
}

// Cursor returns the current scan position.
func (o *Observer) Cursor() Cursor {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()
	return o.cursor
}

// Rewind moves the cursor back to blockNumber if it is already past it, so
// replaced blocks are scanned again.
func (o *Observer) Rewind(blockNumber uint64) {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()

	if o.cursor.LastBlock > blockNumber {
		o.logger.Sugar().Infow("Rewinding observer cursor", "from", o.cursor.LastBlock, "to", blockNumber)
		o.cursor.LastBlock = blockNumber
		o.persistCursor()
	}
}

func (o *Observer) persistCursor() {
	if o.store == nil {
		return
	}
	err := o.store.SaveObserverState(&persistence.ObserverState{
		LastBlock: o.cursor.LastBlock,
		Step:      o.cursor.Step,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		o.logger.Sugar().Warnw("Failed to persist observer cursor", "lastBlock", o.cursor.LastBlock, "error", err)
	}
}

func (o *Observer) head(ctx context.Context) (uint64, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	head, err := o.chain.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return head, nil
}

// Initialize starts an unconfigured observer at the chain head. It does
// nothing when the cursor was configured or restored.
func (o *Observer) Initialize(ctx context.Context) error {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()

	if o.initialized {
		return nil
	}
	head, err := o.head(ctx)
	if err != nil {
		return err
	}
	o.cursor.LastBlock = head
	o.initialized = true
	o.persistCursor()
	return nil
}

type decodedEvent struct {
	name     string
	contract string
	payload  EventPayload
}

type delivery struct {
	callback Callback
	payload  EventPayload
}

// FetchEvents scans [LastBlock, min(LastBlock+Step, head)] once and delivers
// matching events synchronously, in block then log-index order. The cursor
// moves past the scanned range only if the logs were fetched; it has already
// moved when callbacks run, so they may read or reset it. Callbacks must not
// call FetchEvents. Returns the number of callbacks invoked.
//
// Logs carrying a KeyAdded or KeyRemoved topic that fail to decode cannot be
// scanned again with a different outcome, so the cursor still advances and
// an InvalidEvent error reporting them is returned with the delivery count.
func (o *Observer) FetchEvents(ctx context.Context) (int, error) {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	from, to, deliveries, undecodable, err := o.scan(ctx)
	if err != nil {
		return 0, err
	}

	for _, d := range deliveries {
		d.callback(d.payload)
	}

	if len(deliveries) > 0 {
		o.logger.Sugar().Debugw("Delivered wallet events", "from", from, "to", to, "delivered", len(deliveries))
	}
	if len(undecodable) > 0 {
		return len(deliveries), fmt.Errorf("skipped %d undecodable logs in blocks %d-%d: %w",
			len(undecodable), from, to, sdkErrors.NewInvalidEvent(undecodable[0]))
	}
	return len(deliveries), nil
}

// scan reads one range, advances the cursor past it and returns the matched
// callbacks along with the event names of logs that failed to decode.
func (o *Observer) scan(ctx context.Context) (uint64, uint64, []delivery, []string, error) {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()

	head, err := o.head(ctx)
	if err != nil {
		return 0, 0, nil, nil, err
	}

	from := o.cursor.LastBlock
	if from > head {
		return from, from, nil, nil, nil
	}
	to := head
	if o.cursor.Step < head-from {
		to = from + o.cursor.Step
	}

	subs := o.snapshot()
	var events []decodedEvent
	var undecodable []string
	if len(subs) > 0 {
		events, undecodable, err = o.fetchRange(ctx, from, to, subs)
		if err != nil {
			return 0, 0, nil, nil, err
		}
	}

	var deliveries []delivery
	for _, event := range events {
		for _, sub := range subs {
			if sub.eventName != event.name || !sub.filter.matches(event.contract, event.payload) {
				continue
			}
			deliveries = append(deliveries, delivery{callback: sub.callback, payload: event.payload})
		}
	}

	o.cursor.LastBlock = to + 1
	o.initialized = true
	o.persistCursor()
	return from, to, deliveries, undecodable, nil
}

func (o *Observer) fetchRange(ctx context.Context, from, to uint64, subs []*Subscription) ([]decodedEvent, []string, error) {
	seen := make(map[common.Address]struct{})
	var addresses []common.Address
	for _, sub := range subs {
		addr := common.HexToAddress(sub.filter.ContractAddress)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}

	topics := make([]common.Hash, 0, len(supportedEvents))
	for name := range supportedEvents {
		topics = append(topics, blockchain.WalletABI.Events[name].ID)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	logs, err := o.chain.FilterLogs(ctx, goEthereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
		Topics:    [][]common.Hash{topics},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to filter logs for blocks %d-%d: %w", from, to, err)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	events := make([]decodedEvent, 0, len(logs))
	var undecodable []string
	for _, log := range logs {
		event, err := decodeLog(log)
		if err != nil {
			o.logger.Sugar().Warnw("Skipping undecodable log",
				"contract", log.Address.Hex(),
				"block", log.BlockNumber,
				"index", log.Index,
				"error", err,
			)
			undecodable = append(undecodable, eventNameOf(log))
			continue
		}
		events = append(events, event)
	}
	return events, undecodable, nil
}

func eventNameOf(log ethereumTypes.Log) string {
	if len(log.Topics) == 0 {
		return "unknown"
	}
	if event, err := blockchain.WalletABI.EventByID(log.Topics[0]); err == nil {
		return event.Name
	}
	return log.Topics[0].Hex()
}

func decodeLog(log ethereumTypes.Log) (decodedEvent, error) {
	if len(log.Topics) == 0 {
		return decodedEvent{}, fmt.Errorf("log has no topics")
	}
	event, err := blockchain.WalletABI.EventByID(log.Topics[0])
	if err != nil {
		return decodedEvent{}, err
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}

	fields := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return decodedEvent{}, fmt.Errorf("failed to parse %s topics: %w", event.Name, err)
	}

	key, ok := fields["key"].(common.Address)
	if !ok {
		return decodedEvent{}, fmt.Errorf("%s log has no key", event.Name)
	}
	purpose, ok := fields["purpose"].(*big.Int)
	if !ok || !purpose.IsUint64() {
		return decodedEvent{}, fmt.Errorf("%s log has invalid purpose", event.Name)
	}

	return decodedEvent{
		name:     event.Name,
		contract: strings.ToLower(log.Address.Hex()),
		payload: EventPayload{
			Key:     strings.ToLower(key.Hex()),
			Purpose: purpose.Uint64(),
		},
	}, nil
}

// Start begins polling every PollInterval until Stop or ctx is done. An
// observer without a cursor starts at the current head.
func (o *Observer) Start(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if o.cancel != nil {
		return fmt.Errorf("observer already started")
	}
	if err := o.Initialize(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.run(runCtx, o.done)

	o.logger.Sugar().Infow("Blockchain observer started", "pollInterval", o.pollInterval, "cursor", o.Cursor())
	return nil
}

func (o *Observer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.FetchEvents(ctx); err != nil && ctx.Err() == nil {
				o.logger.Sugar().Warnw("Observer poll failed", "error", err)
			}
		}
	}
}

// Stop halts polling and waits for an in-progress scan to finish. Idempotent.
func (o *Observer) Stop() {
	o.lifecycleMu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	o.logger.Sugar().Info("Blockchain observer stopped")
}

// ListenToBlocks drives scans from a block handler instead of a ticker: each
// received block triggers scans until the cursor passes it, and reorgs rewind
// the cursor. Blocks until ctx is done.
func (o *Observer) ListenToBlocks(ctx context.Context, handler blockHandler.IBlockHandler) {
	handler.Listen(ctx, func(block *ethereum.EthereumBlock) {
		target := block.Number.Value()
		for o.Cursor().LastBlock <= target {
			before := o.Cursor().LastBlock
			_, err := o.FetchEvents(ctx)
			if err != nil && ctx.Err() == nil {
				o.logger.Sugar().Warnw("Block-triggered scan failed", "block", target, "error", err)
			}
			if o.Cursor().LastBlock == before {
				return
			}
		}
	}, o.Rewind)
}
