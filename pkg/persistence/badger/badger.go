package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const (
	keyObserverState     = "observer:cursor"
	keyPrefixWallet      = "wallet:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval = 5 * time.Minute
)

// BadgerPersistence is a disk-backed IWalletPersistence.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerPersistence opens (or creates) a Badger database at dataPath with
// SyncWrites enabled and starts background value-log GC.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// get returns a copy of the value at key, or nil if absent.
func (b *BadgerPersistence) get(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	return data, err
}

func (b *BadgerPersistence) set(key string, data []byte) error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// SaveObserverState persists the observer cursor.
func (b *BadgerPersistence) SaveObserverState(state *persistence.ObserverState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil ObserverState")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalObserverState(state)
	if err != nil {
		return fmt.Errorf("failed to marshal ObserverState: %w", err)
	}

	return b.set(keyObserverState, data)
}

// LoadObserverState retrieves the observer cursor.
func (b *BadgerPersistence) LoadObserverState() (*persistence.ObserverState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := b.get(keyObserverState)
	if err != nil {
		return nil, fmt.Errorf("failed to load ObserverState: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	state, err := persistence.UnmarshalObserverState(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ObserverState: %w", err)
	}
	return state, nil
}

// SaveFutureWallet persists a counterfactual wallet.
func (b *BadgerPersistence) SaveFutureWallet(wallet *persistence.FutureWalletRecord) error {
	if wallet == nil {
		return fmt.Errorf("cannot save nil FutureWalletRecord")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalFutureWalletRecord(wallet)
	if err != nil {
		return err
	}

	return b.set(keyPrefixWallet+persistence.NormalizeAddress(wallet.ContractAddress), data)
}

// LoadFutureWallet retrieves a counterfactual wallet by contract address.
func (b *BadgerPersistence) LoadFutureWallet(contractAddress string) (*persistence.FutureWalletRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := b.get(keyPrefixWallet + persistence.NormalizeAddress(contractAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to load FutureWalletRecord: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	wallet, err := persistence.UnmarshalFutureWalletRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal FutureWalletRecord: %w", err)
	}
	return wallet, nil
}

// ListFutureWallets returns all wallets sorted by creation time.
func (b *BadgerPersistence) ListFutureWallets() ([]*persistence.FutureWalletRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	wallets := []*persistence.FutureWalletRecord{}

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixWallet)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			wallet, err := persistence.UnmarshalFutureWalletRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal FutureWalletRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			wallets = append(wallets, wallet)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list FutureWalletRecords: %w", err)
	}

	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})

	return wallets, nil
}

// DeleteFutureWallet removes a wallet.
func (b *BadgerPersistence) DeleteFutureWallet(contractAddress string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	key := keyPrefixWallet + persistence.NormalizeAddress(contractAddress)
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close stops GC and closes the database. Idempotent.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the database is readable and initialized.
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
