package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyObserverState     = "walletsdk:observer:cursor"
	keyPrefixWallet      = "walletsdk:wallet:"
	keySchemaVersion     = "walletsdk:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no native prefix iteration, so wallet addresses are tracked in a set.
	keySetWallets = "walletsdk:wallets:index"

	operationTimeout = 5 * time.Second
)

// RedisPersistence is a Redis-backed IWalletPersistence, suitable when several
// SDK processes share the same observer cursor and wallet records.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "tenant-a:" yields
	// "tenant-a:walletsdk:observer:cursor".
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and initializes the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) walletKey(contractAddress string) string {
	return r.prefixKey(keyPrefixWallet + persistence.NormalizeAddress(contractAddress))
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// SaveObserverState persists the observer cursor.
func (r *RedisPersistence) SaveObserverState(state *persistence.ObserverState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil ObserverState")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalObserverState(state)
	if err != nil {
		return fmt.Errorf("failed to marshal ObserverState: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefixKey(keyObserverState), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save ObserverState: %w", err)
	}
	return nil
}

// LoadObserverState retrieves the observer cursor.
func (r *RedisPersistence) LoadObserverState() (*persistence.ObserverState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyObserverState)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ObserverState: %w", err)
	}

	state, err := persistence.UnmarshalObserverState(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ObserverState: %w", err)
	}
	return state, nil
}

// SaveFutureWallet persists a counterfactual wallet and indexes its address.
func (r *RedisPersistence) SaveFutureWallet(wallet *persistence.FutureWalletRecord) error {
	if wallet == nil {
		return fmt.Errorf("cannot save nil FutureWalletRecord")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalFutureWalletRecord(wallet)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.walletKey(wallet.ContractAddress), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetWallets), persistence.NormalizeAddress(wallet.ContractAddress))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save FutureWalletRecord: %w", err)
	}
	return nil
}

// LoadFutureWallet retrieves a counterfactual wallet by contract address.
func (r *RedisPersistence) LoadFutureWallet(contractAddress string) (*persistence.FutureWalletRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.walletKey(contractAddress)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load FutureWalletRecord: %w", err)
	}

	wallet, err := persistence.UnmarshalFutureWalletRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal FutureWalletRecord: %w", err)
	}
	return wallet, nil
}

// ListFutureWallets returns all wallets sorted by creation time.
func (r *RedisPersistence) ListFutureWallets() ([]*persistence.FutureWalletRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	indexKey := r.prefixKey(keySetWallets)
	addresses, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet addresses: %w", err)
	}

	wallets := []*persistence.FutureWalletRecord{}
	if len(addresses) == 0 {
		return wallets, nil
	}

	keys := make([]string, len(addresses))
	for i, addr := range addresses {
		keys[i] = r.walletKey(addr)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch FutureWalletRecords: %w", err)
	}

	for i, val := range values {
		if val == nil {
			// stale index entry
			r.client.SRem(ctx, indexKey, addresses[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for FutureWalletRecord", "key", keys[i])
			continue
		}

		wallet, err := persistence.UnmarshalFutureWalletRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal FutureWalletRecord, skipping",
				"key", keys[i], "error", err)
			continue
		}
		wallets = append(wallets, wallet)
	}

	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt == wallets[j].CreatedAt {
			return wallets[i].ContractAddress < wallets[j].ContractAddress
		}
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})

	return wallets, nil
}

// DeleteFutureWallet removes a wallet and its index entry.
func (r *RedisPersistence) DeleteFutureWallet(contractAddress string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.walletKey(contractAddress))
	pipe.SRem(ctx, r.prefixKey(keySetWallets), persistence.NormalizeAddress(contractAddress))

	_, err := pipe.Exec(ctx)
	return err
}

// Close shuts down the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and verifies the schema version key exists.
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
