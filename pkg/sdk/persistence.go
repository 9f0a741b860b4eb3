package sdk

import (
	"fmt"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence/badger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence/memory"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/persistence/redis"
	"go.uber.org/zap"
)

// NewPersistence opens the store selected by cfg.Type.
func NewPersistence(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.IWalletPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("persistence config cannot be nil")
	}

	switch cfg.Type {
	case config.PersistenceType_Memory, "":
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceType_Badger:
		return badger.NewBadgerPersistence(cfg.BadgerDataPath, logger)
	case config.PersistenceType_Redis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
