package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/core/database"
	"github.com/frahmantamala/civic-complaints/internal/identifier"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func initDB(cfg internal.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB, logger *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}

// initRedis returns nil when no address is configured.
func initRedis(ctx context.Context, cfg internal.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func newSequencer(cfg internal.IdentifierConfig, rdb *redis.Client) (identifier.Sequencer, error) {
	switch cfg.Backend {
	case internal.SequenceBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("identifier backend %q needs a redis connection", cfg.Backend)
		}
		return identifier.NewRedisSequencer(rdb, cfg.Prefix), nil
	default:
		return identifier.NewTableSequencer(cfg.Prefix), nil
	}
}
