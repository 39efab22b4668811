// Package storage provides the key-value backends editor documents are
// persisted to. Every backend stores opaque string values under string keys.
package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/config"
)

// Key prefixes.
const (
	AppPrefix        = "app:"
	CanvasDarkPrefix = "canvasDark:"
)

// AppKey is the key an editor document is stored under.
func AppKey(projectID string) string {
	return AppPrefix + projectID
}

// CanvasDarkKey is the key of the per-project canvas dark-mode flag.
func CanvasDarkKey(projectID string) string {
	return CanvasDarkPrefix + projectID
}

// ProjectID extracts the project id from an app key.
func ProjectID(key string) (string, bool) {
	if !strings.HasPrefix(key, AppPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, AppPrefix), true
}

// KV is a blocking key-value store.
type KV interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// List returns every key with the given prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Backend is a KV that owns resources and can report its health.
type Backend interface {
	KV
	HealthCheck(ctx context.Context) error
	Close() error
}

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", config.DriverMemory:
		logger.Info("storage: using in-memory backend")
		return NewMemory(), nil

	case config.DriverBolt:
		s, err := OpenBolt(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("storage: opened bolt database", zap.String("path", cfg.Path))
		return s, nil

	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("storage: opened sqlite database", zap.String("path", cfg.Path))
		return s, nil

	case config.DriverRedis:
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, fmt.Errorf("storage: environment variable %s is not set", cfg.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("storage: redis ping: %w", err)
		}
		logger.Info("storage: connected to redis", zap.String("addr", addr), zap.Int("db", cfg.DB))
		return NewRedisStore(client), nil

	case config.DriverPostgres:
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("storage: environment variable %s is not set", cfg.DSNEnv)
		}
		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: parse postgres dsn: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			poolCfg.MinConns = int32(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("storage: connect postgres: %w", err)
		}
		s := NewPgStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("storage: connected to postgres")
		return s, nil
	}

	return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
}
