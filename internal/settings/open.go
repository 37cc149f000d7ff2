package settings

import (
	"fmt"

	"github.com/MrSnakeDoc/lemcache/internal/config"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/redis"
)

// Open builds the backend selected by cfg.SettingsBackend.
// The redis backend blocks until Redis answers or RedisConnectTimeout elapses.
func Open(cfg *config.Config, log logger.Logger) (Store, error) {
	switch cfg.SettingsBackend {
	case config.BackendRedis:
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil

	case config.BackendSQLite:
		log.Info("opening sqlite settings store", logger.String("path", cfg.SQLitePath))
		return OpenSQLite(cfg.SQLitePath)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.SettingsBackend)
	}
}
