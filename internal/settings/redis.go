package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefixSetting is the prefix for setting keys
	KeyPrefixSetting = "lemcache:setting:"
)

// SettingKey returns the Redis key for a setting.
// Example: lemcache:setting:default_post_sort:alice@lemmy.world:rust@programming.dev
func SettingKey(name Name, scope Scope) string {
	key := KeyPrefixSetting + string(name) + ":" + scope.UserHandle
	if scope.Community != "" {
		key += ":" + scope.Community
	}
	return key
}

// RedisStore keeps settings as JSON strings without TTL.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an already connected client. Close closes the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

func (s *RedisStore) Get(ctx context.Context, name Name, scope Scope, dst any) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, wrapErr("get", name, scope, err)
	}

	data, err := s.client.Get(ctx, SettingKey(name, scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, wrapErr("get", name, scope, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, wrapErr("decode", name, scope, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, name Name, value any, scope Scope) error {
	if err := scope.validate(); err != nil {
		return wrapErr("set", name, scope, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return wrapErr("encode", name, scope, err)
	}

	if err := s.client.Set(ctx, SettingKey(name, scope), data, 0).Err(); err != nil {
		return wrapErr("set", name, scope, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Backend() string { return "redis" }

func (s *RedisStore) Close() error {
	return s.client.Close()
}
