package snapshot

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

var _ PrimitiveStorage[string] = &RedisStorage{}

// RedisStorage stores snapshot blobs in redis. It wraps any redis.Cmdable,
// so a plain client, a cluster client, or a pipeline all work.
type RedisStorage struct {
	currentClient redis.Cmdable
}

type Options = redis.Options

// NewRedisStorage connects a new client with the given options.
func NewRedisStorage(options Options) *RedisStorage {
	return &RedisStorage{
		currentClient: redis.NewClient(&options),
	}
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client redis.Cmdable) *RedisStorage {
	return &RedisStorage{
		currentClient: client,
	}
}

func (r *RedisStorage) GetBytes(ctx context.Context, key string) ([]byte, error) {
	bz, err := r.currentClient.Get(ctx, key).Bytes()
	if err != nil {
		if eris.Is(err, redis.Nil) {
			return nil, eris.Wrap(ErrKeyNotFound, key)
		}
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value any) error {
	return eris.Wrap(r.currentClient.Set(ctx, key, value, 0).Err(), "")
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return eris.Wrap(r.currentClient.Del(ctx, key).Err(), "")
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.currentClient.Keys(ctx, "*").Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return keys, nil
}

func (r *RedisStorage) Close(ctx context.Context) error {
	return eris.Wrap(r.currentClient.Shutdown(ctx).Err(), "")
}
