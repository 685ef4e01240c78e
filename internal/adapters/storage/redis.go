package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StorageClient = (*Redis)(nil)

const redisKeyPrefix = "kiln:"

// Redis stores objects in a redis server under "kiln:<digest>".
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the configured server and checks it responds.
func NewRedis(ctx context.Context, settings domain.RedisSettings) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     settings.Addr,
		Password: settings.Password,
		DB:       settings.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to connect to redis"), "addr", settings.Addr)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) key(key domain.ObjectKey) string {
	return redisKeyPrefix + key.Digest()
}

// PutObject stores content without expiry.
func (r *Redis) PutObject(ctx context.Context, key domain.ObjectKey, content []byte) error {
	if err := r.client.Set(ctx, r.key(key), content, 0).Err(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key.String())
	}
	return nil
}

// GetObject reads an object. Absent objects yield ErrObjectNotFound.
func (r *Redis) GetObject(ctx context.Context, key domain.ObjectKey) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, zerr.With(zerr.Wrap(domain.ErrObjectNotFound, "missing object"), "key", key.String())
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key.String())
	}
	return data, nil
}

// ObjectExists reports whether key is stored.
func (r *Redis) ObjectExists(ctx context.Context, key domain.ObjectKey) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key.String())
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
