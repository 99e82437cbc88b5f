package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "lyricsync:lyrics:"

// RedisBackend shares one cache between machines. Each entry is a plain
// string key under prefix.
type RedisBackend struct {
	rdb         *redis.Client
	prefix      string
	compression bool
}

func NewRedisBackend(addr, password string, db int, prefix string, compression bool) (*RedisBackend, error) {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}

	return &RedisBackend{rdb: rdb, prefix: prefix, compression: compression}, nil
}

func (b *RedisBackend) Location() string {
	return fmt.Sprintf("redis://%s/%d %s*", b.rdb.Options().Addr, b.rdb.Options().DB, b.prefix)
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := b.rdb.Get(ctx, b.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	if b.compression {
		data, err = decompress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return data, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	if b.compression {
		var err error
		data, err = compress(data)
		if err != nil {
			return err
		}
	}
	return b.rdb.Set(ctx, b.prefix+key, data, 0).Err()
}

func (b *RedisBackend) Remove(ctx context.Context, key string) (bool, error) {
	n, err := b.rdb.Del(ctx, b.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBackend) RemoveAll(ctx context.Context) error {
	keys, err := b.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return b.rdb.Del(ctx, keys...).Err()
}

func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(b.prefix):])
	}
	return out, nil
}

func (b *RedisBackend) Size(ctx context.Context) (int64, error) {
	keys, err := b.scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := b.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, pipe.StrLen(ctx, k))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, err
	}

	var total int64
	for _, cmd := range cmds {
		total += cmd.Val()
	}
	return total, nil
}

func (b *RedisBackend) scan(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := b.rdb.Scan(ctx, cursor, b.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}
