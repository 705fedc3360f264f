// Package redis is a storage.KV kept in a Redis database, for kiosks that share
// one queue across terminals.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/yardsync/internal/client/storage"
)

// sizesKey is the hash that tracks the byte size of every stored key
const sizesKey = "__sizes"

// maxTxRetries bounds optimistic transaction retries on concurrent writers
const maxTxRetries = 5

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	Prefix   string // Prefix пространство имен ключей, по умолчанию "yardsync:"
	DB       int
	Capacity int64
}

// Storage represents Redis implementation of storage.KV
type Storage struct {
	client   *redis.Client
	prefix   string
	capacity int64
}

var _ storage.KV = (*Storage)(nil)

// New connects to Redis and verifies the connection with PING
func New(ctx context.Context, opts Options) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "yardsync:"
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = storage.DefaultCapacity
	}

	return &Storage{client: client, prefix: prefix, capacity: capacity}, nil
}

// Close closes the connection pool
func (s *Storage) Close() error {
	return s.client.Close()
}

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, s.wrap("failed to get "+key, err)
	}
	return val, nil
}

// Set stores value under key. The capacity check and the write run in one
// WATCH/MULTI transaction over the size index.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	sizes := s.prefix + sizesKey
	size := int64(len(key) + len(value))

	txf := func(tx *redis.Tx) error {
		all, err := tx.HGetAll(ctx, sizes).Result()
		if err != nil {
			return err
		}

		var used, oldSize int64
		for k, v := range all {
			n, _ := strconv.ParseInt(v, 10, 64)
			used += n
			if k == key {
				oldSize = n
			}
		}

		if storage.ExceedsCapacity(s.capacity, used, oldSize, size) {
			return storage.ErrQuotaExceeded
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.prefix+key, value, 0)
			pipe.HSet(ctx, sizes, key, size)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, sizes)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return err
		}
		if err != nil {
			return s.wrap("failed to save "+key, err)
		}
		return nil
	}

	return fmt.Errorf("failed to save %s: too many concurrent writers", key)
}

// Remove deletes key; absent keys are ignored
func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.prefix+key)
		pipe.HDel(ctx, s.prefix+sizesKey, key)
		return nil
	})
	if err != nil {
		return s.wrap("failed to delete "+key, err)
	}
	return nil
}

func (s *Storage) wrap(msg string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%s: %w", msg, storage.ErrStorageClosed)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
