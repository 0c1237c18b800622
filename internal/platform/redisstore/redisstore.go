// Package redisstore implements the task record store on Redis. Records
// are stored as JSON blobs keyed by task identifier, with a companion
// sorted set indexing creation time for the retention sweep.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexusdata/nexusdata/internal/store"
)

const (
	recordKeyPrefix  = "nexusdata:task:"
	createdIndexKey  = "nexusdata:tasks:created"
	connectTimeout   = 10 * time.Second
	sweepScanPortion = 256
)

// Config holds the connection parameters for the Redis backend.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisTaskStore is a store.TaskStore backed by a Redis instance.
type RedisTaskStore struct {
	rdb redis.Cmdable
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config) (*RedisTaskStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisTaskStore{rdb: client}, nil
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(rdb redis.Cmdable) *RedisTaskStore {
	return &RedisTaskStore{rdb: rdb}
}

func recordKey(taskID string) string {
	return recordKeyPrefix + taskID
}

// Create persists a new record and indexes its creation time.
func (s *RedisTaskStore) Create(ctx context.Context, rec *store.Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, recordKey(rec.TaskID), blob, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return store.ErrDuplicate
	}

	err = s.rdb.ZAdd(ctx, createdIndexKey, redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.TaskID,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// Get retrieves a record by task identifier.
func (s *RedisTaskStore) Get(ctx context.Context, taskID string) (*store.Record, error) {
	blob, err := s.rdb.Get(ctx, recordKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", taskID, err)
	}
	return &rec, nil
}

// Update applies a read-modify-write of the change set. Redis serves one
// command at a time and the dispatcher is the only writer per in-flight
// task, so the read-modify-write needs no further locking.
func (s *RedisTaskStore) Update(ctx context.Context, taskID string, changes store.Fields) error {
	rec, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if err := rec.Apply(changes); err != nil {
		return err
	}

	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.rdb.Set(ctx, recordKey(taskID), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a record and its index entry.
func (s *RedisTaskStore) Delete(ctx context.Context, taskID string) error {
	removed, err := s.rdb.Del(ctx, recordKey(taskID)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	if err := s.rdb.ZRem(ctx, createdIndexKey, taskID).Err(); err != nil {
		return fmt.Errorf("redis zrem: %w", err)
	}
	return nil
}

// DeleteOlderThan purges records created before the cutoff, walking the
// creation-time index in portions.
func (s *RedisTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	maxScore := strconv.FormatInt(cutoff.UnixNano(), 10)
	deleted := 0

	for {
		ids, err := s.rdb.ZRangeByScore(ctx, createdIndexKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   "(" + maxScore,
			Count: sweepScanPortion,
		}).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis zrangebyscore: %w", err)
		}
		if len(ids) == 0 {
			return deleted, nil
		}

		pipe := s.rdb.TxPipeline()
		for _, id := range ids {
			pipe.Del(ctx, recordKey(id))
			pipe.ZRem(ctx, createdIndexKey, id)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, fmt.Errorf("redis pipeline exec: %w", err)
		}
		deleted += len(ids)
	}
}
