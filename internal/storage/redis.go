package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contractgateway/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const operationKeyPrefix = "operation:"

// RedisStore keeps operation records as JSON values that expire after ttl
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		DB:              0,
		PoolSize:        20,
		ConnMaxIdleTime: 5 * time.Minute,
		DialTimeout:     2 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		MaxRetries:      2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func operationKey(id string) string {
	return operationKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, record *models.OperationRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}
	if err := s.client.Set(ctx, operationKey(record.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

// Update rewrites the record under an optimistic WATCH transaction
func (s *RedisStore) Update(ctx context.Context, id string, update models.OperationUpdate) error {
	key := operationKey(id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		updated, err := applyEncoded(raw, update, time.Now().UTC())
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update operation %s: too much contention", id)
}

// applyEncoded applies update to a JSON-encoded record and re-encodes it
func applyEncoded(raw []byte, update models.OperationUpdate, now time.Time) ([]byte, error) {
	var record models.OperationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
	}
	update.Apply(&record, now)

	updated, err := json.Marshal(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operation: %w", err)
	}
	return updated, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.OperationRecord, error) {
	raw, err := s.client.Get(ctx, operationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	var record models.OperationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
