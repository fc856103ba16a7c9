// Package redisstore persists fine-tuning job state outside the process so it
// survives restarts. Last-writer-wins; only one tuning task runs at a time.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyJobStatus = "tuning:job_status"
	keyJobID     = "tuning:job_id"
	keyModelID   = "tuning:model_id"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) getKey(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *Store) GetJobStatus(ctx context.Context) (string, error) {
	return s.getKey(ctx, keyJobStatus)
}

func (s *Store) SetJobStatus(ctx context.Context, status string) error {
	return s.rdb.Set(ctx, keyJobStatus, status, 0).Err()
}

func (s *Store) GetJobID(ctx context.Context) (string, error) {
	return s.getKey(ctx, keyJobID)
}

func (s *Store) SetJobID(ctx context.Context, jobID string) error {
	return s.rdb.Set(ctx, keyJobID, jobID, 0).Err()
}

func (s *Store) GetModelID(ctx context.Context) (string, error) {
	return s.getKey(ctx, keyModelID)
}

func (s *Store) SetModelID(ctx context.Context, modelID string) error {
	return s.rdb.Set(ctx, keyModelID, modelID, 0).Err()
}
