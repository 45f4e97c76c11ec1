package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists Job state in Redis so export jobs survive a
// process restart and are visible across replicas. Any Redis error on
// Load degrades to a miss rather than propagating, matching the
// original's broad try/except around _job_load — a Redis outage should
// make the job invisible, not crash the request.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials (lazily, on first command) a Redis client at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func jobKey(taskID string) string {
	return fmt.Sprintf("export:job:%s", taskID)
}

func (s *RedisStore) Load(ctx context.Context, taskID string) (*Job, bool, error) {
	raw, err := s.client.Get(ctx, jobKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, nil
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, false, nil
	}
	return &job, true, nil
}

func (s *RedisStore) Save(ctx context.Context, taskID string, job *Job, ttl time.Duration) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(taskID), encoded, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	return s.client.Del(ctx, jobKey(taskID)).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
