package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

const redisKeyPrefix = "aqua:session:"

// RedisRepo keeps sessions in Redis with a TTL matching the session lifetime
type RedisRepo struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisRepo connects to redisURL and verifies the connection
func NewRedisRepo(ctx context.Context, redisURL string, maxAge time.Duration) (*RedisRepo, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewRedisRepo] invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[sessions NewRedisRepo] failed to connect to redis: %w", err)
	}
	return &RedisRepo{client: client, maxAge: maxAge}, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("[sessions Upsert] session id is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[sessions Upsert] marshal: %w", err)
	}

	ttl := r.maxAge
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return apperrors.ErrSessionExpired
		}
	}
	return r.client.Set(ctx, redisKeyPrefix+session.ID, data, ttl).Err()
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("[sessions Get] redis get failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupt entries are dropped so the user simply logs in again
		r.client.Del(ctx, redisKeyPrefix+sessionID)
		return nil, apperrors.ErrSessionNotFound
	}
	return &session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}

// Ping checks the Redis connection
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}
