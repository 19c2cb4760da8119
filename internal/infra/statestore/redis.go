package statestore

import (
	"context"
	"time"

	"campuseval/internal/domain/service"
	"campuseval/internal/errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "campuseval:oauth:state:"

type redisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) service.OAuthStateStore {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, state, verifier string, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKeyPrefix+state, verifier, ttl).Err(); err != nil {
		return errors.Wrap(err, "save oauth state")
	}

	return nil
}

// Consume uses GETDEL so two callbacks racing on one state cannot both win.
func (s *redisStore) Consume(ctx context.Context, state string) (string, error) {
	verifier, err := s.client.GetDel(ctx, redisKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", service.ErrOAuthStateNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "consume oauth state")
	}

	return verifier, nil
}
