package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

// Service wraps the redis client used for short-lived scheduler leases.
type Service struct {
	client *redis.Client
	log    *logger.Logger
}

func NewService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "RedisService")
	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	password := utils.GetEnv("REDIS_PASSWORD", "", log)
	dbNum := utils.GetEnvAsInt("REDIS_DB", 0, log)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Service{client: client, log: serviceLog}, nil
}

// AcquireLease takes a SetNX lease so only one process runs a given periodic
// dispatch per tick. Returns false when another process holds it.
func (s *Service) AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseLease drops a lease early. Best effort; the TTL is the safety net.
func (s *Service) ReleaseLease(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Warn("Failed to release lease", "key", key, "error", err)
	}
}

func (s *Service) Close() error {
	return s.client.Close()
}
